package types

import "time"

// ------------------------------
// Identity & session
// ------------------------------

// Session is the authenticated user's view of the world. It is owned by
// the session manager and handed out by value so callers cannot mutate
// the manager's copy.
type Session struct {
	IdentityID      string    `json:"identityId"`
	Email           string    `json:"email"`
	DisplayName     string    `json:"displayName,omitempty"`
	SessionToken    string    `json:"sessionToken"`
	IssuedAt        time.Time `json:"issuedAt"`
	IsAuthenticated bool      `json:"isAuthenticated"`
}

// UserSnapshot is the last-known profile payload persisted alongside the
// tokens so a restored session can render without a network round trip.
type UserSnapshot struct {
	IdentityID  string `json:"identityId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
}

// StoredCredentialSet is the single durable record kept across process
// restarts. The three fields are written and cleared as a unit; a record
// missing any of them is treated as corrupt by the session manager.
type StoredCredentialSet struct {
	SessionToken  string       `json:"sessionToken"`
	IdentityToken string       `json:"identityToken"`
	UserSnapshot  UserSnapshot `json:"userSnapshot"`
}

// Complete reports whether the record carries every field of the set.
func (s *StoredCredentialSet) Complete() bool {
	return s != nil && s.SessionToken != "" && s.IdentityToken != "" && s.UserSnapshot.IdentityID != ""
}

// ------------------------------
// Cached resources
// ------------------------------

// Resource identifies one cached collection.
type Resource string

const (
	ResourcePosts         Resource = "posts"
	ResourceMatches       Resource = "matches"
	ResourceNotifications Resource = "notifications"
)

// ResourceMessages keys the message collection of a single conversation.
func ResourceMessages(conversationID string) Resource {
	return Resource("messages:" + conversationID)
}

// Post is a feed item.
type Post struct {
	ID           string    `json:"id"`
	AuthorID     string    `json:"authorId"`
	AuthorName   string    `json:"authorName"`
	Body         string    `json:"body"`
	ImageURL     string    `json:"imageUrl,omitempty"`
	LikeCount    int       `json:"likeCount"`
	IsLiked      bool      `json:"isLiked"`
	CommentCount int       `json:"commentCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Match is a cricket match listing.
type Match struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Venue       string    `json:"venue"`
	Status      string    `json:"status"`
	StartsAt    time.Time `json:"startsAt"`
	PlayerCount int       `json:"playerCount"`
	MaxPlayers  int       `json:"maxPlayers"`
	IsJoined    bool      `json:"isJoined"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Message is one entry of a conversation thread.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	SenderName     string    `json:"senderName,omitempty"`
	Body           string    `json:"body"`
	SentAt         time.Time `json:"sentAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Notification is a user-facing alert.
type Notification struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Body      string    `json:"body"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ItemID / ItemUpdatedAt let the cache treat every resource uniformly.

func (p Post) ItemID() string                   { return p.ID }
func (p Post) ItemUpdatedAt() time.Time         { return p.UpdatedAt }
func (m Match) ItemID() string                  { return m.ID }
func (m Match) ItemUpdatedAt() time.Time        { return m.UpdatedAt }
func (m Message) ItemID() string                { return m.ID }
func (m Message) ItemUpdatedAt() time.Time      { return m.UpdatedAt }
func (n Notification) ItemID() string           { return n.ID }
func (n Notification) ItemUpdatedAt() time.Time { return n.UpdatedAt }
