package pitchside

// Functional options applied during New. Keeping them in a standalone
// file makes every available knob discoverable at a glance.

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/pitchside/pitchside-go/internal/channel"
	"github.com/pitchside/pitchside-go/internal/credstore"
	"github.com/pitchside/pitchside-go/internal/idp"
)

// Option configures a Client during construction in New. Options run
// before the session-token transport wrapper is installed, so
// transport options sit beneath the bearer wrapper.
type Option func(*Client) error

// WithHTTPTimeout sets the underlying http.Client Timeout. Prefer
// per-request context deadlines; this is the coarse safety net around
// a whole request. Must be greater than zero.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d <= 0 {
			return fmt.Errorf("http timeout must be > 0")
		}
		c.http.Timeout = d
		return nil
	}
}

// WithLogger replaces the default stderr logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) error {
		c.log = log
		return nil
	}
}

// WithDebugLogging wraps the transport so each request/response is
// dumped to the log. Also enabled automatically by PITCHSIDE_DEBUG or
// DEBUG environment variables.
func WithDebugLogging(enabled bool) Option {
	return func(c *Client) error {
		if enabled {
			base := c.http.Transport
			if base == nil {
				base = defaultTransport()
			}
			c.http.Transport = &debugTransport{base: base}
		}
		return nil
	}
}

// WithPageSize sets the page size used by the fetch operations.
func WithPageSize(n int) Option {
	return func(c *Client) error {
		if n <= 0 {
			return fmt.Errorf("page size must be > 0")
		}
		c.pageSize = n
		return nil
	}
}

// WithRedisCredentials stores the credential record in Redis instead
// of memory or a file. Useful when several processes share one device
// identity.
func WithRedisCredentials(client *redis.Client) Option {
	return func(c *Client) error {
		store, err := credstore.New(credstore.StoreTypeRedis, credstore.WithRedisClient(client))
		if err != nil {
			return err
		}
		c.store = store
		return nil
	}
}

// withStore injects a credential store directly. Test seam.
func withStore(s credstore.Store) Option {
	return func(c *Client) error {
		c.store = s
		return nil
	}
}

// withProvider injects an identity provider. Test seam.
func withProvider(p idp.Provider) Option {
	return func(c *Client) error {
		c.provider = p
		return nil
	}
}

// withDialer injects the channel dialer. Test seam.
func withDialer(d channel.Dialer) Option {
	return func(c *Client) error {
		c.dialer = d
		return nil
	}
}
