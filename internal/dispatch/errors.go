package dispatch

import (
	"errors"
	"fmt"
)

// ErrQueueClosed is returned by Submit after Stop.
var ErrQueueClosed = errors.New("dispatch: queue closed")

// QueueFullError reports a lane that stayed full past EnqueueTimeout.
type QueueFullError struct {
	Length   int
	Capacity int
}

func (e *QueueFullError) Error() string {
	return fmt.Sprintf("dispatch: queue full (%d/%d)", e.Length, e.Capacity)
}

// IsQueueFull reports whether err is a back-pressure failure.
func IsQueueFull(err error) bool {
	var qf *QueueFullError
	return errors.As(err, &qf)
}
