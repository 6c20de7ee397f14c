package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Interaction statuses. "ok" marks a genuine completion; the other two mark
// degraded replies where the caller received a canned sentinel instead.
const (
	StatusOK          = "ok"
	StatusUnavailable = "unavailable"
	StatusError       = "error"
)

// Interaction is one user message / assistant reply exchange.
type Interaction struct {
	ID        string
	CreatedAt time.Time
	Username  string
	Message   string
	Reply     string
	Status    string
}
