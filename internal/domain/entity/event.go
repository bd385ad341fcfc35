package entity

import "time"

// AccountEventType names a committed change to a user record.
type AccountEventType string

const (
	AccountEventRegistered AccountEventType = "user.registered"
	AccountEventUpdated    AccountEventType = "user.updated"
	AccountEventDeleted    AccountEventType = "user.deleted"
)

// String returns the string representation of the event type.
func (t AccountEventType) String() string {
	return string(t)
}

// AccountEvent is emitted after a user write has been committed.
type AccountEvent struct {
	ID         string           `json:"id"`
	Type       AccountEventType `json:"type"`
	RequestID  string           `json:"request_id,omitempty"`
	UserID     int64            `json:"user_id"`
	Username   string           `json:"username"`
	Email      string           `json:"email"`
	Fields     []string         `json:"fields,omitempty"` // changed columns, for user.updated
	OccurredAt time.Time        `json:"occurred_at"`
}
