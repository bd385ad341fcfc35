// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"strings"
	"time"
)

// User is the single account record of the service.
type User struct {
	ID           int64     // Store-assigned identifier, immutable after creation.
	Username     string    // Unique login name; used as the token subject.
	Email        string    // Unique contact address.
	PasswordHash string    // bcrypt output; never a plaintext value.
	IsActive     bool      // Inactive accounts cannot log in or authenticate.
	IsSuperuser  bool      // Superusers may manage any account.
	CreatedAt    time.Time // Timestamp of when this account was created.
	UpdatedAt    time.Time // Timestamp of the last modification to this account.
}

// CanManage reports whether u may modify or delete the account identified by targetID.
func (u *User) CanManage(targetID int64) bool {
	if u == nil {
		return false
	}

	return u.IsSuperuser || u.ID == targetID
}

// NormalizeEmail lower-cases and trims an address so uniqueness checks are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
