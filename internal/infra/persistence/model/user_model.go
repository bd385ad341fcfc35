// Package model holds the GORM persistence models.
package model

import (
	"time"
)

// UserModel mirrors the 'users' table created by migration 00001.
// Boolean columns carry no GORM default so an explicit false is written as given.
type UserModel struct {
	ID             int64     `gorm:"primaryKey;autoIncrement"`
	Username       string    `gorm:"type:varchar(50);not null;uniqueIndex:uq_users_username"`
	Email          string    `gorm:"type:varchar(255);not null;uniqueIndex:uq_users_email"`
	HashedPassword string    `gorm:"column:hashed_password;type:varchar(255);not null"`
	IsActive       bool      `gorm:"not null"`
	IsSuperuser    bool      `gorm:"not null"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

// TableName explicitly sets the table name for GORM.
func (UserModel) TableName() string {
	return "users"
}
