package postgres

import (
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/errors"
)

// PostgreSQL SQLSTATE codes the repository translates.
const (
	pgUniqueViolation  = "23505"
	pgNotNullViolation = "23502"
)

// Constraint names declared by the users migration.
const (
	constraintUsername = "uq_users_username"
	constraintEmail    = "uq_users_email"
)

// translateWriteError maps driver errors from INSERT/UPDATE/DELETE onto domain errors.
func translateWriteError(err error, details string) error {
	if pgErr, ok := errors.AsType[*pgconn.PgError](err); ok {
		switch pgErr.Code {
		case pgUniqueViolation:
			return uniqueViolationError(pgErr.ConstraintName)
		case pgNotNullViolation:
			return domainerrors.ErrValidationFailed.WithDetails(pgErr.ColumnName + " is required")
		}
	}

	// Check for GORM's duplicate key error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domainerrors.ErrConflict
	}

	return domainerrors.NewDatabaseExecuteError(err, details)
}

func uniqueViolationError(constraint string) error {
	switch constraint {
	case constraintUsername:
		return domainerrors.ErrDuplicateUsername
	case constraintEmail:
		return domainerrors.ErrDuplicateEmail
	default:
		return domainerrors.ErrConflict
	}
}
