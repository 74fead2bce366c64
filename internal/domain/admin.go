package domain

import "time"

// Admin is the single administrator account of the storefront.
type Admin struct {
	ID           string
	Username     string
	PasswordHash string
	IsSetup      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SetupState reports where the admin account is in the bootstrap lifecycle.
type SetupState string

const (
	SetupStateUninitialized      SetupState = "uninitialized"
	SetupStateDefaultCredentials SetupState = "default_credentials"
	SetupStateRotated            SetupState = "rotated"
)

// State derives the lifecycle state from a possibly missing admin record.
func (a *Admin) State() SetupState {
	switch {
	case a == nil:
		return SetupStateUninitialized
	case a.IsSetup:
		return SetupStateRotated
	default:
		return SetupStateDefaultCredentials
	}
}
