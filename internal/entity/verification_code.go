package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VerificationPurpose string

const (
	PurposeLogin         VerificationPurpose = "login"
	PurposeRegister      VerificationPurpose = "register"
	PurposeChangeEmail   VerificationPurpose = "change-email"
	PurposeResetPassword VerificationPurpose = "reset-password"
)

// Purposes lists every purpose a code can be issued for.
var Purposes = []VerificationPurpose{
	PurposeLogin,
	PurposeRegister,
	PurposeChangeEmail,
	PurposeResetPassword,
}

func (p VerificationPurpose) Valid() bool {
	for _, known := range Purposes {
		if p == known {
			return true
		}
	}
	return false
}

// VerificationCode rows are kept after use or expiry as an audit trail.
type VerificationCode struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey"`

	Email   string              `gorm:"type:varchar(255);not null;index:idx_verification_codes_lookup,priority:1"`
	Purpose VerificationPurpose `gorm:"type:varchar(32);not null;index:idx_verification_codes_lookup,priority:2"`
	Code    string              `gorm:"type:char(6);not null"`

	ExpiresAt time.Time `gorm:"not null"`
	IsUsed    bool      `gorm:"not null;default:false"`
	UsedAt    *time.Time

	CreatedAt time.Time `gorm:"index:idx_verification_codes_lookup,priority:3"`
}

func (c *VerificationCode) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Active reports whether the code can still be consumed at now.
func (c *VerificationCode) Active(now time.Time) bool {
	return !c.IsUsed && now.Before(c.ExpiresAt)
}
