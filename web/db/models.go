package db

import (
	"time"

	"spinwheel/web/offers"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Name     string `gorm:"size:100;not null"`
	Email    string `gorm:"size:255;uniqueIndex;not null"` // always lower-case
	Password string `gorm:"size:100;not null"`             // bcrypt hash

	IsEmailVerified bool `gorm:"not null;default:false"`
	IsActive        bool `gorm:"not null;default:true"`

	// sha256 of the token mailed to the user, never the token itself
	PasswordResetToken   *string `gorm:"size:64;index"`
	PasswordResetExpires *time.Time

	Coupons []Coupon `gorm:"foreignKey:UserID"`
}

type Coupon struct {
	gorm.Model
	Code             string           `gorm:"size:12;uniqueIndex;not null"`
	OfferType        offers.OfferType `gorm:"size:40;not null"`
	OfferDescription string           `gorm:"size:500;not null"`

	UserID uint `gorm:"not null;uniqueIndex:idx_coupons_user_day,priority:1"`
	User   User
	// calendar day of the spin in the deployment timezone, YYYY-MM-DD
	SpinDay string `gorm:"size:10;not null;uniqueIndex:idx_coupons_user_day,priority:2"`

	IsUsed    bool `gorm:"not null;default:false"`
	UsedAt    *time.Time
	IsActive  bool      `gorm:"not null;default:true"`
	ExpiresAt time.Time `gorm:"not null;index"`

	Conditions offers.Conditions `gorm:"embedded;embeddedPrefix:cond_"`
}

func (c *Coupon) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// IsValidForUse depends on the clock, so it is evaluated on every read.
func (c *Coupon) IsValidForUse(now time.Time) bool {
	return !c.IsUsed && c.IsActive && !c.IsExpired(now)
}
