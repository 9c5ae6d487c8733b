package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
)

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserRepo is the gorm-backed credential store. Every call runs under its
// own operation timeout and writes through immediately.
type UserRepo struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewUserRepo(gdb *gorm.DB, timeout time.Duration) *UserRepo {
	return &UserRepo{db: gdb, timeout: timeout}
}

func (r *UserRepo) session(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	return r.db.WithContext(ctx), cancel
}

func (r *UserRepo) CreateUser(ctx context.Context, u *User) error {
	tx, cancel := r.session(ctx)
	defer cancel()

	u.Email = NormalizeEmail(u.Email)
	if err := tx.Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateEmail
		}
		return err
	}
	return nil
}

func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	tx, cancel := r.session(ctx)
	defer cancel()

	var user User
	if err := tx.Where("email = ?", NormalizeEmail(email)).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *UserRepo) FindByID(ctx context.Context, id uint) (*User, error) {
	tx, cancel := r.session(ctx)
	defer cancel()

	var user User
	if err := tx.First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// FindByResetToken only matches tokens that have not expired at now.
func (r *UserRepo) FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (*User, error) {
	tx, cancel := r.session(ctx)
	defer cancel()

	var user User
	err := tx.Where("password_reset_token = ? AND password_reset_expires > ?", tokenHash, now).
		First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *UserRepo) SetEmailVerified(ctx context.Context, id uint) error {
	return r.update(ctx, id, map[string]interface{}{"is_email_verified": true})
}

func (r *UserRepo) SetPasswordResetToken(ctx context.Context, id uint, tokenHash string, expires time.Time) error {
	return r.update(ctx, id, map[string]interface{}{
		"password_reset_token":   tokenHash,
		"password_reset_expires": expires,
	})
}

func (r *UserRepo) ClearPasswordResetToken(ctx context.Context, id uint) error {
	return r.update(ctx, id, map[string]interface{}{
		"password_reset_token":   nil,
		"password_reset_expires": nil,
	})
}

// UpdatePassword replaces the hash and clears reset state in one statement
// so a consumed reset token can never be replayed.
func (r *UserRepo) UpdatePassword(ctx context.Context, id uint, hash string) error {
	return r.update(ctx, id, map[string]interface{}{
		"password":               hash,
		"password_reset_token":   nil,
		"password_reset_expires": nil,
	})
}

func (r *UserRepo) update(ctx context.Context, id uint, fields map[string]interface{}) error {
	tx, cancel := r.session(ctx)
	defer cancel()

	res := tx.Model(&User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
