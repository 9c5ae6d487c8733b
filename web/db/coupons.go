package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// CouponRepo is the gorm-backed coupon ledger. Rows are never deleted.
type CouponRepo struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewCouponRepo(gdb *gorm.DB, timeout time.Duration) *CouponRepo {
	return &CouponRepo{db: gdb, timeout: timeout}
}

func (r *CouponRepo) session(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	return r.db.WithContext(ctx), cancel
}

// Ping checks the connection pool can reach the database. The caller bounds
// it with a short deadline.
func (r *CouponRepo) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *CouponRepo) CountForDay(ctx context.Context, userID uint, day string) (int64, error) {
	tx, cancel := r.session(ctx)
	defer cancel()

	var n int64
	err := tx.Model(&Coupon{}).Where("user_id = ? AND spin_day = ?", userID, day).Count(&n).Error
	return n, err
}

// Create inserts a coupon. Both the code and the (user, day) pair are unique;
// a violation of either comes back as ErrDuplicateKey.
func (r *CouponRepo) Create(ctx context.Context, c *Coupon) error {
	tx, cancel := r.session(ctx)
	defer cancel()

	if err := tx.Omit("User").Create(c).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateKey
		}
		return err
	}
	return nil
}

// FindForOwner returns an active coupon only when it belongs to userID.
func (r *CouponRepo) FindForOwner(ctx context.Context, id, userID uint) (*Coupon, error) {
	tx, cancel := r.session(ctx)
	defer cancel()

	var c Coupon
	err := tx.Where("id = ? AND user_id = ? AND is_active = ?", id, userID, true).First(&c).Error
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *CouponRepo) FindByCode(ctx context.Context, code string) (*Coupon, error) {
	tx, cancel := r.session(ctx)
	defer cancel()

	var c Coupon
	err := tx.Preload("User").Where("code = ? AND is_active = ?", code, true).First(&c).Error
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

// ListByUser returns the user's active coupons, newest first.
func (r *CouponRepo) ListByUser(ctx context.Context, userID uint) ([]Coupon, error) {
	tx, cancel := r.session(ctx)
	defer cancel()

	var list []Coupon
	err := tx.Where("user_id = ? AND is_active = ?", userID, true).
		Order("created_at DESC").Order("id DESC").
		Find(&list).Error
	return list, err
}

// MarkUsed flips is_used only if the coupon is still redeemable at `at`.
// It reports false when another request got there first.
func (r *CouponRepo) MarkUsed(ctx context.Context, id, userID uint, at time.Time) (bool, error) {
	tx, cancel := r.session(ctx)
	defer cancel()

	res := tx.Model(&Coupon{}).
		Where("id = ? AND user_id = ? AND is_used = ? AND is_active = ? AND expires_at >= ?", id, userID, false, true, at).
		Updates(map[string]interface{}{"is_used": true, "used_at": at})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
