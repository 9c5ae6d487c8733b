package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"spinwheel/web/db"
	"spinwheel/web/offers"
	"spinwheel/web/sheets"

	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

const (
	couponPrefix       = "CAS"
	couponCodeLen      = 7
	couponAlphabet     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	couponValidity     = 7 * 24 * time.Hour
	maxMintAttempts    = 5
	readinessTimeout   = 3 * time.Second
	sideChannelTimeout = 15 * time.Second
	qrSize             = 256
	dayLayout          = "2006-01-02"
)

type CouponStore interface {
	Ping(ctx context.Context) error
	CountForDay(ctx context.Context, userID uint, day string) (int64, error)
	Create(ctx context.Context, c *db.Coupon) error
	FindForOwner(ctx context.Context, id, userID uint) (*db.Coupon, error)
	FindByCode(ctx context.Context, code string) (*db.Coupon, error)
	ListByUser(ctx context.Context, userID uint) ([]db.Coupon, error)
	MarkUsed(ctx context.Context, id, userID uint, at time.Time) (bool, error)
}

// CouponList splits a user's coupons the way the wallet screen shows them.
type CouponList struct {
	Active        []db.Coupon
	UsedOrExpired []db.Coupon
	Total         int
}

type Coupons struct {
	store   CouponStore
	catalog *offers.Catalog
	mirror  sheets.Mirror
	loc     *time.Location
	log     *zap.Logger
	now     func() time.Time
	newCode func() (string, error)

	wg sync.WaitGroup
}

type CouponsDeps struct {
	Store   CouponStore
	Catalog *offers.Catalog
	Mirror  sheets.Mirror
	// Location decides where one calendar day ends and the next begins.
	Location *time.Location
	Log      *zap.Logger
	Now      func() time.Time
}

func NewCoupons(d CouponsDeps) *Coupons {
	if d.Mirror == nil {
		d.Mirror = sheets.Noop{}
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	return &Coupons{
		store:   d.Store,
		catalog: d.Catalog,
		mirror:  d.Mirror,
		loc:     d.Location,
		log:     d.Log,
		now:     d.Now,
		newCode: newCouponCode,
	}
}

func newCouponCode() (string, error) {
	s, err := randomString(couponCodeLen, couponAlphabet)
	if err != nil {
		return "", err
	}
	return couponPrefix + s, nil
}

// Wait blocks until pending mirror writes have finished.
func (s *Coupons) Wait() {
	s.wg.Wait()
}

func (s *Coupons) Catalog() *offers.Catalog {
	return s.catalog
}

func (s *Coupons) day(t time.Time) string {
	return t.In(s.loc).Format(dayLayout)
}

// Spin mints today's coupon for user. selected pins the catalog index the
// client already animated; nil picks one at random.
func (s *Coupons) Spin(ctx context.Context, user *db.User, selected *int) (*db.Coupon, error) {
	pingCtx, cancel := context.WithTimeout(ctx, readinessTimeout)
	err := s.store.Ping(pingCtx)
	cancel()
	if err != nil {
		s.log.Error("coupon store not reachable", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}

	now := s.now()
	day := s.day(now)

	n, err := s.store.CountForDay(ctx, user.ID, day)
	if err != nil {
		return nil, fmt.Errorf("%w: count spins: %v", ErrPersistence, err)
	}
	if n > 0 {
		return nil, ErrDailyLimitReached
	}

	index, offer, err := s.pick(selected)
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= maxMintAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return nil, fmt.Errorf("%w: generate code: %v", ErrPersistence, err)
		}

		c := &db.Coupon{
			Code:             code,
			OfferType:        offer.Type,
			OfferDescription: offer.Description,
			UserID:           user.ID,
			SpinDay:          day,
			IsActive:         true,
			ExpiresAt:        now.Add(couponValidity),
			Conditions:       offer.Conditions,
		}
		c.CreatedAt = now

		err = s.store.Create(ctx, c)
		if err == nil {
			s.log.Info("coupon minted",
				zap.Uint("userId", user.ID),
				zap.String("code", c.Code),
				zap.Int("offerIndex", index),
				zap.String("offerType", string(offer.Type)))
			s.mirrorNew(c, user)
			return c, nil
		}
		if !errors.Is(err, db.ErrDuplicateKey) {
			return nil, fmt.Errorf("%w: create coupon: %v", ErrPersistence, err)
		}

		// Either a concurrent spin took today's slot or the code collided.
		n, cerr := s.store.CountForDay(ctx, user.ID, day)
		if cerr != nil {
			return nil, fmt.Errorf("%w: count spins: %v", ErrPersistence, cerr)
		}
		if n > 0 {
			return nil, ErrDailyLimitReached
		}
		s.log.Warn("coupon code collision", zap.String("code", code), zap.Int("attempt", attempt))
	}
	return nil, fmt.Errorf("%w: no unique coupon code after %d attempts", ErrPersistence, maxMintAttempts)
}

func (s *Coupons) pick(selected *int) (int, offers.Offer, error) {
	if selected == nil {
		i, o, err := s.catalog.Random()
		if err != nil {
			return 0, offers.Offer{}, fmt.Errorf("%w: pick offer: %v", ErrPersistence, err)
		}
		return i, o, nil
	}

	o, err := s.catalog.At(*selected)
	if errors.Is(err, offers.ErrIndexOutOfRange) {
		return 0, offers.Offer{}, fmt.Errorf("%w: %d (catalog has %d offers)", ErrInvalidOfferIndex, *selected, s.catalog.Len())
	}
	if err != nil {
		return 0, offers.Offer{}, err
	}
	return *selected, o, nil
}

// Redeem marks the user's own coupon as used. Coupons owned by someone
// else are reported as not found.
func (s *Coupons) Redeem(ctx context.Context, couponID, userID uint) (*db.Coupon, error) {
	c, err := s.store.FindForOwner(ctx, couponID, userID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find coupon: %w", err)
	}

	now := s.now()
	if !c.IsValidForUse(now) {
		return nil, ErrAlreadyUsedOrExpired
	}

	ok, err := s.store.MarkUsed(ctx, c.ID, userID, now)
	if err != nil {
		return nil, fmt.Errorf("%w: mark used: %v", ErrPersistence, err)
	}
	if !ok {
		// lost a race with another redemption, or expired in between
		return nil, ErrAlreadyUsedOrExpired
	}
	c.IsUsed = true
	c.UsedAt = &now

	s.log.Info("coupon redeemed", zap.Uint("userId", userID), zap.String("code", c.Code))
	s.mirrorStatus(c.Code, sheets.StatusUsed, now)
	return c, nil
}

// VerifyByCode is the staff lookup. It never changes the coupon.
func (s *Coupons) VerifyByCode(ctx context.Context, code string) (*db.Coupon, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, fmt.Errorf("%w: coupon code is required", ErrValidation)
	}

	c, err := s.store.FindByCode(ctx, code)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find coupon: %w", err)
	}
	if !c.IsValidForUse(s.now()) {
		return nil, ErrAlreadyUsedOrExpired
	}
	return c, nil
}

func (s *Coupons) ListForUser(ctx context.Context, userID uint) (*CouponList, error) {
	all, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}

	now := s.now()
	list := &CouponList{
		Active:        []db.Coupon{},
		UsedOrExpired: []db.Coupon{},
		Total:         len(all),
	}
	for _, c := range all {
		if c.IsValidForUse(now) {
			list.Active = append(list.Active, c)
		} else {
			list.UsedOrExpired = append(list.UsedOrExpired, c)
		}
	}
	return list, nil
}

// QRCode renders the coupon code as a PNG for the point-of-sale scanner.
func (s *Coupons) QRCode(ctx context.Context, couponID, userID uint) ([]byte, error) {
	c, err := s.store.FindForOwner(ctx, couponID, userID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find coupon: %w", err)
	}

	png, err := qrcode.Encode(c.Code, qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

// SheetURL is empty when no spreadsheet is configured.
func (s *Coupons) SheetURL() string {
	return s.mirror.URL()
}

func (s *Coupons) mirrorNew(c *db.Coupon, user *db.User) {
	row := sheets.CouponRow{
		Code:             c.Code,
		UserName:         user.Name,
		Email:            user.Email,
		OfferDescription: c.OfferDescription,
		CreatedAt:        c.CreatedAt,
		ExpiresAt:        c.ExpiresAt,
		UserID:           user.ID,
	}
	s.background(func(ctx context.Context) {
		if err := s.mirror.AppendCoupon(ctx, row); err != nil {
			s.log.Warn("mirror coupon failed", zap.String("code", row.Code), zap.Error(err))
		}
	})
}

func (s *Coupons) mirrorStatus(code, status string, at time.Time) {
	s.background(func(ctx context.Context) {
		if err := s.mirror.UpdateStatus(ctx, code, status, at); err != nil {
			s.log.Warn("mirror status failed", zap.String("code", code), zap.Error(err))
		}
	})
}

func (s *Coupons) background(fn func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sideChannelTimeout)
		defer cancel()
		fn(ctx)
	}()
}
