package services

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"spinwheel/web/db"
	"spinwheel/web/offers"
)

var kolkata = time.FixedZone("IST", 5*3600+1800)

type couponsEnv struct {
	svc    *Coupons
	store  *db.MemoryStore
	mirror *fakeMirror
	clock  *testClock
	ada    *db.User
	bob    *db.User
}

func newCouponsEnv(t *testing.T) *couponsEnv {
	t.Helper()
	clock := &testClock{t: time.Date(2026, 10, 15, 10, 0, 0, 0, kolkata)}
	store := db.NewMemoryStore()
	mirror := &fakeMirror{}
	svc := NewCoupons(CouponsDeps{
		Store:    store,
		Catalog:  offers.Default(),
		Mirror:   mirror,
		Location: kolkata,
		Now:      clock.Now,
	})
	return &couponsEnv{
		svc:    svc,
		store:  store,
		mirror: mirror,
		clock:  clock,
		ada:    mustCreateUser(t, store, "Ada", "ada@example.com", "secret1", true),
		bob:    mustCreateUser(t, store, "Bob", "bob@example.com", "secret1", true),
	}
}

func intp(i int) *int { return &i }

func TestSpinMintsCoupon(t *testing.T) {
	e := newCouponsEnv(t)

	c, err := e.svc.Spin(context.Background(), e.ada, intp(6))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(c.Code, "CAS") || len(c.Code) != 10 || strings.ToUpper(c.Code) != c.Code {
		t.Error("Unexpected code", c.Code)
	}
	if c.OfferType != offers.Flat20PercentOff2000 || c.Conditions.MinBillAmount != 2000 {
		t.Errorf("Expected offer 6, got %s %+v", c.OfferType, c.Conditions)
	}
	if !c.ExpiresAt.Equal(e.clock.Now().Add(7 * 24 * time.Hour)) {
		t.Error("Expected 7 day validity, got", c.ExpiresAt)
	}
	if c.UserID != e.ada.ID || c.IsUsed || !c.IsActive {
		t.Errorf("Unexpected coupon state %+v", c)
	}
}

func TestSpinOncePerDay(t *testing.T) {
	ctx := context.Background()
	e := newCouponsEnv(t)

	if _, err := e.svc.Spin(ctx, e.ada, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := e.svc.Spin(ctx, e.ada, nil); !errors.Is(err, ErrDailyLimitReached) {
		t.Fatal("Expected ErrDailyLimitReached, got", err)
	}
	if _, err := e.svc.Spin(ctx, e.bob, nil); err != nil {
		t.Error("Expected another user unaffected, got", err)
	}

	e.clock.Advance(24 * time.Hour)
	if _, err := e.svc.Spin(ctx, e.ada, nil); err != nil {
		t.Error("Expected next day spin to succeed, got", err)
	}
}

func TestSpinDayBoundaryUsesDeploymentZone(t *testing.T) {
	ctx := context.Background()
	e := newCouponsEnv(t)

	// 23:50 and 00:10 local are 20 minutes apart but on different days.
	e.clock.Set(time.Date(2026, 10, 15, 23, 50, 0, 0, kolkata))
	if _, err := e.svc.Spin(ctx, e.ada, nil); err != nil {
		t.Fatal(err)
	}
	e.clock.Advance(20 * time.Minute)
	if _, err := e.svc.Spin(ctx, e.ada, nil); err != nil {
		t.Error("Expected spin after local midnight to succeed, got", err)
	}
}

func TestConcurrentSpinsMintOnce(t *testing.T) {
	ctx := context.Background()
	e := newCouponsEnv(t)

	const n = 10
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.svc.Spin(ctx, e.ada, nil)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case !errors.Is(err, ErrDailyLimitReached):
			t.Error("Unexpected error", err)
		}
	}
	if ok != 1 {
		t.Error("Expected exactly one successful spin, got", ok)
	}

	list, _ := e.store.ListByUser(ctx, e.ada.ID)
	if len(list) != 1 {
		t.Error("Expected one coupon stored, got", len(list))
	}
}

func TestSpinInvalidOfferIndex(t *testing.T) {
	ctx := context.Background()
	e := newCouponsEnv(t)

	for _, i := range []int{99, 8, -1} {
		if _, err := e.svc.Spin(ctx, e.ada, intp(i)); !errors.Is(err, ErrInvalidOfferIndex) {
			t.Errorf("Expected ErrInvalidOfferIndex for %d, got %v", i, err)
		}
	}
	list, _ := e.store.ListByUser(ctx, e.ada.ID)
	if len(list) != 0 {
		t.Error("Expected no coupon created, got", len(list))
	}
}

func TestSpinStoreUnavailable(t *testing.T) {
	e := newCouponsEnv(t)
	svc := NewCoupons(CouponsDeps{Store: downStore{e.store}, Catalog: offers.Default(), Now: e.clock.Now})

	if _, err := svc.Spin(context.Background(), e.ada, nil); !errors.Is(err, ErrServiceUnavailable) {
		t.Error("Expected ErrServiceUnavailable, got", err)
	}
}

func TestSpinRetriesCodeCollision(t *testing.T) {
	ctx := context.Background()
	e := newCouponsEnv(t)

	taken := &db.Coupon{Code: "CASTAKEN00", UserID: e.bob.ID, SpinDay: "2026-10-01", IsActive: true, ExpiresAt: e.clock.Now()}
	if err := e.store.Create(ctx, taken); err != nil {
		t.Fatal(err)
	}

	codes := []string{"CASTAKEN00", "CASTAKEN00", "CASFRESH00"}
	e.svc.newCode = func() (string, error) {
		c := codes[0]
		codes = codes[1:]
		return c, nil
	}

	c, err := e.svc.Spin(ctx, e.ada, nil)
	if err != nil {
		t.Fatal(err)
	}
	if c.Code != "CASFRESH00" {
		t.Error("Expected regenerated code, got", c.Code)
	}
}

func TestSpinGivesUpAfterRepeatedCollisions(t *testing.T) {
	ctx := context.Background()
	e := newCouponsEnv(t)

	taken := &db.Coupon{Code: "CASTAKEN00", UserID: e.bob.ID, SpinDay: "2026-10-01", IsActive: true, ExpiresAt: e.clock.Now()}
	e.store.Create(ctx, taken)
	e.svc.newCode = func() (string, error) { return "CASTAKEN00", nil }

	if _, err := e.svc.Spin(ctx, e.ada, nil); !errors.Is(err, ErrPersistence) {
		t.Error("Expected ErrPersistence, got", err)
	}
}

func TestMirrorFailureDoesNotFailSpin(t *testing.T) {
	ctx := context.Background()
	e := newCouponsEnv(t)
	e.mirror.fail = true

	c, err := e.svc.Spin(ctx, e.ada, nil)
	if err != nil {
		t.Fatal("Expected spin to succeed despite mirror failure, got", err)
	}
	e.svc.Wait()

	if len(e.mirror.rows) != 1 || e.mirror.rows[0].Code != c.Code || e.mirror.rows[0].Email != "ada@example.com" {
		t.Errorf("Expected mirror to be attempted, got %+v", e.mirror.rows)
	}
	if _, err := e.svc.Redeem(ctx, c.ID, e.ada.ID); err != nil {
		t.Error("Expected redemption to succeed despite mirror failure, got", err)
	}
	e.svc.Wait()
}

func TestRedeem(t *testing.T) {
	ctx := context.Background()
	e := newCouponsEnv(t)

	c, _ := e.svc.Spin(ctx, e.ada, nil)

	if _, err := e.svc.Redeem(ctx, c.ID, e.bob.ID); !errors.Is(err, ErrNotFound) {
		t.Error("Expected other user's coupon to be not found, got", err)
	}
	if _, err := e.svc.Redeem(ctx, 9999, e.ada.ID); !errors.Is(err, ErrNotFound) {
		t.Error("Expected unknown coupon to be not found, got", err)
	}

	e.clock.Advance(time.Hour)
	used, err := e.svc.Redeem(ctx, c.ID, e.ada.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !used.IsUsed || used.UsedAt == nil || !used.UsedAt.Equal(e.clock.Now()) {
		t.Errorf("Expected coupon used now, got %+v", used)
	}

	if _, err := e.svc.Redeem(ctx, c.ID, e.ada.ID); !errors.Is(err, ErrAlreadyUsedOrExpired) {
		t.Error("Expected second redemption refused, got", err)
	}

	e.svc.Wait()
	if e.mirror.statuses[c.Code] != "Used" {
		t.Error("Expected status mirrored")
	}
}

func TestRedeemExpired(t *testing.T) {
	ctx := context.Background()
	e := newCouponsEnv(t)

	c, _ := e.svc.Spin(ctx, e.ada, nil)
	e.clock.Advance(8 * 24 * time.Hour)
	if _, err := e.svc.Redeem(ctx, c.ID, e.ada.ID); !errors.Is(err, ErrAlreadyUsedOrExpired) {
		t.Error("Expected expired coupon refused, got", err)
	}
}

func TestConcurrentRedeemSucceedsOnce(t *testing.T) {
	ctx := context.Background()
	e := newCouponsEnv(t)
	c, _ := e.svc.Spin(ctx, e.ada, nil)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.svc.Redeem(ctx, c.ID, e.ada.ID)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
		} else if !errors.Is(err, ErrAlreadyUsedOrExpired) {
			t.Error("Unexpected error", err)
		}
	}
	if ok != 1 {
		t.Error("Expected exactly one redemption, got", ok)
	}
	e.svc.Wait()
}

func TestVerifyByCodeRoundTrip(t *testing.T) {
	ctx := context.Background()
	e := newCouponsEnv(t)

	minted, err := e.svc.Spin(ctx, e.ada, intp(2))
	if err != nil {
		t.Fatal(err)
	}

	// A later deployment with reworded offers must not change issued coupons.
	edited := offers.Default().All()
	for i := range edited {
		edited[i].Description = "changed"
	}
	catalog, err := offers.New(edited)
	if err != nil {
		t.Fatal(err)
	}
	staff := NewCoupons(CouponsDeps{Store: e.store, Catalog: catalog, Location: kolkata, Now: e.clock.Now})

	got, err := staff.VerifyByCode(ctx, strings.ToLower(minted.Code))
	if err != nil {
		t.Fatal(err)
	}
	if got.OfferDescription != minted.OfferDescription || got.Conditions != minted.Conditions || !got.ExpiresAt.Equal(minted.ExpiresAt) {
		t.Errorf("Expected minted values, got %+v", got)
	}
	if got.User.Email != "ada@example.com" {
		t.Error("Expected owner attached, got", got.User.Email)
	}

	again, _ := e.store.FindForOwner(ctx, minted.ID, e.ada.ID)
	if again.IsUsed {
		t.Error("Expected lookup not to redeem")
	}

	if _, err := staff.VerifyByCode(ctx, "CASNOPE000"); !errors.Is(err, ErrNotFound) {
		t.Error("Expected ErrNotFound, got", err)
	}

	e.svc.Redeem(ctx, minted.ID, e.ada.ID)
	if _, err := staff.VerifyByCode(ctx, minted.Code); !errors.Is(err, ErrAlreadyUsedOrExpired) {
		t.Error("Expected used coupon refused, got", err)
	}
	e.svc.Wait()
}

func TestListForUser(t *testing.T) {
	ctx := context.Background()
	e := newCouponsEnv(t)

	first, _ := e.svc.Spin(ctx, e.ada, nil)
	e.clock.Advance(24 * time.Hour)
	second, _ := e.svc.Spin(ctx, e.ada, nil)
	e.svc.Redeem(ctx, first.ID, e.ada.ID)

	list, err := e.svc.ListForUser(ctx, e.ada.ID)
	if err != nil {
		t.Fatal(err)
	}
	if list.Total != 2 || len(list.Active) != 1 || len(list.UsedOrExpired) != 1 {
		t.Fatalf("Unexpected split %+v", list)
	}
	if list.Active[0].ID != second.ID || list.UsedOrExpired[0].ID != first.ID {
		t.Error("Expected used coupon in history")
	}

	empty, _ := e.svc.ListForUser(ctx, e.bob.ID)
	if empty.Total != 0 || empty.Active == nil {
		t.Error("Expected empty non-nil lists")
	}
	e.svc.Wait()
}

func TestQRCode(t *testing.T) {
	ctx := context.Background()
	e := newCouponsEnv(t)
	c, _ := e.svc.Spin(ctx, e.ada, nil)

	png, err := e.svc.QRCode(ctx, c.ID, e.ada.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Error("Expected PNG output")
	}
	if _, err := e.svc.QRCode(ctx, c.ID, e.bob.ID); !errors.Is(err, ErrNotFound) {
		t.Error("Expected ErrNotFound for other user, got", err)
	}
}

func TestSheetURL(t *testing.T) {
	e := newCouponsEnv(t)
	if e.svc.SheetURL() != "https://sheet.example" {
		t.Error("Expected mirror URL")
	}
	if NewCoupons(CouponsDeps{Store: e.store, Catalog: offers.Default()}).SheetURL() != "" {
		t.Error("Expected empty URL without mirror")
	}
}
