// Package sheets mirrors coupons into a spreadsheet for restaurant staff.
// The mirror is a reporting copy; the ledger in web/db stays authoritative.
package sheets

import (
	"context"
	"time"
)

const (
	StatusActive = "Active"
	StatusUsed   = "Used"
)

// Header is the first row of the coupons tab, columns A to I.
var Header = []string{
	"Coupon Code",
	"User Name",
	"Email",
	"Offer Description",
	"Created At",
	"Expires At",
	"Status",
	"Used At",
	"User ID",
}

type CouponRow struct {
	Code             string
	UserName         string
	Email            string
	OfferDescription string
	CreatedAt        time.Time
	ExpiresAt        time.Time
	UserID           uint
}

type Mirror interface {
	AppendCoupon(ctx context.Context, row CouponRow) error
	UpdateStatus(ctx context.Context, code, status string, at time.Time) error
	// URL is empty when no spreadsheet is configured.
	URL() string
}

// Noop is used when no spreadsheet is configured.
type Noop struct{}

func (Noop) AppendCoupon(context.Context, CouponRow) error                 { return nil }
func (Noop) UpdateStatus(context.Context, string, string, time.Time) error { return nil }
func (Noop) URL() string                                                   { return "" }
