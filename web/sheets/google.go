package sheets

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"
)

const (
	timeLayout   = "02/01/2006, 15:04:05"
	setupTimeout = 15 * time.Second
)

type Config struct {
	SpreadsheetID string
	Tab           string
	// CredentialsJSON is a service account key.
	CredentialsJSON string
	Location        *time.Location
}

type Google struct {
	srv *gsheets.Service
	id  string
	tab string
	loc *time.Location
}

// NewGoogle builds the client and makes sure the tab and header row exist.
// ctx must outlive the client; credentials are refreshed with it.
func NewGoogle(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Google, error) {
	if len(opts) == 0 {
		opts = []option.ClientOption{
			option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)),
			option.WithScopes(gsheets.SpreadsheetsScope),
		}
	}
	srv, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}

	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	g := &Google{srv: srv, id: cfg.SpreadsheetID, tab: cfg.Tab, loc: loc}

	setupCtx, cancel := context.WithTimeout(ctx, setupTimeout)
	defer cancel()
	if err := g.ensureTab(setupCtx); err != nil {
		return nil, err
	}
	if err := g.ensureHeader(setupCtx); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Google) ensureTab(ctx context.Context) error {
	ss, err := g.srv.Spreadsheets.Get(g.id).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil && s.Properties.Title == g.tab {
			return nil
		}
	}

	req := &gsheets.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheets.Request{{
			AddSheet: &gsheets.AddSheetRequest{
				Properties: &gsheets.SheetProperties{Title: g.tab},
			},
		}},
	}
	if _, err := g.srv.Spreadsheets.BatchUpdate(g.id, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", g.tab, err)
	}
	return nil
}

func (g *Google) ensureHeader(ctx context.Context) error {
	rng := a1Range(g.tab, "A1:I1")
	resp, err := g.srv.Spreadsheets.Values.Get(g.id, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if len(resp.Values) > 0 {
		return nil
	}

	row := make([]interface{}, len(Header))
	for i, h := range Header {
		row[i] = h
	}
	vr := &gsheets.ValueRange{Values: [][]interface{}{row}}
	if _, err := g.srv.Spreadsheets.Values.Update(g.id, rng, vr).ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

func (g *Google) AppendCoupon(ctx context.Context, row CouponRow) error {
	vr := &gsheets.ValueRange{Values: [][]interface{}{g.values(row)}}
	_, err := g.srv.Spreadsheets.Values.Append(g.id, a1Range(g.tab, "A:I"), vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append coupon %s: %w", row.Code, err)
	}
	return nil
}

func (g *Google) values(row CouponRow) []interface{} {
	return []interface{}{
		row.Code,
		row.UserName,
		row.Email,
		row.OfferDescription,
		row.CreatedAt.In(g.loc).Format(timeLayout),
		row.ExpiresAt.In(g.loc).Format(timeLayout),
		StatusActive,
		"",
		strconv.FormatUint(uint64(row.UserID), 10),
	}
}

// UpdateStatus rewrites the Status and Used At cells of the row holding code.
func (g *Google) UpdateStatus(ctx context.Context, code, status string, at time.Time) error {
	resp, err := g.srv.Spreadsheets.Values.Get(g.id, a1Range(g.tab, "A:I")).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read rows: %w", err)
	}

	for i, r := range resp.Values {
		if i == 0 || len(r) == 0 || fmt.Sprint(r[0]) != code {
			continue
		}
		rng := a1Range(g.tab, fmt.Sprintf("G%d:H%d", i+1, i+1))
		vr := &gsheets.ValueRange{Values: [][]interface{}{{status, at.In(g.loc).Format(timeLayout)}}}
		if _, err := g.srv.Spreadsheets.Values.Update(g.id, rng, vr).ValueInputOption("RAW").Context(ctx).Do(); err != nil {
			return fmt.Errorf("update coupon %s: %w", code, err)
		}
		return nil
	}
	return fmt.Errorf("coupon %s not found in sheet", code)
}

// a1Range quotes the tab name so spaces and punctuation survive A1 parsing.
func a1Range(tab, cells string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'!" + cells
}

func (g *Google) URL() string {
	return SheetURL(g.id)
}

func SheetURL(spreadsheetID string) string {
	if spreadsheetID == "" {
		return ""
	}
	return "https://docs.google.com/spreadsheets/d/" + spreadsheetID + "/edit#gid=0"
}
