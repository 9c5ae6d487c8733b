package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"spinwheel/web/db"
	"spinwheel/web/sheets"
)

var errBoom = errors.New("boom")

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type sentMail struct {
	kind, to, name, payload string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail bool
}

func (m *fakeMailer) record(s sentMail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errBoom
	}
	m.sent = append(m.sent, s)
	return nil
}

func (m *fakeMailer) SendSignupCode(_ context.Context, to, name, code string) error {
	return m.record(sentMail{"code", to, name, code})
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, to, name, url string) error {
	return m.record(sentMail{"reset", to, name, url})
}

func (m *fakeMailer) SendWelcome(_ context.Context, to, name string) error {
	return m.record(sentMail{"welcome", to, name, ""})
}

func (m *fakeMailer) last(kind string) (sentMail, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].kind == kind {
			return m.sent[i], true
		}
	}
	return sentMail{}, false
}

type fakeMirror struct {
	mu       sync.Mutex
	rows     []sheets.CouponRow
	statuses map[string]string
	fail     bool
}

func (m *fakeMirror) AppendCoupon(_ context.Context, row sheets.CouponRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, row)
	if m.fail {
		return errBoom
	}
	return nil
}

func (m *fakeMirror) UpdateStatus(_ context.Context, code, status string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statuses == nil {
		m.statuses = make(map[string]string)
	}
	m.statuses[code] = status
	if m.fail {
		return errBoom
	}
	return nil
}

func (m *fakeMirror) URL() string { return "https://sheet.example" }

// downStore fails the readiness check like an unreachable database.
type downStore struct {
	*db.MemoryStore
}

func (downStore) Ping(context.Context) error { return errBoom }

func mustCreateUser(t *testing.T, store *db.MemoryStore, name, email, password string, verified bool) *db.User {
	t.Helper()
	hash, err := hashPassword(password)
	if err != nil {
		t.Fatal(err)
	}
	u := &db.User{Name: name, Email: email, Password: hash, IsEmailVerified: verified, IsActive: true}
	if err := store.CreateUser(context.Background(), u); err != nil {
		t.Fatal(err)
	}
	return u
}
