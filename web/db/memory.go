package db

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps users and coupons in process memory with the same
// uniqueness rules as the SQL schema. It backs DB_DRIVER=memory for local
// runs and the service tests; nothing survives a restart.
type MemoryStore struct {
	mu sync.RWMutex

	nextUserID   uint
	nextCouponID uint

	users        map[uint]*User
	usersByEmail map[string]uint

	coupons       map[uint]*Coupon
	couponsByCode map[string]uint
	couponsByDay  map[dayKey]uint
}

type dayKey struct {
	userID uint
	day    string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[uint]*User),
		usersByEmail:  make(map[string]uint),
		coupons:       make(map[uint]*Coupon),
		couponsByCode: make(map[string]uint),
		couponsByDay:  make(map[dayKey]uint),
	}
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *MemoryStore) CreateUser(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u.Email = NormalizeEmail(u.Email)
	if _, ok := m.usersByEmail[u.Email]; ok {
		return ErrDuplicateEmail
	}
	m.nextUserID++
	now := time.Now().UTC()
	u.ID = m.nextUserID
	u.CreatedAt, u.UpdatedAt = now, now

	stored := *u
	stored.Coupons = nil
	m.users[u.ID] = &stored
	m.usersByEmail[u.Email] = u.ID
	return nil
}

func (m *MemoryStore) FindByEmail(_ context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.usersByEmail[NormalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	u := *m.users[id]
	return &u, nil
}

func (m *MemoryStore) FindByID(_ context.Context, id uint) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryStore) FindByResetToken(_ context.Context, tokenHash string, now time.Time) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if u.PasswordResetToken == nil || *u.PasswordResetToken != tokenHash {
			continue
		}
		if u.PasswordResetExpires == nil || !u.PasswordResetExpires.After(now) {
			continue
		}
		cp := *u
		return &cp, nil
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) SetEmailVerified(_ context.Context, id uint) error {
	return m.mutateUser(id, func(u *User) { u.IsEmailVerified = true })
}

func (m *MemoryStore) SetPasswordResetToken(_ context.Context, id uint, tokenHash string, expires time.Time) error {
	return m.mutateUser(id, func(u *User) {
		u.PasswordResetToken = &tokenHash
		u.PasswordResetExpires = &expires
	})
}

func (m *MemoryStore) ClearPasswordResetToken(_ context.Context, id uint) error {
	return m.mutateUser(id, func(u *User) {
		u.PasswordResetToken = nil
		u.PasswordResetExpires = nil
	})
}

func (m *MemoryStore) UpdatePassword(_ context.Context, id uint, hash string) error {
	return m.mutateUser(id, func(u *User) {
		u.Password = hash
		u.PasswordResetToken = nil
		u.PasswordResetExpires = nil
	})
}

// SetActive toggles the administrative flag on an account.
func (m *MemoryStore) SetActive(id uint, active bool) error {
	return m.mutateUser(id, func(u *User) { u.IsActive = active })
}

func (m *MemoryStore) mutateUser(id uint, fn func(*User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	fn(u)
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *MemoryStore) CountForDay(_ context.Context, userID uint, day string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.couponsByDay[dayKey{userID, day}]; ok {
		return 1, nil
	}
	return 0, nil
}

func (m *MemoryStore) Create(_ context.Context, c *Coupon) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.couponsByCode[c.Code]; ok {
		return ErrDuplicateKey
	}
	key := dayKey{c.UserID, c.SpinDay}
	if _, ok := m.couponsByDay[key]; ok {
		return ErrDuplicateKey
	}

	m.nextCouponID++
	now := time.Now().UTC()
	c.ID = m.nextCouponID
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	stored := *c
	stored.User = User{}
	m.coupons[c.ID] = &stored
	m.couponsByCode[c.Code] = c.ID
	m.couponsByDay[key] = c.ID
	return nil
}

func (m *MemoryStore) FindForOwner(_ context.Context, id, userID uint) (*Coupon, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.coupons[id]
	if !ok || c.UserID != userID || !c.IsActive {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *MemoryStore) FindByCode(_ context.Context, code string) (*Coupon, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.couponsByCode[code]
	if !ok || !m.coupons[id].IsActive {
		return nil, ErrNotFound
	}
	cp := *m.coupons[id]
	if u, ok := m.users[cp.UserID]; ok {
		cp.User = *u
	}
	return &cp, nil
}

func (m *MemoryStore) ListByUser(_ context.Context, userID uint) ([]Coupon, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var list []Coupon
	for _, c := range m.coupons {
		if c.UserID == userID && c.IsActive {
			list = append(list, *c)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.After(list[j].CreatedAt)
		}
		return list[i].ID > list[j].ID
	})
	return list, nil
}

func (m *MemoryStore) MarkUsed(_ context.Context, id, userID uint, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.coupons[id]
	if !ok || c.UserID != userID || c.IsUsed || !c.IsActive || at.After(c.ExpiresAt) {
		return false, nil
	}
	c.IsUsed = true
	usedAt := at
	c.UsedAt = &usedAt
	c.UpdatedAt = time.Now().UTC()
	return true, nil
}

// SetCouponActive is the administrative disable switch.
func (m *MemoryStore) SetCouponActive(id uint, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.coupons[id]
	if !ok {
		return ErrNotFound
	}
	c.IsActive = active
	return nil
}
