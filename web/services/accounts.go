package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"spinwheel/web/db"
	"spinwheel/web/pending"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const (
	signupCodeDigits = 6
	signupCodeTTL    = 10 * time.Minute
	resetTokenTTL    = 15 * time.Minute
	maxCodeAttempts  = 5

	// column sizes of users.name and users.email
	maxNameLen  = 100
	maxEmailLen = 255
)

var validate = validator.New()

type UserStore interface {
	CreateUser(ctx context.Context, u *db.User) error
	FindByEmail(ctx context.Context, email string) (*db.User, error)
	FindByID(ctx context.Context, id uint) (*db.User, error)
	FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (*db.User, error)
	SetPasswordResetToken(ctx context.Context, id uint, tokenHash string, expires time.Time) error
	ClearPasswordResetToken(ctx context.Context, id uint) error
	UpdatePassword(ctx context.Context, id uint, hash string) error
}

type CouponLister interface {
	ListByUser(ctx context.Context, userID uint) ([]db.Coupon, error)
}

type Notifier interface {
	SendSignupCode(ctx context.Context, to, name, code string) error
	SendPasswordReset(ctx context.Context, to, name, resetURL string) error
	SendWelcome(ctx context.Context, to, name string) error
}

type TokenIssuer interface {
	Issue(userID uint) (string, error)
	Verify(token string) (uint, error)
}

// Session is what a successful login or signup hands back to the client.
type Session struct {
	Token string
	User  *db.User
}

type Accounts struct {
	users       UserStore
	coupons     CouponLister
	pending     pending.Store
	mail        Notifier
	tokens      TokenIssuer
	frontendURL string
	log         *zap.Logger
	now         func() time.Time

	wg sync.WaitGroup
}

type AccountsDeps struct {
	Users       UserStore
	Coupons     CouponLister
	Pending     pending.Store
	Mail        Notifier
	Tokens      TokenIssuer
	FrontendURL string
	Log         *zap.Logger
	Now         func() time.Time
}

func NewAccounts(d AccountsDeps) *Accounts {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return &Accounts{
		users:       d.Users,
		coupons:     d.Coupons,
		pending:     d.Pending,
		mail:        d.Mail,
		tokens:      d.Tokens,
		frontendURL: strings.TrimRight(d.FrontendURL, "/"),
		log:         d.Log,
		now:         d.Now,
	}
}

// Wait blocks until background mail sends have finished.
func (a *Accounts) Wait() {
	a.wg.Wait()
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if validate.Var(name, fmt.Sprintf("max=%d", maxNameLen)) != nil {
		return fmt.Errorf("%w: name must be at most %d characters long", ErrValidation, maxNameLen)
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if validate.Var(email, fmt.Sprintf("email,max=%d", maxEmailLen)) != nil {
		return fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters long", ErrValidation, minPasswordLen)
	}
	if len(password) > maxPasswordBytes {
		return fmt.Errorf("%w: password must be at most %d bytes long", ErrValidation, maxPasswordBytes)
	}
	return nil
}

// StartSignup parks the registration in the pending store and mails the
// code. It returns the pending id the client confirms against.
func (a *Accounts) StartSignup(ctx context.Context, name, email, password string) (string, error) {
	name = strings.TrimSpace(name)
	email = db.NormalizeEmail(email)
	if err := validateName(name); err != nil {
		return "", err
	}
	if err := validateEmail(email); err != nil {
		return "", err
	}
	if err := validatePassword(password); err != nil {
		return "", err
	}

	if err := a.ensureEmailFree(ctx, email); err != nil {
		return "", err
	}

	hash, err := hashPassword(password)
	if err != nil {
		return "", err
	}
	code, err := randomDigits(signupCodeDigits)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}

	reg := pending.Registration{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Code:         code,
		ExpiresAt:    a.now().Add(signupCodeTTL),
	}
	id, err := a.pending.Put(ctx, reg)
	if err != nil {
		return "", fmt.Errorf("store pending registration: %w", err)
	}

	if err := a.mail.SendSignupCode(ctx, email, name, code); err != nil {
		a.discardPending(ctx, id)
		a.log.Warn("signup code dispatch failed", zap.String("email", email), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}

	a.log.Info("signup code sent", zap.String("pendingId", id), zap.String("email", email))
	return id, nil
}

// ResendSignupCode replaces the outstanding code and its expiry; the old
// code stops working immediately.
func (a *Accounts) ResendSignupCode(ctx context.Context, pendingID string) (string, error) {
	reg, err := a.loadPending(ctx, pendingID)
	if err != nil {
		return "", err
	}

	code, err := randomDigits(signupCodeDigits)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	reg.Code = code
	reg.ExpiresAt = a.now().Add(signupCodeTTL)
	reg.Attempts = 0
	if err := a.pending.Update(ctx, pendingID, reg); err != nil {
		if errors.Is(err, pending.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("update pending registration: %w", err)
	}

	if err := a.mail.SendSignupCode(ctx, reg.Email, reg.Name, code); err != nil {
		a.discardPending(ctx, pendingID)
		a.log.Warn("signup code resend failed", zap.String("email", reg.Email), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}
	return pendingID, nil
}

// VerifySignupCode checks the submitted code and, on a match, creates the
// verified user and signs them in.
func (a *Accounts) VerifySignupCode(ctx context.Context, pendingID, code string) (*Session, error) {
	if pendingID == "" || code == "" {
		return nil, fmt.Errorf("%w: pending id and code are required", ErrValidation)
	}

	reg, err := a.loadPending(ctx, pendingID)
	if err != nil {
		return nil, err
	}

	if subtle.ConstantTimeCompare([]byte(reg.Code), []byte(code)) != 1 {
		reg.Attempts++
		if reg.Attempts >= maxCodeAttempts {
			a.discardPending(ctx, pendingID)
			return nil, fmt.Errorf("%w: too many attempts, please sign up again", ErrCodeMismatch)
		}
		if err := a.pending.Update(ctx, pendingID, reg); err != nil && !errors.Is(err, pending.ErrNotFound) {
			a.log.Warn("record code attempt", zap.String("pendingId", pendingID), zap.Error(err))
		}
		return nil, ErrCodeMismatch
	}

	user := &db.User{
		Name:            reg.Name,
		Email:           reg.Email,
		Password:        reg.PasswordHash,
		IsEmailVerified: true,
		IsActive:        true,
	}
	if err := a.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, db.ErrDuplicateEmail) {
			a.discardPending(ctx, pendingID)
			return nil, ErrDuplicateIdentity
		}
		return nil, fmt.Errorf("%w: create user: %v", ErrPersistence, err)
	}
	a.discardPending(ctx, pendingID)

	a.log.Info("user registered", zap.Uint("userId", user.ID))
	a.background(func(ctx context.Context) {
		if err := a.mail.SendWelcome(ctx, user.Email, user.Name); err != nil {
			a.log.Warn("welcome mail failed", zap.Uint("userId", user.ID), zap.Error(err))
		}
	})

	return a.newSession(user)
}

// VerifyIdentity returns the account for email when password matches its
// stored hash. Unknown emails and wrong passwords both give
// ErrInvalidCredentials.
func (a *Accounts) VerifyIdentity(ctx context.Context, email, password string) (*db.User, error) {
	user, err := a.users.FindByEmail(ctx, email)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !checkPassword(user.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (a *Accounts) Login(ctx context.Context, email, password string) (*Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	user, err := a.VerifyIdentity(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}
	if !user.IsEmailVerified {
		return nil, ErrEmailNotVerified
	}

	if err := a.attachCoupons(ctx, user); err != nil {
		return nil, err
	}
	return a.newSession(user)
}

// RequestPasswordReset mails a reset link and returns the user's id.
func (a *Accounts) RequestPasswordReset(ctx context.Context, email string) (uint, error) {
	if strings.TrimSpace(email) == "" {
		return 0, fmt.Errorf("%w: email is required", ErrValidation)
	}

	user, err := a.users.FindByEmail(ctx, email)
	if errors.Is(err, db.ErrNotFound) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("find user: %w", err)
	}
	if !user.IsEmailVerified {
		return 0, ErrEmailNotVerified
	}

	token, hash, err := newResetToken()
	if err != nil {
		return 0, fmt.Errorf("generate reset token: %w", err)
	}
	if err := a.users.SetPasswordResetToken(ctx, user.ID, hash, a.now().Add(resetTokenTTL)); err != nil {
		return 0, fmt.Errorf("%w: store reset token: %v", ErrPersistence, err)
	}

	link := a.frontendURL + "/reset-password/" + token
	if err := a.mail.SendPasswordReset(ctx, user.Email, user.Name, link); err != nil {
		if cerr := a.users.ClearPasswordResetToken(ctx, user.ID); cerr != nil {
			a.log.Error("clear reset token", zap.Uint("userId", user.ID), zap.Error(cerr))
		}
		a.log.Warn("reset link dispatch failed", zap.Uint("userId", user.ID), zap.Error(err))
		return 0, fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}
	return user.ID, nil
}

func (a *Accounts) VerifyResetToken(ctx context.Context, token string) (*db.User, error) {
	if token == "" {
		return nil, ErrInvalidOrExpiredToken
	}
	user, err := a.users.FindByResetToken(ctx, hashToken(token), a.now())
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrInvalidOrExpiredToken
	}
	if err != nil {
		return nil, fmt.Errorf("find reset token: %w", err)
	}
	return user, nil
}

func (a *Accounts) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" || newPassword == "" {
		return fmt.Errorf("%w: reset token and new password are required", ErrValidation)
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	user, err := a.VerifyResetToken(ctx, token)
	if err != nil {
		return err
	}
	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := a.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("%w: update password: %v", ErrPersistence, err)
	}

	a.log.Info("password reset", zap.Uint("userId", user.ID))
	return nil
}

// Profile returns the user with their active coupons.
func (a *Accounts) Profile(ctx context.Context, userID uint) (*db.User, error) {
	user, err := a.users.FindByID(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if err := a.attachCoupons(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate resolves a bearer token to a live, active user.
func (a *Accounts) Authenticate(ctx context.Context, token string) (*db.User, error) {
	id, err := a.tokens.Verify(token)
	if err != nil {
		return nil, ErrUnauthorized
	}
	user, err := a.users.FindByID(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrUnauthorized
	}
	return user, nil
}

func (a *Accounts) ensureEmailFree(ctx context.Context, email string) error {
	_, err := a.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return ErrDuplicateIdentity
	case errors.Is(err, db.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("find user: %w", err)
	}
}

func (a *Accounts) loadPending(ctx context.Context, id string) (pending.Registration, error) {
	reg, err := a.pending.Get(ctx, id)
	switch {
	case err == nil:
		return reg, nil
	case errors.Is(err, pending.ErrExpired):
		return reg, ErrCodeExpired
	case errors.Is(err, pending.ErrNotFound):
		return reg, ErrNotFound
	default:
		return reg, fmt.Errorf("load pending registration: %w", err)
	}
}

func (a *Accounts) discardPending(ctx context.Context, id string) {
	if err := a.pending.Remove(ctx, id); err != nil {
		a.log.Warn("remove pending registration", zap.String("pendingId", id), zap.Error(err))
	}
}

func (a *Accounts) attachCoupons(ctx context.Context, user *db.User) error {
	coupons, err := a.coupons.ListByUser(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("list coupons: %w", err)
	}
	user.Coupons = coupons
	return nil
}

func (a *Accounts) newSession(user *db.User) (*Session, error) {
	token, err := a.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: user}, nil
}

// background runs fn detached from the request with its own deadline.
func (a *Accounts) background(fn func(ctx context.Context)) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), sideChannelTimeout)
		defer cancel()
		fn(ctx)
	}()
}
