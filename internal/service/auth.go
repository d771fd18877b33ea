package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/palmcove/resortd/internal/model"
	"github.com/palmcove/resortd/internal/store"
)

const DefaultMinPasswordLength = 8

// Identity is the outcome of a successful authentication.
type Identity struct {
	UserID int64      `json:"user_id"`
	Role   model.Role `json:"role"`
	Email  string     `json:"email"`
	Name   string     `json:"name"`
}

// Authenticator verifies credentials against the administrator and customer
// tables and registers new customers.
type Authenticator struct {
	store       *store.Store
	logger      *slog.Logger
	minPassword int
	cost        int

	dummyOnce sync.Once
	dummyHash []byte
}

// NewAuthenticator returns an Authenticator. A minPassword of zero uses
// DefaultMinPasswordLength.
func NewAuthenticator(st *store.Store, logger *slog.Logger, minPassword int) *Authenticator {
	if minPassword <= 0 {
		minPassword = DefaultMinPasswordLength
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{store: st, logger: logger, minPassword: minPassword, cost: bcrypt.DefaultCost}
}

// Authenticate checks email and password for the given role.
//
// Unknown emails and wrong passwords both return ErrInvalidCredentials after
// a bcrypt comparison, so response timing does not reveal which accounts
// exist. A correct password on a disabled or banned account returns the
// Identity together with ErrAccountDisabled so the caller can log who it was;
// callers must not treat that as a successful login.
func (a *Authenticator) Authenticate(ctx context.Context, email, password string, role model.Role) (*Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var (
		id       Identity
		hash     string
		disabled bool
		err      error
	)
	switch role {
	case model.RoleAdmin:
		var adm *model.Administrator
		adm, err = a.store.GetAdministratorByEmail(ctx, email)
		if err == nil {
			id = Identity{UserID: adm.ID, Role: model.RoleAdmin, Email: adm.Email, Name: adm.Name}
			hash, disabled = adm.PasswordHash, !adm.IsActive
		}
	case model.RoleClient:
		var c *model.Customer
		c, err = a.store.GetCustomerByEmail(ctx, email)
		if err == nil {
			id = Identity{UserID: c.ID, Role: model.RoleClient, Email: c.Email, Name: c.FullName()}
			hash, disabled = c.PasswordHash, c.IsBanned
		}
	default:
		return nil, ErrInvalidCredentials
	}

	if errors.Is(err, store.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(a.dummy(), []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return &id, ErrInvalidCredentials
	}
	if disabled {
		return &id, ErrAccountDisabled
	}

	if err := a.touchLogin(ctx, id); err != nil {
		a.logger.Warn("record last login failed", "user_id", id.UserID, "role", id.Role, "error", err)
	}
	return &id, nil
}

// AccountActive reports whether a signed-in account may still act.
// Administrators must be active and customers not banned; a deleted account
// is not active.
func (a *Authenticator) AccountActive(ctx context.Context, role model.Role, userID int64) (bool, error) {
	switch role {
	case model.RoleAdmin:
		adm, err := a.store.GetAdministrator(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("lookup administrator: %w", err)
		}
		return adm.IsActive, nil
	case model.RoleClient:
		c, err := a.store.GetCustomer(ctx, userID)
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("lookup customer: %w", err)
		}
		return !c.IsBanned, nil
	}
	return false, nil
}

func (a *Authenticator) touchLogin(ctx context.Context, id Identity) error {
	if id.Role == model.RoleAdmin {
		return a.store.TouchAdministratorLogin(ctx, id.UserID)
	}
	return a.store.TouchCustomerLogin(ctx, id.UserID)
}

// dummy returns a hash used to spend the same work on unknown emails.
func (a *Authenticator) dummy() []byte {
	a.dummyOnce.Do(func() {
		a.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("resortd-timing-equalizer"), a.cost)
	})
	return a.dummyHash
}

// RegisterInput is the self-service sign-up form.
type RegisterInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	Password  string `json:"password"`
}

// Register validates input and creates a customer account.
func (a *Authenticator) Register(ctx context.Context, in RegisterInput) (*model.Customer, error) {
	email, err := ValidateEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if err := ValidatePassword(in.Password, a.minPassword); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.FirstName) == "" {
		return nil, invalid("first_name", "is required")
	}
	hash, err := HashPassword(in.Password, a.cost)
	if err != nil {
		return nil, err
	}

	c := &model.Customer{
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Email:        email,
		Phone:        strings.TrimSpace(in.Phone),
		Address:      strings.TrimSpace(in.Address),
		PasswordHash: hash,
	}
	if err := a.store.CreateCustomer(ctx, c); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return c, nil
}

// ChangePassword replaces a customer's password after verifying the current
// one.
func (a *Authenticator) ChangePassword(ctx context.Context, customerID int64, current, next string) error {
	c, err := a.store.GetCustomer(ctx, customerID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(current)) != nil {
		return ErrInvalidCredentials
	}
	if err := ValidatePassword(next, a.minPassword); err != nil {
		return err
	}
	hash, err := HashPassword(next, a.cost)
	if err != nil {
		return err
	}
	return a.store.SetCustomerPassword(ctx, customerID, hash)
}

// CreateAdministrator hashes password and stores a new active administrator.
func (a *Authenticator) CreateAdministrator(ctx context.Context, email, name, password string) (*model.Administrator, error) {
	addr, err := ValidateEmail(email)
	if err != nil {
		return nil, err
	}
	if err := ValidatePassword(password, a.minPassword); err != nil {
		return nil, err
	}
	hash, err := HashPassword(password, a.cost)
	if err != nil {
		return nil, err
	}
	adm := &model.Administrator{Email: addr, Name: strings.TrimSpace(name), PasswordHash: hash, IsActive: true}
	if err := a.store.CreateAdministrator(ctx, adm); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}
	return adm, nil
}

// HashPassword returns a bcrypt hash of password. A cost of zero uses
// bcrypt.DefaultCost.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// ValidateEmail returns the normalized address or a ValidationError.
func ValidateEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", invalid("email", "is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@"):], ".") {
		return "", invalid("email", "is not a valid address")
	}
	return email, nil
}

// ValidatePassword enforces a minimum length and requires at least one letter
// and one digit. bcrypt ignores bytes past 72, so longer passwords are refused.
func ValidatePassword(password string, minLen int) error {
	if len(password) < minLen {
		return invalid("password", "must be at least %d characters", minLen)
	}
	if len(password) > 72 {
		return invalid("password", "must be at most 72 bytes")
	}
	var letter, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !letter || !digit {
		return invalid("password", "must contain a letter and a digit")
	}
	return nil
}
