package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/palmcove/resortd/internal/model"
	"github.com/palmcove/resortd/internal/query"
)

// ---------------------------------------------------------------------------
// Administrators
// ---------------------------------------------------------------------------

const adminColumns = `id, email, password_hash, name, is_active, last_login_at, created_at, updated_at`

// CreateAdministrator inserts a new administrator. Email is stored lowercased.
func (s *Store) CreateAdministrator(ctx context.Context, a *model.Administrator) error {
	t := now()
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	a.CreatedAt, a.UpdatedAt = t, t

	const q = `INSERT INTO administrator (email, password_hash, name, is_active, created_at, updated_at)
		VALUES (:email, :password_hash, :name, :is_active, :created_at, :updated_at)`

	id, err := s.insert(ctx, s.db, q, a)
	if err != nil {
		return wrapWrite("create administrator", err)
	}
	a.ID = id
	return nil
}

// GetAdministrator returns the administrator with the given id.
func (s *Store) GetAdministrator(ctx context.Context, id int64) (*model.Administrator, error) {
	var a model.Administrator
	if err := s.get(ctx, s.db, &a, "SELECT "+adminColumns+" FROM administrator WHERE id = ?", id); err != nil {
		return nil, wrapRead("get administrator", err)
	}
	return &a, nil
}

// GetAdministratorByEmail looks an administrator up by case-insensitive email.
func (s *Store) GetAdministratorByEmail(ctx context.Context, email string) (*model.Administrator, error) {
	var a model.Administrator
	err := s.get(ctx, s.db, &a, "SELECT "+adminColumns+" FROM administrator WHERE email = ?",
		strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, wrapRead("get administrator by email", err)
	}
	return &a, nil
}

// ListAdministrators returns every administrator ordered by email.
func (s *Store) ListAdministrators(ctx context.Context) ([]model.Administrator, error) {
	admins := []model.Administrator{}
	if err := s.list(ctx, s.db, &admins, "SELECT "+adminColumns+" FROM administrator ORDER BY email"); err != nil {
		return nil, fmt.Errorf("list administrators: %w", err)
	}
	return admins, nil
}

// CountAdministrators returns the number of administrator accounts.
func (s *Store) CountAdministrators(ctx context.Context) (int64, error) {
	var n int64
	if err := s.get(ctx, s.db, &n, "SELECT COUNT(*) FROM administrator"); err != nil {
		return 0, fmt.Errorf("count administrators: %w", err)
	}
	return n, nil
}

// SetAdministratorActive enables or disables an administrator account.
func (s *Store) SetAdministratorActive(ctx context.Context, id int64, active bool) error {
	err := s.exec(ctx, s.db, "UPDATE administrator SET is_active = ?, updated_at = ? WHERE id = ?", active, now(), id)
	return wrapWrite("set administrator active", err)
}

// TouchAdministratorLogin records a successful login time.
func (s *Store) TouchAdministratorLogin(ctx context.Context, id int64) error {
	err := s.exec(ctx, s.db, "UPDATE administrator SET last_login_at = ? WHERE id = ?", now(), id)
	return wrapWrite("touch administrator login", err)
}

// ---------------------------------------------------------------------------
// Customers
// ---------------------------------------------------------------------------

const customerColumns = `id, first_name, last_name, email, phone, address, password_hash,
	is_banned, last_login_at, created_at, updated_at`

var customerSort = map[string]string{
	"id":         "id",
	"email":      "email",
	"last_name":  "last_name",
	"first_name": "first_name",
	"created_at": "created_at",
}

// CustomerFilter narrows ListCustomers.
type CustomerFilter struct {
	// Search matches name, email or phone.
	Search string
	Banned *bool
	Order  string
	Page   query.Page
}

// CreateCustomer inserts a new customer. Email is stored lowercased; a
// duplicate email yields ErrConflict.
func (s *Store) CreateCustomer(ctx context.Context, c *model.Customer) error {
	t := now()
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.CreatedAt, c.UpdatedAt = t, t

	const q = `INSERT INTO customer (first_name, last_name, email, phone, address, password_hash,
			is_banned, created_at, updated_at)
		VALUES (:first_name, :last_name, :email, :phone, :address, :password_hash,
			:is_banned, :created_at, :updated_at)`

	id, err := s.insert(ctx, s.db, q, c)
	if err != nil {
		return wrapWrite("create customer", err)
	}
	c.ID = id
	return nil
}

// GetCustomer returns the customer with the given id.
func (s *Store) GetCustomer(ctx context.Context, id int64) (*model.Customer, error) {
	var c model.Customer
	if err := s.get(ctx, s.db, &c, "SELECT "+customerColumns+" FROM customer WHERE id = ?", id); err != nil {
		return nil, wrapRead("get customer", err)
	}
	return &c, nil
}

// GetCustomerByEmail looks a customer up by case-insensitive email.
func (s *Store) GetCustomerByEmail(ctx context.Context, email string) (*model.Customer, error) {
	var c model.Customer
	err := s.get(ctx, s.db, &c, "SELECT "+customerColumns+" FROM customer WHERE email = ?",
		strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, wrapRead("get customer by email", err)
	}
	return &c, nil
}

// ListCustomers returns one page of customers and the total matching count.
func (s *Store) ListCustomers(ctx context.Context, f CustomerFilter) ([]model.Customer, int64, error) {
	var where []string
	var args []interface{}
	if f.Search != "" {
		p := query.LikePattern(strings.ToLower(f.Search))
		where = append(where, `(LOWER(first_name) LIKE ? ESCAPE '!' OR LOWER(last_name) LIKE ? ESCAPE '!'
			OR LOWER(email) LIKE ? ESCAPE '!' OR phone LIKE ? ESCAPE '!')`)
		args = append(args, p, p, p, p)
	}
	if f.Banned != nil {
		where = append(where, "is_banned = ?")
		args = append(args, *f.Banned)
	}
	cond := joinWhere(where)

	order, err := query.ParseOrder(f.Order, customerSort, "id DESC")
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidFilter, err)
	}

	var total int64
	if err := s.get(ctx, s.db, &total, "SELECT COUNT(*) FROM customer"+cond, args...); err != nil {
		return nil, 0, fmt.Errorf("count customers: %w", err)
	}

	customers := []model.Customer{}
	q := "SELECT " + customerColumns + " FROM customer" + cond + " ORDER BY " + order + pageOf(f.Page).SQL()
	if err := s.list(ctx, s.db, &customers, q, args...); err != nil {
		return nil, 0, fmt.Errorf("list customers: %w", err)
	}
	return customers, total, nil
}

// CountCustomers returns the number of customer accounts.
func (s *Store) CountCustomers(ctx context.Context) (int64, error) {
	var n int64
	if err := s.get(ctx, s.db, &n, "SELECT COUNT(*) FROM customer"); err != nil {
		return 0, fmt.Errorf("count customers: %w", err)
	}
	return n, nil
}

// UpdateCustomerProfile updates contact details. Email and password are not
// touched here.
func (s *Store) UpdateCustomerProfile(ctx context.Context, c *model.Customer) error {
	c.UpdatedAt = now()
	const q = `UPDATE customer SET first_name = :first_name, last_name = :last_name,
		phone = :phone, address = :address, updated_at = :updated_at
		WHERE id = :id`
	return wrapWrite("update customer", s.namedExec(ctx, s.db, q, c))
}

// SetCustomerPassword replaces the stored password hash.
func (s *Store) SetCustomerPassword(ctx context.Context, id int64, hash string) error {
	err := s.exec(ctx, s.db, "UPDATE customer SET password_hash = ?, updated_at = ? WHERE id = ?", hash, now(), id)
	return wrapWrite("set customer password", err)
}

// SetCustomerBanned bans or unbans a customer. Banned customers cannot log in.
func (s *Store) SetCustomerBanned(ctx context.Context, id int64, banned bool) error {
	err := s.exec(ctx, s.db, "UPDATE customer SET is_banned = ?, updated_at = ? WHERE id = ?", banned, now(), id)
	return wrapWrite("set customer banned", err)
}

// DeleteCustomer removes a customer and, through the foreign key, their
// bookings.
func (s *Store) DeleteCustomer(ctx context.Context, id int64) error {
	return wrapWrite("delete customer", s.exec(ctx, s.db, "DELETE FROM customer WHERE id = ?", id))
}

// TouchCustomerLogin records a successful login time.
func (s *Store) TouchCustomerLogin(ctx context.Context, id int64) error {
	err := s.exec(ctx, s.db, "UPDATE customer SET last_login_at = ? WHERE id = ?", now(), id)
	return wrapWrite("touch customer login", err)
}

// wrapRead keeps ErrNotFound unwrapped for callers that compare directly.
func wrapRead(op string, err error) error {
	if err == ErrNotFound {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func joinWhere(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// pageOf fills in the default limit for a zero Page.
func pageOf(p query.Page) query.Page {
	if p.Limit <= 0 {
		p.Limit = query.DefaultLimit
	}
	return p
}
