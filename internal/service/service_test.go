package service

import (
	"context"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/palmcove/resortd/internal/model"
	"github.com/palmcove/resortd/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), store.Options{Driver: store.DialectSQLite, Migrate: true})
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func newTestAuthenticator(t *testing.T) (*Authenticator, *store.Store) {
	t.Helper()
	st := newTestStore(t)
	a := NewAuthenticator(st, nil, 0)
	a.cost = bcrypt.MinCost
	return a, st
}

func seedCustomer(t *testing.T, st *store.Store, email, password string, banned bool) *model.Customer {
	t.Helper()
	hash, err := HashPassword(password, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	c := &model.Customer{FirstName: "Ana", LastName: "Reyes", Email: email, PasswordHash: hash, IsBanned: banned}
	if err := st.CreateCustomer(context.Background(), c); err != nil {
		t.Fatalf("CreateCustomer: %v", err)
	}
	return c
}

func seedAdmin(t *testing.T, st *store.Store, email, password string, active bool) *model.Administrator {
	t.Helper()
	hash, err := HashPassword(password, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	a := &model.Administrator{Email: email, Name: "Root", PasswordHash: hash, IsActive: active}
	if err := st.CreateAdministrator(context.Background(), a); err != nil {
		t.Fatalf("CreateAdministrator: %v", err)
	}
	return a
}
