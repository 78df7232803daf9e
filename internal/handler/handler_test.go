package handler

import (
	"database/sql"
	"log/slog"
	"net/http"
	"testing"

	"github.com/hollowaydev/fieldops/internal/auth"
	"github.com/hollowaydev/fieldops/internal/database"
	"github.com/hollowaydev/fieldops/internal/model"
	"github.com/hollowaydev/fieldops/internal/store"

	"golang.org/x/crypto/bcrypt"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createUser(t *testing.T, us *store.UserStore, email, password, role string) *model.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u, err := us.Create(email, "Test", string(hash), role)
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// asUser attaches an authenticated context to the request.
func asUser(r *http.Request, u *model.User) *http.Request {
	ctx := auth.WithAuth(r.Context(), auth.AuthContext{
		UserID:    u.ID,
		Role:      u.Role,
		SessionID: 1,
	})
	return r.WithContext(ctx)
}

var testLogger = slog.Default()
