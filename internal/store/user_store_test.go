package store

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"stocksim/internal/models"
)

func TestUserStoreCreate(t *testing.T) {
	ctx := context.Background()
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "INSERT INTO users") || !strings.Contains(query, "initial_cash") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 4 || args[0] != "user-1" || args[1] != "Alice" || args[3] != int64(1000000) {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewUserStore(stubDB{})
	if err := store.Create(ctx, execer, "user-1", "Alice", "hash", 1000000); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUserStoreGetByUsername(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore(stubDB{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "WHERE username = $1") || !strings.Contains(query, "password_hash") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 1 || args[0] != "Alice" {
				t.Fatalf("unexpected args: %#v", args)
			}
			*dest.(*models.User) = models.User{ID: "user-1", Username: "Alice", PasswordHash: "hash"}
			return nil
		},
	})
	user, err := store.GetByUsername(ctx, "Alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != "user-1" || user.PasswordHash != "hash" {
		t.Fatalf("unexpected user: %#v", user)
	}
}

func TestUserStoreGetByIDDoesNotLoadHash(t *testing.T) {
	ctx := context.Background()
	store := NewUserStore(stubDB{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "WHERE id = $1") || strings.Contains(query, "password_hash") {
				t.Fatalf("unexpected query: %s", query)
			}
			*dest.(*models.User) = models.User{ID: "user-1", Cash: 500}
			return nil
		},
	})
	user, err := store.GetByID(ctx, "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Cash != 500 {
		t.Fatalf("unexpected user: %#v", user)
	}
}

func TestUserStoreGetByUsernameNotFound(t *testing.T) {
	store := NewUserStore(stubDB{
		getFn: func(context.Context, any, string, ...any) error {
			return sql.ErrNoRows
		},
	})
	if _, err := store.GetByUsername(context.Background(), "nobody"); err != sql.ErrNoRows {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}
