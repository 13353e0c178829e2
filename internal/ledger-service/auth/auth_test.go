package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/radieske/wager-ledger/internal/ledger-service/ledger"
	"github.com/radieske/wager-ledger/internal/ledger-service/model"
	"github.com/radieske/wager-ledger/internal/ledger-service/repo"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	s := NewService(nil, repo.NewMemory(), NewIssuer("test-secret", time.Hour), decimal.NewFromInt(100))
	s.cost = bcrypt.MinCost
	return s
}

func TestRegisterFirstUserIsAdmin(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	first, err := s.Register(ctx, "alice", "secret1")
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Register(ctx, "bob", "secret2")
	if err != nil {
		t.Fatal(err)
	}
	if !first.IsAdmin || second.IsAdmin {
		t.Fatalf("admin flags = %v/%v, want true/false", first.IsAdmin, second.IsAdmin)
	}
	if !second.Balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("initial balance = %s", second.Balance)
	}

	if _, err := s.Register(ctx, "ALICE", "whatever"); !errors.Is(err, ledger.ErrConflict) {
		t.Fatalf("duplicate username err = %v", err)
	}
	if _, err := s.Register(ctx, "al", "secret1"); !errors.Is(err, ledger.ErrInvalidInput) {
		t.Fatalf("short username err = %v", err)
	}
}

func TestLogin(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()
	if _, err := s.Register(ctx, "alice", "secret1"); err != nil {
		t.Fatal(err)
	}

	token, u, err := s.Login(ctx, "alice", "secret1")
	if err != nil {
		t.Fatal(err)
	}
	p, err := s.Parse(token)
	if err != nil {
		t.Fatal(err)
	}
	if p.UserID != u.ID || p.Username != "alice" || !p.IsAdmin {
		t.Fatalf("principal = %+v", p)
	}

	for _, tc := range []struct{ user, pass string }{
		{"alice", "wrong-pass"},
		{"nobody", "secret1"},
	} {
		if _, _, err := s.Login(ctx, tc.user, tc.pass); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Login(%s) err = %v", tc.user, err)
		}
	}
}

func TestParseRejectsExpiredAndForeignTokens(t *testing.T) {
	iss := NewIssuer("test-secret", time.Minute)
	u := model.User{ID: 7, Username: "carol"}

	iss.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, err := iss.Issue(u)
	if err != nil {
		t.Fatal(err)
	}
	iss.now = time.Now
	if _, err := iss.Parse(expired); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token err = %v", err)
	}

	other, err := NewIssuer("other-secret", time.Minute).Issue(u)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := iss.Parse(other); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("foreign token err = %v", err)
	}
}

func TestMiddleware(t *testing.T) {
	iss := NewIssuer("test-secret", time.Hour)
	userToken, _ := iss.Issue(model.User{ID: 2, Username: "bob"})
	adminToken, _ := iss.Issue(model.User{ID: 1, Username: "alice", IsAdmin: true})

	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, found := FromContext(r.Context()); !found {
			t.Error("principal missing from context")
		}
		w.WriteHeader(http.StatusNoContent)
	})
	user := Middleware(iss)(ok)
	admin := Middleware(iss)(RequireAdmin(ok))

	cases := []struct {
		name    string
		handler http.Handler
		header  string
		want    int
	}{
		{"missing token", user, "", http.StatusUnauthorized},
		{"wrong scheme", user, "Basic abc", http.StatusUnauthorized},
		{"garbage token", user, "Bearer not-a-jwt", http.StatusForbidden},
		{"valid user", user, "Bearer " + userToken, http.StatusNoContent},
		{"user on admin route", admin, "Bearer " + userToken, http.StatusForbidden},
		{"admin on admin route", admin, "Bearer " + adminToken, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			tc.handler.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}
