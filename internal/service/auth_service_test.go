package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"knightboard/internal/config"
	"knightboard/internal/infrastructure/cache"
	"knightboard/internal/model"
	"knightboard/internal/repository"
)

type fakeAuthAccountStore struct {
	mu      sync.Mutex
	byEmail map[string]*model.Account
}

func newFakeAuthAccountStore() *fakeAuthAccountStore {
	return &fakeAuthAccountStore{byEmail: make(map[string]*model.Account)}
}

func (s *fakeAuthAccountStore) Create(ctx context.Context, account *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[account.Email]; ok {
		return repository.ErrDuplicateEmail
	}
	copied := *account
	s.byEmail[account.Email] = &copied
	return nil
}

func (s *fakeAuthAccountStore) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.byEmail[email]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	copied := *account
	return &copied, nil
}

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]struct {
		userID int64
		role   string
	}
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[string]struct {
		userID int64
		role   string
	})}
}

func (s *fakeSessionStore) Save(ctx context.Context, token string, userID int64, role string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = struct {
		userID int64
		role   string
	}{userID, role}
	return nil
}

func (s *fakeSessionStore) Get(ctx context.Context, token string) (int64, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[token]
	if !ok {
		return 0, "", cache.ErrSessionNotFound
	}
	return session.userID, session.role, nil
}

func (s *fakeSessionStore) Delete(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

func newTestAuthService() *AuthService {
	return &AuthService{
		accountRepo: newFakeAuthAccountStore(),
		sessions:    newFakeSessionStore(),
		cfg: &config.Config{
			Business: config.BusinessConfig{SessionTTLHours: 24},
		},
	}
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestAuthService()
	ctx := context.Background()

	account, err := s.Register(ctx, "arthur@example.com", "round-table", "亚瑟")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if account.Role != model.RoleUser {
		t.Fatalf("role = %q, want user", account.Role)
	}
	if account.Balance != 0 {
		t.Fatalf("initial balance = %d, want 0", account.Balance)
	}
	if account.PasswordHash == "round-table" {
		t.Fatal("password stored in plaintext")
	}

	token, logged, err := s.Login(ctx, "arthur@example.com", "round-table")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token == "" {
		t.Fatal("token is empty")
	}
	if logged.UserID != account.UserID {
		t.Fatalf("userID = %d, want %d", logged.UserID, account.UserID)
	}

	userID, role, err := s.Session(ctx, token)
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if userID != account.UserID || role != model.RoleUser {
		t.Fatalf("session = (%d, %q)", userID, role)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	s := newTestAuthService()
	ctx := context.Background()

	if _, err := s.Register(ctx, "arthur@example.com", "pw1", "亚瑟"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_, err := s.Register(ctx, "arthur@example.com", "pw2", "另一个亚瑟")
	if !errors.Is(err, repository.ErrDuplicateEmail) {
		t.Fatalf("err = %v, want ErrDuplicateEmail", err)
	}
}

// 账户不存在和密码错误统一口径
func TestLoginFailedUnified(t *testing.T) {
	s := newTestAuthService()
	ctx := context.Background()

	if _, err := s.Register(ctx, "arthur@example.com", "round-table", "亚瑟"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, _, err := s.Login(ctx, "arthur@example.com", "wrong")
	if !errors.Is(err, ErrLoginFailed) {
		t.Fatalf("wrong password: err = %v, want ErrLoginFailed", err)
	}

	_, _, err = s.Login(ctx, "nobody@example.com", "round-table")
	if !errors.Is(err, ErrLoginFailed) {
		t.Fatalf("unknown email: err = %v, want ErrLoginFailed", err)
	}
}

func TestLogoutInvalidatesSession(t *testing.T) {
	s := newTestAuthService()
	ctx := context.Background()

	if _, err := s.Register(ctx, "arthur@example.com", "round-table", "亚瑟"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	token, _, err := s.Login(ctx, "arthur@example.com", "round-table")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if err := s.Logout(ctx, token); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if _, _, err := s.Session(ctx, token); !errors.Is(err, cache.ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound", err)
	}
}
