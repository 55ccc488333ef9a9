package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestManager(store SessionStore) *Manager {
	return NewManager(Config{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
		AccessTTL:     time.Minute,
		RefreshTTL:    time.Hour,
	}, store)
}

func TestManagerIssueAndRefresh(t *testing.T) {
	store := newMemorySessionStore()
	manager := newTestManager(store)

	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatalf("expected non-empty tokens: %+v", tokens)
	}
	if stored, _ := store.Token("user-1"); stored != tokens.RefreshToken {
		t.Fatal("expected refresh token to be stored in the user slot")
	}

	refreshed, userID, err := manager.Refresh(context.Background(), tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if userID != "user-1" {
		t.Fatalf("expected subject user-1, got %q", userID)
	}
	if refreshed.RefreshToken == tokens.RefreshToken {
		t.Fatal("expected new refresh token")
	}

	if _, _, err := manager.Refresh(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected rotated-out token to be rejected, got %v", err)
	}
}

func TestManagerIssueReplacesPreviousSession(t *testing.T) {
	manager := newTestManager(newMemorySessionStore())

	first, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := manager.Issue(context.Background(), "user-1"); err != nil {
		t.Fatalf("second issue: %v", err)
	}

	if _, _, err := manager.Refresh(context.Background(), first.RefreshToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected first session to be invalidated, got %v", err)
	}
}

func TestManagerIssueValidation(t *testing.T) {
	manager := newTestManager(newMemorySessionStore())
	if _, err := manager.Issue(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty user id")
	}
}

func TestManagerRefreshFailures(t *testing.T) {
	store := newMemorySessionStore()
	manager := newTestManager(store)

	if _, _, err := manager.Refresh(context.Background(), ""); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected session not found got %v", err)
	}

	tokens, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, _, err := manager.Refresh(context.Background(), tokens.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected access token to be rejected as refresh token, got %v", err)
	}

	later := time.Now().Add(2 * time.Hour)
	manager.WithNowFunc(func() time.Time { return later })
	if _, _, err := manager.Refresh(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrRefreshTokenExpired) {
		t.Fatalf("expected refresh expired got %v", err)
	}
	manager.WithNowFunc(time.Now)

	tokens, err = manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := manager.Revoke(context.Background(), "user-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, _, err := manager.Refresh(context.Background(), tokens.RefreshToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected session not found after revoke got %v", err)
	}
}

func TestManagerVerify(t *testing.T) {
	manager := newTestManager(newMemorySessionStore())

	tokens, err := manager.Issue(context.Background(), "user-7")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	tests := []struct {
		name    string
		token   string
		wantSub string
		wantErr bool
	}{
		{name: "valid access token", token: tokens.AccessToken, wantSub: "user-7"},
		{name: "empty", token: "", wantErr: true},
		{name: "garbage", token: "not-a-jwt", wantErr: true},
		{name: "refresh token", token: tokens.RefreshToken, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sub, err := manager.Verify(tc.token)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidToken) {
					t.Fatalf("expected ErrInvalidToken, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("verify: %v", err)
			}
			if sub != tc.wantSub {
				t.Fatalf("expected subject %q got %q", tc.wantSub, sub)
			}
		})
	}

	later := time.Now().Add(2 * time.Minute)
	manager.WithNowFunc(func() time.Time { return later })
	if _, err := manager.Verify(tokens.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired access token to be rejected, got %v", err)
	}
}
