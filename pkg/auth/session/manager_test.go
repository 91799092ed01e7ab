package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/agrilink/agrilink-backend/pkg/kv"
)

func TestManagerGenerateAndRotate(t *testing.T) {
	store := kv.NewMemory()
	manager := &Manager{
		store: store,
		ttl:   time.Hour,
	}

	ctx := context.Background()
	accessID := "access-123"
	token, err := manager.Generate(ctx, accessID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if stored, found, _ := store.GetString(ctx, kv.SessionKey(accessID)); !found || stored != token {
		t.Fatalf("expected stored token %q, got %q (found=%v)", token, stored, found)
	}

	if _, _, err := manager.Rotate(ctx, accessID, "wrong"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected invalid refresh token error, got %v", err)
	}

	newAccessID, newToken, err := manager.Rotate(ctx, accessID, token)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if _, found, _ := store.GetString(ctx, kv.SessionKey(accessID)); found {
		t.Fatalf("old access key left behind")
	}
	if stored, found, _ := store.GetString(ctx, kv.SessionKey(newAccessID)); !found || stored != newToken {
		t.Fatalf("expected new token stored, got %q", stored)
	}
}

func TestManagerHasSessionAndRevoke(t *testing.T) {
	store := kv.NewMemory()
	manager := &Manager{store: store, ttl: time.Hour}
	ctx := context.Background()

	if _, err := manager.Generate(ctx, "access-9"); err != nil {
		t.Fatalf("generate: %v", err)
	}

	ok, err := manager.HasSession(ctx, "access-9")
	if err != nil || !ok {
		t.Fatalf("expected live session, got ok=%v err=%v", ok, err)
	}

	if err := manager.Revoke(ctx, "access-9"); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	ok, err = manager.HasSession(ctx, "access-9")
	if err != nil || ok {
		t.Fatalf("expected revoked session, got ok=%v err=%v", ok, err)
	}
}
