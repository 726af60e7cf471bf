package services

import (
	"errors"
	"testing"
	"time"

	"github.com/tablevox/phone-agent-be/internal/modules/ordering/models"
)

func newTextSession(key string, lastActivity time.Time) func() *models.ConversationSession {
	return func() *models.ConversationSession {
		return &models.ConversationSession{
			Key:            key,
			Channel:        models.ChannelText,
			State:          models.StateGathering,
			LastActivityAt: lastActivity,
		}
	}
}

func TestAcquireRejectsConcurrentTurn(t *testing.T) {
	store := NewSessionStore(time.Hour)
	create := newTextSession("text:a|b", time.Now())

	first, err := store.Acquire("text:a|b", create)
	if err != nil {
		t.Fatalf("First acquire failed: %v", err)
	}
	if first == nil {
		t.Fatal("First acquire returned nil session")
	}

	if _, err := store.Acquire("text:a|b", create); !errors.Is(err, models.ErrStillProcessing) {
		t.Fatalf("Expected ErrStillProcessing, got %v", err)
	}

	store.Release("text:a|b")
	if _, err := store.Acquire("text:a|b", create); err != nil {
		t.Fatalf("Acquire after release failed: %v", err)
	}
}

func TestAcquireReturnsSameSession(t *testing.T) {
	store := NewSessionStore(time.Hour)
	create := newTextSession("text:a|b", time.Now())

	first, _ := store.Acquire("text:a|b", create)
	first.TurnCount = 7
	store.Release("text:a|b")

	second, err := store.Acquire("text:a|b", create)
	if err != nil {
		t.Fatalf("Second acquire failed: %v", err)
	}
	if second.TurnCount != 7 {
		t.Fatal("Acquire created a new session instead of reusing the thread")
	}
}

func TestAcquireNilCreateStoresNothing(t *testing.T) {
	store := NewSessionStore(time.Hour)

	// A caller that declines to start a session, like the voice path after
	// its call has already ended.
	_, err := store.Acquire("call:CA9", func() *models.ConversationSession { return nil })
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	if store.Count() != 0 {
		t.Fatalf("Expected empty store, got %d sessions", store.Count())
	}

	if removed := store.Sweep(time.Now()); removed != 0 {
		t.Fatalf("Sweep removed %d sessions from an empty store", removed)
	}
}

func TestEndDiscardsSession(t *testing.T) {
	store := NewSessionStore(time.Hour)
	store.Acquire("call:CA1", func() *models.ConversationSession {
		return &models.ConversationSession{Key: "call:CA1", Channel: models.ChannelVoice}
	})
	store.Release("call:CA1")

	store.End("call:CA1")
	if store.Peek("call:CA1") != nil {
		t.Fatal("Session survived End")
	}
	if store.Count() != 0 {
		t.Fatalf("Expected empty store, got %d sessions", store.Count())
	}
}

func TestSweepRemovesOnlyIdleTextSessions(t *testing.T) {
	store := NewSessionStore(time.Hour)
	now := time.Now()

	store.Acquire("text:idle|r", newTextSession("text:idle|r", now.Add(-2*time.Hour)))
	store.Release("text:idle|r")

	store.Acquire("text:fresh|r", newTextSession("text:fresh|r", now.Add(-time.Minute)))
	store.Release("text:fresh|r")

	store.Acquire("call:CA1", func() *models.ConversationSession {
		return &models.ConversationSession{
			Key:            "call:CA1",
			Channel:        models.ChannelVoice,
			LastActivityAt: now.Add(-3 * time.Hour),
		}
	})
	store.Release("call:CA1")

	removed := store.Sweep(now)
	if removed != 1 {
		t.Fatalf("Expected 1 swept session, got %d", removed)
	}
	if store.Peek("text:idle|r") != nil {
		t.Fatal("Idle text session survived sweep")
	}
	if store.Peek("text:fresh|r") == nil {
		t.Fatal("Fresh text session was swept")
	}
	if store.Peek("call:CA1") == nil {
		t.Fatal("Voice session was swept; only the status callback may end calls")
	}
}

func TestSweepSkipsBusySessions(t *testing.T) {
	store := NewSessionStore(time.Hour)
	now := time.Now()

	store.Acquire("text:busy|r", newTextSession("text:busy|r", now.Add(-2*time.Hour)))
	// Not released: a turn is mid-flight.

	if removed := store.Sweep(now); removed != 0 {
		t.Fatalf("Sweep removed a busy session, removed=%d", removed)
	}
}
