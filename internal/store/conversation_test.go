package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

func TestAppendMessageCreatesRecord(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.AppendMessage(ctx, "u1", "a1", "a1", Message{ID: "m1", Role: RoleUser, Content: "hi"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	rec, ok, err := s.GetConversation(ctx, "u1", "a1", "a1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatalf("expected record")
	}
	if len(rec.Messages) != 1 || rec.Messages[0].Content != "hi" || rec.Messages[0].Role != RoleUser {
		t.Fatalf("unexpected transcript: %+v", rec.Messages)
	}
}

func TestAppendMessageEmptyKeyRejected(t *testing.T) {
	s := newTestStore(t)

	if err := s.AppendMessage(context.Background(), "", "a1", "a1", Message{Role: RoleUser, Content: "x"}); err == nil {
		t.Fatalf("expected error for empty user id")
	}
}

func TestTranscriptAppendOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		msg := Message{
			ID:      fmt.Sprintf("m%d", i),
			Role:    RoleUser,
			Content: fmt.Sprintf("message %d", i),
		}
		if err := s.AppendMessage(ctx, "u1", "a1", "a1", msg); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	rec, ok, err := s.GetConversation(ctx, "u1", "a1", "a1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if len(rec.Messages) != 10 {
		t.Fatalf("expected 10 messages, got %d", len(rec.Messages))
	}
	for i, m := range rec.Messages {
		if m.ID != fmt.Sprintf("m%d", i) {
			t.Fatalf("message %d out of order: %+v", i, m)
		}
	}
}

func TestConcurrentAppendsLoseNothing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			msg := Message{ID: fmt.Sprintf("c%d", i), Role: RoleUser, Content: "x"}
			if err := s.AppendMessage(ctx, "u1", "a1", "a1", msg); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent append: %v", err)
	}

	rec, ok, err := s.GetConversation(ctx, "u1", "a1", "a1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if len(rec.Messages) != 16 {
		t.Fatalf("lost updates: expected 16 messages, got %d", len(rec.Messages))
	}
}

func TestLatestConversationPicksMostRecentlyUpdated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.AppendMessage(ctx, "u1", "a1", "thread-1", Message{ID: "m1", Role: RoleUser, Content: "first"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.AppendMessage(ctx, "u1", "a1", "thread-2", Message{ID: "m2", Role: RoleUser, Content: "second"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	// Touch thread-1 again so it becomes the most recently updated.
	if err := s.AppendMessage(ctx, "u1", "a1", "thread-1", Message{ID: "m3", Role: RoleAssistant, Content: "reply"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	rec, ok, err := s.LatestConversation(ctx, "u1", "a1")
	if err != nil || !ok {
		t.Fatalf("latest: ok=%v err=%v", ok, err)
	}
	if rec.ConversationID != "thread-1" {
		t.Fatalf("expected thread-1 as latest, got %s", rec.ConversationID)
	}
	if len(rec.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(rec.Messages))
	}
}

func TestLatestConversationMissing(t *testing.T) {
	s := newTestStore(t)

	_, ok, err := s.LatestConversation(context.Background(), "nobody", "a1")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if ok {
		t.Fatalf("expected no record")
	}
}
