package store

import (
	"context"
	"testing"
)

func TestProfileUpsertAndGet(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	p := &Profile{ID: "u1", Email: "u1@example.com", FullName: "Uma One"}
	if err := st.UpsertProfile(ctx, p); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if p.Role != "user" {
		t.Fatalf("expected default role, got %q", p.Role)
	}

	got, ok, err := st.GetProfile(ctx, "u1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.FullName != "Uma One" || got.Email != "u1@example.com" {
		t.Fatalf("unexpected profile: %+v", got)
	}

	// Second upsert refreshes fields, not a duplicate row.
	if err := st.UpsertProfile(ctx, &Profile{ID: "u1", Email: "new@example.com", FullName: "Uma One", Role: "admin"}); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}
	all, err := st.ListProfiles(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 || all[0].Email != "new@example.com" || all[0].Role != "admin" {
		t.Fatalf("unexpected listing: %+v", all)
	}
}

func TestGetProfileMissing(t *testing.T) {
	st := newTestStore(t)
	_, ok, err := st.GetProfile(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatalf("missing profile must report ok=false")
	}
}
