package store

import (
	"context"
	"testing"

	"plansync/domain"
)

func TestShareWithUserPropagatesToContainers(t *testing.T) {
	h := newHarness(t)
	ev := h.createEvent(t, "garden party")

	if err := h.store.ShareWithUser(context.Background(), ev.ID, "uid-2"); err != nil {
		t.Fatalf("share: %v", err)
	}

	got := h.store.Events()[0]
	if !got.SharedWithUser("uid-2") {
		t.Fatal("event not shared")
	}
	te := h.taskContainer(t, ev.Title)
	ee := h.expenseContainer(t, ev.Title)
	if len(te.SharedWith) != 1 || te.SharedWith[0] != "uid-2" {
		t.Fatalf("task container sharing = %v", te.SharedWith)
	}
	if len(ee.SharedWith) != 1 || ee.SharedWith[0] != "uid-2" {
		t.Fatalf("expense container sharing = %v", ee.SharedWith)
	}
}

func TestShareWithUserIdempotent(t *testing.T) {
	h := newHarness(t)
	ev := h.createEvent(t, "garden party")
	ctx := context.Background()

	if err := h.store.ShareWithUser(ctx, ev.ID, "uid-2"); err != nil {
		t.Fatalf("first share: %v", err)
	}
	before := h.backend.writeCount()
	if err := h.store.ShareWithUser(ctx, ev.ID, "uid-2"); err != nil {
		t.Fatalf("second share: %v", err)
	}
	if h.backend.writeCount() != before {
		t.Fatal("repeated share issued writes")
	}
	if got := h.store.Events()[0].SharedWith; len(got) != 1 {
		t.Fatalf("sharedWith = %v, want one entry", got)
	}
}

func TestShareWithOwnerIsNoOp(t *testing.T) {
	h := newHarness(t)
	ev := h.createEvent(t, "garden party")
	before := h.backend.writeCount()

	if err := h.store.ShareWithUser(context.Background(), ev.ID, "uid-1"); err != nil {
		t.Fatalf("share: %v", err)
	}
	if h.backend.writeCount() != before {
		t.Fatal("sharing with the owner issued writes")
	}
}

func TestShareWithGroupReplacesList(t *testing.T) {
	h := newHarness(t)
	h.dir.groups["g1"] = &domain.Group{
		ID:        "g1",
		Name:      "family",
		MemberIDs: []string{"uid-1", "uid-2", "uid-3"},
	}
	ev := h.createEvent(t, "garden party")
	ctx := context.Background()

	if err := h.store.ShareWithUser(ctx, ev.ID, "uid-9"); err != nil {
		t.Fatalf("share user: %v", err)
	}
	if err := h.store.ShareWithGroup(ctx, ev.ID, "g1"); err != nil {
		t.Fatalf("share group: %v", err)
	}

	got := h.store.Events()[0]
	if got.SharedWithUser("uid-9") {
		t.Fatal("group share kept the superseded per-user entry")
	}
	if !got.SharedWithUser("uid-2") || !got.SharedWithUser("uid-3") {
		t.Fatalf("group members missing: %v", got.SharedWith)
	}
	if got.SharedWithUser("uid-1") {
		t.Fatal("owner folded into shared list")
	}
	if len(got.SharedGroups) != 1 || got.SharedGroups[0] != "g1" {
		t.Fatalf("sharedGroups = %v", got.SharedGroups)
	}
	if len(h.dir.attached) != 1 || h.dir.attached[0] != "g1:"+ev.ID {
		t.Fatalf("group backlink = %v", h.dir.attached)
	}
}

func TestShareWithUnknownGroup(t *testing.T) {
	h := newHarness(t)
	ev := h.createEvent(t, "garden party")

	if err := h.store.ShareWithGroup(context.Background(), ev.ID, "missing"); err == nil {
		t.Fatal("unknown group accepted")
	}
}

func TestUnshareTouchesEventOnly(t *testing.T) {
	h := newHarness(t)
	ev := h.createEvent(t, "garden party")
	ctx := context.Background()

	if err := h.store.ShareWithUser(ctx, ev.ID, "uid-2"); err != nil {
		t.Fatalf("share: %v", err)
	}
	before := h.backend.writeCount()
	if err := h.store.Unshare(ctx, ev.ID, "uid-2"); err != nil {
		t.Fatalf("unshare: %v", err)
	}

	if h.backend.writeCount() != before+1 {
		t.Fatalf("unshare issued %d writes, want 1", h.backend.writeCount()-before)
	}
	if h.store.Events()[0].SharedWithUser("uid-2") {
		t.Fatal("user still on the event")
	}
	// Containers keep their stale lists; the event alone governs visibility.
	if got := h.taskContainer(t, ev.Title).SharedWith; len(got) != 1 {
		t.Fatalf("task container rewritten on unshare: %v", got)
	}
}

func TestUnshareUnknownUserIsNoOp(t *testing.T) {
	h := newHarness(t)
	ev := h.createEvent(t, "garden party")
	before := h.backend.writeCount()

	if err := h.store.Unshare(context.Background(), ev.ID, "uid-7"); err != nil {
		t.Fatalf("unshare: %v", err)
	}
	if h.backend.writeCount() != before {
		t.Fatal("no-op unshare issued writes")
	}
}
