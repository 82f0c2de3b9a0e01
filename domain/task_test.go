package domain

import "testing"

func TestTaskEventDerivedCounts(t *testing.T) {
	te := &TaskEvent{Title: "Offsite", Tasks: []Task{
		{ID: "t1", Name: "Book venue", Amount: 1200, Done: true},
		{ID: "t2", Name: "Order catering", Amount: 500.5},
		{ID: "t3", Name: "Send invites", Done: true},
	}}

	if got := te.TotalCount(); got != 3 {
		t.Fatalf("TotalCount = %d, want 3", got)
	}
	if got := te.CompletedCount(); got != 2 {
		t.Fatalf("CompletedCount = %d, want 2", got)
	}
	if got := te.TotalBudget(); got != 1700.5 {
		t.Fatalf("TotalBudget = %v, want 1700.5", got)
	}
}

func TestTaskEventFindTask(t *testing.T) {
	te := &TaskEvent{Tasks: []Task{{ID: "a"}, {ID: "b"}}}
	if i := te.FindTask("b"); i != 1 {
		t.Fatalf("FindTask(b) = %d, want 1", i)
	}
	if i := te.FindTask("zz"); i != -1 {
		t.Fatalf("FindTask(zz) = %d, want -1", i)
	}
}

func TestEventValidate(t *testing.T) {
	e := &Event{Title: "Offsite"}
	if err := e.Validate(); err != nil {
		t.Fatalf("valid event rejected: %v", err)
	}
	e.Title = ""
	if err := e.Validate(); err == nil {
		t.Fatal("empty title accepted")
	}
	e.Title = "Offsite"
	e.GuestCount = -1
	if err := e.Validate(); err == nil {
		t.Fatal("negative guest count accepted")
	}
}

func TestGroupMemberUIDs(t *testing.T) {
	g := &Group{Members: []Member{{UID: "u1"}, {UID: "u2"}}}
	ids := g.MemberUIDs()
	if len(ids) != 2 || ids[0] != "u1" || ids[1] != "u2" {
		t.Fatalf("unexpected ids: %v", ids)
	}

	g.MemberIDs = []string{"u3"}
	ids = g.MemberUIDs()
	if len(ids) != 1 || ids[0] != "u3" {
		t.Fatalf("denormalized ids not preferred: %v", ids)
	}
}
