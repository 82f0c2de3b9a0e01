package domain

import (
	"math"
	"testing"
)

func expenseFixture(id, name string, amount float64) Expense {
	return Expense{ID: id, Name: name, Amount: amount}
}

func checkTotal(t *testing.T, ee *ExpenseEvent) {
	t.Helper()
	if math.Abs(ee.TotalAmount-ee.Sum()) > 1e-9 {
		t.Fatalf("total %v diverged from sum %v", ee.TotalAmount, ee.Sum())
	}
}

func TestExpenseEventTotalTracksMutations(t *testing.T) {
	ee := &ExpenseEvent{Title: "Offsite"}

	ee.Add(expenseFixture("e1", "Catering", 500))
	checkTotal(t, ee)
	ee.Add(expenseFixture("e2", "Venue", 1200))
	checkTotal(t, ee)
	if ee.TotalAmount != 1700 {
		t.Fatalf("total after adds = %v, want 1700", ee.TotalAmount)
	}

	if !ee.Update(expenseFixture("e1", "Catering", 650)) {
		t.Fatal("update missed existing expense")
	}
	checkTotal(t, ee)
	if ee.TotalAmount != 1850 {
		t.Fatalf("total after update = %v, want 1850", ee.TotalAmount)
	}

	if !ee.Remove("e2") {
		t.Fatal("remove missed existing expense")
	}
	checkTotal(t, ee)
	if ee.TotalAmount != 650 {
		t.Fatalf("total after remove = %v, want 650", ee.TotalAmount)
	}

	if ee.Update(expenseFixture("missing", "x", 1)) {
		t.Fatal("update of missing expense reported success")
	}
	if ee.Remove("missing") {
		t.Fatal("remove of missing expense reported success")
	}
	checkTotal(t, ee)
}

func TestExpenseEventUpsertNamed(t *testing.T) {
	ee := &ExpenseEvent{Title: "Offsite"}
	ee.Add(expenseFixture("e1", "Flowers", 80))
	ee.Add(expenseFixture("e2", "Band", 900))

	ee.UpsertNamed(Expense{ID: "new", Name: "Flowers", Amount: 120})
	if len(ee.Expenses) != 2 {
		t.Fatalf("expected in-place update, got %d expenses", len(ee.Expenses))
	}
	if ee.Expenses[0].ID != "e1" {
		t.Fatalf("upsert replaced id: %s", ee.Expenses[0].ID)
	}
	if ee.Expenses[0].Amount != 120 {
		t.Fatalf("upsert amount = %v, want 120", ee.Expenses[0].Amount)
	}
	checkTotal(t, ee)

	ee.UpsertNamed(expenseFixture("e3", "Photographer", 300))
	if len(ee.Expenses) != 3 {
		t.Fatalf("expected append, got %d expenses", len(ee.Expenses))
	}
	checkTotal(t, ee)
}

func TestExpenseEventRemoveNamed(t *testing.T) {
	ee := &ExpenseEvent{Title: "Offsite"}
	ee.Add(expenseFixture("e1", "Band", 900))
	ee.Add(expenseFixture("e2", "Flowers", 80))
	ee.Add(expenseFixture("e3", "Band", 100))

	if n := ee.RemoveNamed("Band"); n != 2 {
		t.Fatalf("removed %d, want 2", n)
	}
	if len(ee.Expenses) != 1 || ee.Expenses[0].Name != "Flowers" {
		t.Fatalf("unexpected survivors: %+v", ee.Expenses)
	}
	checkTotal(t, ee)

	if n := ee.RemoveNamed("Missing"); n != 0 {
		t.Fatalf("removed %d for missing name", n)
	}
}
