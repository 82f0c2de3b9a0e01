package domain

import "time"

// Expense is one spend record inside an expense container.
type Expense struct {
	ID         string    `bson:"id" json:"id"`
	Name       string    `bson:"name" json:"name"`
	Contact    string    `bson:"contact" json:"contact"`
	Amount     float64   `bson:"amount" json:"amount"`
	CreatedBy  Editor    `bson:"createdBy" json:"createdBy"`
	ModifiedBy Editor    `bson:"modifiedBy" json:"modifiedBy"`
	ModifiedAt time.Time `bson:"modifiedAt" json:"modifiedAt"`
}

// ExpenseEvent holds the expense list for the event with the same title and a
// running total. Every mutation goes through the methods below so the total
// and the list never diverge.
type ExpenseEvent struct {
	Title        string    `bson:"_id" json:"title"`
	CreatedByUID string    `bson:"createdByUID" json:"createdByUID"`
	SharedWith   []string  `bson:"sharedWith" json:"sharedWith"`
	SharedGroups []string  `bson:"sharedGroups" json:"sharedGroups"`
	Expenses     []Expense `bson:"expenses" json:"expenses"`
	TotalAmount  float64   `bson:"totalAmount" json:"totalAmount"`
}

// Add appends an expense and bumps the running total.
func (ee *ExpenseEvent) Add(x Expense) {
	ee.Expenses = append(ee.Expenses, x)
	ee.TotalAmount += x.Amount
}

// Update replaces the expense with the same id. It returns false when no
// expense matches.
func (ee *ExpenseEvent) Update(x Expense) bool {
	for i := range ee.Expenses {
		if ee.Expenses[i].ID == x.ID {
			ee.TotalAmount += x.Amount - ee.Expenses[i].Amount
			ee.Expenses[i] = x
			return true
		}
	}
	return false
}

// Remove deletes the expense with the given id and adjusts the total.
func (ee *ExpenseEvent) Remove(id string) bool {
	for i := range ee.Expenses {
		if ee.Expenses[i].ID == id {
			ee.TotalAmount -= ee.Expenses[i].Amount
			ee.Expenses = append(ee.Expenses[:i], ee.Expenses[i+1:]...)
			return true
		}
	}
	return false
}

// UpsertNamed updates the expense matching by name, or appends a new one.
// Task mirroring matches by name equality, not by a shared key.
func (ee *ExpenseEvent) UpsertNamed(x Expense) {
	for i := range ee.Expenses {
		if ee.Expenses[i].Name == x.Name {
			x.ID = ee.Expenses[i].ID
			x.CreatedBy = ee.Expenses[i].CreatedBy
			ee.TotalAmount += x.Amount - ee.Expenses[i].Amount
			ee.Expenses[i] = x
			return
		}
	}
	ee.Add(x)
}

// RemoveNamed deletes every expense whose name matches. It returns the number
// removed.
func (ee *ExpenseEvent) RemoveNamed(name string) int {
	removed := 0
	kept := ee.Expenses[:0]
	for _, x := range ee.Expenses {
		if x.Name == name {
			ee.TotalAmount -= x.Amount
			removed++
			continue
		}
		kept = append(kept, x)
	}
	ee.Expenses = kept
	return removed
}

// Sum recomputes the total from scratch. Used by tests to check the running
// total never drifts.
func (ee *ExpenseEvent) Sum() float64 {
	var s float64
	for _, x := range ee.Expenses {
		s += x.Amount
	}
	return s
}
