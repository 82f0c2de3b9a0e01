package domain

import "time"

// Editor identifies who touched an entity: display initials plus the backing
// user id.
type Editor struct {
	Initials string `bson:"initials" json:"initials"`
	UID      string `bson:"uid" json:"uid"`
}

// Task is one to-do item inside a task container.
type Task struct {
	ID         string    `bson:"id" json:"id"`
	Name       string    `bson:"name" json:"name"`
	Supplier   string    `bson:"supplier" json:"supplier"`
	Contact    string    `bson:"contact" json:"contact"`
	Done       bool      `bson:"done" json:"done"`
	Amount     float64   `bson:"amount" json:"amount"`
	CreatedBy  Editor    `bson:"createdBy" json:"createdBy"`
	ModifiedBy Editor    `bson:"modifiedBy" json:"modifiedBy"`
	ModifiedAt time.Time `bson:"modifiedAt" json:"modifiedAt"`
}

// TaskEvent holds the ordered task list for the event with the same title.
// All counts are derived from the list; there is no independent counter.
type TaskEvent struct {
	Title        string   `bson:"_id" json:"title"`
	CreatedByUID string   `bson:"createdByUID" json:"createdByUID"`
	SharedWith   []string `bson:"sharedWith" json:"sharedWith"`
	SharedGroups []string `bson:"sharedGroups" json:"sharedGroups"`
	Tasks        []Task   `bson:"tasks" json:"tasks"`
}

// TotalCount returns the number of tasks.
func (te *TaskEvent) TotalCount() int { return len(te.Tasks) }

// CompletedCount returns the number of finished tasks.
func (te *TaskEvent) CompletedCount() int {
	n := 0
	for _, t := range te.Tasks {
		if t.Done {
			n++
		}
	}
	return n
}

// TotalBudget sums the amounts across all tasks.
func (te *TaskEvent) TotalBudget() float64 {
	var sum float64
	for _, t := range te.Tasks {
		sum += t.Amount
	}
	return sum
}

// FindTask returns the index of the task with the given id, or -1.
func (te *TaskEvent) FindTask(id string) int {
	for i := range te.Tasks {
		if te.Tasks[i].ID == id {
			return i
		}
	}
	return -1
}
