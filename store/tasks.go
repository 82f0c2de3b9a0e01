package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"plansync/domain"
	"plansync/storage"
)

// TaskInput carries user-entered task fields. Amount arrives as display text
// and is normalized to a number before anything is stored.
type TaskInput struct {
	Name     string
	Supplier string
	Contact  string
	Amount   string
	Done     bool
}

func (in TaskInput) parse() (float64, error) {
	if in.Name == "" {
		return 0, &domain.ValidationError{Field: "name", Reason: "empty"}
	}
	if in.Amount == "" {
		return 0, nil
	}
	return domain.ParseAmount(in.Amount)
}

// AddTask appends a task to the container with the given title, mirrors it
// into the sibling expense container and refreshes the event's cached
// totals.
func (s *EventStore) AddTask(ctx context.Context, title string, in TaskInput) (err error) {
	user, ok := s.currentUser("AddTask")
	if !ok {
		return domain.ErrNotAuthenticated
	}
	ctx, span := s.startSpan(ctx, "store.AddTask")
	defer func() { endSpan(span, err) }()
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	amount, err := in.parse()
	if err != nil {
		return err
	}
	te, ok := s.findTaskEvent(title)
	if !ok {
		return domain.ErrNotFound
	}

	editor := s.editor(user)
	task := domain.Task{
		ID:         uuid.NewString(),
		Name:       in.Name,
		Supplier:   in.Supplier,
		Contact:    in.Contact,
		Done:       in.Done,
		Amount:     amount,
		CreatedBy:  editor,
		ModifiedBy: editor,
		ModifiedAt: time.Now().UTC(),
	}
	te.Tasks = append(te.Tasks, task)

	if err = s.remote.Batch(ctx, storage.CollectionTaskEvents, []storage.BatchOp{{ID: te.Title, Document: te}}); err != nil {
		s.logger.WithError(err).WithField("title", title).Error("add task write failed")
		return err
	}
	s.budget.Invalidate(budgetKey)
	s.mirrorTaskToExpense(ctx, title, task)
	s.refreshEventTotals(ctx, &te)
	return nil
}

// UpdateTask rewrites one task in place and re-mirrors it into the sibling
// expense container, matching by name.
func (s *EventStore) UpdateTask(ctx context.Context, title, taskID string, in TaskInput) (err error) {
	user, ok := s.currentUser("UpdateTask")
	if !ok {
		return domain.ErrNotAuthenticated
	}
	ctx, span := s.startSpan(ctx, "store.UpdateTask")
	defer func() { endSpan(span, err) }()
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	amount, err := in.parse()
	if err != nil {
		return err
	}
	te, ok := s.findTaskEvent(title)
	if !ok {
		return domain.ErrNotFound
	}
	i := te.FindTask(taskID)
	if i < 0 {
		return domain.ErrNotFound
	}

	task := te.Tasks[i]
	task.Name = in.Name
	task.Supplier = in.Supplier
	task.Contact = in.Contact
	task.Done = in.Done
	task.Amount = amount
	task.ModifiedBy = s.editor(user)
	task.ModifiedAt = time.Now().UTC()
	te.Tasks[i] = task

	if err = s.remote.Batch(ctx, storage.CollectionTaskEvents, []storage.BatchOp{{ID: te.Title, Document: te}}); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{"title": title, "task": taskID}).Error("update task write failed")
		return err
	}
	s.budget.Invalidate(budgetKey)
	s.mirrorTaskToExpense(ctx, title, task)
	s.refreshEventTotals(ctx, &te)
	return nil
}

// DeleteTask removes a task and any expense in the sibling container whose
// name matches the deleted task's name.
func (s *EventStore) DeleteTask(ctx context.Context, title, taskID string) (err error) {
	_, ok := s.currentUser("DeleteTask")
	if !ok {
		return domain.ErrNotAuthenticated
	}
	ctx, span := s.startSpan(ctx, "store.DeleteTask")
	defer func() { endSpan(span, err) }()
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	te, ok := s.findTaskEvent(title)
	if !ok {
		return domain.ErrNotFound
	}
	i := te.FindTask(taskID)
	if i < 0 {
		return domain.ErrNotFound
	}
	removed := te.Tasks[i]
	te.Tasks = append(te.Tasks[:i], te.Tasks[i+1:]...)

	if err = s.remote.Batch(ctx, storage.CollectionTaskEvents, []storage.BatchOp{{ID: te.Title, Document: te}}); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{"title": title, "task": taskID}).Error("delete task write failed")
		return err
	}
	s.budget.Invalidate(budgetKey)
	s.dropMirroredExpense(ctx, title, removed.Name)
	s.refreshEventTotals(ctx, &te)
	return nil
}

// mirrorTaskToExpense keeps the sibling expense container in step with a
// created or updated task. The mirror matches by name and is best effort:
// a failure logs and leaves the collections eventually consistent.
func (s *EventStore) mirrorTaskToExpense(ctx context.Context, title string, task domain.Task) {
	ee, ok := s.findExpenseEvent(title)
	if !ok {
		s.logger.WithField("title", title).Warn("no expense container for task mirror")
		return
	}
	ee.UpsertNamed(domain.Expense{
		ID:         task.ID,
		Name:       task.Name,
		Contact:    task.Contact,
		Amount:     task.Amount,
		CreatedBy:  task.CreatedBy,
		ModifiedBy: task.ModifiedBy,
		ModifiedAt: task.ModifiedAt,
	})
	if err := s.remote.Batch(ctx, storage.CollectionExpenseEvents, []storage.BatchOp{{ID: ee.Title, Document: ee}}); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{"title": title, "task": task.Name}).Warn("task to expense mirror write failed")
	}
}

// dropMirroredExpense removes the name-matched expense after a task delete.
func (s *EventStore) dropMirroredExpense(ctx context.Context, title, name string) {
	ee, ok := s.findExpenseEvent(title)
	if !ok {
		return
	}
	if ee.RemoveNamed(name) == 0 {
		return
	}
	if err := s.remote.Batch(ctx, storage.CollectionExpenseEvents, []storage.BatchOp{{ID: ee.Title, Document: ee}}); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{"title": title, "expense": name}).Warn("mirrored expense delete failed")
	}
}

// refreshEventTotals copies the container's derived counts onto the event
// document. Best effort: the counts are recomputable from the task list.
func (s *EventStore) refreshEventTotals(ctx context.Context, te *domain.TaskEvent) {
	s.mu.Lock()
	var ev domain.Event
	found := false
	for i := range s.events {
		if s.events[i].Title == te.Title {
			ev = s.events[i]
			found = true
			break
		}
	}
	s.mu.Unlock()
	if !found {
		return
	}

	ev.CompletedTasks = te.CompletedCount()
	ev.TotalTasks = te.TotalCount()
	if err := s.remote.Batch(ctx, storage.CollectionEvents, []storage.BatchOp{{ID: ev.ID, Document: ev}}); err != nil {
		s.logger.WithError(err).WithField("event", ev.ID).Warn("event totals refresh failed")
	}
}
