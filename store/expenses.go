package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"plansync/domain"
	"plansync/storage"
)

// ExpenseInput carries user-entered expense fields. Unlike tasks, an expense
// always requires an amount.
type ExpenseInput struct {
	Name    string
	Contact string
	Amount  string
}

func (in ExpenseInput) parse() (float64, error) {
	if in.Name == "" {
		return 0, &domain.ValidationError{Field: "name", Reason: "empty"}
	}
	if in.Amount == "" {
		return 0, &domain.ValidationError{Field: "amount", Reason: "empty"}
	}
	return domain.ParseAmount(in.Amount)
}

// AddExpense appends an expense to the container with the given title.
func (s *EventStore) AddExpense(ctx context.Context, title string, in ExpenseInput) (err error) {
	user, ok := s.currentUser("AddExpense")
	if !ok {
		return domain.ErrNotAuthenticated
	}
	ctx, span := s.startSpan(ctx, "store.AddExpense")
	defer func() { endSpan(span, err) }()
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	amount, err := in.parse()
	if err != nil {
		return err
	}
	ee, ok := s.findExpenseEvent(title)
	if !ok {
		return domain.ErrNotFound
	}

	editor := s.editor(user)
	ee.Add(domain.Expense{
		ID:         uuid.NewString(),
		Name:       in.Name,
		Contact:    in.Contact,
		Amount:     amount,
		CreatedBy:  editor,
		ModifiedBy: editor,
		ModifiedAt: time.Now().UTC(),
	})

	if err = s.remote.Batch(ctx, storage.CollectionExpenseEvents, []storage.BatchOp{{ID: ee.Title, Document: ee}}); err != nil {
		s.logger.WithError(err).WithField("title", title).Error("add expense write failed")
		return err
	}
	return nil
}

// UpdateExpense rewrites one expense in place, keeping its creator stamp.
func (s *EventStore) UpdateExpense(ctx context.Context, title, expenseID string, in ExpenseInput) (err error) {
	user, ok := s.currentUser("UpdateExpense")
	if !ok {
		return domain.ErrNotAuthenticated
	}
	ctx, span := s.startSpan(ctx, "store.UpdateExpense")
	defer func() { endSpan(span, err) }()
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	amount, err := in.parse()
	if err != nil {
		return err
	}
	ee, ok := s.findExpenseEvent(title)
	if !ok {
		return domain.ErrNotFound
	}
	idx := -1
	for i := range ee.Expenses {
		if ee.Expenses[i].ID == expenseID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.ErrNotFound
	}

	next := ee.Expenses[idx]
	next.Name = in.Name
	next.Contact = in.Contact
	next.Amount = amount
	next.ModifiedBy = s.editor(user)
	next.ModifiedAt = time.Now().UTC()
	ee.Update(next)

	if err = s.remote.Batch(ctx, storage.CollectionExpenseEvents, []storage.BatchOp{{ID: ee.Title, Document: ee}}); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{"title": title, "expense": expenseID}).Error("update expense write failed")
		return err
	}
	return nil
}

// RemoveExpense deletes one expense from the container.
func (s *EventStore) RemoveExpense(ctx context.Context, title, expenseID string) (err error) {
	_, ok := s.currentUser("RemoveExpense")
	if !ok {
		return domain.ErrNotAuthenticated
	}
	ctx, span := s.startSpan(ctx, "store.RemoveExpense")
	defer func() { endSpan(span, err) }()
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	ee, ok := s.findExpenseEvent(title)
	if !ok {
		return domain.ErrNotFound
	}
	if !ee.Remove(expenseID) {
		return domain.ErrNotFound
	}

	if err = s.remote.Batch(ctx, storage.CollectionExpenseEvents, []storage.BatchOp{{ID: ee.Title, Document: ee}}); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{"title": title, "expense": expenseID}).Error("remove expense write failed")
		return err
	}
	return nil
}
