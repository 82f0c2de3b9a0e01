package store

import (
	"context"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"plansync/domain"
	"plansync/storage"
)

// CreateEvent persists a new event together with its empty task and expense
// containers, one batch per collection. After the triple is written, each
// shared group's members are folded into sharedWith as a non-atomic follow-up
// that can partially fail without rolling back the create.
func (s *EventStore) CreateEvent(ctx context.Context, ev domain.Event) (err error) {
	user, ok := s.currentUser("CreateEvent")
	if !ok {
		return domain.ErrNotAuthenticated
	}
	ctx, span := s.startSpan(ctx, "store.CreateEvent")
	defer func() { endSpan(span, err) }()
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err = ev.Validate(); err != nil {
		return err
	}
	if s.titleInUse(ev.Title, user.ID) {
		return &domain.ValidationError{Field: "title", Reason: "already used by another of your events"}
	}

	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	ev.CreatedBy = user.Name
	ev.CreatedByUID = user.ID
	if ev.Guests == nil {
		ev.Guests = []domain.Guest{}
	}
	if ev.SharedWith == nil {
		ev.SharedWith = []string{}
	}
	if ev.SharedGroups == nil {
		ev.SharedGroups = []string{}
	}
	ev.CompletedTasks = 0
	ev.TotalTasks = 0

	te := domain.TaskEvent{
		Title:        ev.Title,
		CreatedByUID: user.ID,
		SharedWith:   ev.SharedWith,
		SharedGroups: ev.SharedGroups,
		Tasks:        []domain.Task{},
	}
	ee := domain.ExpenseEvent{
		Title:        ev.Title,
		CreatedByUID: user.ID,
		SharedWith:   ev.SharedWith,
		SharedGroups: ev.SharedGroups,
		Expenses:     []domain.Expense{},
	}

	if err = s.remote.Batch(ctx, storage.CollectionEvents, []storage.BatchOp{{ID: ev.ID, Document: ev}}); err != nil {
		s.logger.WithError(err).WithField("title", ev.Title).Error("create event write failed")
		return err
	}
	if err = s.remote.Batch(ctx, storage.CollectionTaskEvents, []storage.BatchOp{{ID: te.Title, Document: te}}); err != nil {
		s.logger.WithError(err).WithField("title", ev.Title).Error("create event left without task container")
		return err
	}
	if err = s.remote.Batch(ctx, storage.CollectionExpenseEvents, []storage.BatchOp{{ID: ee.Title, Document: ee}}); err != nil {
		s.logger.WithError(err).WithField("title", ev.Title).Error("create event left without expense container")
		return err
	}

	s.fanOutGroupMembers(ctx, ev)
	return nil
}

// fanOutGroupMembers appends each shared group's members to the event's
// sharedWith list. Best effort: a failed group lookup or write only logs.
func (s *EventStore) fanOutGroupMembers(ctx context.Context, ev domain.Event) {
	if len(ev.SharedGroups) == 0 {
		return
	}
	changed := false
	for _, gid := range ev.SharedGroups {
		g, err := s.dir.GetGroup(ctx, gid)
		if err != nil || g == nil {
			s.logger.WithError(err).WithField("group", gid).Warn("group member fan-out skipped")
			continue
		}
		for _, uid := range g.MemberUIDs() {
			if uid == ev.CreatedByUID || ev.SharedWithUser(uid) {
				continue
			}
			ev.SharedWith = append(ev.SharedWith, uid)
			changed = true
		}
	}
	if !changed {
		return
	}
	if err := s.remote.Batch(ctx, storage.CollectionEvents, []storage.BatchOp{{ID: ev.ID, Document: ev}}); err != nil {
		s.logger.WithError(err).WithField("event", ev.ID).Warn("group member fan-out write failed")
	}
}

// UpdateEvent rewrites the event's editable fields. Title, creator and
// sharing lists are taken from the mirror; the whole document is written
// back, so concurrent edits to other fields race last-write-wins.
func (s *EventStore) UpdateEvent(ctx context.Context, eventID string, changes domain.Event) (err error) {
	if _, ok := s.currentUser("UpdateEvent"); !ok {
		return domain.ErrNotAuthenticated
	}
	ctx, span := s.startSpan(ctx, "store.UpdateEvent")
	defer func() { endSpan(span, err) }()
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	ev, ok := s.findEvent(eventID)
	if !ok {
		return domain.ErrNotFound
	}
	if changes.GuestCount < 0 {
		return &domain.ValidationError{Field: "guestCount", Reason: "negative"}
	}

	ev.Date = changes.Date
	ev.Time = changes.Time
	ev.Venue = changes.Venue
	ev.GuestCount = changes.GuestCount
	if changes.Guests != nil {
		ev.Guests = changes.Guests
	}

	if err = s.remote.Batch(ctx, storage.CollectionEvents, []storage.BatchOp{{ID: ev.ID, Document: ev}}); err != nil {
		s.logger.WithError(err).WithField("event", ev.ID).Error("update event write failed")
		return err
	}
	return nil
}

// DeleteEvent removes the event and both of its containers. The three
// deletes are independent; a later failure leaves the earlier ones applied.
func (s *EventStore) DeleteEvent(ctx context.Context, eventID string) (err error) {
	_, ok := s.currentUser("DeleteEvent")
	if !ok {
		return domain.ErrNotAuthenticated
	}
	ctx, span := s.startSpan(ctx, "store.DeleteEvent")
	defer func() { endSpan(span, err) }()
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	ev, ok := s.findEvent(eventID)
	if !ok {
		return domain.ErrNotFound
	}

	if err = s.remote.Batch(ctx, storage.CollectionEvents, []storage.BatchOp{{ID: ev.ID, Delete: true}}); err != nil {
		s.logger.WithError(err).WithField("event", ev.ID).Error("delete event write failed")
		return err
	}
	if err = s.remote.Batch(ctx, storage.CollectionTaskEvents, []storage.BatchOp{{ID: ev.Title, Delete: true}}); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{"event": ev.ID, "title": ev.Title}).Error("orphaned task container after event delete")
		return err
	}
	if err = s.remote.Batch(ctx, storage.CollectionExpenseEvents, []storage.BatchOp{{ID: ev.Title, Delete: true}}); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{"event": ev.ID, "title": ev.Title}).Error("orphaned expense container after event delete")
		return err
	}
	return nil
}

// AddGuest appends a guest to the event's list and rewrites the event.
func (s *EventStore) AddGuest(ctx context.Context, eventID string, g domain.Guest) (err error) {
	_, ok := s.currentUser("AddGuest")
	if !ok {
		return domain.ErrNotAuthenticated
	}
	ctx, span := s.startSpan(ctx, "store.AddGuest")
	defer func() { endSpan(span, err) }()
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if g.Name == "" {
		return &domain.ValidationError{Field: "name", Reason: "empty"}
	}
	if g.Headcount <= 0 {
		return &domain.ValidationError{Field: "headcount", Reason: "must be positive"}
	}
	ev, ok := s.findEvent(eventID)
	if !ok {
		return domain.ErrNotFound
	}
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	ev.Guests = append(append([]domain.Guest(nil), ev.Guests...), g)

	if err = s.remote.Batch(ctx, storage.CollectionEvents, []storage.BatchOp{{ID: ev.ID, Document: ev}}); err != nil {
		s.logger.WithError(err).WithField("event", ev.ID).Error("add guest write failed")
		return err
	}
	return nil
}

// RemoveGuest drops a guest by id and rewrites the event.
func (s *EventStore) RemoveGuest(ctx context.Context, eventID, guestID string) (err error) {
	_, ok := s.currentUser("RemoveGuest")
	if !ok {
		return domain.ErrNotAuthenticated
	}
	ctx, span := s.startSpan(ctx, "store.RemoveGuest")
	defer func() { endSpan(span, err) }()
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	ev, ok := s.findEvent(eventID)
	if !ok {
		return domain.ErrNotFound
	}
	guests := make([]domain.Guest, 0, len(ev.Guests))
	found := false
	for _, g := range ev.Guests {
		if g.ID == guestID {
			found = true
			continue
		}
		guests = append(guests, g)
	}
	if !found {
		return domain.ErrNotFound
	}
	ev.Guests = guests

	if err = s.remote.Batch(ctx, storage.CollectionEvents, []storage.BatchOp{{ID: ev.ID, Document: ev}}); err != nil {
		s.logger.WithError(err).WithField("event", ev.ID).Error("remove guest write failed")
		return err
	}
	return nil
}

func (s *EventStore) titleInUse(title, ownerUID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if s.events[i].Title == title && s.events[i].CreatedByUID == ownerUID {
			return true
		}
	}
	return false
}
