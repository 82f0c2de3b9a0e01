package store

import (
	"context"

	log "github.com/sirupsen/logrus"

	"plansync/domain"
	"plansync/storage"
)

// ShareWithUser grants one user access to the event and both of its
// containers. Sharing with someone who already has access is a no-op.
func (s *EventStore) ShareWithUser(ctx context.Context, eventID, uid string) (err error) {
	_, ok := s.currentUser("ShareWithUser")
	if !ok {
		return domain.ErrNotAuthenticated
	}
	ctx, span := s.startSpan(ctx, "store.ShareWithUser")
	defer func() { endSpan(span, err) }()
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if uid == "" {
		return &domain.ValidationError{Field: "uid", Reason: "empty"}
	}
	ev, ok := s.findEvent(eventID)
	if !ok {
		return domain.ErrNotFound
	}
	if uid == ev.CreatedByUID || ev.SharedWithUser(uid) {
		return nil
	}

	ev.SharedWith = append(append([]string(nil), ev.SharedWith...), uid)
	return s.writeSharing(ctx, ev)
}

// ShareWithGroup shares the event with every current member of the group.
// The membership snapshot replaces the per-user list; the group id is kept
// on the document so later membership changes still match the access filter.
func (s *EventStore) ShareWithGroup(ctx context.Context, eventID, groupID string) (err error) {
	_, ok := s.currentUser("ShareWithGroup")
	if !ok {
		return domain.ErrNotAuthenticated
	}
	ctx, span := s.startSpan(ctx, "store.ShareWithGroup")
	defer func() { endSpan(span, err) }()
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	ev, ok := s.findEvent(eventID)
	if !ok {
		return domain.ErrNotFound
	}
	g, err := s.dir.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if g == nil {
		return domain.ErrNotFound
	}

	shared := make([]string, 0, len(g.Members))
	for _, uid := range g.MemberUIDs() {
		if uid == ev.CreatedByUID {
			continue
		}
		shared = append(shared, uid)
	}
	ev.SharedWith = shared

	hasGroup := false
	for _, gid := range ev.SharedGroups {
		if gid == groupID {
			hasGroup = true
			break
		}
	}
	if !hasGroup {
		ev.SharedGroups = append(append([]string(nil), ev.SharedGroups...), groupID)
	}

	if err = s.writeSharing(ctx, ev); err != nil {
		return err
	}
	if err := s.dir.AttachEvent(ctx, groupID, ev.ID); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{"group": groupID, "event": ev.ID}).Warn("group event backlink failed")
	}
	return nil
}

// Unshare revokes one user's access on the event document. The containers
// keep their lists until the next sharing write; visibility is governed by
// the event, so the user stops seeing the plan immediately.
func (s *EventStore) Unshare(ctx context.Context, eventID, uid string) (err error) {
	_, ok := s.currentUser("Unshare")
	if !ok {
		return domain.ErrNotAuthenticated
	}
	ctx, span := s.startSpan(ctx, "store.Unshare")
	defer func() { endSpan(span, err) }()
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	ev, ok := s.findEvent(eventID)
	if !ok {
		return domain.ErrNotFound
	}
	kept := make([]string, 0, len(ev.SharedWith))
	found := false
	for _, id := range ev.SharedWith {
		if id == uid {
			found = true
			continue
		}
		kept = append(kept, id)
	}
	if !found {
		return nil
	}
	ev.SharedWith = kept

	if err = s.remote.Batch(ctx, storage.CollectionEvents, []storage.BatchOp{{ID: ev.ID, Document: ev}}); err != nil {
		s.logger.WithError(err).WithFields(log.Fields{"event": ev.ID, "uid": uid}).Error("unshare write failed")
		return err
	}
	return nil
}

// writeSharing pushes the event's sharing lists onto the event and both
// containers. The three writes are sequential and independent; a mid-way
// failure leaves the earlier collections updated.
func (s *EventStore) writeSharing(ctx context.Context, ev domain.Event) error {
	if err := s.remote.Batch(ctx, storage.CollectionEvents, []storage.BatchOp{{ID: ev.ID, Document: ev}}); err != nil {
		s.logger.WithError(err).WithField("event", ev.ID).Error("sharing write failed")
		return err
	}

	if te, ok := s.findTaskEvent(ev.Title); ok {
		te.SharedWith = ev.SharedWith
		te.SharedGroups = ev.SharedGroups
		if err := s.remote.Batch(ctx, storage.CollectionTaskEvents, []storage.BatchOp{{ID: te.Title, Document: te}}); err != nil {
			s.logger.WithError(err).WithField("title", ev.Title).Error("task container sharing write failed")
			return err
		}
	}
	if ee, ok := s.findExpenseEvent(ev.Title); ok {
		ee.SharedWith = ev.SharedWith
		ee.SharedGroups = ev.SharedGroups
		if err := s.remote.Batch(ctx, storage.CollectionExpenseEvents, []storage.BatchOp{{ID: ee.Title, Document: ee}}); err != nil {
			s.logger.WithError(err).WithField("title", ev.Title).Error("expense container sharing write failed")
			return err
		}
	}
	return nil
}
