// Package store holds the event synchronization engine: in-memory mirrors of
// the events, taskevents and expenseevents collections, the live
// subscriptions feeding them, and every mutation the client can perform.
// Mirrors advance only when a subscription echoes a committed write back;
// direct mutations never touch them.
package store

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"plansync/auth"
	"plansync/cache"
	"plansync/domain"
	"plansync/storage"
)

const (
	budgetKey        = "totalBudget"
	defaultBudgetTTL = 60 * time.Second
)

// RemoteClient is the write surface of the remote collection client. A batch
// is atomic within its collection only.
type RemoteClient interface {
	Batch(ctx context.Context, collection string, ops []storage.BatchOp) error
}

// Directory supplies group membership and group records.
type Directory interface {
	GroupsFor(ctx context.Context, userID string) ([]string, error)
	GetGroup(ctx context.Context, id string) (*domain.Group, error)
	AttachEvent(ctx context.Context, groupID, eventID string) error
}

// SnapshotSource opens live snapshot subscriptions on a collection.
type SnapshotSource interface {
	Subscribe(collection string, predicate bson.D, handler func(docs []bson.Raw)) (cancel func())
}

// EventStore is the single owner of the three mirrors.
type EventStore struct {
	remote RemoteClient
	dir    Directory
	ident  auth.Provider
	source SnapshotSource
	logger *log.Logger
	tracer trace.Tracer

	budget    *cache.Memo[float64]
	budgetTTL time.Duration

	// writeMu serializes direct mutations. Each operation reads its mirror
	// copy, modifies it and writes whole documents back; overlapping
	// read-modify-write cycles would erase each other's changes.
	writeMu sync.Mutex

	mu            sync.Mutex
	generation    uint64
	events        []domain.Event
	taskEvents    []domain.TaskEvent
	expenseEvents []domain.ExpenseEvent
	loaded        map[string]bool
	pending       int
	cancels       []func()
}

// New creates an EventStore. Call Subscribe to start syncing.
func New(remote RemoteClient, dir Directory, source SnapshotSource, ident auth.Provider, logger *log.Logger) *EventStore {
	return &EventStore{
		remote:    remote,
		dir:       dir,
		source:    source,
		ident:     ident,
		logger:    logger,
		tracer:    otel.Tracer("plansync/store"),
		budget:    cache.New[float64](),
		budgetTTL: defaultBudgetTTL,
	}
}

// Subscribe opens the three live subscriptions using an access filter built
// from the user's group membership as of now. Any previously held
// subscriptions are revoked first so no listener is duplicated.
func (s *EventStore) Subscribe(ctx context.Context) error {
	user, ok := s.ident.CurrentUser()
	if !ok {
		s.Close()
		return domain.ErrNotAuthenticated
	}

	groups, err := s.dir.GroupsFor(ctx, user.ID)
	if err != nil {
		return err
	}
	pred := storage.NewAccessFilter(user.ID, groups).Predicate()

	s.mu.Lock()
	old := s.revokeLocked()
	s.generation++
	gen := s.generation
	s.pending = 3
	s.loaded = map[string]bool{}
	s.mu.Unlock()
	for _, c := range old {
		c()
	}

	cancels := []func(){
		s.source.Subscribe(storage.CollectionEvents, pred, func(docs []bson.Raw) {
			s.applyEvents(gen, docs)
		}),
		s.source.Subscribe(storage.CollectionTaskEvents, pred, func(docs []bson.Raw) {
			s.applyTaskEvents(gen, docs)
		}),
		s.source.Subscribe(storage.CollectionExpenseEvents, pred, func(docs []bson.Raw) {
			s.applyExpenseEvents(gen, docs)
		}),
	}

	s.mu.Lock()
	if s.generation != gen {
		// Torn down while the subscriptions were being opened.
		s.mu.Unlock()
		for _, c := range cancels {
			c()
		}
		return nil
	}
	s.cancels = cancels
	s.mu.Unlock()

	s.logger.WithFields(log.Fields{"user": user.ID, "groups": len(groups)}).Info("subscriptions opened")
	return nil
}

// Close revokes all subscriptions and advances the generation so in-flight
// callbacks are discarded.
func (s *EventStore) Close() {
	s.mu.Lock()
	s.generation++
	cancels := s.revokeLocked()
	s.pending = 0
	s.loaded = nil
	s.mu.Unlock()

	for _, c := range cancels {
		c()
	}
}

// revokeLocked detaches the held cancel funcs without invoking them. Callers
// run them after releasing the lock: closing a subscription waits for its
// worker, and the worker may be blocked on this same mutex.
func (s *EventStore) revokeLocked() []func() {
	cancels := s.cancels
	s.cancels = nil
	return cancels
}

// Loading reports whether any of the three initial snapshots is still
// outstanding. A permanently failing subscription keeps this true.
func (s *EventStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending > 0
}

// Events returns a copy of the event mirror.
func (s *EventStore) Events() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Event(nil), s.events...)
}

// TaskEvents returns a copy of the task container mirror.
func (s *EventStore) TaskEvents() []domain.TaskEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.TaskEvent(nil), s.taskEvents...)
}

// ExpenseEvents returns a copy of the expense container mirror.
func (s *EventStore) ExpenseEvents() []domain.ExpenseEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ExpenseEvent(nil), s.expenseEvents...)
}

// TotalBudget returns the memoized sum of all task amounts across every
// visible task container. The memo lives for the configured window unless a
// task mutation invalidates it.
func (s *EventStore) TotalBudget() (float64, error) {
	return s.budget.GetOrCompute(budgetKey, s.budgetTTL, func() (float64, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		var sum float64
		for i := range s.taskEvents {
			sum += s.taskEvents[i].TotalBudget()
		}
		return sum, nil
	})
}

func (s *EventStore) applyEvents(gen uint64, docs []bson.Raw) {
	list := make([]domain.Event, 0, len(docs))
	for _, raw := range docs {
		var e domain.Event
		if err := bson.Unmarshal(raw, &e); err != nil {
			s.logger.WithError(err).Error("decode event snapshot, dropping document")
			continue
		}
		list = append(list, e)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return
	}
	s.events = list
	s.markLoadedLocked(storage.CollectionEvents)
}

func (s *EventStore) applyTaskEvents(gen uint64, docs []bson.Raw) {
	list := make([]domain.TaskEvent, 0, len(docs))
	for _, raw := range docs {
		var te domain.TaskEvent
		if err := bson.Unmarshal(raw, &te); err != nil {
			s.logger.WithError(err).Error("decode taskevent snapshot, dropping document")
			continue
		}
		list = append(list, te)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return
	}
	s.taskEvents = list
	s.markLoadedLocked(storage.CollectionTaskEvents)
}

func (s *EventStore) applyExpenseEvents(gen uint64, docs []bson.Raw) {
	list := make([]domain.ExpenseEvent, 0, len(docs))
	for _, raw := range docs {
		var ee domain.ExpenseEvent
		if err := bson.Unmarshal(raw, &ee); err != nil {
			s.logger.WithError(err).Error("decode expenseevent snapshot, dropping document")
			continue
		}
		list = append(list, ee)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return
	}
	s.expenseEvents = list
	s.markLoadedLocked(storage.CollectionExpenseEvents)
}

func (s *EventStore) markLoadedLocked(collection string) {
	if s.loaded == nil || s.loaded[collection] {
		return
	}
	s.loaded[collection] = true
	if s.pending > 0 {
		s.pending--
	}
}

// currentUser returns the signed-in user or logs and reports the no-op.
func (s *EventStore) currentUser(op string) (auth.User, bool) {
	user, ok := s.ident.CurrentUser()
	if !ok {
		s.logger.WithField("op", op).Warn("mutation without a signed-in user, skipping")
	}
	return user, ok
}

func (s *EventStore) editor(user auth.User) domain.Editor {
	return domain.Editor{Initials: user.Initials(), UID: user.ID}
}

// findEvent returns a copy of the mirrored event with the given id.
func (s *EventStore) findEvent(id string) (domain.Event, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.events {
		if s.events[i].ID == id {
			return s.events[i], true
		}
	}
	return domain.Event{}, false
}

// findTaskEvent returns a deep copy of the mirrored task container.
func (s *EventStore) findTaskEvent(title string) (domain.TaskEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.taskEvents {
		if s.taskEvents[i].Title == title {
			te := s.taskEvents[i]
			te.Tasks = append([]domain.Task(nil), te.Tasks...)
			return te, true
		}
	}
	return domain.TaskEvent{}, false
}

// findExpenseEvent returns a deep copy of the mirrored expense container.
func (s *EventStore) findExpenseEvent(title string) (domain.ExpenseEvent, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.expenseEvents {
		if s.expenseEvents[i].Title == title {
			ee := s.expenseEvents[i]
			ee.Expenses = append([]domain.Expense(nil), ee.Expenses...)
			return ee, true
		}
	}
	return domain.ExpenseEvent{}, false
}

func (s *EventStore) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
