package sharing

import (
	"context"
	"errors"
	"sync"
	"testing"

	log "github.com/sirupsen/logrus"

	"plansync/domain"
)

type fakeUsers struct {
	byEmail map[string]*domain.User
	err     error
}

func (f *fakeUsers) UserByEmail(_ context.Context, email string) (*domain.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byEmail[email], nil
}

type fakeGrants struct {
	mu     sync.Mutex
	shared []string
	err    error
}

func (f *fakeGrants) ShareWithUser(_ context.Context, eventID, uid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.shared = append(f.shared, eventID+":"+uid)
	return nil
}

func quietLogger() *log.Logger {
	logger := log.New()
	logger.SetLevel(log.PanicLevel)
	return logger
}

func TestShareByEmailGrantsResolvedUser(t *testing.T) {
	users := &fakeUsers{byEmail: map[string]*domain.User{
		"ben@example.com": {ID: "uid-2", Email: "ben@example.com"},
	}}
	grants := &fakeGrants{}
	c := New(users, grants, quietLogger())

	c.ShareByEmail(context.Background(), "ev-1", "ben@example.com")

	if len(grants.shared) != 1 || grants.shared[0] != "ev-1:uid-2" {
		t.Fatalf("shared = %v", grants.shared)
	}
}

func TestShareByEmailSilentFailures(t *testing.T) {
	tests := []struct {
		name   string
		users  *fakeUsers
		grants *fakeGrants
		email  string
	}{
		{"empty email", &fakeUsers{}, &fakeGrants{}, ""},
		{"unregistered recipient", &fakeUsers{byEmail: map[string]*domain.User{}}, &fakeGrants{}, "no@x"},
		{"lookup failure", &fakeUsers{err: errors.New("down")}, &fakeGrants{}, "ben@x"},
		{
			"grant failure",
			&fakeUsers{byEmail: map[string]*domain.User{"ben@x": {ID: "uid-2"}}},
			&fakeGrants{err: errors.New("down")},
			"ben@x",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := New(tc.users, tc.grants, quietLogger())
			// Must not panic or surface the error.
			c.ShareByEmail(context.Background(), "ev-1", tc.email)
			if len(tc.grants.shared) != 0 {
				t.Fatalf("unexpected grant: %v", tc.grants.shared)
			}
		})
	}
}

func TestShareByEmailExactMatchOnly(t *testing.T) {
	users := &fakeUsers{byEmail: map[string]*domain.User{
		"Ben@example.com": {ID: "uid-2"},
	}}
	grants := &fakeGrants{}
	c := New(users, grants, quietLogger())

	c.ShareByEmail(context.Background(), "ev-1", "ben@example.com")
	if len(grants.shared) != 0 {
		t.Fatalf("case-differing email matched: %v", grants.shared)
	}
}
