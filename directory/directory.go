// Package directory resolves group membership and user identities for the
// sharing and access-control paths.
package directory

import (
	"context"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"

	"plansync/domain"
	"plansync/storage"
)

// Client is the slice of the remote collection client the directory needs.
type Client interface {
	Query(ctx context.Context, collection string, predicate bson.D, limit int) ([]bson.Raw, error)
	Get(ctx context.Context, collection, id string) (bson.Raw, error)
	Batch(ctx context.Context, collection string, ops []storage.BatchOp) error
}

// Directory reads groups and users from the remote database.
type Directory struct {
	client Client
}

// New creates a Directory over the given client.
func New(client Client) *Directory {
	return &Directory{client: client}
}

// GroupsFor returns the ids of every group the user belongs to. It is read
// once at subscription setup; membership changes require a resubscribe.
func (d *Directory) GroupsFor(ctx context.Context, userID string) ([]string, error) {
	docs, err := d.client.Query(ctx, storage.CollectionGroups, bson.D{{Key: "memberIds", Value: userID}}, 0)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(docs))
	for _, raw := range docs {
		var g domain.Group
		if err := bson.Unmarshal(raw, &g); err != nil {
			return nil, err
		}
		ids = append(ids, g.ID)
	}
	return ids, nil
}

// GetGroup fetches one group, returning nil when it does not exist.
func (d *Directory) GetGroup(ctx context.Context, id string) (*domain.Group, error) {
	raw, err := d.client.Get(ctx, storage.CollectionGroups, id)
	if err != nil || raw == nil {
		return nil, err
	}
	var g domain.Group
	if err := bson.Unmarshal(raw, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// CreateGroup persists a new group, filling the id and the denormalized
// member id list.
func (d *Directory) CreateGroup(ctx context.Context, g *domain.Group) error {
	if g.Name == "" {
		return &domain.ValidationError{Field: "name", Reason: "empty"}
	}
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	g.MemberIDs = g.MemberUIDs()
	return d.client.Batch(ctx, storage.CollectionGroups, []storage.BatchOp{{ID: g.ID, Document: g}})
}

// AttachEvent records that an event was shared with the group. Missing
// groups and already-attached events are no-ops.
func (d *Directory) AttachEvent(ctx context.Context, groupID, eventID string) error {
	g, err := d.GetGroup(ctx, groupID)
	if err != nil || g == nil {
		return err
	}
	for _, id := range g.Events {
		if id == eventID {
			return nil
		}
	}
	g.Events = append(g.Events, eventID)
	return d.client.Batch(ctx, storage.CollectionGroups, []storage.BatchOp{{ID: g.ID, Document: g}})
}

// UserByEmail looks up a user by exact email match, returning nil when no
// user matches. No case normalization is applied.
func (d *Directory) UserByEmail(ctx context.Context, email string) (*domain.User, error) {
	docs, err := d.client.Query(ctx, storage.CollectionUsers, bson.D{{Key: "email", Value: email}}, 1)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	var u domain.User
	if err := bson.Unmarshal(docs[0], &u); err != nil {
		return nil, err
	}
	return &u, nil
}
