package domain

import "time"

// Member is one person inside a group.
type Member struct {
	UID      string    `bson:"uid" json:"uid"`
	Name     string    `bson:"name" json:"name"`
	Email    string    `bson:"email" json:"email"`
	Role     string    `bson:"role" json:"role"`
	JoinedAt time.Time `bson:"joinedAt" json:"joinedAt"`
}

// Group is a named set of collaborators. MemberIDs duplicates the member uids
// so access filters can test membership without unpacking Members.
type Group struct {
	ID           string   `bson:"_id" json:"id"`
	Name         string   `bson:"name" json:"name"`
	CreatedByUID string   `bson:"createdByUID" json:"createdByUID"`
	Members      []Member `bson:"members" json:"members"`
	MemberIDs    []string `bson:"memberIds" json:"memberIds"`
	Events       []string `bson:"events" json:"events"`
}

// MemberUIDs returns the flattened member id list, preferring the
// denormalized slice when it is populated.
func (g *Group) MemberUIDs() []string {
	if len(g.MemberIDs) > 0 {
		return append([]string(nil), g.MemberIDs...)
	}
	ids := make([]string, 0, len(g.Members))
	for _, m := range g.Members {
		ids = append(ids, m.UID)
	}
	return ids
}

// User is the lookup record backing share-by-email.
type User struct {
	ID    string `bson:"_id" json:"id"`
	Name  string `bson:"name" json:"name"`
	Email string `bson:"email" json:"email"`
}
