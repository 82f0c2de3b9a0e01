package storage

import "go.mongodb.org/mongo-driver/v2/bson"

// AccessFilter expresses "owned by me, shared with me, or shared with one of
// my groups". It is built once per subscription from the user's group
// membership at that moment.
type AccessFilter struct {
	UserID   string
	GroupIDs []string
}

// NewAccessFilter copies the group id set so later membership changes cannot
// mutate a filter already handed to a live subscription.
func NewAccessFilter(userID string, groupIDs []string) AccessFilter {
	return AccessFilter{UserID: userID, GroupIDs: append([]string(nil), groupIDs...)}
}

// Predicate renders the filter as a query document. The group clause is
// omitted entirely when the user belongs to no groups; an $in over an empty
// list would match nothing and some backends reject it outright.
func (f AccessFilter) Predicate() bson.D {
	clauses := bson.A{
		bson.D{{Key: "createdByUID", Value: f.UserID}},
		bson.D{{Key: "sharedWith", Value: f.UserID}},
	}
	if len(f.GroupIDs) > 0 {
		clauses = append(clauses, bson.D{{Key: "sharedGroups", Value: bson.D{{Key: "$in", Value: f.GroupIDs}}}})
	}
	return bson.D{{Key: "$or", Value: clauses}}
}
