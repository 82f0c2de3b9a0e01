package domain

// Guest is a single guest-list entry owned by one event.
type Guest struct {
	ID        string `bson:"id" json:"id"`
	Name      string `bson:"name" json:"name"`
	Headcount int    `bson:"headcount" json:"headcount"`
	Selected  bool   `bson:"selected" json:"selected,omitempty"`
}

// Event is a planned occasion. Title doubles as the join key for the
// task and expense containers, so it must be unique among an owner's events.
type Event struct {
	ID           string   `bson:"_id" json:"id"`
	Title        string   `bson:"title" json:"title"`
	Date         string   `bson:"date" json:"date"`
	Time         string   `bson:"time" json:"time"`
	Venue        string   `bson:"venue" json:"venue"`
	GuestCount   int      `bson:"guestCount" json:"guestCount"`
	Guests       []Guest  `bson:"guests" json:"guests"`
	CreatedBy    string   `bson:"createdBy" json:"createdBy"`
	CreatedByUID string   `bson:"createdByUID" json:"createdByUID"`
	SharedWith   []string `bson:"sharedWith" json:"sharedWith"`
	SharedGroups []string `bson:"sharedGroups" json:"sharedGroups"`

	// Cached task totals mirrored from the task container for list views.
	CompletedTasks int `bson:"completedTasks" json:"completedTasks"`
	TotalTasks     int `bson:"totalTasks" json:"totalTasks"`
}

// SharedWithUser reports whether uid already has individual access.
func (e *Event) SharedWithUser(uid string) bool {
	for _, id := range e.SharedWith {
		if id == uid {
			return true
		}
	}
	return false
}

// Validate checks the fields required before an event may be persisted.
func (e *Event) Validate() error {
	if e.Title == "" {
		return invalid("title", "empty")
	}
	if e.GuestCount < 0 {
		return invalid("guestCount", "negative")
	}
	return nil
}
