// Package sharing turns share-by-email requests into per-user grants on the
// sync engine.
package sharing

import (
	"context"

	log "github.com/sirupsen/logrus"

	"plansync/domain"
)

// Users resolves email addresses to directory users.
type Users interface {
	UserByEmail(ctx context.Context, email string) (*domain.User, error)
}

// Grants applies a per-user share to an event.
type Grants interface {
	ShareWithUser(ctx context.Context, eventID, uid string) error
}

// Coordinator mediates between the user directory and the sync engine.
// Failures along the way are swallowed after logging: from the inviter's
// side a share that cannot be applied looks the same as one that was.
type Coordinator struct {
	users  Users
	grants Grants
	logger *log.Logger
}

func New(users Users, grants Grants, logger *log.Logger) *Coordinator {
	return &Coordinator{users: users, grants: grants, logger: logger}
}

// ShareByEmail resolves the address and grants access to the resolved user.
func (c *Coordinator) ShareByEmail(ctx context.Context, eventID, email string) {
	if email == "" {
		return
	}
	user, err := c.users.UserByEmail(ctx, email)
	if err != nil {
		c.logger.WithError(err).WithField("event", eventID).Warn("share recipient lookup failed")
		return
	}
	if user == nil {
		c.logger.WithField("event", eventID).Info("share recipient not registered, skipping")
		return
	}
	if err := c.grants.ShareWithUser(ctx, eventID, user.ID); err != nil {
		c.logger.WithError(err).WithFields(log.Fields{"event": eventID, "uid": user.ID}).Warn("share grant failed")
	}
}
