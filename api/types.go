package api

import (
	"context"

	"agenda-api/agenda"
)

// Planners hands out the per-user planner owning that user's task
// collection and settings.
type Planners interface {
	Planner(ctx context.Context, userID string) *agenda.Planner
}

// Authenticator is implemented by types able to extract user IDs from
// Authorization headers. Authentication itself lives outside this service's
// core; handlers only consume the resolved user id.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}
