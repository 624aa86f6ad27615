package activity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// ActivityPort reads a user's activity feed.
type ActivityPort interface {
	Recent(ctx context.Context, userID string) ([]Entry, error)
}

// ActivityAdapter calls the activity module through its service container.
type ActivityAdapter struct {
	container mono.ServiceContainer
}

var _ ActivityPort = (*ActivityAdapter)(nil)

// NewActivityAdapter creates an adapter over the activity container.
func NewActivityAdapter(container mono.ServiceContainer) *ActivityAdapter {
	return &ActivityAdapter{container: container}
}

// Recent returns the user's entries, oldest first.
func (a *ActivityAdapter) Recent(ctx context.Context, userID string) ([]Entry, error) {
	req := RecentRequest{UserID: userID}
	var resp RecentResponse
	if err := helper.CallRequestReplyService(
		ctx, a.container, ServiceRecent, json.Marshal, json.Unmarshal, &req, &resp,
	); err != nil {
		return nil, fmt.Errorf("%s call failed: %w", ServiceRecent, err)
	}
	if resp.Entries == nil {
		resp.Entries = []Entry{}
	}
	return resp.Entries, nil
}
