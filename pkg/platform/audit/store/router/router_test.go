package router

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "badgepass/pkg/platform/audit"
	"badgepass/pkg/platform/audit/store/memory"
)

type failingSink struct{ calls int }

func (f *failingSink) Append(context.Context, audit.Event) error {
	f.calls++
	return errors.New("broker unavailable")
}

func TestRouterSendsEverythingLocally(t *testing.T) {
	ctx := context.Background()
	local := memory.NewInMemoryStore()
	compliance := memory.NewInMemoryStore()
	r := New(local, nil)
	r.Register(audit.CategoryCompliance, compliance)

	require.NoError(t, r.Append(ctx, audit.Event{Action: string(audit.EventBadgeIssued), BadgeID: "b-1"}))
	require.NoError(t, r.Append(ctx, audit.Event{Action: string(audit.EventCheckInRecorded), BadgeID: "b-1"}))

	all, err := local.ListByBadge(ctx, "b-1")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	routed, err := compliance.ListByBadge(ctx, "b-1")
	require.NoError(t, err)
	require.Len(t, routed, 1)
	assert.Equal(t, audit.CategoryCompliance, routed[0].Category)
}

func TestRouterRemoteFailureKeepsLocalWrite(t *testing.T) {
	ctx := context.Background()
	local := memory.NewInMemoryStore()
	remote := &failingSink{}
	r := New(local, nil)
	r.Register(audit.CategorySecurity, remote)

	err := r.Append(ctx, audit.Event{Action: string(audit.EventScanRejected), BadgeID: "b-2", Reason: "badge_revoked"})
	require.Error(t, err)
	assert.Equal(t, 1, remote.calls)

	events, err := local.ListByBadge(ctx, "b-2")
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestRouterSkipLocalStillStreams(t *testing.T) {
	ctx := context.Background()
	local := memory.NewInMemoryStore()
	stream := memory.NewInMemoryStore()
	r := New(local, nil)
	r.Register(audit.CategoryOperations, stream)
	r.SkipLocal(audit.EventCheckInRecorded)

	require.NoError(t, r.Append(ctx, audit.Event{Action: string(audit.EventCheckInRecorded), BadgeID: "b-3"}))
	require.NoError(t, r.Append(ctx, audit.Event{Action: string(audit.EventCheckInDuplicate), BadgeID: "b-3"}))

	kept, err := local.ListByBadge(ctx, "b-3")
	require.NoError(t, err)
	require.Len(t, kept, 1)
	assert.Equal(t, string(audit.EventCheckInDuplicate), kept[0].Action)

	streamed, err := stream.ListByBadge(ctx, "b-3")
	require.NoError(t, err)
	assert.Len(t, streamed, 2)
}
