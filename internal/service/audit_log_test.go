package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itops/helpdesk-service/internal/domain"
)

func TestAuditLogAppendAndList(t *testing.T) {
	repo := newFakeActivityRepo()
	log := NewAuditLog(repo)
	ctx := context.Background()
	tx := &fakeTx{}

	first, err := log.AppendTx(ctx, tx, "ticket-1", domain.ActivityCreated, map[string]any{"subject": "x"}, "user-1")
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	_, err = log.AppendTx(ctx, tx, "ticket-1", domain.ActivityStatusChanged, map[string]any{
		"from": domain.TicketStatusOpen,
		"to":   domain.TicketStatusInProgress,
	}, "staff-1")
	require.NoError(t, err)

	_, err = log.AppendTx(ctx, tx, "ticket-2", domain.ActivityCreated, nil, "user-2")
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	entries, err := log.List(ctx, "ticket-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.ActivityCreated, entries[0].Kind)
	assert.Equal(t, domain.ActivityStatusChanged, entries[1].Kind)
	assert.Equal(t, "staff-1", entries[1].ActorID)
}

func TestAuditLogEntriesVanishOnRollback(t *testing.T) {
	repo := newFakeActivityRepo()
	log := NewAuditLog(repo)
	ctx := context.Background()

	tx := &fakeTx{}
	entry, err := log.AppendTx(ctx, tx, "ticket-1", domain.ActivityMerged, map[string]any{"merged_into": "ticket-2"}, "staff-1")
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	require.NoError(t, tx.Rollback(ctx))

	entries, err := log.List(ctx, "ticket-1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}
