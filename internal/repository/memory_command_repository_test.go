package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"terminal-bridge/internal/model"
)

func newRecord(method string, startedAt time.Time) *model.CommandRecord {
	return &model.CommandRecord{
		ID:        uuid.New(),
		Method:    method,
		Source:    model.CommandSourceChannel,
		Status:    model.CommandStatusPending,
		StartedAt: startedAt,
	}
}

func TestMemoryCommandRepository_CreateUpdateGet(t *testing.T) {
	repo := NewMemoryCommandRepository(10, zap.NewNop())
	ctx := context.Background()

	record := newRecord("connectionStatus", time.Now())
	require.NoError(t, repo.Create(ctx, record))
	assert.Error(t, repo.Create(ctx, record), "duplicate ids are rejected")

	record.Complete(model.CommandStatusFailed, "stripeTerminal#deviceNotConnected", "not connected")
	require.NoError(t, repo.Update(ctx, record))

	stored, err := repo.GetByID(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CommandStatusFailed, stored.Status)
	require.NotNil(t, stored.ErrorCode)
	assert.Equal(t, "stripeTerminal#deviceNotConnected", *stored.ErrorCode)
	assert.NotNil(t, stored.DurationMs)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.True(t, errors.Is(err, ErrCommandNotFound))
	assert.True(t, errors.Is(repo.Update(ctx, newRecord("x", time.Now())), ErrCommandNotFound))
}

func TestMemoryCommandRepository_ListNewestFirstWithFilter(t *testing.T) {
	repo := NewMemoryCommandRepository(10, zap.NewNop())
	ctx := context.Background()
	base := time.Now()

	for i, method := range []string{"init", "discoverReaders#start", "init", "connectBluetoothReader"} {
		require.NoError(t, repo.Create(ctx, newRecord(method, base.Add(time.Duration(i)*time.Second))))
	}

	all, err := repo.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "connectBluetoothReader", all[0].Method)
	assert.Equal(t, "init", all[3].Method)

	method := "init"
	inits, err := repo.List(ctx, &CommandFilter{Method: &method})
	require.NoError(t, err)
	assert.Len(t, inits, 2)

	limited, err := repo.List(ctx, &CommandFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestMemoryCommandRepository_EvictsOldest(t *testing.T) {
	repo := NewMemoryCommandRepository(2, zap.NewNop())
	ctx := context.Background()

	first := newRecord("a", time.Now())
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, newRecord("b", time.Now())))
	require.NoError(t, repo.Create(ctx, newRecord("c", time.Now())))

	records, err := repo.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	_, err = repo.GetByID(ctx, first.ID)
	assert.ErrorIs(t, err, ErrCommandNotFound)
}

func TestMemoryCommandRepository_DeleteOlderThan(t *testing.T) {
	repo := NewMemoryCommandRepository(10, zap.NewNop())
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.Create(ctx, newRecord("old", now.Add(-48*time.Hour))))
	require.NoError(t, repo.Create(ctx, newRecord("new", now)))

	deleted, err := repo.DeleteOlderThan(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	records, err := repo.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "new", records[0].Method)
}

func TestCommandFilter_EffectiveLimit(t *testing.T) {
	var nilFilter *CommandFilter
	assert.Equal(t, defaultListLimit, nilFilter.EffectiveLimit())
	assert.Equal(t, defaultListLimit, (&CommandFilter{}).EffectiveLimit())
	assert.Equal(t, maxListLimit, (&CommandFilter{Limit: 10000}).EffectiveLimit())
	assert.Equal(t, 7, (&CommandFilter{Limit: 7}).EffectiveLimit())
}
