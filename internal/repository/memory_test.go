package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoyn-app/profile-qr/internal/domain"
)

func TestMemoryProfiles_InactiveIsNotFound(t *testing.T) {
	t.Parallel()

	store := NewMemoryProfiles(
		domain.Profile{ID: "p-1", OwnerID: "o-1", Active: true},
		domain.Profile{ID: "p-2", OwnerID: "o-1", Active: false},
	)
	ctx := context.Background()

	ok, err := store.Exists(ctx, "p-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Exists(ctx, "p-2")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.Get(ctx, "p-2")
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
}

func TestMemoryProfiles_CreateStampsTimes(t *testing.T) {
	t.Parallel()

	store := NewMemoryProfiles()
	p := &domain.Profile{ID: "p-1", OwnerID: "o-1", DisplayName: "Ada", Active: true}
	require.NoError(t, store.Create(context.Background(), p))
	assert.False(t, p.CreatedAt.IsZero())

	got, err := store.Get(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.DisplayName)
}

func TestMemoryScanEvents_ListByProfile(t *testing.T) {
	t.Parallel()

	store := NewMemoryScanEvents()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, e := range []domain.ScanEvent{
		{ID: "a", ProfileID: "p-1", ScannedAt: base.Add(-48 * time.Hour)},
		{ID: "b", ProfileID: "p-1", ScannedAt: base.Add(-time.Hour)},
		{ID: "c", ProfileID: "p-2", ScannedAt: base},
		{ID: "d", ProfileID: "p-1", ScannedAt: base},
	} {
		require.NoError(t, store.Create(ctx, &e), "event %d", i)
	}

	got, err := store.ListByProfile(ctx, "p-1", base.Add(-24*time.Hour), 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "d", got[0].ID)
	assert.Equal(t, "b", got[1].ID)

	got, err = store.ListByProfile(ctx, "p-1", time.Time{}, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "d", got[0].ID)
}
