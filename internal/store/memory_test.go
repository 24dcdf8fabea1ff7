package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorpass/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openEmpty(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snap.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"users":[],"templates":[],"memberships":[]}`), 0o644))
	s, err := Open(path, 0, testLogger())
	require.NoError(t, err)
	return s
}

func TestOpen_SeedsWhenSnapshotMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.json")

	s, err := Open(path, 0, testLogger())
	require.NoError(t, err)

	users, err := s.Users().List(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 2)

	templates, err := s.Templates().List(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, templates, 3)

	memberships, err := s.Memberships().List(context.Background())
	require.NoError(t, err)
	assert.Len(t, memberships, 2)

	// The seed is flushed so a restart reads it back instead of re-seeding.
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestOpen_SeedsWhenSnapshotCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s, err := Open(path, 0, testLogger())
	require.NoError(t, err)

	users, err := s.Users().List(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestOpen_LoadsExistingSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.json")

	first, err := Open(path, 0, testLogger())
	require.NoError(t, err)
	require.NoError(t, first.Users().Create(context.Background(), &types.User{
		ID: "u-extra", Name: "Extra", Email: "extra@example.com", Segment: types.SegmentB2C,
	}))

	second, err := Open(path, 0, testLogger())
	require.NoError(t, err)
	users, err := second.Users().List(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 3)
}

func TestUserRepo_CRUD(t *testing.T) {
	s := openEmpty(t)
	ctx := context.Background()

	u := &types.User{ID: "u-1", Name: "John", Email: "john@example.com", Segment: types.SegmentB2C}
	require.NoError(t, s.Users().Create(ctx, u))

	got, err := s.Users().GetByID(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "John", got.Name)

	// Returned records are clones; mutating them must not leak into the store.
	got.Name = "Mutated"
	again, err := s.Users().GetByID(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "John", again.Name)

	u.Name = "Johnny"
	require.NoError(t, s.Users().Update(ctx, u))
	updated, err := s.Users().GetByID(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "Johnny", updated.Name)

	require.NoError(t, s.Users().Delete(ctx, "u-1"))
	_, err = s.Users().GetByID(ctx, "u-1")
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeNotFoundUser, appErr.Code)
}

func TestUserRepo_UpdateUnknownIsNotFound(t *testing.T) {
	s := openEmpty(t)
	err := s.Users().Update(context.Background(), &types.User{ID: "ghost"})
	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeNotFoundUser, appErr.Code)
}

func TestList_PreservesInsertionOrder(t *testing.T) {
	s := openEmpty(t)
	ctx := context.Background()

	ids := []string{"m-c", "m-a", "m-b"}
	for _, id := range ids {
		require.NoError(t, s.Memberships().Create(ctx, &types.Membership{
			ID: id, UserID: "u-1", Name: "Plan", Segment: types.SegmentB2C,
			CreatedAt: time.Now().UTC(), ExpiresAt: time.Now().UTC().AddDate(0, 0, 30),
			Status: types.MembershipStatusActive,
		}))
	}

	listed, err := s.Memberships().List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	for i, id := range ids {
		assert.Equal(t, id, listed[i].ID)
	}

	// Deletion keeps the relative order of the remaining records.
	require.NoError(t, s.Memberships().Delete(ctx, "m-a"))
	listed, err = s.Memberships().List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, "m-c", listed[0].ID)
	assert.Equal(t, "m-b", listed[1].ID)
}

func TestTemplateRepo_ListFiltersBySegment(t *testing.T) {
	s := openEmpty(t)
	ctx := context.Background()

	require.NoError(t, s.Templates().Create(ctx, &types.Template{
		ID: "tpl-b2c", Name: "Basic", Segment: types.SegmentB2C, DurationDays: 30, Active: true,
	}))
	require.NoError(t, s.Templates().Create(ctx, &types.Template{
		ID: "tpl-b2b", Name: "Team", Segment: types.SegmentB2B, DurationDays: 90, Active: true,
	}))

	b2b := types.SegmentB2B
	filtered, err := s.Templates().List(ctx, &b2b)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "tpl-b2b", filtered[0].ID)

	all, err := s.Templates().List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMembershipRepo_ListByUser(t *testing.T) {
	s := openEmpty(t)
	ctx := context.Background()

	for _, m := range []*types.Membership{
		{ID: "m-1", UserID: "u-1", Status: types.MembershipStatusActive},
		{ID: "m-2", UserID: "u-2", Status: types.MembershipStatusActive},
		{ID: "m-3", UserID: "u-1", Status: types.MembershipStatusExpired},
	} {
		require.NoError(t, s.Memberships().Create(ctx, m))
	}

	mine, err := s.Memberships().ListByUser(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "m-1", mine[0].ID)
	assert.Equal(t, "m-3", mine[1].ID)
}

func TestStore_MutationsPersistAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"users":[],"templates":[],"memberships":[]}`), 0o644))

	s, err := Open(path, 0, testLogger())
	require.NoError(t, err)

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limit := 10
	require.NoError(t, s.Memberships().Create(context.Background(), &types.Membership{
		ID: "m-1", UserID: "u-1", Name: "Basic", Segment: types.SegmentB2C,
		CreatedAt: created, ExpiresAt: created.AddDate(0, 0, 30),
		Status: types.MembershipStatusActive,
		Limits: types.FeatureLimits{Conversation: &limit},
		Usage:  types.FeatureUsage{Conversation: 4},
	}))

	reopened, err := Open(path, 0, testLogger())
	require.NoError(t, err)
	got, err := reopened.Memberships().GetByID(context.Background(), "m-1")
	require.NoError(t, err)
	assert.Equal(t, 4, got.Usage.Conversation)
	assert.True(t, got.CreatedAt.Equal(created))
	require.NotNil(t, got.Limits.Conversation)
	assert.Equal(t, 10, *got.Limits.Conversation)
	assert.Nil(t, got.Limits.Analysis)
}

func TestStore_HealthProbe(t *testing.T) {
	s := openEmpty(t)
	assert.Equal(t, "store", s.Name())
	assert.NoError(t, s.Check(context.Background()))
}
