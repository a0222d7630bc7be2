package gormstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chromalyzer/internal/session"
	"chromalyzer/internal/trace"
)

func openCatalog(t *testing.T) *GormCatalog {
	t.Helper()
	c, err := New(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func storedSession(t *testing.T, name string) *session.Session {
	t.Helper()
	uv, err := trace.New("UV", "mAU", []trace.Sample{{X: 0, Y: 0}, {X: 5, Y: 100}, {X: 10, Y: 0}})
	require.NoError(t, err)
	s, err := session.New(name, name+".asc", []*trace.Trace{uv}, nil)
	require.NoError(t, err)
	return s
}

func TestSaveGetRoundTrip(t *testing.T) {
	c := openCatalog(t)
	ctx := context.Background()
	s := storedSession(t, "run 3")

	require.NoError(t, c.Save(ctx, s))

	got, err := c.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, "run 3", got.Name)
	require.Len(t, got.Traces, 1)
	assert.Equal(t, s.Traces[0].Samples, got.Traces[0].Samples)
}

func TestSaveUpsertsByID(t *testing.T) {
	c := openCatalog(t)
	ctx := context.Background()
	s := storedSession(t, "before")
	require.NoError(t, c.Save(ctx, s))

	renamed := s.WithUpdate(func(n *session.Session) { n.Name = "after" })
	require.NoError(t, c.Save(ctx, renamed))

	list, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "after", list[0].Name)
	assert.Equal(t, 1, list[0].TraceCount)
}

func TestListOrdersByUpdatedAt(t *testing.T) {
	c := openCatalog(t)
	ctx := context.Background()

	older := storedSession(t, "older")
	require.NoError(t, c.Save(ctx, older))
	newer := storedSession(t, "newer")
	newer.UpdatedAt = older.UpdatedAt.Add(time.Minute)
	require.NoError(t, c.Save(ctx, newer))

	list, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "newer", list[0].Name)
}

func TestGetAndDeleteMissing(t *testing.T) {
	c := openCatalog(t)
	ctx := context.Background()

	_, err := c.Get(ctx, "no-such-id")
	assert.ErrorIs(t, err, session.ErrNotFound)
	assert.ErrorIs(t, c.Delete(ctx, "no-such-id"), session.ErrNotFound)

	s := storedSession(t, "gone soon")
	require.NoError(t, c.Save(ctx, s))
	require.NoError(t, c.Delete(ctx, s.ID))
	_, err = c.Get(ctx, s.ID)
	assert.ErrorIs(t, err, session.ErrNotFound)
}
