package history

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAppendAndMessages(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "s1", "u1", "best code editor", json.RawMessage(`{"mode":"tools","intro":"x"}`)))
	require.NoError(t, s.Append(ctx, "s1", "u1", "thanks", json.RawMessage(`{"mode":"chat","reply":"welcome"}`)))

	msgs, err := s.Messages(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 4)

	assert.Equal(t, "user", msgs[0].Role)
	assert.JSONEq(t, `"best code editor"`, string(msgs[0].Content))
	assert.Equal(t, "assistant", msgs[1].Role)
	assert.JSONEq(t, `{"mode":"tools","intro":"x"}`, string(msgs[1].Content))
	assert.JSONEq(t, `"thanks"`, string(msgs[2].Content))
	assert.False(t, msgs[0].Timestamp.IsZero())
}

func TestMessagesUnknownSession(t *testing.T) {
	msgs, err := newTestStore(t).Messages(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestListSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "s1", "u1", "first question", json.RawMessage(`"a"`)))
	require.NoError(t, s.Append(ctx, "s2", "u1", "second question", json.RawMessage(`"b"`)))
	require.NoError(t, s.Append(ctx, "s3", "u2", "other user", json.RawMessage(`"c"`)))
	require.NoError(t, s.Append(ctx, "s1", "u1", "follow-up", json.RawMessage(`"d"`)))

	sessions, err := s.ListSessions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "s1", sessions[0].ID, "most recently updated first")
	assert.Equal(t, "first question", sessions[0].Title, "title set on first message only")
	assert.Equal(t, "s2", sessions[1].ID)

	none, err := s.ListSessions(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDefaultTitleTruncates(t *testing.T) {
	long := strings.Repeat("é", 70)
	assert.Equal(t, strings.Repeat("é", 60)+"...", defaultTitle(long))
	assert.Equal(t, "short", defaultTitle("short"))
}

func TestRename(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Append(ctx, "s1", "u1", "q", json.RawMessage(`"a"`)))

	require.NoError(t, s.Rename(ctx, "s1", "Editors"))
	sessions, err := s.ListSessions(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Editors", sessions[0].Title)

	assert.ErrorIs(t, s.Rename(ctx, "missing", "x"), ErrNotFound)
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Append(ctx, "s1", "u1", "q", json.RawMessage(`"a"`)))
	require.NoError(t, s.Append(ctx, "s2", "u1", "q", json.RawMessage(`"b"`)))

	require.NoError(t, s.Delete(ctx, "s1"))

	msgs, err := s.Messages(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, msgs)

	sessions, err := s.ListSessions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "s2", sessions[0].ID)

	assert.ErrorIs(t, s.Delete(ctx, "s1"), ErrNotFound)
}

func TestClearUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Append(ctx, "s1", "u1", "q", json.RawMessage(`"a"`)))
	require.NoError(t, s.Append(ctx, "s2", "u1", "q", json.RawMessage(`"b"`)))
	require.NoError(t, s.Append(ctx, "s3", "u2", "q", json.RawMessage(`"c"`)))

	n, err := s.ClearUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	sessions, err := s.ListSessions(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, sessions)

	msgs, err := s.Messages(ctx, "s3")
	require.NoError(t, err)
	assert.Len(t, msgs, 2, "other users untouched")
}

func TestMigrationIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s1, err := New(path)
	require.NoError(t, err)
	require.NoError(t, s1.Append(context.Background(), "s1", "u1", "q", json.RawMessage(`"a"`)))
	require.NoError(t, s1.Close())

	s2, err := New(path)
	require.NoError(t, err)
	defer s2.Close()

	msgs, err := s2.Messages(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestNewSessionID(t *testing.T) {
	a, b := NewSessionID(), NewSessionID()
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 36)
}
