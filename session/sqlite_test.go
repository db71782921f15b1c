package session

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedbot/schedbot/core"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_UnknownSessionIsEmpty(t *testing.T) {
	store := newTestSQLiteStore(t)

	sess, err := store.Get("missing")
	require.NoError(t, err)
	assert.Equal(t, "missing", sess.ID)
	assert.Equal(t, 0, sess.Len())
}

func TestSQLiteStore_AppendAndGetPreservesOrder(t *testing.T) {
	store := newTestSQLiteStore(t)

	require.NoError(t, store.AppendTurn("s1", core.NewUserTurn("first")))
	require.NoError(t, store.AppendTurn("s1", core.NewAssistantTurn("second")))
	require.NoError(t, store.AppendTurn("s1", core.NewUserTurn("third")))

	sess, err := store.Get("s1")
	require.NoError(t, err)
	turns := sess.Turns()
	require.Len(t, turns, 3)
	assert.Equal(t, "first", turns[0].Text())
	assert.Equal(t, "second", turns[1].Text())
	assert.Equal(t, "third", turns[2].Text())
	assert.Equal(t, core.RoleUser, turns[0].Role)
	assert.Equal(t, core.RoleAssistant, turns[1].Role)
}

func TestSQLiteStore_SessionsAreIsolated(t *testing.T) {
	store := newTestSQLiteStore(t)

	require.NoError(t, store.AppendTurn("a", core.NewUserTurn("for a")))
	require.NoError(t, store.AppendTurn("b", core.NewUserTurn("for b")))

	sessA, err := store.Get("a")
	require.NoError(t, err)
	sessB, err := store.Get("b")
	require.NoError(t, err)

	require.Equal(t, 1, sessA.Len())
	require.Equal(t, 1, sessB.Len())
	assert.Equal(t, "for a", sessA.Turns()[0].Text())
	assert.Equal(t, "for b", sessB.Turns()[0].Text())
}

func TestSQLiteStore_FunctionPartsSurviveRestart(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sessions.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	call := core.FunctionCall{ID: "c1", Name: "check_availability", Arguments: `{"day":"tomorrow"}`}
	require.NoError(t, store.AppendTurn("s1", core.NewFunctionCallTurn(call)))
	require.NoError(t, store.AppendTurn("s1", core.NewFunctionResponseTurn(core.FunctionResponse{
		ID:          "c1",
		Name:        "check_availability",
		Observation: "The entire day is free.",
	})))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	sess, err := reopened.Get("s1")
	require.NoError(t, err)
	turns := sess.Turns()
	require.Len(t, turns, 2)

	calls := turns[0].Content.FunctionCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, call, calls[0])

	rp, ok := turns[1].Content.Parts[0].(core.FunctionResponsePart)
	require.True(t, ok)
	assert.Equal(t, "The entire day is free.", rp.FunctionResponse.Observation)
}
