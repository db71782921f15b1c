package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedbot/schedbot/core"
)

func TestInMemoryStore_LazyCreate(t *testing.T) {
	s := NewInMemoryStore()
	defer s.Close()

	sess, err := s.Get("new-id")
	require.NoError(t, err)
	assert.Equal(t, "new-id", sess.ID)
	assert.Equal(t, 0, sess.Len())
}

func TestInMemoryStore_AppendAndGet(t *testing.T) {
	s := NewInMemoryStore()
	defer s.Close()

	require.NoError(t, s.AppendTurn("s1", core.NewUserTurn("hello")))
	require.NoError(t, s.AppendTurn("s1", core.NewAssistantTurn("hi there")))

	sess, err := s.Get("s1")
	require.NoError(t, err)
	turns := sess.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, core.RoleUser, turns[0].Role)
	assert.Equal(t, "hello", turns[0].Text())
	assert.Equal(t, core.RoleAssistant, turns[1].Role)
}

func TestInMemoryStore_GetReturnsClone(t *testing.T) {
	s := NewInMemoryStore()
	defer s.Close()

	require.NoError(t, s.AppendTurn("s1", core.NewUserTurn("hello")))

	sess, err := s.Get("s1")
	require.NoError(t, err)
	sess.AddTurn(core.NewAssistantTurn("mutation"))

	fresh, err := s.Get("s1")
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.Len())
}

func TestInMemoryStore_SessionsAreIsolated(t *testing.T) {
	s := NewInMemoryStore()
	defer s.Close()

	require.NoError(t, s.AppendTurn("a", core.NewUserTurn("for a")))
	require.NoError(t, s.AppendTurn("b", core.NewUserTurn("for b")))

	sessA, _ := s.Get("a")
	sessB, _ := s.Get("b")
	assert.Equal(t, "for a", sessA.Turns()[0].Text())
	assert.Equal(t, "for b", sessB.Turns()[0].Text())
	assert.Equal(t, 2, s.Len())
}

func TestInMemoryStore_TTLEviction(t *testing.T) {
	s := NewInMemoryStore(func(o *InMemoryOptions) {
		o.TTL = 10 * time.Millisecond
		o.SweepInterval = time.Hour // sweep manually below
	})
	defer s.Close()

	require.NoError(t, s.AppendTurn("old", core.NewUserTurn("hello")))

	s.evictExpired(time.Now().Add(time.Second))
	assert.Equal(t, 0, s.Len())

	// An evicted id comes back as a fresh session.
	sess, err := s.Get("old")
	require.NoError(t, err)
	assert.Equal(t, 0, sess.Len())
}

func TestInMemoryStore_TTLKeepsFreshSessions(t *testing.T) {
	s := NewInMemoryStore(func(o *InMemoryOptions) {
		o.TTL = time.Hour
		o.SweepInterval = time.Hour
	})
	defer s.Close()

	require.NoError(t, s.AppendTurn("fresh", core.NewUserTurn("hello")))

	s.evictExpired(time.Now())
	assert.Equal(t, 1, s.Len())
}

func TestInMemoryStore_ConcurrentAppends(t *testing.T) {
	s := NewInMemoryStore()
	defer s.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = s.AppendTurn("shared", core.NewUserTurn(fmt.Sprintf("msg %d", n)))
		}(i)
	}
	wg.Wait()

	sess, err := s.Get("shared")
	require.NoError(t, err)
	assert.Equal(t, 20, sess.Len())
}

func TestInMemoryStore_CloseIsIdempotent(t *testing.T) {
	s := NewInMemoryStore(func(o *InMemoryOptions) { o.TTL = time.Minute })
	assert.NoError(t, s.Close())
	assert.NoError(t, s.Close())
}
