package store

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/launchpop/internal/counter"
)

func TestStore_GetMissing(t *testing.T) {
	s := createTestStore(t)

	v, ok, err := s.Get(context.Background(), LocalScope, "launchpop_last_shown_x")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestStore_SetOverwrites(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, LocalScope, "k", "1", testNow))
	require.NoError(t, s.Set(ctx, LocalScope, "k", "2", testNow))

	v, ok, err := s.Get(ctx, LocalScope, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2", v)
}

func TestStore_ScopesAreIsolated(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, SessionScope("a"), "k", "1", testNow))

	_, ok, err := s.Get(ctx, SessionScope("b"), "k")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = s.Get(ctx, LocalScope, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Increment(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	n, err := s.Increment(ctx, LocalScope, "count", testNow)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.Increment(ctx, LocalScope, "count", testNow)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, s.Set(ctx, LocalScope, "junk", "abc", testNow))
	n, err = s.Increment(ctx, LocalScope, "junk", testNow)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, s.Set(ctx, LocalScope, "frac", "4.0", testNow))
	n, err = s.Increment(ctx, LocalScope, "frac", testNow)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}

func TestStore_RowsStampedWithCallerTime(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, LocalScope, "a", "1", testNow))
	_, err := s.Increment(ctx, LocalScope, "b", testNow.Add(time.Minute))
	require.NoError(t, err)

	rows, err := s.List(ctx, LocalScope)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].UpdatedAt.Equal(testNow))
	assert.True(t, rows[1].UpdatedAt.Equal(testNow.Add(time.Minute)))
}

func TestBucket_UsesItsClock(t *testing.T) {
	s := createTestStore(t)
	mock := clock.NewMock()
	mock.Set(testNow)

	b := s.Bucket(SessionScope("s"), mock)
	var inc counter.Incrementer = b

	n, err := inc.Increment(counter.SessionCountKey("promo"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	mock.Add(time.Hour)
	require.NoError(t, b.Set(counter.LastShownKey("promo"), "1"))

	rows, err := s.List(context.Background(), SessionScope("s"))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].UpdatedAt.Equal(testNow.Add(time.Hour)), rows[0].Key)
	assert.True(t, rows[1].UpdatedAt.Equal(testNow), rows[1].Key)
}

func TestStore_Delete(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, LocalScope, "k", "v", testNow))
	require.NoError(t, s.Delete(ctx, LocalScope, "k"))
	require.NoError(t, s.Delete(ctx, LocalScope, "k"))

	_, ok, err := s.Get(ctx, LocalScope, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_ListOrdering(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, SessionScope("s1"), "b", "1", testNow))
	require.NoError(t, s.Set(ctx, LocalScope, "z", "1", testNow))
	require.NoError(t, s.Set(ctx, LocalScope, "a", "1", testNow))

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, LocalScope, all[0].Scope)
	assert.Equal(t, "a", all[0].Key)
	assert.Equal(t, "z", all[1].Key)
	assert.Equal(t, "session:s1", all[2].Scope)

	local, err := s.List(ctx, LocalScope)
	require.NoError(t, err)
	assert.Len(t, local, 2)
}

func TestStore_Reset(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, LocalScope, "launchpop_last_shown_a", "1", testNow))
	require.NoError(t, s.Set(ctx, LocalScope, "other", "1", testNow))
	require.NoError(t, s.Set(ctx, SessionScope("x"), "launchpop_session_count_a", "1", testNow))

	n, err := s.Reset(ctx, LocalScope, counter.Prefix)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.Reset(ctx, "", "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSessionScope(t *testing.T) {
	assert.Equal(t, "session:abc", SessionScope("abc"))
	assert.True(t, IsSessionScope(SessionScope("abc")))
	assert.False(t, IsSessionScope(LocalScope))
}

func TestBucket_SatisfiesCounterStore(t *testing.T) {
	s := createTestStore(t)

	var b counter.Store = s.Bucket(SessionScope("s"), nil)
	require.NoError(t, b.Set(counter.SessionCountKey("promo"), "3"))

	v, ok, err := b.Get(counter.SessionCountKey("promo"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(3), counter.ParseInt(v, ok, 0))

	_, ok, err = s.Bucket(LocalScope, nil).Get(counter.SessionCountKey("promo"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Sessions(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	gen := &fixedIDs{ids: []string{"old", "new"}}

	base := time.UnixMilli(1_700_000_000_000)
	old, err := s.StartSession(ctx, gen, base)
	require.NoError(t, err)
	assert.Equal(t, "old", old.ID)

	_, err = s.StartSession(ctx, gen, base.Add(48*time.Hour))
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, SessionScope("old"), "k", "1", testNow))
	require.NoError(t, s.Set(ctx, SessionScope("new"), "k", "1", testNow))
	require.NoError(t, s.Set(ctx, LocalScope, "k", "1", testNow))

	sessions, err := s.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "old", sessions[0].ID)

	n, err := s.PruneSessions(ctx, base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	all, err := s.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, c := range all {
		assert.NotEqual(t, SessionScope("old"), c.Scope)
	}
}

func TestUUIDv7Generator(t *testing.T) {
	a := UUIDv7Generator{}.Generate()
	b := UUIDv7Generator{}.Generate()
	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}

func TestStartSession_DefaultGenerator(t *testing.T) {
	s := createTestStore(t)

	sess, err := s.StartSession(context.Background(), nil, time.Now())
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
}
