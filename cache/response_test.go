package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) Now() time.Time          { return f.t }
func (f *fakeClock) Advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestResponses(t *testing.T, size int) (*Responses, *fakeClock) {
	t.Helper()
	r, err := NewResponses(size, time.Minute)
	require.NoError(t, err)
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	r.now = clock.Now
	return r, clock
}

func TestResponsesHitWithinTTL(t *testing.T) {
	r, clock := newTestResponses(t, 8)

	stored := r.Add("k", Response{StatusCode: 200, Body: []byte(`{"href":"u"}`)})
	require.True(t, stored)

	clock.Advance(59 * time.Second)
	got, ok := r.Get("k")
	require.True(t, ok)
	assert.Equal(t, 200, got.StatusCode)
	assert.JSONEq(t, `{"href":"u"}`, string(got.Body))
}

func TestResponsesExpire(t *testing.T) {
	r, clock := newTestResponses(t, 8)
	r.Add("k", Response{StatusCode: 200})

	clock.Advance(time.Minute)
	_, ok := r.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len(), "expired entry should be evicted on lookup")
}

func TestResponsesSkipFailures(t *testing.T) {
	r, _ := newTestResponses(t, 8)

	for _, code := range []int{0, 301, 404, 500} {
		assert.False(t, r.Add("k", Response{StatusCode: code}), "status %d", code)
	}
	_, ok := r.Get("k")
	assert.False(t, ok)
}

func TestResponsesCapacity(t *testing.T) {
	r, _ := newTestResponses(t, 2)
	r.Add("a", Response{StatusCode: 200})
	r.Add("b", Response{StatusCode: 200})
	r.Add("c", Response{StatusCode: 200})

	_, ok := r.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 2, r.Len())
}

func TestNewResponsesRejectsZeroSize(t *testing.T) {
	_, err := NewResponses(0, time.Minute)
	assert.Error(t, err)
}
