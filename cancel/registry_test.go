package cancel

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate_SupersedesPriorToken(t *testing.T) {
	reg := NewRegistry()
	old := reg.Create("op-1")
	assert.False(t, old.Cancelled())

	fresh := reg.Create("op-1")

	assert.True(t, old.Cancelled())
	assert.Equal(t, ReasonSuperseded, old.Reason())
	assert.False(t, fresh.Cancelled())
	assert.Equal(t, 1, reg.Active())

	select {
	case <-old.Done():
	default:
		t.Fatal("superseded token's Done channel should be closed")
	}
}

func TestCancel_Idempotent(t *testing.T) {
	reg := NewRegistry()
	tok := reg.Create("op-1")

	assert.True(t, reg.Cancel("op-1", "user abort"))
	assert.True(t, tok.Cancelled())
	assert.Equal(t, "user abort", tok.Reason())

	// Second cancel is a no-op on an already-removed token.
	assert.False(t, reg.Cancel("op-1", "again"))
	assert.Equal(t, "user abort", tok.Reason())
}

func TestCancel_UnknownOp(t *testing.T) {
	reg := NewRegistry()
	assert.False(t, reg.Cancel("nope", ""))
	assert.False(t, reg.IsCancelled("nope"))
}

func TestCheck_ReturnsCancelledError(t *testing.T) {
	reg := NewRegistry()
	tok := reg.Create("op-1")
	require.NoError(t, tok.Check())
	require.NoError(t, reg.Check("op-1"))

	tok.cancel("deadline")

	err := tok.Check()
	require.Error(t, err)
	var ce *CancelledError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "op-1", ce.OpID)
	assert.Equal(t, "deadline", ce.Reason)
}

func TestRelease_OnlyRemovesOwnToken(t *testing.T) {
	reg := NewRegistry()
	old := reg.Create("op-1")
	fresh := reg.Create("op-1")

	// Releasing the superseded token must not evict its successor.
	reg.Release(old)
	assert.Equal(t, 1, reg.Active())
	assert.False(t, fresh.Cancelled())

	reg.Release(fresh)
	assert.Equal(t, 0, reg.Active())
}

func TestAbortAll(t *testing.T) {
	reg := NewRegistry()
	a := reg.Create("a")
	b := reg.Create("b")

	reg.AbortAll("shutdown")

	assert.True(t, a.Cancelled())
	assert.True(t, b.Cancelled())
	assert.Equal(t, "shutdown", a.Reason())
	assert.Equal(t, 0, reg.Active())
}

func TestRegistry_ConcurrentCreateCancel(t *testing.T) {
	reg := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			reg.Create("shared")
		}()
		go func() {
			defer wg.Done()
			reg.Cancel("shared", "race")
		}()
	}
	wg.Wait()

	// At most one token may remain active.
	assert.LessOrEqual(t, reg.Active(), 1)
}
