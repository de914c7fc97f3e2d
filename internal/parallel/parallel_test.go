package parallel

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFor(t *testing.T) {
	for _, workers := range []int{0, 1, 3, 64} {
		var counter int64
		seen := make([]int32, 1000)
		For(len(seen), func(i int) {
			atomic.AddInt64(&counter, 1)
			atomic.AddInt32(&seen[i], 1)
		}, Config{Workers: workers})

		assert.Equal(t, int64(len(seen)), counter)
		for i, s := range seen {
			require.Equal(t, int32(1), s, "index %d with %d workers", i, workers)
		}
	}
}

func TestFor_Empty(t *testing.T) {
	For(0, func(int) { t.Fatal("unexpected call") }, DefaultConfig())
}

func TestMap(t *testing.T) {
	out, err := Map(5, func(i int) (int, error) { return i * i, nil }, Config{Workers: 2})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 4, 9, 16}, out)
}

func TestMap_FirstErrorByIndex(t *testing.T) {
	var calls int64
	errOdd := errors.New("odd")
	out, err := Map(6, func(i int) (string, error) {
		atomic.AddInt64(&calls, 1)
		if i%2 == 1 {
			return "", errors.Wrapf(errOdd, "job %d", i)
		}
		return "ok", nil
	}, Config{Workers: 4})

	assert.EqualError(t, err, "job 1: odd")
	assert.True(t, errors.Is(err, errOdd))
	assert.Equal(t, int64(6), calls)
	assert.Equal(t, "ok", out[4])
}

func TestFor_BoundsConcurrency(t *testing.T) {
	var running, peak int64
	For(50, func(int) {
		cur := atomic.AddInt64(&running, 1)
		for {
			old := atomic.LoadInt64(&peak)
			if cur <= old || atomic.CompareAndSwapInt64(&peak, old, cur) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		atomic.AddInt64(&running, -1)
	}, Config{Workers: 3})
	assert.LessOrEqual(t, peak, int64(3))
	assert.Positive(t, peak)
}
