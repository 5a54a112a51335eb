package retrocell

import (
	"context"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// intSlice is a small Cloner[T] implementation used across tests to
// exercise the WriteCOW path without pulling in a real domain type.
type intSlice []int64

func (s intSlice) Clone() intSlice {
	return append(intSlice(nil), s...)
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNewInitialValue(t *testing.T) {
	w, r := New(intSlice{1, 2, 3})
	defer w.Close()

	ref, blocked := r.TryRead()
	require.Nil(t, blocked)
	defer ref.Close()
	assert.Equal(t, intSlice{1, 2, 3}, ref.Get())
}

func TestTryWriteUncontendedInPlace(t *testing.T) {
	w, r := New(intSlice{1})
	defer w.Close()

	guard, congested := w.TryWrite()
	require.Nil(t, congested)
	guard.Set(intSlice{2})
	guard.Close()

	ref, blocked := r.TryRead()
	require.Nil(t, blocked)
	defer ref.Close()
	assert.Equal(t, intSlice{2}, ref.Get())
}

func TestTryWriteCongestedWhileReaderLive(t *testing.T) {
	w, r := New(intSlice{1})
	defer w.Close()

	ref, blocked := r.TryRead()
	require.Nil(t, blocked)

	guard, congested := w.TryWrite()
	assert.Nil(t, guard)
	require.NotNil(t, congested)

	ref.Close()
}

func TestCongestedWriterRetryResolvesAfterReaderCloses(t *testing.T) {
	w, r := New(intSlice{1})
	defer w.Close()

	ref, blocked := r.TryRead()
	require.Nil(t, blocked)

	_, congested := w.TryWrite()
	require.NotNil(t, congested)

	done := make(chan *InPlaceGuard[intSlice])
	go func() {
		guard, err := congested.Retry(context.Background())
		assert.NoError(t, err)
		done <- guard
	}()

	time.Sleep(10 * time.Millisecond)
	ref.Close()

	select {
	case guard := <-done:
		require.NotNil(t, guard)
		guard.Close()
	case <-time.After(time.Second):
		t.Fatal("Retry never resolved after the congesting reader closed")
	}
}

func TestWriteCOWPublishesPreviousAndCurrent(t *testing.T) {
	w, r := New(intSlice{1, 2})
	defer w.Close()

	newVal := WriteCOW(w, func(v *intSlice) intSlice {
		*v = append(*v, 3)
		return *v
	})
	assert.Equal(t, intSlice{1, 2, 3}, newVal)

	ref, blocked := r.TryRead()
	require.Nil(t, blocked)
	assert.Equal(t, intSlice{1, 2, 3}, ref.Get())
	ref.Close()

	retro, ok := r.ReadRetro()
	require.True(t, ok)
	assert.Equal(t, intSlice{1, 2}, retro.Get())
	retro.Close()
}

func TestWriteCOWNotCloneablePanics(t *testing.T) {
	w, _ := New(42)
	defer w.Close()

	assert.Panics(t, func() {
		WriteCOW(w, func(v *int) int { *v++; return *v })
	})
}

func TestWriteCOWWithCloneFuncOption(t *testing.T) {
	type point struct{ x, y int }
	w, r := New(point{1, 1}, WithCloneFunc(func(p point) point { return p }))
	defer w.Close()

	WriteCOW(w, func(p *point) struct{} {
		p.x++
		p.y++
		return struct{}{}
	})

	ref, blocked := r.TryRead()
	require.Nil(t, blocked)
	defer ref.Close()
	assert.Equal(t, point{2, 2}, ref.Get())
}

func TestReadRetroNoPreviousValue(t *testing.T) {
	w, r := New(intSlice{1})
	defer w.Close()

	_, ok := r.ReadRetro()
	assert.False(t, ok)
}

func TestBlockedReaderWaitUnblocksOnInPlaceClose(t *testing.T) {
	w, r := New(intSlice{1})
	defer w.Close()

	guard := w.WriteInPlace()

	blockedRef, blocked := r.TryRead()
	assert.Nil(t, blockedRef)
	require.NotNil(t, blocked)

	resultCh := make(chan intSlice, 1)
	errCh := make(chan error, 1)
	go func() {
		ref, err := blocked.Wait(context.Background())
		if err != nil {
			errCh <- err
			return
		}
		resultCh <- ref.Get()
		ref.Close()
	}()

	time.Sleep(10 * time.Millisecond)
	guard.Set(intSlice{2})
	guard.Close()

	select {
	case v := <-resultCh:
		assert.Equal(t, intSlice{2}, v)
	case err := <-errCh:
		t.Fatalf("Wait returned an error: %v", err)
	case <-time.After(time.Second):
		t.Fatal("BlockedReader.Wait never unblocked after the writer closed its guard")
	}
}

func TestBlockedReaderReadRetroWhileLocked(t *testing.T) {
	w, r := New(intSlice{1})
	defer w.Close()

	WriteCOW(w, func(v *intSlice) intSlice { *v = append(*v, 2); return *v })

	guard := w.WriteInPlace()
	defer guard.Close()

	_, blocked := r.TryRead()
	require.NotNil(t, blocked)

	retro, ok := blocked.ReadRetro()
	require.True(t, ok)
	assert.Equal(t, intSlice{1}, retro.Get())
	retro.Close()
}

func TestReadContextCancellation(t *testing.T) {
	w, r := New(intSlice{1})
	defer w.Close()

	guard := w.WriteInPlace()
	defer guard.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Read(ctx)
	assert.Error(t, err)
}

func TestReaderCloneIndependence(t *testing.T) {
	w, r := New(intSlice{7})
	defer w.Close()

	clone := r.Clone()
	ref, blocked := clone.TryRead()
	require.Nil(t, blocked)
	defer ref.Close()
	assert.Equal(t, intSlice{7}, ref.Get())
}

func TestWriterCloseThenUseAgainPanics(t *testing.T) {
	w, _ := New(intSlice{1})
	w.Close()

	assert.Panics(t, func() { w.Close() })
	assert.Panics(t, func() { w.WriteInPlace() })
}

func TestRefDoubleCloseAndGetAfterClosePanic(t *testing.T) {
	w, r := New(intSlice{1})
	defer w.Close()

	ref, blocked := r.TryRead()
	require.Nil(t, blocked)
	ref.Close()

	assert.Panics(t, func() { ref.Close() })
	assert.Panics(t, func() { ref.Get() })
}

func TestInPlaceGuardDoubleClosePanics(t *testing.T) {
	w, _ := New(intSlice{1})
	defer w.Close()

	guard, congested := w.TryWrite()
	require.Nil(t, congested)
	guard.Close()

	assert.Panics(t, func() { guard.Close() })
}

// TestConcurrentReadersAndWriter mirrors the teacher's own
// many-readers-one-writer stress test: a pool of goroutines hammer
// TryRead in a loop (falling back to ReadRetro when blocked) while
// the writer alternates WriteCOW and
// WriteInPlace, relying on -race to catch anything this package's own
// synchronization missed.
func TestConcurrentReadersAndWriter(t *testing.T) {
	w, r := New(intSlice{0})
	defer w.Close()

	done := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < runtime.NumCPU()*2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reader := r.Clone()
			for {
				select {
				case <-done:
					return
				default:
				}
				ref, blocked := reader.TryRead()
				if blocked != nil {
					if retro, ok := blocked.ReadRetro(); ok {
						retro.Close()
					}
					continue
				}
				_ = ref.Get()
				ref.Close()
			}
		}()
	}

	for i := 0; i < 200; i++ {
		if i%2 == 0 {
			WriteCOW(w, func(v *intSlice) intSlice {
				*v = append(*v, int64(i))
				return *v
			})
		} else {
			guard := w.WriteInPlace()
			guard.Set(append(intSlice(nil), int64(i)))
			guard.Close()
		}
	}
	close(done)
	wg.Wait()
}

func TestWithSpinLimitOption(t *testing.T) {
	w, _ := New(intSlice{1}, WithSpinLimit(5))
	defer w.Close()
	assert.Equal(t, 5, w.opts.spinLimit)
}

func TestWithPoolCapOption(t *testing.T) {
	w, _ := New(intSlice{1}, WithPoolCap(2))
	defer w.Close()
	assert.Equal(t, 2, w.opts.poolCap)
}
