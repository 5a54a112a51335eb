// Package bench compares retrocell.Writer/Reader against the two
// obvious stdlib alternatives a caller would reach for first: a bare
// atomic.Pointer swap (no retro-read, no in-place path, COW-only) and
// a sync.RWMutex-guarded value (blocking readers under a write lock).
// The timed loop in each ReadHeavy benchmark is the writer; the
// readers run concurrently in the background for the whole timed
// section, since that is the case retrocell's in-place/COW split
// exists for.
package bench

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/retrocell/retrocell"
)

type payload struct {
	values []int64
}

func (p payload) Clone() payload {
	return payload{values: append([]int64(nil), p.values...)}
}

func newPayload(n int) payload {
	return payload{values: make([]int64, n)}
}

func BenchmarkRetroCellReadHeavy(b *testing.B) {
	for _, readers := range []int{1, 4, 16, 64} {
		b.Run(concurrencyName(readers), func(b *testing.B) {
			w, r := retrocell.New(newPayload(64))
			defer w.Close()

			stop := make(chan struct{})
			var wg sync.WaitGroup
			for i := 0; i < readers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					reader := r.Clone()
					for {
						select {
						case <-stop:
							return
						default:
						}
						ref, blocked := reader.TryRead()
						if blocked != nil {
							if retro, ok := blocked.ReadRetro(); ok {
								_ = retro.Get()
								retro.Close()
							}
							continue
						}
						_ = ref.Get()
						ref.Close()
					}
				}()
			}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				retrocell.WriteCOW(w, func(p *payload) struct{} {
					p.values[0]++
					return struct{}{}
				})
			}
			b.StopTimer()
			close(stop)
			wg.Wait()
		})
	}
}

func BenchmarkRetroCellWriteInPlaceUncontended(b *testing.B) {
	w, _ := retrocell.New(newPayload(64))
	defer w.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		guard := w.WriteInPlace()
		guard.Mutate(func(p payload) payload {
			p.values[0]++
			return p
		})
		guard.Close()
	}
}

func BenchmarkAtomicPointerReadHeavy(b *testing.B) {
	for _, readers := range []int{1, 4, 16, 64} {
		b.Run(concurrencyName(readers), func(b *testing.B) {
			var ptr atomic.Pointer[payload]
			initial := newPayload(64)
			ptr.Store(&initial)

			stop := make(chan struct{})
			var wg sync.WaitGroup
			for i := 0; i < readers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for {
						select {
						case <-stop:
							return
						default:
						}
						p := ptr.Load()
						_ = p.values[0]
					}
				}()
			}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				old := ptr.Load()
				next := old.Clone()
				next.values[0]++
				ptr.Store(&next)
			}
			b.StopTimer()
			close(stop)
			wg.Wait()
		})
	}
}

func BenchmarkRWMutexReadHeavy(b *testing.B) {
	for _, readers := range []int{1, 4, 16, 64} {
		b.Run(concurrencyName(readers), func(b *testing.B) {
			var mu sync.RWMutex
			value := newPayload(64)

			stop := make(chan struct{})
			var wg sync.WaitGroup
			for i := 0; i < readers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for {
						select {
						case <-stop:
							return
						default:
						}
						mu.RLock()
						_ = value.values[0]
						mu.RUnlock()
					}
				}()
			}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				mu.Lock()
				value.values[0]++
				mu.Unlock()
			}
			b.StopTimer()
			close(stop)
			wg.Wait()
		})
	}
}

// BenchmarkRetroCellBlockedReaderWait measures the cold path: a reader
// that arrives while the writer holds the in-place lock and must
// actually park, rather than retro-read or spin past it.
func BenchmarkRetroCellBlockedReaderWait(b *testing.B) {
	w, r := retrocell.New(newPayload(8))
	defer w.Close()

	for i := 0; i < b.N; i++ {
		guard := w.WriteInPlace()
		_, blocked := r.TryRead()
		done := make(chan struct{})
		go func() {
			if blocked != nil {
				ref, err := blocked.Wait(context.Background())
				if err == nil {
					ref.Close()
				}
			}
			close(done)
		}()
		guard.Close()
		<-done
	}
}

func concurrencyName(n int) string {
	switch n {
	case 1:
		return "readers=1"
	case 4:
		return "readers=4"
	case 16:
		return "readers=16"
	default:
		return "readers=64"
	}
}
