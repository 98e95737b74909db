package fanout

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// ErrClosed, kapatılmış bir adapter'a publish edilince döner.
var ErrClosed = errors.New("fanout: adapter closed")

// MemoryBus, process içi Adapter. Aynı binary'de birden fazla hub'ı birbirine bağlamak
// ve testlerde cluster davranışını doğrulamak için kullanılır.
//
// Her abone kendi goroutine'inde FIFO sırayla beslenir; yavaş bir abone diğerlerini
// bloklamaz, buffer dolarsa envelope o abone için düşürülür.
type MemoryBus struct {
	mu     sync.RWMutex
	subs   map[*memorySub]struct{}
	closed bool
}

type memorySub struct {
	ch   chan Envelope
	done chan struct{}
	once sync.Once
}

const memoryBufferSize = 1024

// NewMemoryBus, boş bir bus oluşturur.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[*memorySub]struct{})}
}

func (b *MemoryBus) Publish(ctx context.Context, env Envelope) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, "memory publish")
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}

	for sub := range b.subs {
		select {
		case sub.ch <- env:
		default:
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, handler Handler) error {
	sub := &memorySub{
		ch:   make(chan Envelope, memoryBufferSize),
		done: make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	go func() {
		defer b.remove(sub)
		for {
			select {
			case env := <-sub.ch:
				handler(env)
			case <-ctx.Done():
				return
			case <-sub.done:
				return
			}
		}
	}()
	return nil
}

func (b *MemoryBus) remove(sub *memorySub) {
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()
}

// Close, tüm aboneleri durdurur. Sonraki Publish/Subscribe çağrıları ErrClosed döner.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for sub := range b.subs {
		sub.once.Do(func() { close(sub.done) })
	}
	return nil
}
