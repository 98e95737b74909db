package fanout

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"

	"github.com/akinalp/gooverchat/pkg/logger"
)

// NATSAdapter, core NATS (JetStream'siz) subject üzerinden envelope taşır.
// Core NATS at-most-once'dır; bu da fan-out sözleşmesiyle örtüşür.
type NATSAdapter struct {
	nc      *nats.Conn
	subject string

	mu  sync.Mutex
	sub *nats.Subscription
}

// NewNATSAdapter, NATS'e bağlanır. Bağlantı koparsa client sınırsız yeniden dener.
func NewNATSAdapter(url, subject, name string) (*NATSAdapter, error) {
	opts := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(500 * time.Millisecond),
		nats.Timeout(3 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warnf("[fanout] nats disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Infof("[fanout] nats reconnected to %s", nc.ConnectedUrl())
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "connect nats %s", url)
	}
	return &NATSAdapter{nc: nc, subject: subject}, nil
}

func (a *NATSAdapter) Publish(_ context.Context, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return errors.Wrap(err, "marshal envelope")
	}
	if err := a.nc.Publish(a.subject, data); err != nil {
		return errors.Wrapf(err, "nats publish %s", a.subject)
	}
	return nil
}

func (a *NATSAdapter) Subscribe(ctx context.Context, handler Handler) error {
	// nats.go bir subscription'ın callback'lerini tek goroutine'de sırayla çağırır.
	sub, err := a.nc.Subscribe(a.subject, func(m *nats.Msg) {
		var env Envelope
		if err := json.Unmarshal(m.Data, &env); err != nil {
			logger.Warnf("[fanout] dropping malformed nats envelope: %v", err)
			return
		}
		handler(env)
	})
	if err != nil {
		return errors.Wrapf(err, "nats subscribe %s", a.subject)
	}
	_ = sub.SetPendingLimits(1_000_000, 64*1024*1024)

	a.mu.Lock()
	a.sub = sub
	a.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = sub.Unsubscribe()
	}()
	return nil
}

// Close, aboneliği boşaltır ve bağlantıyı Drain ile kapatır.
func (a *NATSAdapter) Close() error {
	a.mu.Lock()
	if a.sub != nil {
		_ = a.sub.Drain()
		a.sub = nil
	}
	a.mu.Unlock()

	if err := a.nc.Drain(); err != nil {
		return errors.Wrap(err, "drain nats")
	}
	return nil
}
