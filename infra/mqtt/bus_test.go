package mqtt

import (
	"errors"
	"sync"

	coremqtt "github.com/kilianp07/fleetcore/core/mqtt"
)

type published struct {
	kind, topic string
	payload     []byte
}

// fakeBus is an in-memory coremqtt.Messenger.
type fakeBus struct {
	mu         sync.Mutex
	subs       map[string]coremqtt.Handler
	published  []published
	publishErr error
	watchers   map[int]func(bool)
	nextWatch  int
}

func newFakeBus() *fakeBus {
	return &fakeBus{subs: map[string]coremqtt.Handler{}, watchers: map[int]func(bool){}}
}

func (b *fakeBus) OnConnectionChange(fn func(bool)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextWatch
	b.nextWatch++
	b.watchers[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.watchers, id)
	}
}

func (b *fakeBus) setConnected(up bool) {
	b.mu.Lock()
	fns := make([]func(bool), 0, len(b.watchers))
	for _, fn := range b.watchers {
		fns = append(fns, fn)
	}
	b.mu.Unlock()
	for _, fn := range fns {
		fn(up)
	}
}

func (b *fakeBus) Publish(kind, topic string, payload []byte) error {
	b.mu.Lock()
	b.published = append(b.published, published{kind, topic, payload})
	err := b.publishErr
	h := b.subs[topic]
	b.mu.Unlock()
	if err != nil {
		return err
	}
	if h != nil {
		h(topic, payload)
	}
	return nil
}

func (b *fakeBus) Subscribe(_ string, topic string, h coremqtt.Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[topic] = h
	return nil
}

func (b *fakeBus) Unsubscribe(topic string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[topic]; !ok {
		return errors.New("not subscribed")
	}
	delete(b.subs, topic)
	return nil
}

func (b *fakeBus) subscribed(topic string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.subs[topic]
	return ok
}

func (b *fakeBus) sent() []published {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]published(nil), b.published...)
}

var (
	_ coremqtt.Messenger         = (*fakeBus)(nil)
	_ coremqtt.ConnectionWatcher = (*fakeBus)(nil)
)
