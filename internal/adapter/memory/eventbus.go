package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Eeshan-Vaghjiani/workflow-sub002/internal/domain/event"
	porteventbus "github.com/Eeshan-Vaghjiani/workflow-sub002/internal/port/eventbus"
)

var _ porteventbus.EventBus = (*EventBus)(nil)

// EventBus delivers events to subscribers in the same process. Handlers run
// synchronously on the publishing goroutine, in subscription order.
type EventBus struct {
	mu   sync.RWMutex
	next int
	subs map[event.Channel]map[int]subscriber
}

type subscriber struct {
	ctx     context.Context
	handler porteventbus.Handler
}

func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[event.Channel]map[int]subscriber)}
}

func (eb *EventBus) Publish(_ context.Context, e event.Event) error {
	ch := event.ChannelFor(e.Type)
	if ch == "" {
		return fmt.Errorf("no channel for event type %q", e.Type)
	}

	eb.mu.RLock()
	ids := make([]int, 0, len(eb.subs[ch]))
	for id := range eb.subs[ch] {
		ids = append(ids, id)
	}
	subs := make([]subscriber, 0, len(ids))
	sort.Ints(ids)
	for _, id := range ids {
		subs = append(subs, eb.subs[ch][id])
	}
	eb.mu.RUnlock()

	for _, s := range subs {
		if s.ctx.Err() != nil {
			continue
		}
		s.handler(s.ctx, e)
	}
	return nil
}

func (eb *EventBus) Subscribe(ctx context.Context, ch event.Channel, handler porteventbus.Handler) (porteventbus.Subscription, error) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	if eb.subs[ch] == nil {
		eb.subs[ch] = make(map[int]subscriber)
	}
	id := eb.next
	eb.next++
	eb.subs[ch][id] = subscriber{ctx: ctx, handler: handler}
	return &subscription{bus: eb, ch: ch, id: id}, nil
}

type subscription struct {
	bus  *EventBus
	ch   event.Channel
	id   int
	once sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		delete(s.bus.subs[s.ch], s.id)
		s.bus.mu.Unlock()
	})
}
