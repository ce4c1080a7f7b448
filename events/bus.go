package events

import "github.com/asaskevich/EventBus"

// Bus is a Publisher over an in-process event bus. Handlers run
// synchronously on the publishing goroutine unless subscribed async.
type Bus struct {
	bus EventBus.Bus
}

// NewBus creates a Bus with a fresh underlying event bus.
func NewBus() *Bus {
	return &Bus{bus: EventBus.New()}
}

func (b *Bus) Publish(ev Event) {
	b.bus.Publish(ev.Topic(), ev)
}

// Subscribe registers fn for a topic. fn receives the concrete event
// type published on that topic.
func (b *Bus) Subscribe(topic string, fn interface{}) error {
	return b.bus.Subscribe(topic, fn)
}

// SubscribeAsync registers fn to run on its own goroutine per event.
func (b *Bus) SubscribeAsync(topic string, fn interface{}) error {
	return b.bus.SubscribeAsync(topic, fn, false)
}

// Unsubscribe removes a handler from a topic.
func (b *Bus) Unsubscribe(topic string, fn interface{}) error {
	return b.bus.Unsubscribe(topic, fn)
}

// WaitAsync blocks until all async handlers have drained.
func (b *Bus) WaitAsync() {
	b.bus.WaitAsync()
}
