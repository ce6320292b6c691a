package storage

import "sync/atomic"

// Feed broadcasts batches of item change events to subscribers.
//
// Concurrency model: a single internal event loop (goroutine) owns the
// subscriber set. Public methods communicate with this loop through channels,
// so no mutexes are required. Delivery within a batch carries no ordering
// guarantee; subscribers must process events independently and idempotently.
type Feed struct {
	subscribeCh   chan chan []Event
	unsubscribeCh chan chan []Event
	publishCh     chan []Event

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewFeed creates a change feed and starts its event loop.
func NewFeed() *Feed {
	f := &Feed{
		subscribeCh:   make(chan chan []Event),
		unsubscribeCh: make(chan chan []Event),
		publishCh:     make(chan []Event, 256),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go f.run()
	return f
}

func (f *Feed) run() {
	defer close(f.stopped)

	subs := make(map[chan []Event]struct{})

	for {
		select {
		case <-f.stopCh:
			for ch := range subs {
				close(ch)
			}
			return

		case ch := <-f.subscribeCh:
			subs[ch] = struct{}{}

		case ch := <-f.unsubscribeCh:
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}

		case batch := <-f.publishCh:
			for ch := range subs {
				select {
				case ch <- batch:
				default:
					// Subscriber buffer full; skip rather than block the
					// loop. A startup reindex reconciles missed batches.
				}
			}
		}
	}
}

// Subscribe registers a new subscriber and returns its batch channel.
func (f *Feed) Subscribe() chan []Event {
	ch := make(chan []Event, 64)
	if f.closed.Load() {
		close(ch)
		return ch
	}
	select {
	case f.subscribeCh <- ch:
	case <-f.stopped:
		close(ch)
	}
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (f *Feed) Unsubscribe(ch chan []Event) {
	if f.closed.Load() {
		return
	}
	select {
	case f.unsubscribeCh <- ch:
	case <-f.stopped:
	}
}

// Publish delivers one batch of events to every subscriber.
func (f *Feed) Publish(batch []Event) {
	if len(batch) == 0 || f.closed.Load() {
		return
	}
	select {
	case f.publishCh <- batch:
	case <-f.stopped:
	}
}

// Close stops the event loop and closes all subscriber channels.
func (f *Feed) Close() {
	if f.closed.CompareAndSwap(false, true) {
		close(f.stopCh)
	}
	<-f.stopped
}
