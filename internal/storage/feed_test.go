package storage

import (
	"testing"
	"time"
)

func TestFeedSubscribeUnsubscribe(t *testing.T) {
	f := NewFeed()
	defer f.Close()

	ch := f.Subscribe()
	f.Publish([]Event{{Kind: EventCreated, ID: "x"}})

	select {
	case batch := <-ch:
		if len(batch) != 1 || batch[0].ID != "x" {
			t.Errorf("batch = %+v", batch)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for batch")
	}

	f.Unsubscribe(ch)
	// Channel should be closed after unsubscribe.
	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed channel after unsubscribe")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for channel close")
	}
}

func TestFeedBatchDelivery(t *testing.T) {
	f := NewFeed()
	defer f.Close()

	ch := f.Subscribe()
	defer f.Unsubscribe(ch)

	batch := []Event{
		{Kind: EventCreated, ID: "a"},
		{Kind: EventDeleted, ID: "b"},
	}
	f.Publish(batch)

	select {
	case got := <-ch:
		if len(got) != 2 {
			t.Errorf("len = %d, want 2", len(got))
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for batch")
	}
}

func TestFeedEmptyBatchIgnored(t *testing.T) {
	f := NewFeed()
	defer f.Close()

	ch := f.Subscribe()
	defer f.Unsubscribe(ch)

	f.Publish(nil)
	f.Publish([]Event{})

	select {
	case got := <-ch:
		t.Errorf("unexpected delivery: %+v", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestFeedCloseClosesSubscribers(t *testing.T) {
	f := NewFeed()
	ch := f.Subscribe()

	f.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected closed subscriber channel")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for close")
	}

	// Safe no-ops after close.
	f.Publish([]Event{{Kind: EventCreated, ID: "late"}})
	f.Unsubscribe(ch)
}

func TestFeedSlowSubscriberDoesNotBlock(t *testing.T) {
	f := NewFeed()
	defer f.Close()

	ch := f.Subscribe()
	defer f.Unsubscribe(ch)

	// Fill the subscriber buffer (capacity 64) and keep publishing; the
	// loop must drop rather than deadlock.
	for i := 0; i < 100; i++ {
		f.Publish([]Event{{Kind: EventUpdated, ID: "spam"}})
	}
}
