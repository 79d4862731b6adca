package notify

import "testing"

func TestBroadcaster_PublishSubscribe(t *testing.T) {
	b := NewBroadcaster[int]("test", 4)
	a := b.Subscribe()
	c := b.Subscribe()

	b.Publish(1)

	if v := <-a; v != 1 {
		t.Errorf("expected 1, got %d", v)
	}
	if v := <-c; v != 1 {
		t.Errorf("expected 1, got %d", v)
	}
}

func TestBroadcaster_DropsWhenFull(t *testing.T) {
	b := NewBroadcaster[int]("test", 1)
	ch := b.Subscribe()

	b.Publish(1)
	b.Publish(2) // dropped

	if v := <-ch; v != 1 {
		t.Errorf("expected 1, got %d", v)
	}
	select {
	case v := <-ch:
		t.Errorf("expected no more values, got %d", v)
	default:
	}
}

func TestBroadcaster_UnsubscribeAndClose(t *testing.T) {
	b := NewBroadcaster[string]("test", 0)
	ch := b.Subscribe()
	b.Unsubscribe(ch)

	if _, ok := <-ch; ok {
		t.Error("expected closed channel after unsubscribe")
	}

	other := b.Subscribe()
	b.Close()
	b.Close()
	if _, ok := <-other; ok {
		t.Error("expected closed channel after Close")
	}

	late := b.Subscribe()
	if _, ok := <-late; ok {
		t.Error("expected closed channel when subscribing after Close")
	}
	b.Publish("ignored")
}
