package events

import "testing"

func TestPublishDeliversInSubscriptionOrder(t *testing.T) {
	topic := NewTopic[int]()

	var order []string
	topic.Subscribe(func(int) { order = append(order, "a") })
	topic.Subscribe(func(int) { order = append(order, "b") })
	topic.Subscribe(func(int) { order = append(order, "c") })

	topic.Publish(1)
	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Fatalf("delivery order = %v", order)
	}
}

func TestPublishCarriesPayload(t *testing.T) {
	type payload struct {
		ID   string
		Tick uint64
	}
	topic := NewTopic[payload]()

	var got payload
	topic.Subscribe(func(p payload) { got = p })
	topic.Publish(payload{ID: "p1", Tick: 42})
	if got.ID != "p1" || got.Tick != 42 {
		t.Fatalf("payload = %#v", got)
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	topic := NewTopic[int]()

	calls := 0
	sub := topic.Subscribe(func(int) { calls++ })
	topic.Publish(1)
	sub.Unsubscribe()
	sub.Unsubscribe() // repeated unsubscribe is fine
	topic.Publish(2)

	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
	if topic.SubscriberCount() != 0 {
		t.Fatalf("subscribers = %d after unsubscribe", topic.SubscriberCount())
	}
}

func TestUnsubscribeDuringPublish(t *testing.T) {
	topic := NewTopic[int]()

	var sub *Subscription
	first := 0
	second := 0
	topic.Subscribe(func(int) {
		first++
		sub.Unsubscribe()
	})
	sub = topic.Subscribe(func(int) { second++ })

	// The snapshot taken at publish still delivers to the second
	// subscriber this round; the next publish does not.
	topic.Publish(1)
	topic.Publish(2)
	if first != 2 {
		t.Fatalf("first subscriber calls = %d, want 2", first)
	}
	if second != 1 {
		t.Fatalf("second subscriber calls = %d, want 1", second)
	}
}

func TestSubscribeDuringPublishWaitsForNextPublish(t *testing.T) {
	topic := NewTopic[int]()

	nested := 0
	topic.Subscribe(func(v int) {
		if v == 1 {
			topic.Subscribe(func(int) { nested++ })
		}
	})

	topic.Publish(1)
	if nested != 0 {
		t.Fatal("nested subscriber saw the publish that registered it")
	}
	topic.Publish(2)
	if nested != 1 {
		t.Fatalf("nested subscriber calls = %d, want 1", nested)
	}
}

func TestNilTopicAndSubscription(t *testing.T) {
	var topic *Topic[int]
	sub := topic.Subscribe(func(int) {})
	topic.Publish(1)
	if topic.SubscriberCount() != 0 {
		t.Fatal("nil topic reported subscribers")
	}
	sub.Unsubscribe()

	live := NewTopic[int]()
	if live.Subscribe(nil) == nil {
		t.Fatal("nil handler subscription is nil")
	}
	live.Publish(1)
}
