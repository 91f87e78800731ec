package overrides

import (
	"sync"
	"testing"
)

func TestObservableReplaysLatestToNewSubscribers(t *testing.T) {
	obs := NewObservable(1, nil)
	obs.Publish(2)

	var got []int
	unsubscribe := obs.Subscribe(func(v int) { got = append(got, v) })
	defer unsubscribe()

	if len(got) != 1 || got[0] != 2 {
		t.Fatalf("expected replay of latest value, got %v", got)
	}
	obs.Publish(3)
	if len(got) != 2 || got[1] != 3 {
		t.Fatalf("expected later emission, got %v", got)
	}
}

func TestObservableUnsubscribeStopsDelivery(t *testing.T) {
	obs := NewObservable("a", nil)
	var got []string
	unsubscribe := obs.Subscribe(func(v string) { got = append(got, v) })
	unsubscribe()
	obs.Publish("b")

	if len(got) != 1 {
		t.Fatalf("expected only the replayed value, got %v", got)
	}
	if obs.SubscriberCount() != 0 {
		t.Fatalf("expected no subscribers, got %d", obs.SubscriberCount())
	}
}

func TestObservableReentrantPublishKeepsOrder(t *testing.T) {
	obs := NewObservable(0, nil)
	var first, second []int
	obs.Subscribe(func(v int) {
		first = append(first, v)
		if v == 1 {
			obs.Publish(2)
		}
	})
	obs.Subscribe(func(v int) { second = append(second, v) })

	obs.Publish(1)

	want := []int{0, 1, 2}
	if !equalInts(first, want) {
		t.Fatalf("first subscriber got %v, want %v", first, want)
	}
	if !equalInts(second, want) {
		t.Fatalf("second subscriber got %v, want %v", second, want)
	}
	if obs.Value() != 2 {
		t.Fatalf("expected latest value 2, got %d", obs.Value())
	}
}

func TestObservableNestedSubscribeReplaysImmediately(t *testing.T) {
	obs := NewObservable(1, nil)

	var inner []int
	var seenOnReturn []int
	var unsubscribeInner func()
	unsubscribe := obs.Subscribe(func(v int) {
		if v != 1 || unsubscribeInner != nil {
			return
		}
		unsubscribeInner = obs.Subscribe(func(v int) { inner = append(inner, v) })
		seenOnReturn = append([]int(nil), inner...)
	})
	defer unsubscribe()
	if unsubscribeInner == nil {
		t.Fatalf("expected inner subscription")
	}
	defer unsubscribeInner()

	if len(seenOnReturn) != 1 || seenOnReturn[0] != 1 {
		t.Fatalf("expected inner replay of 1 before Subscribe returned, got %v", seenOnReturn)
	}

	obs.Publish(2)
	if len(inner) != 2 || inner[0] != 1 || inner[1] != 2 {
		t.Fatalf("expected inner to see 1 then 2 once each, got %v", inner)
	}
}

func TestObservableDropsStaleVersions(t *testing.T) {
	obs := NewObservable("initial", nil)
	if !obs.publishAt(2, "v2") {
		t.Fatalf("expected v2 to be accepted")
	}
	if obs.publishAt(1, "v1") {
		t.Fatalf("expected stale v1 to be dropped")
	}
	if obs.Value() != "v2" {
		t.Fatalf("expected v2 to remain, got %q", obs.Value())
	}
}

func TestObservableClonesValues(t *testing.T) {
	source := []Option{{ID: "a", Name: "A"}}
	obs := NewObservable(source, cloneOptions)
	source[0].Name = "mutated"

	value := obs.Value()
	if value[0].Name != "A" {
		t.Fatalf("expected value detached from input, got %q", value[0].Name)
	}
	value[0].Name = "changed"
	if obs.Value()[0].Name != "A" {
		t.Fatalf("expected value detached from reader")
	}
}

func TestObservableConcurrentPublish(t *testing.T) {
	obs := NewObservable(0, nil)
	var mu sync.Mutex
	count := 0
	obs.Subscribe(func(int) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(1)
		go func(v int) {
			defer wg.Done()
			obs.Publish(v)
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if count != 51 {
		t.Fatalf("expected 51 deliveries, got %d", count)
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
