package player

import "testing"

func TestQueueTrySendRespectsCapacity(t *testing.T) {
	q := NewQueue()
	for i := 0; i < QueueCapacity; i++ {
		if !q.TrySend(SetBrightness(50)) {
			t.Fatalf("expected send %d to succeed within capacity", i)
		}
	}
	if q.TrySend(SetBrightness(50)) {
		t.Fatalf("expected send beyond capacity to fail rather than block")
	}
}

func TestQueueFIFOOrder(t *testing.T) {
	q := NewQueue()
	q.TrySend(SetBrightness(10))
	q.TrySend(SetBrightness(20))
	first := <-q
	second := <-q
	if first.Brightness != 10 || second.Brightness != 20 {
		t.Fatalf("expected FIFO order, got %d then %d", first.Brightness, second.Brightness)
	}
}
