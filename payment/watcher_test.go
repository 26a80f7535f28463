package payment

import (
	"testing"
	"time"
)

func collect(w *Watcher) (<-chan Event, *FuncObserver) {
	ch := make(chan Event, 8)
	obs := &FuncObserver{Fn: func(ev Event) { ch <- ev }}
	w.AddObserver(obs)
	return ch, obs
}

func TestWatcherTimesOutTrackedOrder(t *testing.T) {
	w := NewWatcher(30 * time.Millisecond)
	defer w.Stop()
	ch, _ := collect(w)

	w.Track("order-1", DirectionSpend)

	select {
	case ev := <-ch:
		if ev.OrderID != "order-1" || ev.Succeeded {
			t.Fatalf("unexpected event %+v", ev)
		}
		if ev.FailureReason != TimedOutReason {
			t.Fatalf("expected %q, got %q", TimedOutReason, ev.FailureReason)
		}
		if ev.Direction != DirectionSpend {
			t.Fatalf("direction lost: %s", ev.Direction)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout event never arrived")
	}
}

func TestWatcherDeliverCancelsTimer(t *testing.T) {
	w := NewWatcher(50 * time.Millisecond)
	defer w.Stop()
	ch, _ := collect(w)

	w.Track("order-2", DirectionEarn)
	w.Deliver(Event{OrderID: "order-2", TransactionID: "tx-2", Succeeded: true, Direction: DirectionEarn})

	ev := <-ch
	if !ev.Succeeded || ev.TransactionID != "tx-2" {
		t.Fatalf("unexpected event %+v", ev)
	}

	// 定时器已被取消，不应再有超时补发
	select {
	case ev := <-ch:
		t.Fatalf("unexpected extra event %+v", ev)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatcherRetrackResetsDeadline(t *testing.T) {
	w := NewWatcher(60 * time.Millisecond)
	defer w.Stop()
	ch, _ := collect(w)

	w.Track("order-3", DirectionSpend)
	time.Sleep(40 * time.Millisecond)
	w.Track("order-3", DirectionSpend)

	// 第一个期限已被重置，此刻不应有事件
	select {
	case ev := <-ch:
		t.Fatalf("premature event %+v", ev)
	case <-time.After(30 * time.Millisecond):
	}

	select {
	case ev := <-ch:
		if ev.FailureReason != TimedOutReason {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reset deadline never fired")
	}
}

func TestWatcherStopSuppressesExpiry(t *testing.T) {
	w := NewWatcher(30 * time.Millisecond)
	ch, _ := collect(w)

	w.Track("order-4", DirectionSpend)
	w.Stop()

	select {
	case ev := <-ch:
		t.Fatalf("event after stop: %+v", ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatcherDeliverUntracked(t *testing.T) {
	w := NewWatcher(time.Second)
	defer w.Stop()
	ch, _ := collect(w)

	// 未跟踪的订单也照常转发
	w.Deliver(Event{OrderID: "order-5", Succeeded: true})
	ev := <-ch
	if ev.OrderID != "order-5" {
		t.Fatalf("unexpected event %+v", ev)
	}
}
