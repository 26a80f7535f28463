package alert

import (
	"testing"
	"time"
)

func TestSendAlert(t *testing.T) {
	mock := NewMockChannel("mock")
	mgr := NewManager([]Channel{mock}, 5*time.Minute)

	err := mgr.Send(Alert{
		Level:   "ERROR",
		Message: "test message",
		OrderID: "order-1",
		Fields:  map[string]interface{}{"key": "value"},
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if mock.Count() != 1 {
		t.Fatalf("expected 1 alert, got %d", mock.Count())
	}
	alert := mock.Alerts()[0]
	if alert.Level != "ERROR" {
		t.Errorf("level = %s, want ERROR", alert.Level)
	}
	if alert.OrderID != "order-1" {
		t.Errorf("order id = %s, want order-1", alert.OrderID)
	}
	if alert.Fields["key"] != "value" {
		t.Errorf("field key = %v, want value", alert.Fields["key"])
	}
	if alert.Timestamp.IsZero() {
		t.Error("timestamp should be set")
	}
}

func TestOrderAndPaymentHelpers(t *testing.T) {
	mock := NewMockChannel("mock")
	mgr := NewManager([]Channel{mock}, 5*time.Minute)

	mgr.OrderFailed("order-1", "gateway rejected")
	mgr.PaymentFailed("order-2", "tx rejected")

	if mock.Count() != 2 {
		t.Fatalf("expected 2 alerts, got %d", mock.Count())
	}
	alerts := mock.Alerts()
	if alerts[0].Level != "ERROR" || alerts[0].OrderID != "order-1" {
		t.Errorf("unexpected order alert %+v", alerts[0])
	}
	if alerts[1].Level != "CRITICAL" || alerts[1].OrderID != "order-2" {
		t.Errorf("unexpected payment alert %+v", alerts[1])
	}
	if alerts[1].Fields["reason"] != "tx rejected" {
		t.Errorf("reason not carried: %v", alerts[1].Fields)
	}
}

func TestThrottling(t *testing.T) {
	mock := NewMockChannel("mock")
	mgr := NewManager([]Channel{mock}, 100*time.Millisecond)

	// 第一次发送应该成功
	if err := mgr.Send(Alert{Level: "ERROR", Message: "repeat"}); err != nil {
		t.Fatalf("first send failed: %v", err)
	}
	// 相同 级别+消息 在窗口内被限流
	if err := mgr.Send(Alert{Level: "ERROR", Message: "repeat"}); err != nil {
		t.Fatalf("throttled send should be silent: %v", err)
	}
	if mock.Count() != 1 {
		t.Fatalf("expected 1 alert after throttle, got %d", mock.Count())
	}

	// 不同消息不受影响
	if err := mgr.Send(Alert{Level: "ERROR", Message: "other"}); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if mock.Count() != 2 {
		t.Fatalf("expected 2 alerts, got %d", mock.Count())
	}

	// 窗口过后再次放行
	time.Sleep(120 * time.Millisecond)
	if err := mgr.Send(Alert{Level: "ERROR", Message: "repeat"}); err != nil {
		t.Fatalf("send after window failed: %v", err)
	}
	if mock.Count() != 3 {
		t.Fatalf("expected 3 alerts, got %d", mock.Count())
	}
}

func TestResetThrottle(t *testing.T) {
	mock := NewMockChannel("mock")
	mgr := NewManager([]Channel{mock}, time.Hour)

	mgr.Send(Alert{Level: "ERROR", Message: "m"})
	mgr.Send(Alert{Level: "ERROR", Message: "m"})
	if mock.Count() != 1 {
		t.Fatalf("expected throttle, got %d", mock.Count())
	}

	mgr.ResetThrottle()
	mgr.Send(Alert{Level: "ERROR", Message: "m"})
	if mock.Count() != 2 {
		t.Fatalf("reset should allow resend, got %d", mock.Count())
	}
}

func TestChannelErrorSurfacesWhenNothingSent(t *testing.T) {
	mock := NewMockChannel("mock")
	mock.SetShouldError(true)
	mgr := NewManager([]Channel{mock}, time.Minute)

	if err := mgr.Send(Alert{Level: "ERROR", Message: "m"}); err == nil {
		t.Fatal("expected error when no channel delivered")
	}
}

func TestAddChannelBroadcasts(t *testing.T) {
	first := NewMockChannel("first")
	mgr := NewManager([]Channel{first}, time.Minute)
	second := NewMockChannel("second")
	mgr.AddChannel(second)

	mgr.Send(Alert{Level: "ERROR", Message: "m"})
	if first.Count() != 1 || second.Count() != 1 {
		t.Fatalf("broadcast incomplete: first=%d second=%d", first.Count(), second.Count())
	}
}
