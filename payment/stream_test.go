package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

func TestParseStreamMessage(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		wantErr bool
		check   func(*testing.T, Event)
	}{
		{
			name: "success message",
			raw:  `{"order_id":"o1","transaction_id":"tx1","amount":"12.5","direction":"earn","status":"success"}`,
			check: func(t *testing.T, ev Event) {
				if ev.OrderID != "o1" || !ev.Succeeded || !ev.IsEarn() {
					t.Fatalf("unexpected event %+v", ev)
				}
				if !ev.Amount.Equal(decimal.RequireFromString("12.5")) {
					t.Fatalf("amount lost: %s", ev.Amount)
				}
			},
		},
		{
			name: "failure carries reason",
			raw:  `{"order_id":"o2","direction":"spend","status":"failed","reason":"tx_underfunded"}`,
			check: func(t *testing.T, ev Event) {
				if ev.Succeeded || ev.FailureReason != "tx_underfunded" {
					t.Fatalf("unexpected event %+v", ev)
				}
			},
		},
		{
			name: "missing amount defaults to zero",
			raw:  `{"order_id":"o3","status":"success"}`,
			check: func(t *testing.T, ev Event) {
				if !ev.Amount.IsZero() {
					t.Fatalf("amount should be zero: %s", ev.Amount)
				}
			},
		},
		{name: "missing order id", raw: `{"status":"success"}`, wantErr: true},
		{name: "bad amount", raw: `{"order_id":"o4","amount":"abc","status":"success"}`, wantErr: true},
		{name: "bad json", raw: `{`, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev, err := parseStreamMessage([]byte(tc.raw))
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parse err: %v", err)
			}
			tc.check(t, ev)
		})
	}
}

func TestStreamClientDeliversEvents(t *testing.T) {
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"order_id":"o1","transaction_id":"tx1","status":"success","direction":"spend"}`))
		// 保持连接直到客户端断开
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer ts.Close()

	sink := NewWatcher(time.Hour)
	defer sink.Stop()
	ch, _ := collect(sink)

	c := NewStreamClient("ws"+strings.TrimPrefix(ts.URL, "http"), sink)
	c.ReconnectWait = 10 * time.Millisecond
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("start err: %v", err)
	}
	defer c.Stop()

	select {
	case ev := <-ch:
		if ev.OrderID != "o1" || !ev.Succeeded {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("event never delivered")
	}
}

func TestStreamClientRequiresEndpoint(t *testing.T) {
	c := NewStreamClient("", NewWatcher(time.Hour))
	if err := c.Start(context.Background()); err == nil {
		t.Fatal("expected error for empty endpoint")
	}
}
