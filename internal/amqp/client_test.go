package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"kopilka/internal/log"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
		{64, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if result := exponentialBackoff(tt.attempt); result != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, result, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"amqp closed", fmt.Errorf("publish: %w", amqp091.ErrClosed), true},
		{"EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"other error", errors.New("some other error"), false},
		{"validation error", errors.New("invalid input"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := isConnectionError(tt.err); result != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, result, tt.expected)
			}
		})
	}
}

func TestClient_CircuitBreaker(t *testing.T) {
	client := &Client{exchangeName: "kopilka", requestQueue: "report_requests"}

	t.Run("initial state is closed", func(t *testing.T) {
		if client.isCircuitOpen() {
			t.Error("circuit breaker should be closed initially")
		}
	})

	t.Run("multiple failures open circuit", func(t *testing.T) {
		for i := 0; i < maxFailures; i++ {
			client.recordFailure()
		}
		if !client.isCircuitOpen() {
			t.Error("circuit breaker should be open after max failures")
		}
	})

	t.Run("circuit transitions to half-open after timeout", func(t *testing.T) {
		client.lastFailure = time.Now().Add(-openTimeout - time.Second)
		if client.isCircuitOpen() {
			t.Error("circuit should let a trial call through after the timeout")
		}
		if atomic.LoadInt32(&client.state) != StateHalfOpen {
			t.Error("state should be half-open")
		}
	})

	t.Run("failure while half-open reopens", func(t *testing.T) {
		atomic.StoreInt64(&client.failureCount, 0)
		client.recordFailure()
		if atomic.LoadInt32(&client.state) != StateOpen {
			t.Error("a failed trial call must reopen the circuit")
		}
	})

	t.Run("record success resets state", func(t *testing.T) {
		client.recordSuccess()
		if client.isCircuitOpen() || atomic.LoadInt64(&client.failureCount) != 0 {
			t.Error("success should close the circuit and reset failures")
		}
	})
}

func TestClient_PublishGuards(t *testing.T) {
	client := &Client{exchangeName: "kopilka", requestQueue: "report_requests"}
	req := NewReportRequest("transfers", "", "", 0)

	atomic.StoreInt32(&client.state, StateOpen)
	client.lastFailure = time.Now()
	err := client.PublishRequest(context.Background(), req)
	if err == nil || !strings.Contains(err.Error(), "circuit breaker is open") {
		t.Fatalf("expected circuit breaker error, got %v", err)
	}

	client.recordSuccess()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.PublishRequest(ctx, req); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

type fakeAck struct {
	acked, nacked, requeued int
}

func (f *fakeAck) Ack(uint64, bool) error { f.acked++; return nil }
func (f *fakeAck) Nack(_ uint64, _ bool, requeue bool) error {
	f.nacked++
	if requeue {
		f.requeued++
	}
	return nil
}
func (f *fakeAck) Reject(uint64, bool) error { return nil }

func TestHandleRequestDelivery(t *testing.T) {
	body, err := NewReportRequest("invest", "", "2024-03", 50).ToJSON()
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		body       []byte
		handlerErr error
		want       fakeAck
	}{
		{"handled", body, nil, fakeAck{acked: 1}},
		{"handler failure requeues", body, errors.New("source down"), fakeAck{nacked: 1, requeued: 1}},
		{"garbage dropped", []byte("{not json"), nil, fakeAck{nacked: 1}},
		{"missing id dropped", []byte(`{"kind":"main"}`), nil, fakeAck{nacked: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := &fakeAck{}
			var got *ReportRequest
			d := amqp091.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: tt.body}
			handleRequestDelivery(context.Background(), log.Discard(), d, func(_ context.Context, r *ReportRequest) error {
				got = r
				return tt.handlerErr
			})
			if *ack != tt.want {
				t.Fatalf("ack state %+v, want %+v", *ack, tt.want)
			}
			if tt.want.acked == 1 && (got == nil || got.Month != "2024-03" || got.Limit != 50) {
				t.Fatalf("handler got %+v", got)
			}
		})
	}
}

func TestDrainStopsOnContextOrClose(t *testing.T) {
	deliveries := make(chan amqp091.Delivery, 2)
	deliveries <- amqp091.Delivery{}
	deliveries <- amqp091.Delivery{}
	close(deliveries)

	handled := 0
	if closed := drain(context.Background(), deliveries, func(amqp091.Delivery) { handled++ }); !closed {
		t.Fatal("expected drain to report a closed channel")
	}
	if handled != 2 {
		t.Fatalf("handled %d deliveries, want 2", handled)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if drain(ctx, make(chan amqp091.Delivery), func(amqp091.Delivery) {}) {
		t.Fatal("expected drain to stop on context cancellation")
	}
}

func TestHandleRequestDeliveryCarriesReplyTo(t *testing.T) {
	body, err := NewReportRequest("transfers", "", "", 0).ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	var got *ReportRequest
	d := amqp091.Delivery{Acknowledger: &fakeAck{}, DeliveryTag: 1, Body: body, ReplyTo: "amq.gen-abc"}
	handleRequestDelivery(context.Background(), log.Discard(), d, func(_ context.Context, r *ReportRequest) error {
		got = r
		return nil
	})
	if got == nil || got.ReplyTo != "amq.gen-abc" {
		t.Fatalf("reply-to not carried: %+v", got)
	}
}

func TestClient_ResultRoute(t *testing.T) {
	client := &Client{exchangeName: "kopilka", resultQueue: "report_results"}
	req := &ReportRequest{ID: "r1", Kind: "transfers"}

	exchange, key, mode := client.resultRoute(NewReportResult(req, "[]", nil))
	if exchange != "kopilka" || key != "report_results" || mode != amqp091.Persistent {
		t.Fatalf("shared route = %q %q %d", exchange, key, mode)
	}

	req.ReplyTo = "amq.gen-abc"
	exchange, key, mode = client.resultRoute(NewReportResult(req, "[]", nil))
	if exchange != "" || key != "amq.gen-abc" || mode != amqp091.Transient {
		t.Fatalf("reply route = %q %q %d", exchange, key, mode)
	}
}

func resultDelivery(t *testing.T, ack *fakeAck, id string) amqp091.Delivery {
	t.Helper()
	body, err := NewReportResult(&ReportRequest{ID: id, Kind: "transfers"}, "[]", nil).ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	return amqp091.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: body}
}

func TestAwaitResultSkipsStrayResults(t *testing.T) {
	ack := &fakeAck{}
	deliveries := make(chan amqp091.Delivery, 3)
	deliveries <- resultDelivery(t, ack, "other")
	deliveries <- resultDelivery(t, ack, "mine")

	res, err := awaitResult(context.Background(), log.Discard(), deliveries, "mine")
	if err != nil {
		t.Fatalf("awaitResult() error = %v", err)
	}
	if res.ID != "mine" || !res.OK {
		t.Fatalf("unexpected result %+v", res)
	}
	if ack.acked != 2 || ack.requeued != 0 {
		t.Fatalf("stray results must be acked, not requeued: %+v", *ack)
	}
}

func TestAwaitResultTimesOut(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := awaitResult(ctx, log.Discard(), make(chan amqp091.Delivery), "mine"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}

	closed := make(chan amqp091.Delivery)
	close(closed)
	if _, err := awaitResult(context.Background(), log.Discard(), closed, "mine"); err == nil {
		t.Fatal("expected error for a closed reply queue")
	}
}
