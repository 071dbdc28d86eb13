package server

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alfredjeanlab/pharmacy/internal/events"
)

func TestSSEHub_BroadcastAndReceive(t *testing.T) {
	hub := newSSEHub()

	client := hub.subscribe(nil) // all topics
	defer hub.unsubscribe(client)

	hub.broadcast("pharmacy.products.created", []byte(`{"id":"p1"}`))

	select {
	case evt := <-client.ch:
		if evt.Topic != "pharmacy.products.created" {
			t.Fatalf("expected topic=%q, got %q", "pharmacy.products.created", evt.Topic)
		}
		if string(evt.Data) != `{"id":"p1"}` {
			t.Fatalf("expected data=%q, got %q", `{"id":"p1"}`, string(evt.Data))
		}
		if evt.ID != 1 {
			t.Fatalf("expected id=1, got %d", evt.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestSSEHub_TopicFiltering(t *testing.T) {
	hub := newSSEHub()

	client := hub.subscribe([]string{"pharmacy.stock.*"})
	defer hub.unsubscribe(client)

	hub.broadcast("pharmacy.products.created", []byte(`{"id":"p1"}`))
	hub.broadcast("pharmacy.stock.moved", []byte(`{"quantity":-2}`))

	select {
	case evt := <-client.ch:
		if evt.Topic != "pharmacy.stock.moved" {
			t.Fatalf("expected topic=%q, got %q", "pharmacy.stock.moved", evt.Topic)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}

	select {
	case evt := <-client.ch:
		t.Fatalf("unexpected event: topic=%q", evt.Topic)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSSEHub_MultipleTopicFilters(t *testing.T) {
	hub := newSSEHub()

	client := hub.subscribe([]string{"pharmacy.stock.*", "pharmacy.invoice.*"})
	defer hub.unsubscribe(client)

	hub.broadcast("pharmacy.stock.low", []byte(`{}`))
	hub.broadcast("pharmacy.invoice.issued", []byte(`{}`))
	hub.broadcast("pharmacy.branches.updated", []byte(`{}`)) // filtered

	received := 0
	timeout := time.After(time.Second)
	for received < 2 {
		select {
		case <-client.ch:
			received++
		case <-timeout:
			t.Fatalf("expected 2 events, got %d", received)
		}
	}

	select {
	case <-client.ch:
		t.Fatal("unexpected third event")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSSEHub_Unsubscribe(t *testing.T) {
	hub := newSSEHub()

	client := hub.subscribe(nil)
	hub.unsubscribe(client)

	hub.broadcast("pharmacy.products.created", []byte(`{}`))

	select {
	case <-client.ch:
		t.Fatal("should not receive events after unsubscribe")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSSEHub_SlowClientDoesNotBlock(t *testing.T) {
	hub := newSSEHub()

	client := hub.subscribe(nil)
	defer hub.unsubscribe(client)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range sseClientBuffer * 2 {
			hub.broadcast("pharmacy.products.updated", []byte(`{}`))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a full client queue")
	}
	if len(client.ch) != sseClientBuffer {
		t.Fatalf("expected %d queued events, got %d", sseClientBuffer, len(client.ch))
	}
}

func TestSSEHub_EventsSince(t *testing.T) {
	hub := newSSEHub()

	for i := range 5 {
		hub.broadcast("pharmacy.products.created", []byte(`{"n":`+string(rune('0'+i))+`}`))
	}

	evts := hub.eventsSince(2)
	if len(evts) != 3 {
		t.Fatalf("expected 3 events, got %d", len(evts))
	}
	if evts[0].ID != 3 || evts[1].ID != 4 || evts[2].ID != 5 {
		t.Fatalf("expected IDs [3,4,5], got [%d,%d,%d]", evts[0].ID, evts[1].ID, evts[2].ID)
	}
}

func TestSSEHub_EventsSince_Empty(t *testing.T) {
	hub := newSSEHub()
	if evts := hub.eventsSince(0); len(evts) != 0 {
		t.Fatalf("expected 0 events, got %d", len(evts))
	}
}

func TestSSEHub_EventsSince_AllNew(t *testing.T) {
	hub := newSSEHub()
	hub.broadcast("pharmacy.products.created", []byte(`{}`))
	hub.broadcast("pharmacy.products.updated", []byte(`{}`))

	if evts := hub.eventsSince(0); len(evts) != 2 {
		t.Fatalf("expected 2 events, got %d", len(evts))
	}
}

func TestSSEHub_ReplayLogIsBounded(t *testing.T) {
	hub := newSSEHub()

	for range sseReplaySize + 100 {
		hub.broadcast("pharmacy.stock.moved", []byte(`{}`))
	}

	// The first 100 events have aged out.
	evts := hub.eventsSince(0)
	if len(evts) != sseReplaySize {
		t.Fatalf("expected %d events, got %d", sseReplaySize, len(evts))
	}
	if evts[0].ID != 101 {
		t.Fatalf("expected oldest event ID=101, got %d", evts[0].ID)
	}
}

func TestMatchTopicPattern(t *testing.T) {
	for _, tc := range []struct {
		pattern string
		topic   string
		want    bool
	}{
		{"pharmacy.products.created", "pharmacy.products.created", true},
		{"pharmacy.products.created", "pharmacy.products.updated", false},
		{"pharmacy.products.*", "pharmacy.products.created", true},
		{"pharmacy.products.*", "pharmacy.products.deleted", true},
		{"pharmacy.products.*", "pharmacy.stock.moved", false},
		{"pharmacy.>", "pharmacy.products.created", true},
		{"pharmacy.>", "pharmacy.stock.low", true},
		{"pharmacy.>", "pharmacy", false},
		{"pharmacy.>", "other.topic", false},
		{"*.*.*", "pharmacy.stock.moved", true},
		{"*.*.*", "pharmacy.stock", false},
		{"*.stock", "pharmacy.stock.moved", false},
	} {
		t.Run(tc.pattern+"_"+tc.topic, func(t *testing.T) {
			if got := matchTopicPattern(tc.pattern, tc.topic); got != tc.want {
				t.Fatalf("matchTopicPattern(%q, %q) = %v, want %v", tc.pattern, tc.topic, got, tc.want)
			}
		})
	}
}

// openStream starts GET path on the full handler as the admin and returns
// the recorder plus a stop func that ends the stream and waits for the
// handler to return.
func (e *testEnv) openStream(path, lastEventID string) (*httptest.ResponseRecorder, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("GET", path, nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer "+e.admin)
	if lastEventID != "" {
		req.Header.Set("Last-Event-ID", lastEventID)
	}
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		e.handler.ServeHTTP(rec, req)
	}()
	return rec, func() {
		cancel()
		<-done
	}
}

func TestHandleEventStream_SSE(t *testing.T) {
	e := newTestServer(t)
	rec, stop := e.openStream("/v1/events/stream", "")

	// Give the handler time to register the subscription.
	time.Sleep(50 * time.Millisecond)
	e.srv.sseHub.broadcast("pharmacy.products.created", []byte(`{"id":"sse1"}`))
	time.Sleep(50 * time.Millisecond)
	stop()

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("expected Content-Type=text/event-stream, got %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "event:pharmacy.products.created") {
		t.Fatalf("expected event:pharmacy.products.created in body, got:\n%s", body)
	}
	if !strings.Contains(body, `data:{"id":"sse1"}`) {
		t.Fatalf("expected data with sse1 in body, got:\n%s", body)
	}
}

func TestHandleEventStream_RequiresToken(t *testing.T) {
	e := newTestServer(t)
	rec := e.do(t, "GET", "/v1/events/stream", "", nil)
	if rec.Code != 401 {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHandleEventStream_TopicFilter(t *testing.T) {
	e := newTestServer(t)
	rec, stop := e.openStream("/v1/events/stream?topics=pharmacy.stock.*", "")

	time.Sleep(50 * time.Millisecond)
	e.srv.sseHub.broadcast("pharmacy.products.created", []byte(`{"id":"p1"}`))
	e.srv.sseHub.broadcast("pharmacy.stock.low", []byte(`{"quantity":3}`))
	time.Sleep(50 * time.Millisecond)
	stop()

	body := rec.Body.String()
	if strings.Contains(body, "pharmacy.products.created") {
		t.Fatalf("expected product event to be filtered out, got:\n%s", body)
	}
	if !strings.Contains(body, "pharmacy.stock.low") {
		t.Fatalf("expected stock event in body, got:\n%s", body)
	}
}

func TestHandleEventStream_LastEventID(t *testing.T) {
	e := newTestServer(t)

	e.srv.sseHub.broadcast("pharmacy.products.created", []byte(`{"n":1}`))
	e.srv.sseHub.broadcast("pharmacy.products.updated", []byte(`{"n":2}`))
	e.srv.sseHub.broadcast("pharmacy.products.deleted", []byte(`{"n":3}`))

	rec, stop := e.openStream("/v1/events/stream", "1")
	time.Sleep(50 * time.Millisecond)
	stop()

	body := rec.Body.String()
	if strings.Contains(body, `data:{"n":1}`) {
		t.Fatalf("expected event 1 to be skipped, got:\n%s", body)
	}
	if !strings.Contains(body, `data:{"n":2}`) || !strings.Contains(body, `data:{"n":3}`) {
		t.Fatalf("expected events 2 and 3 in body, got:\n%s", body)
	}
	if n := strings.Count(body, `data:{"n":3}`); n != 1 {
		t.Fatalf("expected event 3 once, got %d times", n)
	}
}

func TestHandleEventStream_RecordAndPublish(t *testing.T) {
	e := newTestServer(t)
	rec, stop := e.openStream("/v1/events/stream", "")

	time.Sleep(50 * time.Millisecond)
	e.srv.recordAndPublish(context.Background(), events.Topic("products", events.VerbCreated), "Product", "p-rp",
		events.EntityChanged{Entity: "Product", ID: "p-rp"})
	time.Sleep(50 * time.Millisecond)
	stop()

	body := rec.Body.String()
	if !strings.Contains(body, "event:pharmacy.products.created") {
		t.Fatalf("expected SSE event from recordAndPublish, got:\n%s", body)
	}
}

func TestHandleEventStream_MultipleClients(t *testing.T) {
	e := newTestServer(t)
	rec1, stop1 := e.openStream("/v1/events/stream", "")
	rec2, stop2 := e.openStream("/v1/events/stream", "")

	time.Sleep(50 * time.Millisecond)
	e.srv.sseHub.broadcast("pharmacy.invoice.issued", []byte(`{"id":"multi"}`))
	time.Sleep(50 * time.Millisecond)
	stop1()
	stop2()

	for i, rec := range []*httptest.ResponseRecorder{rec1, rec2} {
		if body := rec.Body.String(); !strings.Contains(body, "pharmacy.invoice.issued") {
			t.Fatalf("client %d: expected invoice event, got:\n%s", i+1, body)
		}
	}
}

func TestSSEEventFormat(t *testing.T) {
	e := newTestServer(t)
	rec, stop := e.openStream("/v1/events/stream", "")

	time.Sleep(50 * time.Millisecond)
	e.srv.sseHub.broadcast("pharmacy.products.created", []byte(`{"id":"fmt"}`))
	time.Sleep(50 * time.Millisecond)
	stop()

	scanner := bufio.NewScanner(strings.NewReader(rec.Body.String()))
	var id, event, data string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "id:"):
			id = strings.TrimPrefix(line, "id:")
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimPrefix(line, "event:")
		case strings.HasPrefix(line, "data:"):
			data = strings.TrimPrefix(line, "data:")
		}
	}

	if id == "" {
		t.Fatal("expected non-empty id field")
	}
	if event != "pharmacy.products.created" {
		t.Fatalf("expected event=pharmacy.products.created, got %q", event)
	}
	if !json.Valid([]byte(data)) || data != `{"id":"fmt"}` {
		t.Fatalf("expected data=%q, got %q", `{"id":"fmt"}`, data)
	}
}
