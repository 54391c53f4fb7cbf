package chat

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"roomrelay/internal/app/history"
)

type testFrame struct {
	Event string          `json:"event"`
	Ack   string          `json:"ack"`
	Data  json.RawMessage `json:"data"`
}

// fakeConn records every frame it is sent. A blocking fakeConn never accepts a frame
// and waits for the delivery deadline instead.
type fakeConn struct {
	id string

	mu     sync.Mutex
	block  bool
	raw    [][]byte
	closed bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id}
}

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) Send(ctx context.Context, frame []byte) error {
	f.mu.Lock()
	blocking := f.block
	f.mu.Unlock()

	if blocking {
		<-ctx.Done()
		return ctx.Err()
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrConnClosed
	}
	f.raw = append(f.raw, append([]byte(nil), frame...))
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) stall() {
	f.mu.Lock()
	f.block = true
	f.mu.Unlock()
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeConn) frames(t *testing.T) []testFrame {
	t.Helper()

	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]testFrame, 0, len(f.raw))
	for _, raw := range f.raw {
		var fr testFrame
		if err := json.Unmarshal(raw, &fr); err != nil {
			t.Fatalf("decode frame %s: %v", raw, err)
		}
		out = append(out, fr)
	}
	return out
}

func (f *fakeConn) reset() {
	f.mu.Lock()
	f.raw = nil
	f.mu.Unlock()
}

func (f *fakeConn) messages(t *testing.T) []MessagePayload {
	t.Helper()

	var out []MessagePayload
	for _, fr := range f.frames(t) {
		if fr.Event != EventMessage {
			continue
		}
		var m MessagePayload
		if err := json.Unmarshal(fr.Data, &m); err != nil {
			t.Fatalf("decode message payload: %v", err)
		}
		out = append(out, m)
	}
	return out
}

func (f *fakeConn) rosters(t *testing.T) []RoomDataPayload {
	t.Helper()

	var out []RoomDataPayload
	for _, fr := range f.frames(t) {
		if fr.Event != EventRoomData {
			continue
		}
		var r RoomDataPayload
		if err := json.Unmarshal(fr.Data, &r); err != nil {
			t.Fatalf("decode roster payload: %v", err)
		}
		out = append(out, r)
	}
	return out
}

func (f *fakeConn) count(t *testing.T, event string) int {
	t.Helper()

	n := 0
	for _, fr := range f.frames(t) {
		if fr.Event == event {
			n++
		}
	}
	return n
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []history.Record
}

func (r *fakeRecorder) Record(rec history.Record) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return true
}

func (r *fakeRecorder) snapshot() []history.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]history.Record(nil), r.records...)
}

var fixedNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func newTestHub(t *testing.T, opts Options) *Hub {
	t.Helper()

	if opts.DeliveryTimeout == 0 {
		opts.DeliveryTimeout = 50 * time.Millisecond
	}
	if opts.MessageBurst == 0 {
		opts.MessageBurst = 100
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return fixedNow }
	}

	h := NewHub(opts)
	t.Cleanup(func() {
		_ = h.Shutdown(context.Background())
	})
	return h
}

func attach(t *testing.T, h *Hub, id string) (*Session, *fakeConn) {
	t.Helper()

	conn := newFakeConn(id)
	s, err := h.Attach(conn)
	if err != nil {
		t.Fatalf("attach %s: %v", id, err)
	}
	return s, conn
}

func joined(t *testing.T, h *Hub, id, name, room string) (*Session, *fakeConn) {
	t.Helper()

	s, conn := attach(t, h, id)
	if err := s.Join(context.Background(), name, room); err != nil {
		t.Fatalf("join %s as %s in %s: %v", id, name, room, err)
	}
	return s, conn
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
