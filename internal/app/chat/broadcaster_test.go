package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"roomrelay/internal/app/registry"
)

type stallLog struct {
	mu  sync.Mutex
	ids []string
}

func (l *stallLog) handle(connID string, _ error) {
	l.mu.Lock()
	l.ids = append(l.ids, connID)
	l.mu.Unlock()
}

func (l *stallLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.ids...)
}

func newTestBroadcaster(t *testing.T, members map[string][2]string) (*Broadcaster, map[string]*fakeConn, *stallLog) {
	t.Helper()

	reg := registry.New()
	stalls := &stallLog{}
	b := NewBroadcaster(reg, 30*time.Millisecond, stalls.handle)

	conns := make(map[string]*fakeConn, len(members))
	for id, nr := range members {
		if _, err := reg.AddUser(id, nr[0], nr[1]); err != nil {
			t.Fatalf("add %s: %v", id, err)
		}
		c := newFakeConn(id)
		b.Attach(c)
		conns[id] = c
	}
	return b, conns, stalls
}

func TestBroadcastToRoomTargetsRoomMembers(t *testing.T) {
	b, conns, _ := newTestBroadcaster(t, map[string][2]string{
		"a": {"Alice", "lobby"},
		"b": {"Bob", "lobby"},
		"c": {"Carol", "kitchen"},
	})

	n, err := b.BroadcastToRoom(context.Background(), "lobby", EventMessage, MessagePayload{User: "x", Text: "hi"}, "")
	if err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 deliveries, got %d", n)
	}
	if conns["a"].count(t, EventMessage) != 1 || conns["b"].count(t, EventMessage) != 1 {
		t.Error("lobby members should each get one frame")
	}
	if conns["c"].count(t, EventMessage) != 0 {
		t.Error("kitchen member should get nothing")
	}
}

func TestBroadcastToRoomExcludes(t *testing.T) {
	b, conns, _ := newTestBroadcaster(t, map[string][2]string{
		"a": {"Alice", "lobby"},
		"b": {"Bob", "lobby"},
	})

	n, err := b.BroadcastToRoom(context.Background(), "lobby", EventMessage, MessagePayload{Text: "hi"}, "a")
	if err != nil || n != 1 {
		t.Fatalf("expected 1 delivery, got %d (%v)", n, err)
	}
	if conns["a"].count(t, EventMessage) != 0 {
		t.Error("excluded connection received the frame")
	}
}

func TestBroadcastToEmptyRoom(t *testing.T) {
	b, _, _ := newTestBroadcaster(t, nil)

	n, err := b.BroadcastToRoom(context.Background(), "nowhere", EventMessage, MessagePayload{}, "")
	if err != nil || n != 0 {
		t.Fatalf("expected no deliveries, got %d (%v)", n, err)
	}
}

func TestBroadcastToRoomReportsStalledMember(t *testing.T) {
	b, conns, stalls := newTestBroadcaster(t, map[string][2]string{
		"a": {"Alice", "lobby"},
		"b": {"Bob", "lobby"},
		"c": {"Carol", "lobby"},
	})
	conns["b"].stall()

	start := time.Now()
	n, err := b.BroadcastToRoom(context.Background(), "lobby", EventMessage, MessagePayload{Text: "hi"}, "")
	if err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 deliveries, got %d", n)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("stalled member held up the room for %v", elapsed)
	}

	eventually(t, "stall report", func() bool {
		ids := stalls.snapshot()
		return len(ids) == 1 && ids[0] == "b"
	})
}

func TestBroadcastSkipsDetachedConnections(t *testing.T) {
	b, conns, stalls := newTestBroadcaster(t, map[string][2]string{
		"a": {"Alice", "lobby"},
		"b": {"Bob", "lobby"},
	})
	b.Detach("b")

	n, _ := b.BroadcastToRoom(context.Background(), "lobby", EventMessage, MessagePayload{Text: "hi"}, "")
	if n != 1 {
		t.Fatalf("expected 1 delivery, got %d", n)
	}
	if conns["b"].count(t, EventMessage) != 0 {
		t.Error("detached connection received the frame")
	}
	if len(stalls.snapshot()) != 0 {
		t.Error("detached connection should not be reported as stalled")
	}
}

func TestBroadcastEncodeFailure(t *testing.T) {
	b, conns, _ := newTestBroadcaster(t, map[string][2]string{"a": {"Alice", "lobby"}})

	_, err := b.BroadcastToRoom(context.Background(), "lobby", EventMessage, make(chan int), "")
	if err == nil {
		t.Fatal("expected encode error")
	}
	if len(conns["a"].frames(t)) != 0 {
		t.Error("nothing should be delivered")
	}
}

func TestSendToUnknownConnection(t *testing.T) {
	b, _, stalls := newTestBroadcaster(t, nil)

	err := b.SendTo(context.Background(), "ghost", EventMessage, MessagePayload{})
	if !errors.Is(err, ErrConnClosed) {
		t.Fatalf("expected ErrConnClosed, got %v", err)
	}
	if len(stalls.snapshot()) != 0 {
		t.Error("unknown connection should not be reported as stalled")
	}
}

func TestStalledMemberIsDroppedFromRoom(t *testing.T) {
	h := newTestHub(t, Options{})
	alice, aliceConn := joined(t, h, "a", "Alice", "lobby")
	bob, bobConn := joined(t, h, "b", "Bob", "lobby")
	_, carolConn := joined(t, h, "c", "Carol", "lobby")
	aliceConn.reset()
	carolConn.reset()
	bobConn.stall()

	if err := alice.SendMessage(context.Background(), "anyone there?"); err != nil {
		t.Fatalf("send: %v", err)
	}

	for _, c := range []*fakeConn{aliceConn, carolConn} {
		msgs := c.messages(t)
		if len(msgs) == 0 || msgs[0].Text != "anyone there?" {
			t.Fatalf("%s: expected the message despite the stalled member, got %+v", c.id, msgs)
		}
	}

	eventually(t, "Bob dropped", func() bool {
		return bob.State() == StateClosed && bobConn.isClosed()
	})
	if _, ok := h.Registry().GetUser("b"); ok {
		t.Fatal("Bob should be removed from the registry")
	}

	eventually(t, "left notice", func() bool {
		for _, m := range aliceConn.messages(t) {
			if m.Text == "Bob has left." {
				return true
			}
		}
		return false
	})
}
