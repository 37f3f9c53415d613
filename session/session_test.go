package session

import (
	"net"
	"testing"

	"github.com/dareroom/gameserver/network"
)

// MockConnection is a test double for the network.Connection interface.
type MockConnection struct {
	sent   []*network.Event
	closed bool
}

func (m *MockConnection) SendEvent(event *network.Event) error {
	m.sent = append(m.sent, event)
	return nil
}

func (m *MockConnection) Close() error {
	m.closed = true
	return nil
}

func (m *MockConnection) RemoteAddr() net.Addr { return &net.TCPAddr{} }

func TestNewManager(t *testing.T) {
	manager := NewManager()
	if manager == nil {
		t.Fatal("NewManager should not return nil")
	}
	if manager.sessions == nil {
		t.Fatal("NewManager should initialize the sessions map")
	}
}

func TestManager_Add_Get_Remove(t *testing.T) {
	manager := NewManager()
	sess := NewSession("sub1", "room1", &MockConnection{})

	// Test Add
	manager.Add(sess)
	if manager.Count() != 1 {
		t.Fatalf("Expected session count to be 1, got %d", manager.Count())
	}

	// Test Get
	retrieved, exists := manager.Get("sub1")
	if !exists {
		t.Fatal("Get should find the added session")
	}
	if retrieved != sess {
		t.Fatal("Get should return the same session instance")
	}

	// Test Remove
	manager.Remove("sub1")
	if manager.Count() != 0 {
		t.Fatalf("Expected session count to be 0 after removal, got %d", manager.Count())
	}
	if _, exists = manager.Get("sub1"); exists {
		t.Fatal("Get should not find the removed session")
	}
}

func TestManager_GetByRoom(t *testing.T) {
	manager := NewManager()
	manager.Add(NewSession("sub1", "room1", &MockConnection{}))
	manager.Add(NewSession("sub2", "room2", &MockConnection{}))
	manager.Add(NewSession("sub3", "room1", &MockConnection{}))

	if got := manager.GetByRoom("room1"); len(got) != 2 {
		t.Errorf("Expected 2 subscribers for room1, got %d", len(got))
	}
	if got := manager.GetByRoom("room2"); len(got) != 1 {
		t.Errorf("Expected 1 subscriber for room2, got %d", len(got))
	}
	if got := manager.GetByRoom("room3"); len(got) != 0 {
		t.Errorf("Expected 0 subscribers for room3, got %d", len(got))
	}
}

func TestSession_Send(t *testing.T) {
	conn := &MockConnection{}
	sess := NewSession("sub1", "room1", conn)

	event := &network.Event{RoomID: "room1", Name: "round_created"}
	if err := sess.Send(event); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if len(conn.sent) != 1 || conn.sent[0] != event {
		t.Fatal("Send should pass the event to the connection")
	}

	sess.Close()
	if !conn.closed {
		t.Fatal("Close should close the underlying connection")
	}
}
