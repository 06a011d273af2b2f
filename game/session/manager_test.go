package session

import (
	"testing"

	"github.com/memorymatch/server/game/engine"
)

func testSession(gameID string) *engine.Session {
	e := engine.New(engine.DefaultRules())
	return e.NewSession(gameID,
		engine.Identity{ID: 1, Name: "Alice"}, "conn-a",
		engine.Identity{ID: 2, Name: "Bob"}, "conn-b")
}

func TestManager_PutGet(t *testing.T) {
	m := NewManager()
	s := testSession("g1")

	if err := m.Put(s); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, err := m.Get("g1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != s {
		t.Error("Get returned a different session")
	}

	if err := m.Put(testSession("g1")); err != ErrAlreadyExists {
		t.Errorf("duplicate Put = %v, want ErrAlreadyExists", err)
	}
	if _, err := m.Get("missing"); err != ErrNotFound {
		t.Errorf("Get(missing) = %v, want ErrNotFound", err)
	}
}

func TestManager_DeleteBumpsGeneration(t *testing.T) {
	m := NewManager()
	s := testSession("g1")
	m.Put(s)

	gen := s.Generation
	if err := m.Delete("g1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if s.Generation != gen+1 {
		t.Errorf("generation = %d, want %d", s.Generation, gen+1)
	}
	if _, err := m.Get("g1"); err != ErrNotFound {
		t.Error("session still retrievable after delete")
	}
	if err := m.Delete("g1"); err != ErrNotFound {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
}

func TestManager_ForConn(t *testing.T) {
	m := NewManager()
	m.Put(testSession("g1"))
	m.Put(testSession("g2"))

	e := engine.New(engine.DefaultRules())
	other := e.NewSession("g3",
		engine.Identity{ID: 3, Name: "Carol"}, "conn-c",
		engine.Identity{ID: 4, Name: "Dave"}, "conn-d")
	m.Put(other)

	got := m.ForConn("conn-a")
	if len(got) != 2 {
		t.Fatalf("ForConn(conn-a) returned %d sessions, want 2", len(got))
	}
	for _, s := range got {
		if s.SeatOf("conn-a") == 0 {
			t.Errorf("session %s does not seat conn-a", s.GameID)
		}
	}
	if got := m.ForConn("conn-x"); len(got) != 0 {
		t.Errorf("ForConn(conn-x) returned %d sessions, want 0", len(got))
	}
}

func TestManager_ListCount(t *testing.T) {
	m := NewManager()
	if m.Count() != 0 || len(m.List()) != 0 {
		t.Error("new manager not empty")
	}
	m.Put(testSession("g1"))
	m.Put(testSession("g2"))
	if m.Count() != 2 || len(m.List()) != 2 {
		t.Errorf("count = %d, list = %d, want 2", m.Count(), len(m.List()))
	}
}
