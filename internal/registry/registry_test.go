package registry

import (
	"sync"
	"testing"
)

type presenceRecorder struct {
	mu          sync.Mutex
	transitions map[int64][]PresenceStatus
}

func newPresenceRecorder() *presenceRecorder {
	return &presenceRecorder{transitions: make(map[int64][]PresenceStatus)}
}

func (p *presenceRecorder) SetPresence(userID int64, status PresenceStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transitions[userID] = append(p.transitions[userID], status)
}

func (p *presenceRecorder) last(userID int64) (PresenceStatus, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t := p.transitions[userID]
	if len(t) == 0 {
		return PresenceOffline, false
	}
	return t[len(t)-1], true
}

func TestAddAndRemoveTracksMultiTab(t *testing.T) {
	r := New()
	if _, err := r.Add("c1", 7, "ada", "/a.webp"); err != nil {
		t.Fatalf("add c1: %v", err)
	}
	if _, err := r.Add("c2", 7, "ada", "/a.webp"); err != nil {
		t.Fatalf("add c2: %v", err)
	}

	if conns := r.ConnsOf(7); len(conns) != 2 {
		t.Fatalf("expected 2 connections, got %d", len(conns))
	}
	r.Remove("c1")
	if !r.Online(7) {
		t.Fatal("user should stay online while one tab remains")
	}
	r.Remove("c2")
	if r.Online(7) {
		t.Fatal("user should be offline after last tab closes")
	}
}

func TestPresenceTransitions(t *testing.T) {
	presence := newPresenceRecorder()
	r := New(WithPresence(presence))

	r.Add("c1", 7, "ada", "")
	if got, ok := presence.last(7); !ok || got != PresenceOnline {
		t.Fatalf("first connection should report Online, got %v", got)
	}
	r.Add("c2", 7, "ada", "")
	if got := len(presence.transitions[7]); got != 1 {
		t.Fatalf("second tab must not re-report Online: %d transitions", got)
	}
	r.MarkInGame(7)
	if got, _ := presence.last(7); got != PresenceInGame {
		t.Fatalf("expected InGame, got %v", got)
	}
	r.Remove("c1")
	if got, _ := presence.last(7); got == PresenceOffline {
		t.Fatal("offline must wait for the last connection")
	}
	r.Remove("c2")
	if got, _ := presence.last(7); got != PresenceOffline {
		t.Fatalf("expected Offline after last removal, got %v", got)
	}
}

func TestCapacityLimit(t *testing.T) {
	r := New(WithMaxConnections(1))
	if _, err := r.Add("c1", 1, "a", ""); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := r.Add("c2", 2, "b", ""); err != ErrFull {
		t.Fatalf("expected ErrFull, got %v", err)
	}
	r.Remove("c1")
	if _, err := r.Add("c2", 2, "b", ""); err != nil {
		t.Fatalf("add after free slot: %v", err)
	}
}

func TestLookupsReturnSnapshots(t *testing.T) {
	r := New()
	r.Add("c1", 7, "old", "/old.webp")

	fromGet, _ := r.Get("c1")
	fromUserInfo, _ := r.UserInfo(7)
	r.UpdateDisplayInfo(7, "new", "/new.webp")

	if fromGet.Username != "old" || fromUserInfo.Username != "old" {
		t.Fatalf("snapshots must not track later edits: get=%q info=%q",
			fromGet.Username, fromUserInfo.Username)
	}
	if current, _ := r.Get("c1"); current.Username != "new" {
		t.Fatalf("live entry not updated: %+v", current)
	}
}

func TestConcurrentProfileEditsAndLookups(t *testing.T) {
	r := New()
	r.Add("c1", 7, "ada", "/a.webp")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			r.UpdateDisplayInfo(7, "ada", "/a.webp")
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			if user, ok := r.UserInfo(7); ok {
				_ = user.Username
				_ = user.Avatar
			}
		}
	}()
	wg.Wait()
}

func TestUpdateDisplayInfoTouchesAllTabs(t *testing.T) {
	r := New()
	r.Add("c1", 7, "old", "/old.webp")
	r.Add("c2", 7, "old", "/old.webp")

	r.UpdateDisplayInfo(7, "new", "/new.webp")

	for _, connID := range []string{"c1", "c2"} {
		user, ok := r.Get(connID)
		if !ok {
			t.Fatalf("connection %s missing", connID)
		}
		if user.Username != "new" || user.Avatar != "/new.webp" {
			t.Fatalf("entry %s not updated: %+v", connID, user)
		}
	}
}
