package roster

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"

	"github.com/dukerupert/pantry/internal/apperr"
	"github.com/dukerupert/pantry/internal/database"
	"github.com/dukerupert/pantry/internal/store"
)

type event struct {
	householdID int64
	snapshot    []string
}

type recordingListener struct {
	mu     sync.Mutex
	events []event
}

func (l *recordingListener) RosterChanged(householdID int64, snapshot []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event{householdID, snapshot})
}

func (l *recordingListener) all() []event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]event(nil), l.events...)
}

func newTestRoster(t *testing.T) (*Roster, *recordingListener, int64) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	u, err := store.NewUserStore(db).Create(ctx, "owner@example.com", "hash")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	h, err := store.NewHouseholdStore(db).CreateWithMembers(ctx, "Home", "k", u.ID, nil)
	if err != nil {
		t.Fatalf("create household: %v", err)
	}

	l := &recordingListener{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store.NewIngredientStore(db), l, logger), l, h.ID
}

func add(t *testing.T, r *Roster, hh int64, name string) bool {
	t.Helper()
	_, created, err := r.Add(context.Background(), hh, name)
	if err != nil {
		t.Fatalf("Add(%q): %v", name, err)
	}
	return created
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Tomato", "tomato"},
		{"  tomato ", "tomato"},
		{"Green   Bell\tPepper", "green bell pepper"},
		{"Cafe\u0301", "caf\u00e9"},
		{"Café", "café"},
		{"   ", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestClean(t *testing.T) {
	if got := Clean("  Green  Bell   Pepper "); got != "Green Bell Pepper" {
		t.Errorf("Clean = %q", got)
	}
	if got := Clean("Café"); got != "Café" {
		t.Errorf("Clean = %q", got)
	}
}

func TestAddIsIdempotent(t *testing.T) {
	r, l, hh := newTestRoster(t)
	ctx := context.Background()

	first, created, err := r.Add(ctx, hh, "Tomato")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !created {
		t.Error("first add: created = false")
	}
	if first.NormalizedKey != "tomato" {
		t.Errorf("NormalizedKey = %q, want tomato", first.NormalizedKey)
	}

	again, created, err := r.Add(ctx, hh, "Tomato")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if created || again.ID != first.ID {
		t.Errorf("repeat add: created=%v id=%d, want false and %d", created, again.ID, first.ID)
	}

	if add(t, r, hh, " tomato ") {
		t.Error("spaced variant created a second entry")
	}

	names, err := r.List(ctx, hh)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !slices.Equal(names, []string{"Tomato"}) {
		t.Errorf("List = %v, want [Tomato]", names)
	}

	events := l.all()
	if len(events) != 1 {
		t.Fatalf("got %d notifications, want 1 (no-op adds must not notify)", len(events))
	}
	if !slices.Equal(events[0].snapshot, []string{"Tomato"}) {
		t.Errorf("snapshot = %v, want [Tomato]", events[0].snapshot)
	}
}

func TestAddRejectsBlank(t *testing.T) {
	r, l, hh := newTestRoster(t)

	_, _, err := r.Add(context.Background(), hh, "  \t ")
	if got := apperr.CodeOf(err); got != apperr.CodeInvalidArgument {
		t.Errorf("code = %s, want INVALID_ARGUMENT", got)
	}
	if n := len(l.all()); n != 0 {
		t.Errorf("got %d notifications, want 0", n)
	}
}

func TestRemoveRoundTrip(t *testing.T) {
	r, l, hh := newTestRoster(t)
	ctx := context.Background()

	for _, n := range []string{"Tomato", "Onion", "Garlic"} {
		add(t, r, hh, n)
	}

	removed, err := r.Remove(ctx, hh, "ONION")
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !removed {
		t.Error("Remove(ONION) = false, want true")
	}

	names, err := r.List(ctx, hh)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !slices.Equal(names, []string{"Tomato", "Garlic"}) {
		t.Errorf("List = %v, want [Tomato Garlic]", names)
	}

	removed, err = r.Remove(ctx, hh, "onion")
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if removed {
		t.Error("second Remove(onion) = true, want false")
	}

	events := l.all()
	if len(events) != 4 {
		t.Fatalf("got %d notifications, want 4", len(events))
	}
	if !slices.Equal(events[3].snapshot, []string{"Tomato", "Garlic"}) {
		t.Errorf("last snapshot = %v", events[3].snapshot)
	}
}

func TestRemoveLastLeavesEmptySnapshot(t *testing.T) {
	r, l, hh := newTestRoster(t)

	add(t, r, hh, "Tomato")
	if _, err := r.Remove(context.Background(), hh, "tomato"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	events := l.all()
	if len(events) != 2 {
		t.Fatalf("got %d notifications, want 2", len(events))
	}
	if events[1].snapshot == nil || len(events[1].snapshot) != 0 {
		t.Errorf("snapshot = %#v, want empty non-nil slice", events[1].snapshot)
	}
}

func TestConcurrentAddsProduceOneEntry(t *testing.T) {
	r, l, hh := newTestRoster(t)
	ctx := context.Background()

	variants := []string{"Basil", "basil", " BASIL ", "Basil", "bAsIl"}
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			if _, _, err := r.Add(ctx, hh, name); err != nil {
				t.Errorf("Add(%q): %v", name, err)
			}
		}(variants[i%len(variants)])
	}
	wg.Wait()

	entries, err := r.Entries(ctx, hh)
	if err != nil {
		t.Fatalf("Entries: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("got %d entries, want 1", len(entries))
	}
	if n := len(l.all()); n != 1 {
		t.Errorf("got %d notifications, want 1", n)
	}
}

func TestNotificationsFollowCommitOrder(t *testing.T) {
	r, l, hh := newTestRoster(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for _, n := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			if _, _, err := r.Add(ctx, hh, name); err != nil {
				t.Errorf("Add(%q): %v", name, err)
			}
		}(n)
	}
	wg.Wait()

	events := l.all()
	if len(events) != 8 {
		t.Fatalf("got %d notifications, want 8", len(events))
	}
	for i, e := range events {
		if len(e.snapshot) != i+1 {
			t.Errorf("event %d: snapshot has %d names, want %d", i, len(e.snapshot), i+1)
		}
	}
}
