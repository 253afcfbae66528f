package store

import (
	"context"
	"sync"
	"testing"

	"github.com/dukerupert/pantry/internal/database"
)

func setupIngredientTestDB(t *testing.T) (*IngredientStore, int64) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	us := NewUserStore(db)
	hs := NewHouseholdStore(db)
	owner := createUser(t, us, "owner@example.com")
	h, err := hs.CreateWithMembers(context.Background(), "Home", "k", owner, nil)
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	return NewIngredientStore(db), h.ID
}

func TestIngredientAdd(t *testing.T) {
	is, hh := setupIngredientTestDB(t)
	ctx := context.Background()

	entry, created, snapshot, err := is.Add(ctx, hh, "Tomato", "tomato")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !created {
		t.Error("expected created")
	}
	if entry.Name != "Tomato" || entry.NormalizedKey != "tomato" {
		t.Errorf("entry = %+v", entry)
	}
	if len(snapshot) != 1 || snapshot[0] != "Tomato" {
		t.Errorf("snapshot = %v, want [Tomato]", snapshot)
	}
}

func TestIngredientAddExistingKeyIsNoOp(t *testing.T) {
	is, hh := setupIngredientTestDB(t)
	ctx := context.Background()

	first, _, _, err := is.Add(ctx, hh, "Tomato", "tomato")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	again, created, snapshot, err := is.Add(ctx, hh, " tomato ", "tomato")
	if err != nil {
		t.Fatalf("add again: %v", err)
	}
	if created {
		t.Error("expected no-op for existing key")
	}
	if snapshot != nil {
		t.Errorf("snapshot = %v, want nil on no-op", snapshot)
	}
	if again.ID != first.ID || again.Name != "Tomato" {
		t.Errorf("got %+v, want the existing entry", again)
	}
}

func TestIngredientConcurrentAdds(t *testing.T) {
	is, hh := setupIngredientTestDB(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	createdCount := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, created, _, err := is.Add(ctx, hh, "Basil", "basil")
			if err != nil {
				t.Errorf("add: %v", err)
				return
			}
			if created {
				mu.Lock()
				createdCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if createdCount != 1 {
		t.Errorf("created %d times, want 1", createdCount)
	}
	entries, err := is.List(ctx, hh)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected 1 entry, got %d", len(entries))
	}
}

func TestIngredientRemove(t *testing.T) {
	is, hh := setupIngredientTestDB(t)
	ctx := context.Background()

	is.Add(ctx, hh, "Tomato", "tomato")
	is.Add(ctx, hh, "Onion", "onion")

	removed, snapshot, err := is.Remove(ctx, hh, "tomato")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !removed {
		t.Error("expected removed")
	}
	if len(snapshot) != 1 || snapshot[0] != "Onion" {
		t.Errorf("snapshot = %v, want [Onion]", snapshot)
	}

	removed, snapshot, err = is.Remove(ctx, hh, "tomato")
	if err != nil {
		t.Fatalf("remove missing: %v", err)
	}
	if removed {
		t.Error("expected removed=false for missing key")
	}
	if snapshot != nil {
		t.Errorf("snapshot = %v, want nil", snapshot)
	}
}

func TestIngredientNamesInsertionOrder(t *testing.T) {
	is, hh := setupIngredientTestDB(t)
	ctx := context.Background()

	for _, n := range []string{"Zucchini", "Apple", "Milk"} {
		if _, _, _, err := is.Add(ctx, hh, n, n); err != nil {
			t.Fatalf("add %s: %v", n, err)
		}
	}
	names, err := is.Names(ctx, hh)
	if err != nil {
		t.Fatalf("names: %v", err)
	}
	want := []string{"Zucchini", "Apple", "Milk"}
	if len(names) != len(want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestIngredientsScopedPerHousehold(t *testing.T) {
	is, hh := setupIngredientTestDB(t)
	ctx := context.Background()

	is.Add(ctx, hh, "Tomato", "tomato")
	names, err := is.Names(ctx, hh+1)
	if err != nil {
		t.Fatalf("names: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("names = %v, want empty for other household", names)
	}
}
