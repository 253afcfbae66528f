package store

import (
	"context"
	"errors"
	"testing"

	"github.com/dukerupert/pantry/internal/database"
	"github.com/dukerupert/pantry/internal/model"
)

func setupHouseholdTestDB(t *testing.T) (*HouseholdStore, *UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewHouseholdStore(db), NewUserStore(db)
}

func createUser(t *testing.T, us *UserStore, email string) int64 {
	t.Helper()
	u, err := us.Create(context.Background(), email, "hash")
	if err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u.ID
}

func TestHouseholdCreateWithMembers(t *testing.T) {
	hs, us := setupHouseholdTestDB(t)
	ctx := context.Background()

	owner := createUser(t, us, "owner@example.com")
	bob := createUser(t, us, "bob@example.com")
	carol := createUser(t, us, "carol@example.com")

	h, err := hs.CreateWithMembers(ctx, "Flat 3", "key-1", owner, []int64{bob, carol, bob, owner})
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	if h.Name != "Flat 3" {
		t.Errorf("name = %q, want %q", h.Name, "Flat 3")
	}
	if h.ID == 0 {
		t.Error("expected non-zero ID")
	}

	members, err := hs.ListMembers(ctx, h.ID)
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if len(members) != 3 {
		t.Fatalf("expected 3 members, got %d", len(members))
	}
	if members[0].UserID != owner || members[0].Role != model.RoleOwner {
		t.Errorf("members[0] = %+v, want owner", members[0])
	}
	if members[1].UserID != bob || members[1].Role != model.RoleMember {
		t.Errorf("members[1] = %+v, want bob as member", members[1])
	}
	if members[2].Email != "carol@example.com" {
		t.Errorf("members[2].Email = %q, want carol", members[2].Email)
	}
}

func TestHouseholdCreateDuplicateKey(t *testing.T) {
	hs, us := setupHouseholdTestDB(t)
	ctx := context.Background()
	owner := createUser(t, us, "owner@example.com")

	if _, err := hs.CreateWithMembers(ctx, "Home", "same-key", owner, nil); err != nil {
		t.Fatalf("create household: %v", err)
	}
	_, err := hs.CreateWithMembers(ctx, "Home", "same-key", owner, nil)
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}

	households, err := hs.ListHouseholdsForUser(ctx, owner)
	if err != nil {
		t.Fatalf("list households: %v", err)
	}
	if len(households) != 1 {
		t.Errorf("expected 1 household, got %d", len(households))
	}
}

func TestHouseholdGetByIDNotFound(t *testing.T) {
	hs, _ := setupHouseholdTestDB(t)

	h, err := hs.GetByID(context.Background(), 999)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if h != nil {
		t.Error("expected nil for nonexistent household")
	}
}

func TestListHouseholdsForUser(t *testing.T) {
	hs, us := setupHouseholdTestDB(t)
	ctx := context.Background()

	alice := createUser(t, us, "alice@example.com")
	bob := createUser(t, us, "bob@example.com")

	if _, err := hs.CreateWithMembers(ctx, "Zeta", "k1", alice, nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := hs.CreateWithMembers(ctx, "Alpha", "k2", bob, []int64{alice}); err != nil {
		t.Fatalf("create: %v", err)
	}

	households, err := hs.ListHouseholdsForUser(ctx, alice)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(households) != 2 {
		t.Fatalf("expected 2 households, got %d", len(households))
	}
	if households[0].Name != "Alpha" || households[1].Name != "Zeta" {
		t.Errorf("got %v, want sorted by name", households)
	}

	households, err = hs.ListHouseholdsForUser(ctx, 999)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(households) != 0 {
		t.Errorf("expected no households, got %d", len(households))
	}
}

func TestMembershipTxSetRole(t *testing.T) {
	hs, us := setupHouseholdTestDB(t)
	ctx := context.Background()
	owner := createUser(t, us, "owner@example.com")
	bob := createUser(t, us, "bob@example.com")
	h, _ := hs.CreateWithMembers(ctx, "Home", "k", owner, []int64{bob})

	err := hs.Tx(ctx, func(tx *MembershipTx) error {
		return tx.SetRole(ctx, h.ID, bob, model.RoleMember, model.RoleAdmin)
	})
	if err != nil {
		t.Fatalf("set role: %v", err)
	}
	m, _ := hs.GetMember(ctx, h.ID, bob)
	if m.Role != model.RoleAdmin {
		t.Errorf("role = %q, want admin", m.Role)
	}

	// Stale expected role matches no row.
	err = hs.Tx(ctx, func(tx *MembershipTx) error {
		return tx.SetRole(ctx, h.ID, bob, model.RoleMember, model.RoleAdmin)
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestMembershipTxRollback(t *testing.T) {
	hs, us := setupHouseholdTestDB(t)
	ctx := context.Background()
	owner := createUser(t, us, "owner@example.com")
	bob := createUser(t, us, "bob@example.com")
	carol := createUser(t, us, "carol@example.com")
	h, _ := hs.CreateWithMembers(ctx, "Home", "k", owner, []int64{bob})

	boom := errors.New("boom")
	err := hs.Tx(ctx, func(tx *MembershipTx) error {
		if err := tx.SetRole(ctx, h.ID, bob, model.RoleMember, model.RoleAdmin); err != nil {
			return err
		}
		if err := tx.AddMember(ctx, h.ID, carol, model.RoleMember); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	members, _ := hs.ListMembers(ctx, h.ID)
	if len(members) != 2 {
		t.Fatalf("expected 2 members after rollback, got %d", len(members))
	}
	if members[1].Role != model.RoleMember {
		t.Errorf("bob role = %q, want member after rollback", members[1].Role)
	}
}

func TestMembershipTxAddMemberDuplicate(t *testing.T) {
	hs, us := setupHouseholdTestDB(t)
	ctx := context.Background()
	owner := createUser(t, us, "owner@example.com")
	bob := createUser(t, us, "bob@example.com")
	h, _ := hs.CreateWithMembers(ctx, "Home", "k", owner, []int64{bob})

	err := hs.Tx(ctx, func(tx *MembershipTx) error {
		return tx.AddMember(ctx, h.ID, bob, model.RoleMember)
	})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}
}

func TestMembershipTxRemoveMember(t *testing.T) {
	hs, us := setupHouseholdTestDB(t)
	ctx := context.Background()
	owner := createUser(t, us, "owner@example.com")
	bob := createUser(t, us, "bob@example.com")
	h, _ := hs.CreateWithMembers(ctx, "Home", "k", owner, []int64{bob})

	err := hs.Tx(ctx, func(tx *MembershipTx) error {
		return tx.RemoveMember(ctx, h.ID, bob, model.RoleMember)
	})
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	m, err := hs.GetMember(ctx, h.ID, bob)
	if err != nil {
		t.Fatalf("get member: %v", err)
	}
	if m != nil {
		t.Error("expected membership to be gone")
	}
}

func TestOwnerIsFixedBySchema(t *testing.T) {
	hs, us := setupHouseholdTestDB(t)
	ctx := context.Background()
	owner := createUser(t, us, "owner@example.com")
	bob := createUser(t, us, "bob@example.com")
	h, _ := hs.CreateWithMembers(ctx, "Home", "k", owner, []int64{bob})

	err := hs.Tx(ctx, func(tx *MembershipTx) error {
		return tx.SetRole(ctx, h.ID, owner, model.RoleOwner, model.RoleAdmin)
	})
	if err == nil {
		t.Error("expected owner demotion to be rejected")
	}

	err = hs.Tx(ctx, func(tx *MembershipTx) error {
		return tx.SetRole(ctx, h.ID, bob, model.RoleMember, model.RoleOwner)
	})
	if err == nil {
		t.Error("expected second owner to be rejected")
	}

	err = hs.Tx(ctx, func(tx *MembershipTx) error {
		return tx.RemoveMember(ctx, h.ID, owner, model.RoleOwner)
	})
	if err == nil {
		t.Error("expected owner removal to be rejected")
	}

	m, _ := hs.GetMember(ctx, h.ID, owner)
	if m == nil || m.Role != model.RoleOwner {
		t.Errorf("owner membership = %+v, want unchanged", m)
	}
}
