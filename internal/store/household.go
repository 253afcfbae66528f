package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/pantry/internal/model"
)

type HouseholdStore struct {
	db *sql.DB
}

func NewHouseholdStore(db *sql.DB) *HouseholdStore {
	return &HouseholdStore{db: db}
}

func scanHousehold(scanner interface{ Scan(...any) error }) (*model.Household, error) {
	var h model.Household
	err := scanner.Scan(&h.ID, &h.Name, &h.CreationKey, &h.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func scanMembership(scanner interface{ Scan(...any) error }) (*model.Membership, error) {
	var m model.Membership
	var role string
	err := scanner.Scan(&m.HouseholdID, &m.UserID, &m.Email, &role, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	m.Role = model.Role(role)
	return &m, nil
}

const householdCols = `id, name, creation_key, created_at`

const membershipSelect = `SELECT hm.household_id, hm.user_id, u.email, hm.role, hm.created_at
	FROM household_members hm
	JOIN users u ON u.id = hm.user_id`

// CreateWithMembers inserts a household, its owner, and any initial members in
// one transaction. A creation key that was already used yields ErrDuplicate
// and nothing is written. Member ids equal to the owner or repeated are skipped.
func (s *HouseholdStore) CreateWithMembers(ctx context.Context, name, creationKey string, ownerID int64, memberIDs []int64) (*model.Household, error) {
	var h *model.Household
	err := inTx(ctx, s.db, func(tx *sql.Tx) error {
		var used int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM households WHERE creation_key = ?`, creationKey,
		).Scan(&used); err != nil {
			return fmt.Errorf("check creation key: %w", err)
		}
		if used > 0 {
			return ErrDuplicate
		}

		result, err := tx.ExecContext(ctx,
			`INSERT INTO households (name, creation_key) VALUES (?, ?)`,
			name, creationKey,
		)
		if err != nil {
			return fmt.Errorf("insert household: %w", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}

		if err := insertMember(ctx, tx, id, ownerID, model.RoleOwner); err != nil {
			return fmt.Errorf("insert owner: %w", err)
		}
		for _, uid := range memberIDs {
			if uid == ownerID {
				continue
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO household_members (household_id, user_id, role) VALUES (?, ?, ?)`,
				id, uid, string(model.RoleMember),
			); err != nil {
				return fmt.Errorf("insert member %d: %w", uid, err)
			}
		}

		h, err = scanHousehold(tx.QueryRowContext(ctx, `SELECT `+householdCols+` FROM households WHERE id = ?`, id))
		if err != nil {
			return fmt.Errorf("get household: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (s *HouseholdStore) GetByID(ctx context.Context, id int64) (*model.Household, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+householdCols+` FROM households WHERE id = ?`, id)
	h, err := scanHousehold(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get household: %w", err)
	}
	return h, nil
}

// ListHouseholdsForUser returns every household the user holds a membership
// in, ordered by name.
func (s *HouseholdStore) ListHouseholdsForUser(ctx context.Context, userID int64) ([]model.HouseholdSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT h.id, h.name
		 FROM households h
		 JOIN household_members hm ON h.id = hm.household_id
		 WHERE hm.user_id = ?
		 ORDER BY h.name ASC, h.id ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list households for user: %w", err)
	}
	defer rows.Close()

	households := []model.HouseholdSummary{}
	for rows.Next() {
		var h model.HouseholdSummary
		if err := rows.Scan(&h.ID, &h.Name); err != nil {
			return nil, fmt.Errorf("scan household: %w", err)
		}
		households = append(households, h)
	}
	return households, rows.Err()
}

func (s *HouseholdStore) GetMember(ctx context.Context, householdID, userID int64) (*model.Membership, error) {
	return getMember(ctx, s.db, householdID, userID)
}

func (s *HouseholdStore) ListMembers(ctx context.Context, householdID int64) ([]model.Membership, error) {
	return listMembers(ctx, s.db, householdID)
}

// Tx runs fn with a transaction-bound view of memberships. Either every
// change fn makes is committed or none is.
func (s *HouseholdStore) Tx(ctx context.Context, fn func(tx *MembershipTx) error) error {
	return inTx(ctx, s.db, func(tx *sql.Tx) error {
		return fn(&MembershipTx{tx: tx})
	})
}

// MembershipTx exposes membership reads and compare-and-set writes inside a
// single transaction.
type MembershipTx struct {
	tx *sql.Tx
}

func (t *MembershipTx) GetMember(ctx context.Context, householdID, userID int64) (*model.Membership, error) {
	return getMember(ctx, t.tx, householdID, userID)
}

func (t *MembershipTx) ListMembers(ctx context.Context, householdID int64) ([]model.Membership, error) {
	return listMembers(ctx, t.tx, householdID)
}

// AddMember inserts a membership, returning ErrDuplicate if the user already
// belongs to the household.
func (t *MembershipTx) AddMember(ctx context.Context, householdID, userID int64, role model.Role) error {
	existing, err := getMember(ctx, t.tx, householdID, userID)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrDuplicate
	}
	if err := insertMember(ctx, t.tx, householdID, userID, role); err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

// SetRole changes a member's role from `from` to `to`. ErrConflict means the
// member no longer holds `from`.
func (t *MembershipTx) SetRole(ctx context.Context, householdID, userID int64, from, to model.Role) error {
	result, err := t.tx.ExecContext(ctx,
		`UPDATE household_members SET role = ? WHERE household_id = ? AND user_id = ? AND role = ?`,
		string(to), householdID, userID, string(from),
	)
	if err != nil {
		return fmt.Errorf("update member role: %w", err)
	}
	return expectOneRow(result)
}

// RemoveMember deletes a membership that still holds role `from`.
func (t *MembershipTx) RemoveMember(ctx context.Context, householdID, userID int64, from model.Role) error {
	result, err := t.tx.ExecContext(ctx,
		`DELETE FROM household_members WHERE household_id = ? AND user_id = ? AND role = ?`,
		householdID, userID, string(from),
	)
	if err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	return expectOneRow(result)
}

func insertMember(ctx context.Context, q querier, householdID, userID int64, role model.Role) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO household_members (household_id, user_id, role) VALUES (?, ?, ?)`,
		householdID, userID, string(role),
	)
	return err
}

func getMember(ctx context.Context, q querier, householdID, userID int64) (*model.Membership, error) {
	row := q.QueryRowContext(ctx,
		membershipSelect+` WHERE hm.household_id = ? AND hm.user_id = ?`,
		householdID, userID,
	)
	m, err := scanMembership(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return m, nil
}

func listMembers(ctx context.Context, q querier, householdID int64) ([]model.Membership, error) {
	rows, err := q.QueryContext(ctx,
		membershipSelect+` WHERE hm.household_id = ? ORDER BY hm.id ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []model.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, *m)
	}
	return members, rows.Err()
}

func expectOneRow(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n != 1 {
		return ErrConflict
	}
	return nil
}
