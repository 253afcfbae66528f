package model

import "time"

// Role is a member's standing within one household. Roles are independent
// per household: the same user may be owner of one and member of another.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	}
	return false
}

type Household struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	CreationKey string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// HouseholdSummary is the {id, name} pair returned by household listings.
type HouseholdSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Membership struct {
	HouseholdID int64     `json:"household_id"`
	UserID      int64     `json:"user_id"`
	Email       string    `json:"email"`
	Role        Role      `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

// Members is a household's membership partitioned by role. Admins and
// Members keep insertion order.
type Members struct {
	HouseholdID int64        `json:"household_id"`
	Owner       Membership   `json:"owner"`
	Admins      []Membership `json:"admins"`
	Members     []Membership `json:"members"`
}

// Partition groups memberships (already in insertion order) by role.
func Partition(householdID int64, all []Membership) *Members {
	m := &Members{
		HouseholdID: householdID,
		Admins:      []Membership{},
		Members:     []Membership{},
	}
	for _, ms := range all {
		switch ms.Role {
		case RoleOwner:
			m.Owner = ms
		case RoleAdmin:
			m.Admins = append(m.Admins, ms)
		default:
			m.Members = append(m.Members, ms)
		}
	}
	return m
}
