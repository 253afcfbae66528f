// Package role holds the household role state machine as an explicit
// transition table.
package role

import (
	"github.com/dukerupert/pantry/internal/apperr"
	"github.com/dukerupert/pantry/internal/model"
)

// Command is a membership-management action one member applies to another.
type Command string

const (
	Promote Command = "promote"
	Demote  Command = "demote"
	Remove  Command = "remove"
)

func (c Command) Valid() bool {
	switch c {
	case Promote, Demote, Remove:
		return true
	}
	return false
}

// Outcome is what a permitted command does to the target's membership.
type Outcome struct {
	// Next is the target's role afterwards. Empty when Removed is set.
	Next    model.Role
	Removed bool
}

type edge struct {
	from model.Role
	cmd  Command
}

// transitions lists every legal edge. Owner has none.
var transitions = map[edge]Outcome{
	{model.RoleMember, Promote}: {Next: model.RoleAdmin},
	{model.RoleAdmin, Demote}:   {Next: model.RoleMember},
	{model.RoleAdmin, Remove}:   {Removed: true},
	{model.RoleMember, Remove}:  {Removed: true},
}

// managers may issue commands against other members.
var managers = map[model.Role]bool{
	model.RoleOwner: true,
	model.RoleAdmin: true,
}

// Authorize decides whether actor may apply cmd to a target currently holding
// target. Insufficient actor role or an owner target is
// ErrForbiddenRoleTransition; a command the target's role has no edge for is
// ErrInvalidTransition.
func Authorize(actor, target model.Role, cmd Command) (Outcome, error) {
	if !cmd.Valid() {
		return Outcome{}, apperr.New(apperr.CodeInvalidArgument, "unknown command "+string(cmd))
	}
	if !managers[actor] {
		return Outcome{}, apperr.New(apperr.CodeForbiddenRoleTransition, "only the owner or an admin may "+string(cmd)+" members")
	}
	if target == model.RoleOwner {
		return Outcome{}, apperr.New(apperr.CodeForbiddenRoleTransition, "the household owner cannot be changed")
	}
	out, ok := transitions[edge{target, cmd}]
	if !ok {
		return Outcome{}, apperr.New(apperr.CodeInvalidTransition, "cannot "+string(cmd)+" a member with role "+string(target))
	}
	return out, nil
}

// CanManage reports whether r may add members or issue commands.
func CanManage(r model.Role) bool {
	return managers[r]
}
