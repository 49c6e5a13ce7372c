package services

import "sciportfolio/internal/models"

// Action is an operation gated by a membership role.
type Action string

const (
	ActionView         Action = "view"
	ActionEdit         Action = "edit"
	ActionAddMember    Action = "add_member"
	ActionChangeRole   Action = "change_role"
	ActionRemoveMember Action = "remove_member"
	ActionDestroy      Action = "destroy"
)

// roleCapabilities is the single source of truth for what each role may do.
// A user who owns a property directly is treated as RoleOwner for it.
var roleCapabilities = map[models.Role]map[Action]bool{
	models.RoleOwner: {
		ActionView:         true,
		ActionEdit:         true,
		ActionAddMember:    true,
		ActionChangeRole:   true,
		ActionRemoveMember: true,
		ActionDestroy:      true,
	},
	models.RoleAdmin: {
		ActionView:      true,
		ActionEdit:      true,
		ActionAddMember: true,
	},
	models.RoleMember: {
		ActionView: true,
	},
}

// RoleAllows reports whether role grants action.
func RoleAllows(role models.Role, action Action) bool {
	return roleCapabilities[role][action]
}
