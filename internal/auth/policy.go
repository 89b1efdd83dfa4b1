package auth

import "gigboard/internal/models"

// Action names an operation guarded by the gate.
type Action string

const (
	ActionProfileRead         Action = "profile:read"
	ActionProfileUpdate       Action = "profile:update"
	ActionPasswordChange      Action = "password:change"
	ActionLogout              Action = "session:logout"
	ActionServiceCreate       Action = "service:create"
	ActionServiceUpdate       Action = "service:update"
	ActionServiceDelete       Action = "service:delete"
	ActionServiceApplicants   Action = "service:applications"
	ActionApply               Action = "application:create"
	ActionApplicationRespond  Action = "application:respond"
	ActionApplicationWithdraw Action = "application:withdraw"
	ActionApplicationsMine    Action = "application:list-mine"
	ActionUsersAdminister     Action = "users:administer"
)

// Policy maps each action to the roles allowed to perform it. Ownership is
// checked by the operation itself; the policy only covers roles.
type Policy map[Action][]models.Role

var everyone = []models.Role{models.RoleClient, models.RoleExpert, models.RoleAdmin}

// DefaultPolicy is the marketplace role table.
var DefaultPolicy = Policy{
	ActionProfileRead:         everyone,
	ActionProfileUpdate:       everyone,
	ActionPasswordChange:      everyone,
	ActionLogout:              everyone,
	ActionServiceCreate:       {models.RoleExpert},
	ActionServiceUpdate:       {models.RoleExpert},
	ActionServiceDelete:       {models.RoleExpert},
	ActionServiceApplicants:   {models.RoleExpert},
	ActionApply:               {models.RoleClient},
	ActionApplicationRespond:  {models.RoleExpert},
	ActionApplicationWithdraw: {models.RoleClient},
	ActionApplicationsMine:    {models.RoleClient},
	ActionUsersAdminister:     {models.RoleAdmin},
}

// Allows reports whether role may perform action. Unknown actions are denied.
func (p Policy) Allows(role models.Role, action Action) bool {
	for _, allowed := range p[action] {
		if allowed == role {
			return true
		}
	}
	return false
}

// Authorize returns a FORBIDDEN error when role may not perform action.
func (p Policy) Authorize(role models.Role, action Action) error {
	if !p.Allows(role, action) {
		return models.NewForbiddenError("User role " + string(role) + " is not authorized to access this route")
	}
	return nil
}
