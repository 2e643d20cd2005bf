// Package principal identifies the actor behind a request.
package principal

import (
	"stagelink/internal/common"
)

type Role string

const (
	RoleStudent   Role = "student"
	RoleCompany   Role = "company"
	RoleAdmin     Role = "admin"
	RoleAnonymous Role = "anonymous"
	// RoleSystem is used by in-process jobs (scheduler); never minted in tokens.
	RoleSystem Role = "system"
)

func ParseRole(value string) (Role, bool) {
	switch Role(value) {
	case RoleStudent, RoleCompany, RoleAdmin:
		return Role(value), true
	default:
		return "", false
	}
}

type Principal struct {
	UserID common.UUID
	Role   Role
}

func Anonymous() Principal {
	return Principal{Role: RoleAnonymous}
}

func System() Principal {
	return Principal{Role: RoleSystem}
}

func (p Principal) IsAnonymous() bool {
	return p.Role == RoleAnonymous || p.Role == ""
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
