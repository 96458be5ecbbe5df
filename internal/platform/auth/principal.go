package auth

import (
	"context"
	"strconv"
)

// Role mirrors the roles table ids.
type Role int

const (
	RoleAdmin     Role = 1
	RolePhysician Role = 2
	RoleParamedic Role = 3
)

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RolePhysician:
		return "medico"
	case RoleParamedic:
		return "paramedico"
	}
	return "role_" + strconv.Itoa(int(r))
}

// Principal is the authenticated caller.
type Principal struct {
	UserID     int64
	Role       Role
	HospitalID *int64
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// ScopedHospital returns the hospital a non-admin is restricted to, if any.
func (p Principal) ScopedHospital() (int64, bool) {
	if p.IsAdmin() || p.HospitalID == nil {
		return 0, false
	}
	return *p.HospitalID, true
}

type contextKey string

const principalKey contextKey = "principal"

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}
