// Package principal models the authenticated actor behind a request.
package principal

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleStaff  Role = "staff"
	RoleDoctor Role = "doctor"
	RoleOwner  Role = "owner"
)

// Principal is passed explicitly into every service operation.
type Principal struct {
	ID   uuid.UUID
	Role Role
}

func ParseRole(raw string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(raw))); r {
	case RoleAdmin, RoleStaff, RoleDoctor, RoleOwner:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// IsClinicStaff reports whether the principal works at the clinic front desk or above.
func (p Principal) IsClinicStaff() bool {
	return p.Role == RoleAdmin || p.Role == RoleStaff
}

type contextKey struct{}

// WithContext stores p on ctx. Only the HTTP layer should call this.
func WithContext(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// FromContext returns the principal placed by the HTTP layer.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(Principal)
	return p, ok
}
