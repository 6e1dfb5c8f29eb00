package identity

import (
	"context"
	"log"

	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/models"
)

// ProfileMembership is the subset of the profile repository the resolver needs.
type ProfileMembership interface {
	HasGuardian(ctx context.Context, userID int64) (bool, error)
	HasProfessional(ctx context.Context, userID int64) (bool, error)
}

// Resolver derives the actor's role from profile-set membership. Roles are
// never stored on the identity itself.
type Resolver struct {
	profiles ProfileMembership
}

// NewResolver constructs a Resolver.
func NewResolver(profiles ProfileMembership) *Resolver {
	return &Resolver{profiles: profiles}
}

// Resolve checks the guardian set first, then the professional set. Any
// query failure resolves to RoleNone: messaging stays hidden rather than
// granting an elevated role.
func (r *Resolver) Resolve(ctx context.Context, userID int64) models.Identity {
	if userID <= 0 {
		return models.Identity{Role: models.RoleNone}
	}

	isGuardian, err := r.profiles.HasGuardian(ctx, userID)
	if err != nil {
		log.Printf("role resolution failed for user %d: %v", userID, err)
		return models.Identity{UserID: userID, Role: models.RoleNone}
	}
	if isGuardian {
		return models.Identity{UserID: userID, Role: models.RoleGuardian}
	}

	isProfessional, err := r.profiles.HasProfessional(ctx, userID)
	if err != nil {
		log.Printf("role resolution failed for user %d: %v", userID, err)
		return models.Identity{UserID: userID, Role: models.RoleNone}
	}
	if isProfessional {
		return models.Identity{UserID: userID, Role: models.RoleProfessional}
	}

	return models.Identity{UserID: userID, Role: models.RoleNone}
}
