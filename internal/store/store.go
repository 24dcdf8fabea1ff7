// Package store provides the persistence layer for the TutorPass platform:
// repository interfaces over the three keyed collections (users, templates,
// memberships), an in-memory implementation guarded by a store-wide lock, and
// a whole-snapshot JSON persistence gateway that rewrites the snapshot after
// every mutation.
package store

import (
	"context"

	"tutorpass/internal/types"
)

// UserRepository defines the data access contract for the user directory.
type UserRepository interface {
	Create(ctx context.Context, user *types.User) error
	GetByID(ctx context.Context, id string) (*types.User, error)
	List(ctx context.Context) ([]*types.User, error)
	Update(ctx context.Context, user *types.User) error
	// Delete removes the user. Memberships referencing the user are left
	// untouched; dangling references are permitted by the data model.
	Delete(ctx context.Context, id string) error
}

// TemplateRepository defines the data access contract for the plan catalog.
type TemplateRepository interface {
	Create(ctx context.Context, tpl *types.Template) error
	GetByID(ctx context.Context, id string) (*types.Template, error)
	// List returns templates in insertion order, optionally filtered by
	// customer segment.
	List(ctx context.Context, segment *types.Segment) ([]*types.Template, error)
	Update(ctx context.Context, tpl *types.Template) error
	// Delete removes the template. Memberships created from it keep their
	// copied name/limits and a dangling template id.
	Delete(ctx context.Context, id string) error
}

// MembershipRepository defines the data access contract for membership records.
type MembershipRepository interface {
	Create(ctx context.Context, m *types.Membership) error
	GetByID(ctx context.Context, id string) (*types.Membership, error)
	// List returns all memberships in insertion order. This is the storage
	// iteration order the eligibility search is defined over.
	List(ctx context.Context) ([]*types.Membership, error)
	// ListByUser returns the user's memberships in insertion order. It does
	// not check that the user exists; orphaned records are returned as-is.
	ListByUser(ctx context.Context, userID string) ([]*types.Membership, error)
	Update(ctx context.Context, m *types.Membership) error
	Delete(ctx context.Context, id string) error
}

// Registry bundles the three repositories plus snapshot control. The
// concrete implementation is *Store.
type Registry interface {
	Users() UserRepository
	Templates() TemplateRepository
	Memberships() MembershipRepository

	// Flush rewrites the whole snapshot from current in-memory state.
	// Mutating repository methods flush implicitly; Flush exists for
	// callers that batch several mutations (e.g., lazy expiry sweeps).
	Flush(ctx context.Context) error
}
