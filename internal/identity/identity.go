// Package identity resolves actors to their roles and office/organization
// memberships. User administration itself lives outside the engine; the
// engine only consumes resolved identities through the Provider interface.
package identity

import (
	"context"
	"fmt"
	"sync"

	"github.com/ghost-ng/Papertrail/internal/types"
)

// System is the actor recorded for engine-initiated events such as expiry
// sweeps and action node traversal.
const System = "system"

// Identity is a resolved actor with its role and membership sets.
type Identity struct {
	ID              types.ID `json:"id" yaml:"id"`
	DisplayName     string   `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	Email           string   `json:"email,omitempty" yaml:"email,omitempty"`
	Roles           []string `json:"roles,omitempty" yaml:"roles,omitempty"`
	OfficeIDs       []string `json:"office_ids,omitempty" yaml:"office_ids,omitempty"`
	OrganizationIDs []string `json:"organization_ids,omitempty" yaml:"organization_ids,omitempty"`
}

// HasRole reports whether the identity holds any of the given roles.
func (i Identity) HasRole(roles ...string) bool {
	for _, want := range roles {
		for _, have := range i.Roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// MemberOf reports whether the identity belongs to the given office.
func (i Identity) MemberOf(officeID string) bool {
	for _, id := range i.OfficeIDs {
		if id == officeID {
			return true
		}
	}
	return false
}

// Provider resolves actor IDs to identities. Implementations are expected to
// be safe for concurrent use.
type Provider interface {
	Resolve(ctx context.Context, id types.ID) (Identity, error)
}

// StaticProvider is an in-memory Provider backed by a fixed identity set.
// It is used by tests and the CLI; production deployments plug in a directory
// backed implementation.
type StaticProvider struct {
	mu         sync.RWMutex
	identities map[types.ID]Identity
}

// NewStaticProvider creates a StaticProvider holding the given identities.
func NewStaticProvider(identities ...Identity) *StaticProvider {
	m := make(map[types.ID]Identity, len(identities))
	for _, ident := range identities {
		m[ident.ID] = ident
	}
	return &StaticProvider{identities: m}
}

// Add registers or replaces an identity.
func (p *StaticProvider) Add(ident Identity) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.identities[ident.ID] = ident
}

// Resolve returns the identity for id, or an error if it is unknown.
func (p *StaticProvider) Resolve(_ context.Context, id types.ID) (Identity, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ident, ok := p.identities[id]
	if !ok {
		return Identity{}, fmt.Errorf("unknown identity: %s", id)
	}
	return ident, nil
}
