package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghost-ng/Papertrail/internal/types"
)

func TestHasRole(t *testing.T) {
	ident := Identity{Roles: []string{"reviewer", "supervisor"}}

	assert.True(t, ident.HasRole("supervisor"))
	assert.True(t, ident.HasRole("director", "reviewer"))
	assert.False(t, ident.HasRole("director"))
	assert.False(t, ident.HasRole())
}

func TestMemberOf(t *testing.T) {
	ident := Identity{OfficeIDs: []string{"records", "legal"}}

	assert.True(t, ident.MemberOf("legal"))
	assert.False(t, ident.MemberOf("finance"))
}

func TestStaticProviderResolve(t *testing.T) {
	alice := Identity{ID: types.NewID(), DisplayName: "Alice", Roles: []string{"clerk"}}
	provider := NewStaticProvider(alice)

	got, err := provider.Resolve(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, alice, got)

	_, err = provider.Resolve(context.Background(), types.NewID())
	assert.Error(t, err)
}

func TestStaticProviderAdd(t *testing.T) {
	provider := NewStaticProvider()
	bob := Identity{ID: types.NewID(), Roles: []string{"supervisor"}}
	provider.Add(bob)

	got, err := provider.Resolve(context.Background(), bob.ID)
	require.NoError(t, err)
	assert.Equal(t, bob.Roles, got.Roles)
}
