package rbac

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type contractLike struct{ client, freelancer int64 }

func (c contractLike) Parties() Parties {
	return Parties{Owner: c.client, Client: c.client, Freelancer: c.freelancer}
}

func TestRequireRelations(t *testing.T) {
	res := contractLike{client: 1, freelancer: 2}
	client := Caller{ID: 1, Role: RoleClient}
	freelancer := Caller{ID: 2, Role: RoleFreelancer}
	stranger := Caller{ID: 3, Role: RoleClient}

	assert.True(t, Require(client, res, RelationClient).Allowed)
	assert.False(t, Require(freelancer, res, RelationClient).Allowed)
	assert.True(t, Require(freelancer, res, RelationFreelancer).Allowed)
	assert.True(t, Require(client, res, RelationOwner).Allowed)
	assert.True(t, Require(client, res, RelationParticipant).Allowed)
	assert.True(t, Require(freelancer, res, RelationParticipant).Allowed)
	assert.False(t, Require(stranger, res, RelationParticipant).Allowed)
}

func TestRequireZeroIDsNeverMatch(t *testing.T) {
	res := contractLike{client: 1}
	assert.False(t, Require(Caller{}, res, RelationFreelancer).Allowed)
	assert.False(t, Require(Caller{ID: 5}, res, RelationFreelancer).Allowed)
	assert.False(t, Require(Caller{ID: 1}, nil, RelationClient).Allowed)
}

func TestDecisionErr(t *testing.T) {
	d := Require(Caller{ID: 9}, contractLike{client: 1, freelancer: 2}, RelationClient)
	var relErr *RelationError
	assert.True(t, errors.As(d.Err(), &relErr))
	assert.Equal(t, int64(9), relErr.CallerID)
	assert.Nil(t, Require(Caller{ID: 1}, contractLike{client: 1}, RelationClient).Err())
}

func TestRolePermissions(t *testing.T) {
	assert.NoError(t, CheckPermission(RoleClient, PermissionCreateJob))
	assert.Error(t, CheckPermission(RoleFreelancer, PermissionCreateJob))
	assert.NoError(t, CheckPermission(RoleFreelancer, PermissionCreateProposal))
	assert.NoError(t, CheckPermission(RoleAdmin, PermissionReplayOutbox))
	assert.Error(t, CheckPermission("ghost", PermissionReadOwnResource))
	assert.True(t, ValidRole(RoleAdmin))
	assert.False(t, ValidRole("ghost"))
}
