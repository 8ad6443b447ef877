package audit

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVersion(t *testing.T) {
	personID := uuid.New()
	roleID := uuid.New()

	v := NewVersion("Person", personID, "MembershipTerminated", map[string]any{"terminate_on": "2024-12-31"}, "sacctl").
		ForItem("Role", roleID)

	assert.Equal(t, "Person", v.MainType)
	assert.Equal(t, personID, v.MainID)
	assert.Equal(t, "Role", v.ItemType)
	assert.Equal(t, roleID, v.ItemID)
	assert.NotEqual(t, uuid.Nil, v.ID)
}

func TestVersion_ChangesJSON(t *testing.T) {
	v := NewVersion("Person", uuid.New(), "HouseholdChanged", nil, "")

	data, err := v.ChangesJSON()
	require.NoError(t, err)
	assert.Equal(t, "{}", data)

	v.Changes["household_key"] = "F-1"
	data, err = v.ChangesJSON()
	require.NoError(t, err)

	restored := &Version{}
	require.NoError(t, restored.SetChangesFromJSON(data))
	assert.Equal(t, "F-1", restored.Changes["household_key"])

	assert.Error(t, restored.SetChangesFromJSON("[1,"))
}
