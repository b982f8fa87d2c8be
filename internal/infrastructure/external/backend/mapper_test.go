package backend

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travy/admin-hub/internal/domain/directory"
)

func TestUsersFromDTO_UnknownStatusKept(t *testing.T) {
	var dtos []UserDTO
	require.NoError(t, json.Unmarshal([]byte(`[{"id":1,"status":"active"},{"id":2,"status":"suspended"}]`), &dtos))

	users, err := UsersFromDTO(dtos)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, directory.StatusActive, users[0].Status())
	assert.Equal(t, directory.UserStatus("suspended"), users[1].Status())
}

func TestCount_Decode(t *testing.T) {
	cases := map[string]Count{
		`12`:     12,
		`12.0`:   12,
		`12.9`:   12,
		`"7"`:    7,
		`" "`:    0,
		`null`:   0,
		`1e2`:    100,
		`"3.50"`: 3,
	}
	for in, want := range cases {
		var c Count
		require.NoError(t, json.Unmarshal([]byte(in), &c), in)
		assert.Equal(t, want, c, in)
	}

	var c Count
	assert.Error(t, json.Unmarshal([]byte(`"many"`), &c))
}

func TestInfluencersFromDTO_FloatReferralCount(t *testing.T) {
	var dtos []InfluencerDTO
	require.NoError(t, json.Unmarshal([]byte(`[{"id":10,"name":"Ivy","referralCount":12.0,"totalEarnings":40}]`), &dtos))

	infs, err := InfluencersFromDTO(dtos)
	require.NoError(t, err)
	require.Len(t, infs, 1)
	assert.Equal(t, 12, infs[0].ReferralCount())
	assert.Equal(t, directory.PerformanceTop, directory.PerformanceOf(infs[0].ReferralCount()))
}
