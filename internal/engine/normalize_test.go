package engine

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePayload = `{
  "totalCount": 2,
  "items": [
    {
      "key": "zeta-rollout",
      "name": "Zeta rollout",
      "kind": "boolean",
      "temporary": true,
      "archived": false,
      "tags": ["checkout"],
      "creationDate": 1700000000000,
      "_maintainer": {"firstName": "Ada", "lastName": "Lovelace", "email": "ada@example.com"},
      "environments": {
        "production": {"on": true, "lastModified": 1710000000000},
        "staging": {"on": false, "lastModified": 0}
      }
    },
    {
      "key": "alpha",
      "environments": {}
    }
  ]
}`

func TestNormalize(t *testing.T) {
	flags, err := Normalize(json.RawMessage(samplePayload))
	require.NoError(t, err)
	require.Len(t, flags, 2)

	alpha := flags[0]
	assert.Equal(t, "alpha", alpha.Key)
	assert.Equal(t, "alpha", alpha.Name, "name defaults to key")
	assert.Nil(t, alpha.Maintainer)
	assert.Nil(t, alpha.CreatedAt)
	assert.Empty(t, alpha.Environments)

	zeta := flags[1]
	assert.Equal(t, "zeta-rollout", zeta.Key)
	assert.Equal(t, "Zeta rollout", zeta.Name)
	assert.True(t, zeta.Temporary)
	assert.Equal(t, []string{"checkout"}, zeta.Tags)
	require.NotNil(t, zeta.Maintainer)
	assert.Equal(t, "Ada Lovelace", zeta.Maintainer.FullName())
	require.NotNil(t, zeta.CreatedAt)
	assert.True(t, zeta.CreatedAt.Equal(time.UnixMilli(1700000000000)))

	assert.Equal(t, []string{"production", "staging"}, zeta.EnvironmentNames())
	prod := zeta.Environments["production"]
	assert.Equal(t, "production", prod.Name)
	assert.True(t, prod.On)
	require.NotNil(t, prod.LastModified)
	assert.True(t, prod.LastModified.Equal(time.UnixMilli(1710000000000)))
	assert.Nil(t, zeta.Environments["staging"].LastModified, "zero timestamp means unknown")

	last, ok := zeta.LastModified()
	require.True(t, ok)
	assert.True(t, last.Equal(time.UnixMilli(1710000000000)))

	_, ok = alpha.LastModified()
	assert.False(t, ok)
}

func TestNormalize_Errors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `nope`},
		{"wrong shape", `{"items": "x"}`},
		{"missing key", `{"items": [{"name": "no key"}]}`},
		{"blank key", `{"items": [{"key": "  "}]}`},
		{"duplicate key", `{"items": [{"key": "a"}, {"key": "a"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(json.RawMessage(tt.payload))
			require.ErrorIs(t, err, ErrInvalidFlagData)
		})
	}
}

func TestNormalize_EmptyMaintainerIsNil(t *testing.T) {
	flags, err := Normalize(json.RawMessage(`{"items": [{"key": "a", "_maintainer": {"firstName": " "}}]}`))
	require.NoError(t, err)
	require.Len(t, flags, 1)
	assert.Nil(t, flags[0].Maintainer)
}
