package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUser_CheckPassword(t *testing.T) {
	u := &User{Username: "neo"}
	assert.False(t, u.CheckPassword(""), "no password set")

	require.NoError(t, u.SetPassword("redpill"))
	assert.NotEqual(t, "redpill", u.PasswordHash)
	assert.True(t, u.CheckPassword("redpill"))
	assert.False(t, u.CheckPassword("bluepill"))

	require.NoError(t, u.SetPassword("bluepill"))
	assert.False(t, u.CheckPassword("redpill"))
	assert.True(t, u.CheckPassword("bluepill"))
}

func TestUser_JSONOmitsHash(t *testing.T) {
	u := &User{ID: 1, Username: "neo", Email: "neo@zion.net"}
	require.NoError(t, u.SetPassword("redpill"))

	data, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "password")
	assert.NotContains(t, string(data), u.PasswordHash)
}
