package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHash_AndCompare(t *testing.T) {
	hash, err := GetHash("correct horse battery staple")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.NoError(t, CompareHash(hash, "correct horse battery staple"))
	assert.Error(t, CompareHash(hash, "wrong password"))
}

func TestGetHash_Salted(t *testing.T) {
	first, err := GetHash("password123")
	require.NoError(t, err)
	second, err := GetHash("password123")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}
