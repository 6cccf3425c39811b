package hgvs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckSyntax_EmptyInputIsEARG(t *testing.T) {
	result := CheckSyntax("")
	assert.False(t, result.Valid)
	require.Len(t, result.Messages, 1)
	assert.Equal(t, "EARG", result.Messages[0].Code)
	assert.Equal(t, "The variant argument is not provided.", result.Messages[0].Description)
	assert.Nil(t, result.Tree)
}

func TestCheckSyntax_ParseFailureIsEPARSE(t *testing.T) {
	result := CheckSyntax("not a variant")
	assert.False(t, result.Valid)
	require.Len(t, result.Messages, 1)
	assert.Equal(t, "EPARSE", result.Messages[0].Code)
	assert.NotEmpty(t, result.Messages[0].Description)
	assert.Nil(t, result.Tree)
}

func TestCheckSyntax_ValidInputReturnsTree(t *testing.T) {
	result := CheckSyntax("AB026906.1:c.274G>T")
	assert.True(t, result.Valid)
	assert.Empty(t, result.Messages)
	require.NotNil(t, result.Tree)
	assert.Equal(t, "subst", result.Tree.Get("RawVar").MutationType())
}
