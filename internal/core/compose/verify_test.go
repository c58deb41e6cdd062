package compose

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validSpec = `
services:
  web:
    image: nginx:alpine
    ports:
      - "8080:80"
  db:
    image: postgres:16
`

func TestVerifySpec_Valid(t *testing.T) {
	assert.NoError(t, VerifySpec([]byte(validSpec)))
}

func TestVerifySpec_Empty(t *testing.T) {
	err := VerifySpec([]byte("   \n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptySpec)
}

func TestVerifySpec_InvalidYAML(t *testing.T) {
	err := VerifySpec([]byte("services:\n  web:\n   image: [unclosed"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidYAML)
}

func TestVerifySpec_NotAMapping(t *testing.T) {
	err := VerifySpec([]byte("- just\n- a\n- list\n"))
	require.Error(t, err)
}

func TestVerifySpec_NoServices(t *testing.T) {
	err := VerifySpec([]byte("services: {}\n"))
	require.Error(t, err)
}
