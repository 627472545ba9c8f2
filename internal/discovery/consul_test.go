package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePort(t *testing.T) {
	p, err := parsePort(":8080")
	assert.NoError(t, err)
	assert.Equal(t, 8080, p)

	p, err = parsePort("9090")
	assert.NoError(t, err)
	assert.Equal(t, 9090, p)

	_, err = parsePort("http")
	assert.Error(t, err)
}
