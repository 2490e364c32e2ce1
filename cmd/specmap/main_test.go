package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDelimiterRune(t *testing.T) {
	assert.Equal(t, ',', delimiterRune(","))
	assert.Equal(t, '\t', delimiterRune("\t"))
	assert.Equal(t, '|', delimiterRune("|ignored"))
	assert.Equal(t, 'ß', delimiterRune("ß"))

	// An empty flag value falls back to a comma instead of panicking.
	assert.Equal(t, ',', delimiterRune(""))
}
