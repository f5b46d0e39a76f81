package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"skate-feed/internal/reload"
)

func TestDrainReloads(t *testing.T) {
	reloads := reload.NewSignal()
	assert.False(t, drainReloads(reloads))

	reloads.Reload(false)
	assert.False(t, drainReloads(reloads))
	assert.Empty(t, reloads.C())

	reloads.Reload(false)
	reloads.Reload(true)
	assert.True(t, drainReloads(reloads))
	assert.Empty(t, reloads.C())
}
