package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextStatusCycle(t *testing.T) {
	assert.Equal(t, StatusInProgress, NextStatus(StatusPending))
	assert.Equal(t, StatusCompleted, NextStatus(StatusInProgress))
	assert.Equal(t, StatusPending, NextStatus(StatusCompleted))
}

func TestNextStatusUnknownRestartsAtPending(t *testing.T) {
	assert.Equal(t, StatusPending, NextStatus("archived"))
	assert.Equal(t, StatusPending, NextStatus(""))
}

func TestSessionValid(t *testing.T) {
	assert.False(t, Session{}.Valid())
	assert.True(t, Session{UserID: "u1"}.Valid())
}
