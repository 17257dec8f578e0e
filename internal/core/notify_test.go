package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_KeepsMostRecent(t *testing.T) {
	n := NewNotifier(2, testLogger())
	n.Success("one")
	n.Error("two")
	n.Success("three")

	got := n.Recent()
	require.Len(t, got, 2)
	assert.Equal(t, "two", got[0].Message)
	assert.Equal(t, NotifyError, got[0].Level)
	assert.Equal(t, "three", got[1].Message)
	assert.NotEmpty(t, got[1].ID)
}

func TestNotifier_Drain(t *testing.T) {
	n := NewNotifier(0, testLogger())
	n.Success("a")
	assert.Len(t, n.Drain(), 1)
	assert.Empty(t, n.Recent())
	assert.Empty(t, n.Drain())
}
