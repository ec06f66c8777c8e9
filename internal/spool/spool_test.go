package spool

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mculink/bridge/internal/mqttbridge"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueueThenDrainPreservesOrder(t *testing.T) {
	s := New(t.TempDir())

	require.NoError(t, s.Enqueue(mqttbridge.Message{Topic: "br/a", Payload: []byte("1")}))
	require.NoError(t, s.Enqueue(mqttbridge.Message{Topic: "br/b", Payload: []byte("2")}))
	require.NoError(t, s.Enqueue(mqttbridge.Message{Topic: "br/c", Payload: []byte("3")}))
	assert.Equal(t, 3, s.Pending())

	var got []string
	n, err := s.Drain(func(m mqttbridge.Message) error {
		got = append(got, m.Topic)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"br/a", "br/b", "br/c"}, got)
	assert.Equal(t, 0, s.Pending())
}

func TestDrainStopsAtFirstFailureAndLeavesRemainder(t *testing.T) {
	s := New(t.TempDir())
	require.NoError(t, s.Enqueue(mqttbridge.Message{Topic: "br/a"}))
	require.NoError(t, s.Enqueue(mqttbridge.Message{Topic: "br/b"}))

	calls := 0
	n, err := s.Drain(func(m mqttbridge.Message) error {
		calls++
		return errors.New("broker unreachable again")
	})
	assert.Error(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 2, s.Pending(), "undrained records must remain on disk")
}

func TestEnqueueMarksDegradedOnFilesystemFailure(t *testing.T) {
	root := t.TempDir()
	blocker := filepath.Join(root, "spool")
	require.NoError(t, os.WriteFile(blocker, []byte("not a directory"), 0o600))

	s := New(blocker)
	err := s.Enqueue(mqttbridge.Message{Topic: "br/a"})
	assert.Error(t, err)

	degraded, reason := s.Degraded()
	assert.True(t, degraded)
	assert.NotEmpty(t, reason)
}

func TestDegradedSpoolRejectsFurtherEnqueues(t *testing.T) {
	root := t.TempDir()
	blocker := filepath.Join(root, "spool")
	require.NoError(t, os.WriteFile(blocker, []byte("not a directory"), 0o600))

	s := New(blocker)
	_ = s.Enqueue(mqttbridge.Message{Topic: "br/a"})

	err := s.Enqueue(mqttbridge.Message{Topic: "br/b"})
	assert.Error(t, err)
}
