package main

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/mculink/bridge/internal/authz"
	"github.com/mculink/bridge/internal/mqttbridge"
	"github.com/mculink/bridge/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingPublisher satisfies publisher and records every message handed
// to it, standing in for a live mqttbridge.Client connection.
type recordingPublisher struct {
	published []mqttbridge.Message
}

func (r *recordingPublisher) Publish(m mqttbridge.Message) {
	r.published = append(r.published, m)
}

func newTestBridge(policy *authz.Policy, pub *recordingPublisher) *bridge {
	return &bridge{
		logger:    log.New(io.Discard),
		topics:    mqttbridge.Topics{Prefix: "br/"},
		policy:    policy,
		datastore: service.NewDatastore(0x8301),
		mqtt:      pub,
	}
}

func TestHandleDatastoreGetMissPublishesDatastoreMissError(t *testing.T) {
	policy := authz.NewPolicy(map[authz.Action]bool{authz.DatastoreGet: true}, nil)
	pub := &recordingPublisher{}
	b := newTestBridge(policy, pub)

	require.NoError(t, b.handleDatastoreGet("missing-key"))
	require.Len(t, pub.published, 1)
	assert.Equal(t, "br/datastore/get/missing-key/value", pub.published[0].Topic)
	assert.Empty(t, pub.published[0].Payload)
	assert.Equal(t, "datastore-miss", pub.published[0].UserProperties[mqttbridge.PropError])
}

func TestHandleDatastoreGetHitPublishesValueWithoutError(t *testing.T) {
	policy := authz.NewPolicy(map[authz.Action]bool{authz.DatastoreGet: true, authz.DatastorePut: true}, nil)
	pub := &recordingPublisher{}
	b := newTestBridge(policy, pub)

	require.NoError(t, b.handleDatastorePut("k", []byte("v")))
	require.NoError(t, b.handleDatastoreGet("k"))

	require.Len(t, pub.published, 1)
	assert.Equal(t, []byte("v"), pub.published[0].Payload)
	assert.NotContains(t, pub.published[0].UserProperties, mqttbridge.PropError)
}

func TestHandleDatastoreGetDeniedByDefault(t *testing.T) {
	policy := authz.NewPolicy(nil, nil)
	pub := &recordingPublisher{}
	b := newTestBridge(policy, pub)

	err := b.handleDatastoreGet("k")
	require.Error(t, err)
	assert.Equal(t, "topic-action-forbidden", err.Error())
	assert.Empty(t, pub.published, "a denied request must not publish anything itself")
}
