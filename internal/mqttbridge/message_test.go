package mqttbridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopicsBuildFamilyNames(t *testing.T) {
	topics := Topics{Prefix: "br/"}
	assert.Equal(t, "br/d/13/set", topics.DigitalSet("13"))
	assert.Equal(t, "br/a/0/get", topics.AnalogGet("0"))
	assert.Equal(t, "br/datastore/get/foo/request", topics.DatastoreGetRequest("foo"))
	assert.Equal(t, "br/mailbox/available", topics.MailboxAvailable())
	assert.Equal(t, "br/file/write/etc/motd", topics.FileWrite("etc/motd"))
	assert.Equal(t, "br/sh/poll/7", topics.ShellPoll("7"))
	assert.Equal(t, "br/system/bridge/summary/value", topics.SystemSummaryValue())
}

func TestSubscriptionFiltersCoverEveryRequestFamily(t *testing.T) {
	topics := Topics{Prefix: "br/"}
	filters := topics.SubscriptionFilters()
	assert.Contains(t, filters, "br/sh/run")
	assert.Contains(t, filters, "br/mailbox/in")
	assert.Contains(t, filters, "br/system/bridge/handshake/get")
	assert.Contains(t, filters, "br/datastore/put/+")
}

func TestMessageWithUserPropertyDoesNotMutateOriginal(t *testing.T) {
	base := Message{Topic: "br/system/status"}
	withProp := base.WithUserProperty(PropError, "topic-action-forbidden")

	assert.Nil(t, base.UserProperties)
	assert.Equal(t, "topic-action-forbidden", withProp.UserProperties[PropError])
}
