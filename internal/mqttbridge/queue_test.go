package mqttbridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishQueuePreservesOrder(t *testing.T) {
	q := newPublishQueue(4)
	q.push(Message{Topic: "a"})
	q.push(Message{Topic: "b"})
	q.push(Message{Topic: "c"})

	m, ok := q.pop()
	assert.True(t, ok)
	assert.Equal(t, "a", m.Topic)

	m, ok = q.pop()
	assert.True(t, ok)
	assert.Equal(t, "b", m.Topic)
}

func TestPublishQueueDropsOldestOnOverflow(t *testing.T) {
	q := newPublishQueue(2)
	assert.False(t, q.push(Message{Topic: "a"}))
	assert.False(t, q.push(Message{Topic: "b"}))
	assert.True(t, q.push(Message{Topic: "c"}))

	assert.Equal(t, 2, q.len())
	assert.EqualValues(t, 1, q.droppedCount())

	m, ok := q.pop()
	assert.True(t, ok)
	assert.Equal(t, "b", m.Topic, "oldest entry 'a' should have been dropped")
}

func TestPublishQueuePopEmpty(t *testing.T) {
	q := newPublishQueue(1)
	_, ok := q.pop()
	assert.False(t, ok)
}
