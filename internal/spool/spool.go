// Package spool persists MQTT publications to a tmpfs directory while
// the broker is unreachable, draining them back out in enqueue order
// once reconnected. Grounded on the teacher's own day-stamped log file
// naming (src/log.go, via github.com/lestrrat-go/strftime) generalized
// from "one file per day" to "one file per queued publication."
package spool

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lestrrat-go/strftime"
	"github.com/mculink/bridge/internal/mqttbridge"
)

// record is the on-disk encoding of a spooled mqttbridge.Message.
type record struct {
	Topic           string            `json:"topic"`
	Payload         []byte            `json:"payload"`
	QoS             byte              `json:"qos"`
	Retain          bool              `json:"retain"`
	ResponseTopic   string            `json:"response_topic,omitempty"`
	CorrelationData []byte            `json:"correlation_data,omitempty"`
	UserProperties  map[string]string `json:"user_properties,omitempty"`
}

func toRecord(m mqttbridge.Message) record {
	return record{
		Topic: m.Topic, Payload: m.Payload, QoS: m.QoS, Retain: m.Retain,
		ResponseTopic: m.ResponseTopic, CorrelationData: m.CorrelationData,
		UserProperties: m.UserProperties,
	}
}

func (r record) toMessage() mqttbridge.Message {
	return mqttbridge.Message{
		Topic: r.Topic, Payload: r.Payload, QoS: r.QoS, Retain: r.Retain,
		ResponseTopic: r.ResponseTopic, CorrelationData: r.CorrelationData,
		UserProperties: r.UserProperties,
	}
}

const nameFormat = "%Y%m%d-%H%M%S"

// Spool owns a directory exclusively (spec.md §5's "exclusively owned by
// the spool component"). On any filesystem error it disables itself —
// "on any filesystem error the spool marks itself degraded and no
// further writes are attempted" — and reports the reason for
// internal/state.RuntimeState.SetSpool.
type Spool struct {
	dir string
	seq uint64

	mu            sync.Mutex
	degraded      bool
	failureReason string
}

func New(dir string) *Spool {
	return &Spool{dir: dir}
}

// Degraded reports whether the spool has disabled itself and why.
func (s *Spool) Degraded() (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded, s.failureReason
}

func (s *Spool) markDegraded(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.degraded {
		return
	}
	s.degraded = true
	s.failureReason = err.Error()
}

// Enqueue persists m to the spool directory. No-op once degraded — the
// caller is expected to check Degraded() and drop messages itself rather
// than retry a failing filesystem indefinitely.
func (s *Spool) Enqueue(m mqttbridge.Message) error {
	if degraded, reason := s.Degraded(); degraded {
		return fmt.Errorf("spool: degraded: %s", reason)
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		s.markDegraded(err)
		return fmt.Errorf("spool: mkdir: %w", err)
	}

	stamp, err := strftime.Format(nameFormat, time.Now())
	if err != nil {
		stamp = "unknown-time"
	}
	seq := atomic.AddUint64(&s.seq, 1)
	name := fmt.Sprintf("%s-%010d.json", stamp, seq)
	path := filepath.Join(s.dir, name)

	data, err := json.Marshal(toRecord(m))
	if err != nil {
		return fmt.Errorf("spool: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		s.markDegraded(err)
		return fmt.Errorf("spool: write: %w", err)
	}
	return nil
}

// Drain replays every spooled record in enqueue order via publish,
// deleting each file only after a successful publish, stopping at the
// first failure so order is preserved and nothing is lost on a second
// disconnect mid-drain.
func (s *Spool) Drain(publish func(mqttbridge.Message) error) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		s.markDegraded(err)
		return 0, fmt.Errorf("spool: readdir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	drained := 0
	for _, name := range names {
		path := filepath.Join(s.dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return drained, fmt.Errorf("spool: read %s: %w", name, err)
		}
		var r record
		if err := json.Unmarshal(data, &r); err != nil {
			_ = os.Remove(path)
			continue
		}
		if err := publish(r.toMessage()); err != nil {
			return drained, fmt.Errorf("spool: publish %s: %w", name, err)
		}
		if err := os.Remove(path); err != nil {
			return drained, fmt.Errorf("spool: remove %s: %w", name, err)
		}
		drained++
	}
	return drained, nil
}

// Pending counts spooled-but-undrained records.
func (s *Spool) Pending() int {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() {
			n++
		}
	}
	return n
}
