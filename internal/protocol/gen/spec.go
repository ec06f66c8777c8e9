// Package gen parses protocol/spec.txt, the DSL consumed by cmd/protogen.
package gen

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// Command is one parsed `command` line.
type Command struct {
	Name       string
	ID         uint16
	Ack        bool
	Response   string
	Idempotent bool
}

// Status is one parsed `status` line.
type Status struct {
	Name string
	ID   uint16
}

// Spec is the fully parsed protocol/spec.txt.
type Spec struct {
	Version           int
	MaxPayload         int
	NonceLen           int
	TagLen             int
	AckTimeoutMS       int
	RetryLimit         int
	ResponseTimeoutMS  int
	Commands           []Command
	Statuses           []Status
}

// Parse reads the line-oriented spec format described in protocol/spec.txt's
// own header comment.
func Parse(r io.Reader) (*Spec, error) {
	s := &Spec{}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "version":
			s.Version = mustInt(fields[1], lineNo)
		case "max_payload":
			s.MaxPayload = mustInt(fields[1], lineNo)
		case "nonce_len":
			s.NonceLen = mustInt(fields[1], lineNo)
		case "tag_len":
			s.TagLen = mustInt(fields[1], lineNo)
		case "ack_timeout_ms":
			s.AckTimeoutMS = mustInt(fields[1], lineNo)
		case "retry_limit":
			s.RetryLimit = mustInt(fields[1], lineNo)
		case "response_timeout_ms":
			s.ResponseTimeoutMS = mustInt(fields[1], lineNo)
		case "command":
			cmd, err := parseCommand(fields, lineNo)
			if err != nil {
				return nil, err
			}
			s.Commands = append(s.Commands, cmd)
		case "status":
			if len(fields) < 3 {
				return nil, fmt.Errorf("line %d: status needs name and id", lineNo)
			}
			id, err := strconv.ParseUint(fields[2], 0, 16)
			if err != nil {
				return nil, fmt.Errorf("line %d: bad status id %q: %w", lineNo, fields[2], err)
			}
			s.Statuses = append(s.Statuses, Status{Name: fields[1], ID: uint16(id)})
		default:
			return nil, fmt.Errorf("line %d: unknown directive %q", lineNo, fields[0])
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return s, validate(s)
}

func parseCommand(fields []string, lineNo int) (Command, error) {
	if len(fields) < 3 {
		return Command{}, fmt.Errorf("line %d: command needs name and id", lineNo)
	}
	id, err := strconv.ParseUint(fields[2], 0, 16)
	if err != nil {
		return Command{}, fmt.Errorf("line %d: bad command id %q: %w", lineNo, fields[2], err)
	}
	cmd := Command{Name: fields[1], ID: uint16(id), Idempotent: true}
	for _, kv := range fields[3:] {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return Command{}, fmt.Errorf("line %d: bad attribute %q", lineNo, kv)
		}
		switch k {
		case "ack":
			cmd.Ack = v == "yes"
		case "resp":
			cmd.Response = v
		case "idempotent":
			cmd.Idempotent = v != "no"
		default:
			return Command{}, fmt.Errorf("line %d: unknown attribute %q", lineNo, k)
		}
	}
	return cmd, nil
}

func mustInt(s string, lineNo int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		panic(fmt.Sprintf("line %d: bad integer %q", lineNo, s))
	}
	return n
}

// validate checks the invariant that command and status numeric ranges
// never overlap, and that there are no duplicate names or IDs.
func validate(s *Spec) error {
	seenID := map[uint16]string{}
	seenName := map[string]bool{}
	for _, c := range s.Commands {
		if c.ID >= 0x4000 {
			return fmt.Errorf("command %s: id 0x%04x must be < 0x4000 (bits 14-15 are reserved)", c.Name, c.ID)
		}
		if other, ok := seenID[c.ID]; ok {
			return fmt.Errorf("command %s: id 0x%04x reused from %s", c.Name, c.ID, other)
		}
		seenID[c.ID] = c.Name
		if seenName[c.Name] {
			return fmt.Errorf("command %s: duplicate name", c.Name)
		}
		seenName[c.Name] = true
	}
	seenStatusID := map[uint16]string{}
	for _, st := range s.Statuses {
		if st.ID >= 0x8000 {
			return fmt.Errorf("status %s: id 0x%04x must be < 0x8000", st.Name, st.ID)
		}
		if other, ok := seenStatusID[st.ID]; ok {
			return fmt.Errorf("status %s: id 0x%04x reused from %s", st.Name, st.ID, other)
		}
		seenStatusID[st.ID] = st.Name
		if seenName[st.Name] {
			return fmt.Errorf("status %s: name collides with a command", st.Name)
		}
	}
	for _, c := range s.Commands {
		if c.Response == "" {
			continue
		}
		if _, ok := seenID[findID(s.Commands, c.Response)]; !ok {
			return fmt.Errorf("command %s: resp=%s is not a defined command", c.Name, c.Response)
		}
	}
	return nil
}

func findID(cmds []Command, name string) uint16 {
	for _, c := range cmds {
		if c.Name == name {
			return c.ID
		}
	}
	return 0xffff
}

// SortedCommands returns Commands sorted by ID, for deterministic codegen.
func (s *Spec) SortedCommands() []Command {
	out := append([]Command(nil), s.Commands...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SortedStatuses returns Statuses sorted by ID, for deterministic codegen.
func (s *Spec) SortedStatuses() []Status {
	out := append([]Status(nil), s.Statuses...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
