// Package authz implements the deny-by-default topic-to-action
// authorisation gate from spec.md §4.6: every sensitive operation has a
// boolean switch in config, and the shell family additionally consults an
// allow-list of binary names.
package authz

import "errors"

// Action names the sensitive operations spec.md §4.6 enumerates.
type Action string

const (
	FileRead        Action = "file_read"
	FileWrite       Action = "file_write"
	FileRemove      Action = "file_remove"
	DatastoreGet    Action = "datastore_get"
	DatastorePut    Action = "datastore_put"
	MailboxRead     Action = "mailbox_read"
	MailboxWrite    Action = "mailbox_write"
	ShellRun        Action = "shell_run"
	ShellRunAsync   Action = "shell_run_async"
	ShellPoll       Action = "shell_poll"
	ShellKill       Action = "shell_kill"
	ConsoleInput    Action = "console_input"
	DigitalRead     Action = "digital_read"
	DigitalWrite    Action = "digital_write"
	DigitalMode     Action = "digital_mode"
	AnalogRead      Action = "analog_read"
	AnalogWrite     Action = "analog_write"
)

// All lists every action the gate has a verdict for, in the order
// spec.md §4.6 lists them.
var All = []Action{
	FileRead, FileWrite, FileRemove, DatastoreGet, DatastorePut,
	MailboxRead, MailboxWrite, ShellRun, ShellRunAsync, ShellPoll, ShellKill,
	ConsoleInput, DigitalRead, DigitalWrite, DigitalMode, AnalogRead, AnalogWrite,
}

// ErrForbidden is the exact "topic-action-forbidden" status error spec.md
// §4.6 requires on the status topic for any action not enabled in config.
var ErrForbidden = errors.New("topic-action-forbidden")

// Policy is the deny-by-default gate: an action not present in Allowed is
// forbidden, matching every other unset config value's default.
type Policy struct {
	Allowed       map[Action]bool
	ShellCommands map[string]bool
	allowAllShell bool
}

// NewPolicy builds a Policy from the enabled actions and the shell
// allow-list ("" entries are ignored, "*" means "all commands", the empty
// list means "none").
func NewPolicy(enabled map[Action]bool, shellAllowList []string) *Policy {
	p := &Policy{Allowed: make(map[Action]bool), ShellCommands: make(map[string]bool)}
	for a, v := range enabled {
		p.Allowed[a] = v
	}
	for _, c := range shellAllowList {
		if c == "*" {
			p.allowAllShell = true
			continue
		}
		if c != "" {
			p.ShellCommands[c] = true
		}
	}
	return p
}

// Check reports whether action is permitted, returning ErrForbidden if not.
func (p *Policy) Check(action Action) error {
	if !p.Allowed[action] {
		return ErrForbidden
	}
	return nil
}

// CheckShellCommand additionally validates the binary name for the four
// shell actions, once Check(action) has already passed. A command outside
// the allow-list is the same "topic-action-forbidden" reason as a
// disabled action switch — spec.md §4.6 does not distinguish the two.
func (p *Policy) CheckShellCommand(action Action, command string) error {
	if err := p.Check(action); err != nil {
		return err
	}
	if p.allowAllShell {
		return nil
	}
	if !p.ShellCommands[command] {
		return ErrForbidden
	}
	return nil
}
