package config

import "github.com/mculink/bridge/internal/authz"

// Policy builds an authz.Policy from the config's allow_* switches and
// allowed_commands list — the single place that maps spec.md §6's boolean
// names onto §4.6's Action identifiers.
func (c *RuntimeConfig) Policy() *authz.Policy {
	enabled := map[authz.Action]bool{
		authz.FileRead:      c.AllowFileRead,
		authz.FileWrite:     c.AllowFileWrite,
		authz.FileRemove:    c.AllowFileRemove,
		authz.DatastoreGet:  c.AllowDatastoreGet,
		authz.DatastorePut:  c.AllowDatastorePut,
		authz.MailboxRead:   c.AllowMailboxRead,
		authz.MailboxWrite:  c.AllowMailboxWrite,
		authz.ShellRun:      c.AllowShellRun,
		authz.ShellRunAsync: c.AllowShellRunAsync,
		authz.ShellPoll:     c.AllowShellPoll,
		authz.ShellKill:     c.AllowShellKill,
		authz.ConsoleInput:  c.AllowConsoleInput,
		authz.DigitalRead:   c.AllowDigitalRead,
		authz.DigitalWrite:  c.AllowDigitalWrite,
		authz.DigitalMode:   c.AllowDigitalMode,
		authz.AnalogRead:    c.AllowAnalogRead,
		authz.AnalogWrite:   c.AllowAnalogWrite,
	}
	return authz.NewPolicy(enabled, c.AllowedCommandList())
}
