// Package service implements the service engine (C5): the dispatch half
// of the link layer. Design note 4 (spec.md §9) replaces the original
// ad-hoc inheritance over subsystem classes with a closed set of tagged
// variants sharing one capability — Handle(payload) → Outcome — looked up
// by command id in a table. Engine is that table; it satisfies
// link.Handler directly, so it plugs straight into link.New.
//
// The eight handler kinds (link, system, GPIO, console, datastore,
// mailbox, filesystem, process) execute on different physical sides of
// the bridge: GPIO/system/console run on the MCU (it owns the pins, the
// firmware version, and one end of the console stream), while datastore/
// mailbox/filesystem/process run on the MPU (it owns the filesystem,
// process table, and persistent key/value store). Both peers build an
// Engine from this same package and register only the handlers that
// belong to their side; link itself never distinguishes between them.
package service

import "github.com/mculink/bridge/internal/link"

// CommandHandler is the per-command capability every handler kind
// implements: decode payload, perform the side effect, return an
// optional response frame.
type CommandHandler interface {
	Handle(payload []byte) link.Outcome
}

// CommandHandlerFunc adapts a plain function to CommandHandler.
type CommandHandlerFunc func(payload []byte) link.Outcome

func (f CommandHandlerFunc) Handle(payload []byte) link.Outcome { return f(payload) }

// Engine is a command-id → handler table. It implements link.Handler.
type Engine struct {
	handlers  map[uint16]CommandHandler
	statusCmdUnknown uint16
}

// NewEngine returns an empty table that replies STATUS_CMD_UNKNOWN
// (statusCmdUnknown) for any command id with no registered handler.
func NewEngine(statusCmdUnknown uint16) *Engine {
	return &Engine{
		handlers:         make(map[uint16]CommandHandler),
		statusCmdUnknown: statusCmdUnknown,
	}
}

// Register binds id to h. A second Register call for the same id replaces
// the handler — callers build the table once at startup.
func (e *Engine) Register(id uint16, h CommandHandler) {
	e.handlers[id] = h
}

// RegisterFunc is the CommandHandlerFunc convenience form of Register.
func (e *Engine) RegisterFunc(id uint16, f func(payload []byte) link.Outcome) {
	e.Register(id, CommandHandlerFunc(f))
}

// Handle implements link.Handler: table lookup, falling back to
// STATUS_CMD_UNKNOWN with the unrecognised id echoed in the payload.
func (e *Engine) Handle(id uint16, payload []byte) link.Outcome {
	h, ok := e.handlers[id]
	if !ok {
		return link.Outcome{
			HasResp:     true,
			RespID:      e.statusCmdUnknown,
			RespPayload: []byte{byte(id >> 8), byte(id)},
		}
	}
	return h.Handle(payload)
}
