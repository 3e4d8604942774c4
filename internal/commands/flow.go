// Package commands implements the dialog flows that turn user input into bus commands:
// rename, new file, new folder, upload and delete.
//
// Each flow is a small state machine. Arm opens it for a target entry, input is edited
// and validated, and Submit emits the command and closes the flow. Cancel closes it
// without emitting anything.
package commands

import (
	"errors"
	"strings"
)

// State is the state of a dialog flow.
type State int

const (
	Closed    State = iota
	Editing         // input is being edited
	Blocked         // the flow refused to start; Reason explains why
	Armed           // waiting for a confirmation
	Submitted       // command emitted, waiting for completion
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Editing:
		return "editing"
	case Blocked:
		return "blocked"
	case Armed:
		return "armed"
	case Submitted:
		return "submitted"
	default:
		return "unknown"
	}
}

var (
	// ErrInvalidName is returned when a name is empty or not filesystem safe.
	ErrInvalidName = errors.New("invalid filename")
	// ErrNotOpen is returned when a flow is used without being armed.
	ErrNotOpen = errors.New("dialog is not open")
	// ErrNoFiles is returned when an upload is submitted with nothing selected.
	ErrNoFiles = errors.New("no files selected")
	// ErrFileTooLarge is returned when a selected upload exceeds the size limit.
	ErrFileTooLarge = errors.New("file exceeds maximum size")
)

// lastSegment keeps only the final path component of a user-supplied name.
func lastSegment(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		return name[i+1:]
	}
	return name
}
