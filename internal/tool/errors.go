package tool

import "errors"

// Sentinel errors for tool registration and lookup.
var (
	// ErrEmptyToolName indicates a tool with a blank name was registered.
	ErrEmptyToolName = errors.New("tool: empty tool name")

	// ErrDuplicateTool indicates a tool name was registered twice.
	ErrDuplicateTool = errors.New("tool: duplicate tool")

	// ErrToolNotFound indicates a lookup for an unregistered tool name.
	ErrToolNotFound = errors.New("tool: not found")
)
