package domain

import "errors"

var (
	ErrToolNotFound      = errors.New("tool not found")
	ErrAccountNotFound   = errors.New("account section not found")
	ErrDuplicateTool     = errors.New("duplicate tool name")
	ErrInvalidDefinition = errors.New("invalid tool definition")
	ErrRegistryFrozen    = errors.New("registry is frozen")
)
