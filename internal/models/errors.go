package models

import "fmt"

// Error taxonomy shared across the engine. Every failure surfaced to the
// orchestrator is one of these four kinds so it can be logged and broadcast
// with a stable kind label instead of crashing the loop.

type ConfigurationError struct {
	Op  string
	Msg string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Op, e.Msg)
}

type DataError struct {
	Op  string
	Msg string
	Err error
}

func (e *DataError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("data: %s: %s: %v", e.Op, e.Msg, e.Err)
	}
	return fmt.Sprintf("data: %s: %s", e.Op, e.Msg)
}

func (e *DataError) Unwrap() error { return e.Err }

type ExecutionError struct {
	Stage string
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution: %s: %v", e.Stage, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Msg)
}
