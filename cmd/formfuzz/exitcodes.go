package main

import "fmt"

// Exit codes for the formfuzz CLI.
const (
	ExitOK          = 0 // Record saved.
	ExitInvalidArgs = 1 // Bad flags, fixtures or config.
	ExitRunFailure  = 2 // The run reached the host but the record was not saved.
)

// exitCodeError carries a process exit code through cobra's error return.
type exitCodeError struct {
	code int
	msg  string
}

func (e *exitCodeError) Error() string {
	if e.msg != "" {
		return e.msg
	}
	return fmt.Sprintf("exit status %d", e.code)
}
