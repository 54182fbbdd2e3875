package cmd

import "strings"

// isDBLockError returns true if the error chain contains a bbolt lock timeout.
// bbolt returns the string "timeout" when it cannot acquire the file lock
// within the configured deadline.
func isDBLockError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "timeout")
}

// diagnoseDBLock returns actionable guidance when a bbolt open fails due to
// lock contention. The usual holder is a running `weft watch`.
func diagnoseDBLock() string {
	return "database is locked by another weft process\n" +
		"  → a `weft watch` may be running for this project; stop it with `weft stop`\n" +
		"  → find the process:  ps aux | grep 'weft'\n" +
		"  → then retry your command"
}
