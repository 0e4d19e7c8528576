package domain

// Setting is a key/value configuration row persisted across restarts.
// The full-sync state manager uses it to resume an interrupted cycle.
type Setting struct {
	Key   string
	Value string
}
