package wizard

import "github.com/serikovn/nexpr-update/core/telegram/state"

// Sessions keeps one in-progress wizard per admin. It lives in process memory
// only; a restart drops every open session.
type Sessions interface {
	Get(adminID int64) (Step, bool)
	Set(adminID int64, step Step)
	Delete(adminID int64)
}

// NewMemorySessions returns the in-memory session store.
func NewMemorySessions() *state.Memory[Step] {
	return state.NewMemory[Step]()
}
