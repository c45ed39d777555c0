package supervision

// Tracker defines the interface for tracking skills that need manual action.
//
// Standard implementation: *UnsupportedTracker
type Tracker interface {
	// Add tracks a skill with the reason it was not updated.
	Add(name, reason string)

	// Messages returns one formatted message per reason, or nil.
	Messages() []string
}

var _ Tracker = (*UnsupportedTracker)(nil)
