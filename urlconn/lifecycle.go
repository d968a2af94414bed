package urlconn

// Lifecycle tracks a connection's state: unconnected, then exactly one of
// connected or failed. Both outcomes are terminal. A failed lifecycle
// returns the stored error on every later Establish without calling fn again.
//
// The zero value is unconnected. Lifecycle is not safe for concurrent use.
type Lifecycle struct {
	state lifecycleState
	err   error
}

type lifecycleState int

const (
	unconnected lifecycleState = iota
	connected
	failed
)

// Establish runs fn on the first call and records its outcome.
func (l *Lifecycle) Establish(fn func() error) error {
	switch l.state {
	case failed:
		return l.err
	case connected:
		return nil
	}
	if err := fn(); err != nil {
		l.state = failed
		l.err = err
		return err
	}
	l.state = connected
	return nil
}

// Connected reports whether Establish has succeeded.
func (l *Lifecycle) Connected() bool {
	return l.state == connected
}

// Attempted reports whether Establish has run, successfully or not.
func (l *Lifecycle) Attempted() bool {
	return l.state != unconnected
}

// Err returns the stored failure, or nil.
func (l *Lifecycle) Err() error {
	return l.err
}
