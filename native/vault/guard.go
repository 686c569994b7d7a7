package vault

// reentrancyGuard is a per-engine lock flag establishing a scoped critical
// section around each public operation. The host runs operations serially, so
// this is not a mutex: it exists to reject a collaborator calling back into
// the engine while an operation is still in flight.
type reentrancyGuard struct {
	locked bool
}

func (g *reentrancyGuard) enter() error {
	if g.locked {
		return ErrReentrant
	}
	g.locked = true
	return nil
}

// exit releases the guard. Callers defer it immediately after enter so the
// lock is released on every exit path, success or failure.
func (g *reentrancyGuard) exit() {
	g.locked = false
}
