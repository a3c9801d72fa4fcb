package engine

// PreviewGate admits at most one preview at a time. Acquisition never
// blocks: a second preview while one is open is simply refused.
type PreviewGate struct {
	slot chan struct{}
}

// NewPreviewGate returns an open gate.
func NewPreviewGate() *PreviewGate {
	return &PreviewGate{slot: make(chan struct{}, 1)}
}

// TryAcquire takes the gate if it is free.
func (g *PreviewGate) TryAcquire() bool {
	select {
	case g.slot <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release frees the gate. Releasing a free gate is a no-op.
func (g *PreviewGate) Release() {
	select {
	case <-g.slot:
	default:
	}
}
