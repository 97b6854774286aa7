package haptics

import "errors"

type engineState int

const (
	stateUninitialized engineState = iota
	stateReady
	stateInvalidated
	stateStopped
)

func (s engineState) String() string {
	switch s {
	case stateUninitialized:
		return "uninitialized"
	case stateReady:
		return "ready"
	case stateInvalidated:
		return "invalidated"
	case stateStopped:
		return "stopped"
	}
	return "unknown"
}

// anyGeneration invalidates whatever engine is current
const anyGeneration = 0

// Invalidate marks the current engine as stale. It is safe to call from any
// goroutine, never blocks and never releases resources; the engine is replaced
// on the next operation that needs it.
func (h *Haptics) Invalidate() {
	h.signalReset(anyGeneration)
}

func (h *Haptics) signalReset(gen uint64) {
	for {
		select {
		case h.resets <- gen:
			return
		default:
		}
		// Slot is full: drop the older signal so the newest one wins.
		select {
		case <-h.resets:
		default:
		}
	}
}

// drain applies a pending reset signal. Control thread only.
func (h *Haptics) drain() {
	select {
	case gen := <-h.resets:
		if h.state != stateReady {
			return
		}
		if gen != anyGeneration && gen != h.generation {
			h.logger.Debug("ignoring reset from replaced engine", "generation", gen)
			return
		}
		h.state = stateInvalidated
		h.logger.Info("haptic engine invalidated", "generation", h.generation)
	default:
	}
}

// ensureReady makes sure a started engine is held, creating it when needed.
func (h *Haptics) ensureReady() error {
	h.drain()

	switch h.state {
	case stateStopped:
		return ErrShutdown
	case stateReady:
		return nil
	case stateInvalidated:
		h.releaseEngine()
	}

	if !h.Capabilities().Core {
		return ErrUnsupported
	}

	// Every attempt takes a generation, so a failed engine that later
	// reports a reset cannot pass for its successor.
	h.generation++
	gen := h.generation
	eng, err := h.platform.NewEngine(func() { h.signalReset(gen) })
	if err != nil {
		h.logger.Warn("haptic engine construction failed", "error", err)
		return &StartError{Cause: err}
	}
	if err := eng.Start(); err != nil {
		if stopErr := eng.Stop(); stopErr != nil {
			h.logger.Debug("rollback of failed engine", "error", stopErr)
		}
		h.logger.Warn("haptic engine start failed", "error", err)
		return &StartError{Cause: err}
	}

	h.engine = eng
	h.state = stateReady
	h.logger.Debug("haptic engine ready", "generation", gen)
	return nil
}

// releaseEngine stops and drops the held engine, if any.
func (h *Haptics) releaseEngine() {
	if h.engine == nil {
		return
	}
	if err := h.engine.Stop(); err != nil {
		h.logger.Debug("stopping stale engine", "error", err)
	}
	h.engine = nil
	h.continuousActive = false
	if h.state != stateStopped {
		h.state = stateUninitialized
	}
}

// Shutdown halts playback, releases the engine and makes the instance
// permanently inert. Safe to call more than once.
func (h *Haptics) Shutdown() {
	if h.state == stateStopped {
		return
	}
	h.closed.Store(true)
	h.drain()

	if h.engine != nil && h.state == stateReady && h.continuousActive {
		if err := h.engine.Halt(); err != nil && !errors.Is(err, ErrInvalidated) {
			h.logger.Debug("halting playback on shutdown", "error", err)
		}
	}
	h.releaseEngine()
	h.state = stateStopped
	h.logger.Info("haptics shut down")
}
