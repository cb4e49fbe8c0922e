package sectionsync

import "github.com/misicnenad/fith-on/internal/sections"

// Subscribe returns a channel that receives the engine state after every observable
// transition. Only the latest undelivered state is kept for a slow reader.
func (e *Engine) Subscribe() (<-chan State, func()) {
	stream := make(chan State, 1)

	e.mu.Lock()
	e.nextSubscriber++
	id := e.nextSubscriber
	e.subscribers[id] = stream
	stream <- e.stateLocked()
	e.mu.Unlock()

	var cancelled bool
	cancel := func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if cancelled {
			return
		}
		cancelled = true
		delete(e.subscribers, id)
		close(stream)
	}
	return stream, cancel
}

func (e *Engine) stateLocked() State {
	return State{
		Sections: sections.CloneAll(e.items),
		Busy:     e.inFlight > 0,
	}
}

func (e *Engine) notifyLocked() {
	if len(e.subscribers) == 0 {
		return
	}
	state := e.stateLocked()
	for _, stream := range e.subscribers {
		select {
		case stream <- state:
			continue
		default:
		}
		select {
		case <-stream:
		default:
		}
		select {
		case stream <- state:
		default:
		}
	}
}
