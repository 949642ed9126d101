package lifecycle

import "github.com/vitwit/arpay/types"

// Listener receives copies of QR objects as they change. Any callback may be
// nil. Callbacks run on the goroutine that caused the change, after the
// manager has released its lock, so they may call back into the manager.
type Listener struct {
	// A QR became Active.
	OnAdded func(types.QRObject)
	// A QR left the active registry (expired, resolved, or past its scan grace).
	OnRemoved func(types.QRObject)
	// A QR was scanned.
	OnScanned func(types.QRObject)
	// A QR reached Expired, Paid or Failed.
	OnResolved func(types.QRObject)
}

type eventKind int

const (
	eventAdded eventKind = iota
	eventRemoved
	eventScanned
	eventResolved
)

type event struct {
	kind eventKind
	qr   types.QRObject
}

// Subscribe registers l and returns a function that removes it.
func (m *Manager) Subscribe(l Listener) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.listeners[id] = l
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

func (m *Manager) dispatch(events []event) {
	if len(events) == 0 {
		return
	}

	m.mu.Lock()
	listeners := make([]Listener, 0, len(m.listeners))
	for _, l := range m.listeners {
		listeners = append(listeners, l)
	}
	m.mu.Unlock()

	for _, ev := range events {
		for _, l := range listeners {
			var fn func(types.QRObject)
			switch ev.kind {
			case eventAdded:
				fn = l.OnAdded
			case eventRemoved:
				fn = l.OnRemoved
			case eventScanned:
				fn = l.OnScanned
			case eventResolved:
				fn = l.OnResolved
			}
			if fn != nil {
				fn(ev.qr)
			}
		}
	}
}
