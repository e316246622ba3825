package session

import "sync"

// controlThread serializes every mutation of a session and every async
// completion posted back to it. Listeners run inside Do, so callers must never
// call Do from a listener.
type controlThread struct {
	mu sync.Mutex
}

func (t *controlThread) Do(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn()
}

type listeners []func()

func (l *listeners) add(fn func()) {
	*l = append(*l, fn)
}

func (l listeners) notify() {
	for _, fn := range l {
		fn()
	}
}
