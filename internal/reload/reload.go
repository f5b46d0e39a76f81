// Package reload provides the hard-reset primitive the feed falls back to
// when it cannot recover locally (expired auth, join timeout).
package reload

type Reloader interface {
	Reload(forceGet bool)
}

// ReloadFunc adapts a plain function to Reloader.
type ReloadFunc func(forceGet bool)

func (f ReloadFunc) Reload(forceGet bool) { f(forceGet) }

// Signal is a Reloader that records requests for a supervising loop.
// Requests are coalesced: any number of Reload calls before the loop reads
// C yield one delivery, forced if any of them was forced.
type Signal struct {
	c chan bool
}

func NewSignal() *Signal {
	return &Signal{c: make(chan bool, 1)}
}

func (s *Signal) Reload(forceGet bool) {
	for {
		select {
		case s.c <- forceGet:
			return
		default:
		}
		select {
		case prev := <-s.c:
			forceGet = forceGet || prev
		default:
		}
	}
}

// C delivers pending reloads; the value reports whether it was forced.
func (s *Signal) C() <-chan bool { return s.c }
