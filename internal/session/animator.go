package session

import (
	"time"

	"wargabantuin/internal/domain"
)

// animator is the typing state of a Session. It is only touched with the
// session lock held; the reveal loop re-checks its generation on every tick.
type animator struct {
	generation uint64
	state      *domain.TypingState
	runes      []rune
	stop       chan struct{}
}

func (a *animator) active() bool {
	return a.state != nil
}

// cancel stales the current generation without finalizing. Revealed text
// stays in the log.
func (a *animator) cancel() {
	if a.stop != nil {
		close(a.stop)
		a.stop = nil
	}
	a.generation++
	a.state = nil
	a.runes = nil
}

func (s *Session) startTypingLocked(text string) {
	s.anim.cancel()
	gen := s.anim.generation
	s.anim.state = &domain.TypingState{FullText: text, Generation: gen}
	s.anim.runes = []rune(text)
	s.scroll.AnimationStarted()

	if len(s.anim.runes) == 0 {
		s.finishTypingLocked()
		return
	}
	stop := make(chan struct{})
	s.anim.stop = stop
	go s.typeLoop(gen, stop)
}

func (s *Session) typeLoop(gen uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !s.revealNext(gen) {
				return
			}
		}
	}
}

// revealNext shows one more rune and reports whether the loop should go on.
func (s *Session) revealNext(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.anim.state
	if st == nil || st.Generation != gen {
		return false
	}
	st.Revealed++
	s.updateLastLocked(string(s.anim.runes[:st.Revealed]))
	if st.Revealed < len(s.anim.runes) {
		return true
	}
	s.finishTypingLocked()
	return false
}

func (s *Session) finishTypingLocked() {
	s.anim.state = nil
	s.anim.runes = nil
	s.anim.stop = nil
	s.finalizeLocked(s.scroll.AnimationFinished())
	s.settleLocked()
}
