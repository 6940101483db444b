package session

import "sync"

// DefaultScrollSlack is how far, in pixels, the viewport may sit above the
// bottom of the log before the user counts as scrolled up.
const DefaultScrollSlack = 100

// ScrollAction tells the view what to do once a reply has finished typing.
type ScrollAction int

const (
	ScrollNone ScrollAction = iota
	SnapToBottom
	ShowNewMessage
)

func (a ScrollAction) String() string {
	switch a {
	case SnapToBottom:
		return "snap_to_bottom"
	case ShowNewMessage:
		return "show_new_message"
	default:
		return "none"
	}
}

// ScrollTracker derives the user's scroll intent from observed geometry and
// decides between auto-scrolling and a "new message" affordance.
type ScrollTracker struct {
	slack float64

	mu         sync.Mutex
	scrolledUp bool
	animating  bool
	newMessage bool
}

func NewScrollTracker(slack float64) *ScrollTracker {
	if slack < 0 {
		slack = DefaultScrollSlack
	}
	return &ScrollTracker{slack: slack}
}

// Observe records the geometry after a scroll or a layout change and returns
// the recomputed scrolled-up flag. Reaching the bottom by hand dismisses the
// affordance like JumpToLatest does.
func (t *ScrollTracker) Observe(contentHeight, scrollOffset, viewportHeight float64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.scrolledUp = contentHeight-scrollOffset > viewportHeight+t.slack
	if !t.scrolledUp {
		t.newMessage = false
	}
	return t.scrolledUp
}

func (t *ScrollTracker) UserScrolledUp() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.scrolledUp
}

// AutoScroll reports whether the view may follow content growth right now.
func (t *ScrollTracker) AutoScroll() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.animating && !t.scrolledUp
}

func (t *ScrollTracker) NewMessageVisible() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.newMessage
}

// AnimationStarted suppresses auto-scroll until AnimationFinished.
func (t *ScrollTracker) AnimationStarted() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.animating = true
	t.newMessage = false
}

func (t *ScrollTracker) AnimationFinished() ScrollAction {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.animating = false
	if t.scrolledUp {
		t.newMessage = true
		return ShowNewMessage
	}
	return SnapToBottom
}

// JumpToLatest is the explicit user action that scrolls to the bottom.
func (t *ScrollTracker) JumpToLatest() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scrolledUp = false
	t.newMessage = false
}

func (t *ScrollTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scrolledUp = false
	t.animating = false
	t.newMessage = false
}

// hideNewMessage drops the affordance when the user sends something new.
func (t *ScrollTracker) hideNewMessage() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.newMessage = false
}
