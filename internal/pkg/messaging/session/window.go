package session

import (
	messaging "github.com/GamerOZE123/unigramm1-sub000/internal/pkg/messaging/application/domain"
)

// topThreshold is how close to the top of the viewport (in pixels) the
// scroll position must be before a backward page is requested.
const topThreshold = 32

// Viewport is the scroll geometry the UI reports when asking for older
// messages.
type Viewport struct {
	ScrollTop    int
	ScrollHeight int
}

// AnchorAfterSplice recomputes the scroll offset that keeps the viewer's
// visual position unchanged after older messages are spliced in front of the
// window. Pure function of the two geometries.
func AnchorAfterSplice(before, after Viewport) int {
	return after.ScrollHeight - before.ScrollHeight + before.ScrollTop
}

// Window is the loaded slice of one conversation, ordered ascending by
// created-at. It is owned by a single session event loop; the Session
// serializes access.
type Window struct {
	msgs      []messaging.Message
	pageSize  int
	exhausted bool
	seen      map[string]struct{}
}

func NewWindow(pageSize int) *Window {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &Window{pageSize: pageSize, seen: make(map[string]struct{})}
}

// Messages returns the window contents, oldest first.
func (w *Window) Messages() []messaging.Message {
	return w.msgs
}

func (w *Window) Len() int { return len(w.msgs) }

// OldestCursor returns the oldest loaded message's (created-at, id)
// position, the before-cursor for the next backward page. Nil when nothing
// is loaded.
func (w *Window) OldestCursor() *messaging.MessageCursor {
	if len(w.msgs) == 0 {
		return nil
	}
	c := w.msgs[0].Cursor()
	return &c
}

// Exhausted reports whether a previous backward page came back short,
// meaning no older history remains.
func (w *Window) Exhausted() bool { return w.exhausted }

// ShouldLoadOlder gates backward pagination: the window must already hold a
// full page (avoids prefetch thrashing) and the viewport top must be within
// the threshold of zero.
func (w *Window) ShouldLoadOlder(vp Viewport) bool {
	return !w.exhausted && len(w.msgs) >= w.pageSize && vp.ScrollTop <= topThreshold
}

// Reset replaces the window with the newest page.
func (w *Window) Reset(page []messaging.Message) {
	w.msgs = nil
	w.seen = make(map[string]struct{}, len(page))
	w.exhausted = len(page) < w.pageSize
	for _, m := range page {
		w.seen[m.ID] = struct{}{}
	}
	w.msgs = append(w.msgs, page...)
}

// SpliceOlder prepends a backward page, dropping anything already loaded so
// a duplicated cursor request cannot introduce repeats. A short page marks
// the window exhausted.
func (w *Window) SpliceOlder(page []messaging.Message) {
	if len(page) < w.pageSize {
		w.exhausted = true
	}
	fresh := page[:0:0]
	for _, m := range page {
		if _, dup := w.seen[m.ID]; dup {
			continue
		}
		w.seen[m.ID] = struct{}{}
		fresh = append(fresh, m)
	}
	if len(fresh) == 0 {
		return
	}
	w.msgs = append(fresh, w.msgs...)
}

// Append adds a newly arrived message at the tail. Returns false when the
// message was already present (local echo already reconciled).
func (w *Window) Append(m messaging.Message) bool {
	if _, dup := w.seen[m.ID]; dup {
		return false
	}
	w.seen[m.ID] = struct{}{}
	w.msgs = append(w.msgs, m)
	return true
}
