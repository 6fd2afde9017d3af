package realtime

import (
	"sync"

	"go.uber.org/zap"
)

// Outlet is one attached delivery target for a user: a websocket connection
// or an in-process channel stream. Send must not block.
type Outlet interface {
	ID() string
	UserID() string
	Send(payload []byte) error
	Close(code int, reason string)
}

// Router fans persisted-message payloads out to every outlet attached for a
// recipient. Subscriptions are scoped per user account, not per
// conversation: a session receives everything addressed to its user and
// resolves the target thread locally.
//
// Payload order is preserved per caller: NotifyUser enqueues to each
// outlet's buffered channel under the read lock, so two NotifyUser calls
// made in persist order reach every outlet in that order.
type Router struct {
	mu      sync.RWMutex
	outlets map[string]map[string]Outlet // userID -> outletID -> outlet
	log     *zap.Logger
}

// NewRouter constructs an initialized Router.
func NewRouter(log *zap.Logger) *Router {
	if log == nil {
		log = zap.NewNop()
	}
	return &Router{
		outlets: make(map[string]map[string]Outlet),
		log:     log,
	}
}

// Attach registers an outlet for its user. A user may hold several attached
// outlets at once (multiple tabs, devices, plus in-process streams).
func (r *Router) Attach(o Outlet) {
	r.mu.Lock()
	set := r.outlets[o.UserID()]
	if set == nil {
		set = make(map[string]Outlet)
		r.outlets[o.UserID()] = set
	}
	set[o.ID()] = o
	r.mu.Unlock()
	r.log.Debug("outlet attached", zap.String("user", o.UserID()), zap.String("outlet", o.ID()))
}

// Detach removes an outlet if it is still tracked.
func (r *Router) Detach(o Outlet) {
	r.mu.Lock()
	if set, ok := r.outlets[o.UserID()]; ok {
		delete(set, o.ID())
		if len(set) == 0 {
			delete(r.outlets, o.UserID())
		}
	}
	r.mu.Unlock()
}

// NotifyUser delivers payload to every attached outlet of the user and
// returns how many accepted it. Zero means the user has no live session and
// the caller should fall back to offline notification.
func (r *Router) NotifyUser(userID string, payload []byte) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	delivered := 0
	for _, o := range r.outlets[userID] {
		if err := o.Send(payload); err == nil {
			delivered++
		}
	}
	return delivered
}

// HasListener reports whether the user has at least one attached outlet.
func (r *Router) HasListener(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.outlets[userID]) > 0
}

// Close terminates all tracked outlets and clears router state.
func (r *Router) Close() {
	r.mu.Lock()
	var all []Outlet
	for _, set := range r.outlets {
		for _, o := range set {
			all = append(all, o)
		}
	}
	r.outlets = make(map[string]map[string]Outlet)
	r.mu.Unlock()

	for _, o := range all {
		o.Close(1001, "router shutdown")
	}
}
