package chat

import "go.uber.org/zap"

// Router resolves a target user to a live session and pushes typed
// events over it. Delivery is at-most-once and best-effort: no queue,
// no retry, absent targets are a routine miss, not an error.
type Router struct {
	registry *Registry
	log      *zap.Logger
}

func NewRouter(registry *Registry, log *zap.Logger) *Router {
	return &Router{registry: registry, log: log}
}

// Deliver pushes evt to userID's session if one is registered.
// Returns true only when the frame was queued on a live session.
func (r *Router) Deliver(userID int64, evt Event) bool {
	sess := r.registry.Lookup(userID)
	if sess == nil {
		r.log.Debug("delivery miss: no session",
			zap.Int64("user", userID), zap.String("event", evt.Name))
		return false
	}

	frame, err := evt.encode()
	if err != nil {
		r.log.Error("encode event", zap.String("event", evt.Name), zap.Error(err))
		return false
	}

	if !sess.push(frame) {
		r.log.Debug("delivery miss: session closed or buffer full",
			zap.Int64("user", userID), zap.String("event", evt.Name))
		return false
	}
	return true
}

// Broadcast pushes evt to every registered session. Slow sessions get
// the frame dropped rather than stalling the fan-out.
func (r *Router) Broadcast(evt Event) {
	frame, err := evt.encode()
	if err != nil {
		r.log.Error("encode event", zap.String("event", evt.Name), zap.Error(err))
		return
	}
	for _, sess := range r.registry.Sessions() {
		if !sess.push(frame) {
			r.log.Debug("broadcast drop",
				zap.Int64("user", sess.UserID), zap.String("event", evt.Name))
		}
	}
}
