package chat

import "go.uber.org/zap"

// Broadcaster fans the full online-user set out to every session
// whenever the registry changes. Always a full snapshot, never a
// diff, so staleness is bounded by one broadcast.
type Broadcaster struct {
	router *Router
	log    *zap.Logger
}

func NewBroadcaster(router *Router, log *zap.Logger) *Broadcaster {
	return &Broadcaster{router: router, log: log}
}

// PresenceChanged is wired as the registry's OnChange callback.
func (b *Broadcaster) PresenceChanged(online []int64) {
	b.log.Debug("presence changed", zap.Int("online", len(online)))
	b.router.Broadcast(OnlineUsersEvent(online))
}
