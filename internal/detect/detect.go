package detect

import "github.com/KaioHerculano/livesync/internal/domain"

// Decision is what one evaluation of a watch target resolved to.
type Decision struct {
	NewStatus domain.Status
	Notify    bool
	Kind      domain.EventKind
}

// Changed reports whether the status write is needed at all.
func (d Decision) Changed(prev domain.Status) bool {
	return d.NewStatus != prev
}

// Evaluate decides whether a probe result means a transition happened.
// Pure function: this is the only gate between polling and notifying, so
// consecutive polls of an unchanged stream produce zero notifications.
//
//	Unknown/Offline -> Online  fires "started"
//	Online -> Offline          fires "ended"
//	anything -> same state     fires nothing
//
// A first sighting of an offline channel (Unknown -> Offline) is silent.
func Evaluate(prev domain.Status, pr domain.ProbeResult) Decision {
	if pr.Live {
		if prev != domain.StatusOnline {
			return Decision{NewStatus: domain.StatusOnline, Notify: true, Kind: domain.EventStarted}
		}
		return Decision{NewStatus: domain.StatusOnline}
	}
	if prev == domain.StatusOnline {
		return Decision{NewStatus: domain.StatusOffline, Notify: true, Kind: domain.EventEnded}
	}
	return Decision{NewStatus: domain.StatusOffline}
}
