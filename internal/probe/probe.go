package probe

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/KaioHerculano/livesync/internal/domain"
)

// Prober answers "is this channel live right now" for one platform.
//
// Probes are best-effort: any network, timeout or parse problem is logged
// and reported as offline. A Probe call never returns an error, because a
// transient check failure must not look different from a clean miss to the
// transition logic.
type Prober interface {
	Probe(ctx context.Context, channelID string) domain.ProbeResult
}

// Registry maps each supported platform to its prober.
type Registry map[domain.Platform]Prober

func NewRegistry(logger *zap.Logger, timeout time.Duration) Registry {
	return Registry{
		domain.PlatformTikTok:  NewTikTok(logger, timeout),
		domain.PlatformYouTube: NewYouTube(logger, timeout),
	}
}

func (r Registry) ForPlatform(p domain.Platform) (Prober, bool) {
	pr, ok := r[p]
	return pr, ok
}
