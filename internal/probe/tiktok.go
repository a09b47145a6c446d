package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/KaioHerculano/livesync/internal/domain"
)

// A TikTok live page carries the room in state 2 while streaming
// (4 once it has ended).
const tiktokLiveMarker = `"status":2`

// TikTok checks a creator's public live page. Each probe runs on a fresh
// session with its own cookie jar, keyed by the handle being checked.
type TikTok struct {
	Logger  *zap.Logger
	Timeout time.Duration
	BaseURL string
}

func NewTikTok(logger *zap.Logger, timeout time.Duration) *TikTok {
	if timeout <= 0 || timeout > 10*time.Second {
		timeout = 10 * time.Second
	}
	return &TikTok{
		Logger:  logger,
		Timeout: timeout,
		BaseURL: "https://www.tiktok.com",
	}
}

func (t *TikTok) Probe(ctx context.Context, channelID string) domain.ProbeResult {
	handle := strings.TrimPrefix(strings.TrimSpace(channelID), "@")
	if handle == "" {
		t.Logger.Warn("tiktok_probe_error", zap.String("channel_id", channelID), zap.String("reason", "empty handle"))
		return domain.ProbeResult{}
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Logger.Warn("tiktok_probe_error", zap.String("channel_id", handle), zap.Error(err))
		return domain.ProbeResult{}
	}
	client := &http.Client{Timeout: t.Timeout, Jar: jar}

	url := fmt.Sprintf("%s/@%s/live", t.BaseURL, handle)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		t.Logger.Warn("tiktok_probe_error", zap.String("channel_id", handle), zap.Error(err))
		return domain.ProbeResult{}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := client.Do(req)
	if err != nil {
		t.Logger.Warn("tiktok_probe_error", zap.String("channel_id", handle), zap.Error(err))
		return domain.ProbeResult{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Logger.Warn("tiktok_probe_status",
			zap.String("channel_id", handle),
			zap.Int("status", resp.StatusCode),
		)
		return domain.ProbeResult{}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		t.Logger.Warn("tiktok_probe_read_error", zap.String("channel_id", handle), zap.Error(err))
		return domain.ProbeResult{}
	}

	if !strings.Contains(string(body), tiktokLiveMarker) {
		return domain.ProbeResult{}
	}

	// The live page exposes no usable stream title without rendering JS.
	return domain.ProbeResult{Live: true, Title: fmt.Sprintf("@%s is live on TikTok", handle)}
}
