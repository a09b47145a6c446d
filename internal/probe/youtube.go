package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/KaioHerculano/livesync/internal/domain"
)

const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	// A channel's /live page embeds this token only while a stream is up.
	youtubeLiveMarker = `"isLive":true`

	maxBodyBytes = 2 << 20
)

var (
	youtubeTitleRe = regexp.MustCompile(`<title>(.*?)- YouTube</title>`)
	youtubeThumbRe = regexp.MustCompile(`"thumbnailUrl":["'](.*?)["']`)
)

// YouTube checks a channel's public live page. No API key, so no daily
// quota to run out of.
type YouTube struct {
	Logger  *zap.Logger
	Client  *http.Client
	BaseURL string
}

func NewYouTube(logger *zap.Logger, timeout time.Duration) *YouTube {
	if timeout <= 0 || timeout > 10*time.Second {
		timeout = 10 * time.Second
	}
	return &YouTube{
		Logger:  logger,
		Client:  &http.Client{Timeout: timeout},
		BaseURL: "https://www.youtube.com",
	}
}

func (y *YouTube) Probe(ctx context.Context, channelID string) domain.ProbeResult {
	url := fmt.Sprintf("%s/channel/%s/live", y.BaseURL, channelID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		y.Logger.Warn("youtube_probe_error", zap.String("channel_id", channelID), zap.Error(err))
		return domain.ProbeResult{}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := y.Client.Do(req)
	if err != nil {
		y.Logger.Warn("youtube_probe_error", zap.String("channel_id", channelID), zap.Error(err))
		return domain.ProbeResult{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		y.Logger.Warn("youtube_probe_status",
			zap.String("channel_id", channelID),
			zap.Int("status", resp.StatusCode),
		)
		return domain.ProbeResult{}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		y.Logger.Warn("youtube_probe_read_error", zap.String("channel_id", channelID), zap.Error(err))
		return domain.ProbeResult{}
	}

	html := string(body)
	if !strings.Contains(html, youtubeLiveMarker) {
		return domain.ProbeResult{}
	}

	title := "Live on YouTube"
	if m := youtubeTitleRe.FindStringSubmatch(html); m != nil {
		title = strings.TrimSpace(m[1])
	}
	thumbnail := ""
	if m := youtubeThumbRe.FindStringSubmatch(html); m != nil {
		thumbnail = m[1]
	}

	return domain.ProbeResult{Live: true, Title: title, Thumbnail: thumbnail}
}
