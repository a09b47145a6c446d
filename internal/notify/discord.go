package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/KaioHerculano/livesync/internal/domain"
)

const (
	colorStarted = 0x00FF00
	colorEnded   = 0x808080
)

// Discord posts rich-embed messages to Discord-compatible webhook URLs.
type Discord struct {
	Logger *zap.Logger
	Client *http.Client
}

func NewDiscord(logger *zap.Logger, timeout time.Duration) *Discord {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Discord{
		Logger: logger,
		Client: &http.Client{Timeout: timeout},
	}
}

type embedField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type embedThumbnail struct {
	URL string `json:"url"`
}

type embedFooter struct {
	Text string `json:"text"`
}

type embed struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Color       int             `json:"color"`
	Fields      []embedField    `json:"fields,omitempty"`
	Thumbnail   *embedThumbnail `json:"thumbnail,omitempty"`
	Footer      embedFooter     `json:"footer"`
	Timestamp   string          `json:"timestamp"`
}

type webhookPayload struct {
	Embeds []embed `json:"embeds"`
}

// Send makes exactly one outbound call, with no retry. An unset webhook URL
// fails fast without touching the network.
func (d *Discord) Send(ctx context.Context, target *domain.WatchTarget, kind domain.EventKind, title, thumbnail string) (bool, string) {
	if target.WebhookURL == "" {
		return false, "missing webhook URL"
	}

	e := embed{
		Footer:    embedFooter{Text: "LiveSync Bot - Automation: " + target.Name},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if kind == domain.EventStarted {
		e.Title = "🔴 LIVE STARTED!"
		e.Color = colorStarted
		e.Description = fmt.Sprintf("The live **%s** just started on %s!", title, target.Platform.Display())
	} else {
		e.Title = "⚫ LIVE ENDED!"
		e.Color = colorEnded
		e.Description = fmt.Sprintf("The live on %s has ended. Thanks everyone!", target.Platform.Display())
	}
	if thumbnail != "" {
		e.Thumbnail = &embedThumbnail{URL: thumbnail}
	}
	link := domain.WatchURL(target.Platform, target.ChannelID)
	e.Fields = append(e.Fields, embedField{
		Name:  "Watch now",
		Value: fmt.Sprintf("[Click here to join](%s)", link),
	})

	body, err := json.Marshal(webhookPayload{Embeds: []embed{e}})
	if err != nil {
		return false, err.Error()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return false, err.Error()
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.Client.Do(req)
	if err != nil {
		d.Logger.Warn("discord_send_error",
			zap.String("target_id", string(target.ID)),
			zap.Error(err),
		)
		return false, err.Error()
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return false, "discord returned status " + resp.Status
	}
	return true, "sent successfully"
}
