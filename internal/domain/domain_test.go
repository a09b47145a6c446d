package domain

import "testing"

func TestWatchURL(t *testing.T) {
	cases := []struct {
		platform Platform
		channel  string
		want     string
	}{
		{PlatformTikTok, "somecreator", "https://www.tiktok.com/@somecreator/live"},
		{PlatformTikTok, "@somecreator", "https://www.tiktok.com/@somecreator/live"},
		{PlatformYouTube, "UCabc123", "https://www.youtube.com/channel/UCabc123/live"},
		{Platform("TWITCH"), "x", ""},
	}
	for _, c := range cases {
		if got := WatchURL(c.platform, c.channel); got != c.want {
			t.Errorf("WatchURL(%s, %q) = %q, want %q", c.platform, c.channel, got, c.want)
		}
	}
}

func TestPlatformValid(t *testing.T) {
	if !PlatformTikTok.Valid() || !PlatformYouTube.Valid() {
		t.Fatal("known platforms should be valid")
	}
	if Platform("TWITCH").Valid() {
		t.Fatal("unknown platform should be invalid")
	}
}

func TestPlatformDisplay(t *testing.T) {
	if PlatformTikTok.Display() != "TikTok" {
		t.Fatalf("got %q", PlatformTikTok.Display())
	}
	if PlatformYouTube.Display() != "YouTube" {
		t.Fatalf("got %q", PlatformYouTube.Display())
	}
}
