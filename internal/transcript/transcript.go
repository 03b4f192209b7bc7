// Package transcript fetches YouTube video transcripts. It tries the
// internal player API across several client personas and falls back to
// scraping the caption track list embedded in the public watch page.
// Retrieval is best-effort; callers translate failures into 404/500s.
package transcript

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	xhtml "golang.org/x/net/html"
)

const (
	// MaxTranscriptChars caps the returned transcript length.
	MaxTranscriptChars = 15000

	playerEndpoint = "/youtubei/v1/player"
	watchEndpoint  = "/watch"
)

var (
	// ErrInvalidVideoID means the video ID is not 11 URL-safe characters.
	ErrInvalidVideoID = errors.New("invalid video ID")
	// ErrNoTranscript means every retrieval strategy came up empty.
	ErrNoTranscript = errors.New("no transcript available")

	videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
)

// persona is one client identity tried against the player API. Some
// captions are only served to specific clients, so several are attempted.
type persona struct {
	name          string
	clientName    string
	clientVersion string
	userAgent     string
}

var personas = []persona{
	{"ANDROID", "ANDROID", "19.09.37", "com.google.android.youtube/19.09.37 (Linux; U; Android 11) gzip"},
	{"IOS", "IOS", "19.09.3", "com.google.ios.youtube/19.09.3 (iPhone14,3; U; CPU iOS 15_6 like Mac OS X)"},
	{"WEB", "WEB", "2.20240304.00.00", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"},
}

// ValidVideoID reports whether id looks like a YouTube video ID.
func ValidVideoID(id string) bool {
	return videoIDPattern.MatchString(id)
}

// Fetcher retrieves transcripts.
type Fetcher struct {
	baseURL    string
	httpClient *http.Client
}

// NewFetcher creates a fetcher against youtube.com.
func NewFetcher() *Fetcher {
	return NewFetcherWithBaseURL("https://www.youtube.com")
}

// NewFetcherWithBaseURL creates a fetcher against a custom origin (tests).
func NewFetcherWithBaseURL(baseURL string) *Fetcher {
	return &Fetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

// Fetch returns the plain-text transcript for a video, truncated to
// MaxTranscriptChars.
func (f *Fetcher) Fetch(ctx context.Context, videoID string) (string, error) {
	if !ValidVideoID(videoID) {
		return "", ErrInvalidVideoID
	}

	for _, p := range personas {
		text, err := f.fetchViaPlayer(ctx, videoID, p)
		if err == nil && text != "" {
			return truncate(text), nil
		}
		if err != nil {
			slog.Debug("Player API attempt failed", "persona", p.name, "video_id", videoID, "error", err)
		}
	}

	text, err := f.fetchViaWatchPage(ctx, videoID)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", ErrNoTranscript
	}
	return truncate(text), nil
}

type playerResponse struct {
	Captions struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind,omitempty"`
}

func (f *Fetcher) fetchViaPlayer(ctx context.Context, videoID string, p persona) (string, error) {
	body := map[string]any{
		"videoId": videoID,
		"context": map[string]any{
			"client": map[string]any{
				"clientName":    p.clientName,
				"clientVersion": p.clientVersion,
			},
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode player request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+playerEndpoint, strings.NewReader(string(payload)))
	if err != nil {
		return "", fmt.Errorf("build player request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("player request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("player API returned %d", resp.StatusCode)
	}

	var pr playerResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return "", fmt.Errorf("decode player response: %w", err)
	}

	track := pickTrack(pr.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks)
	if track == nil {
		return "", ErrNoTranscript
	}
	return f.fetchCaptions(ctx, track.BaseURL)
}

// fetchViaWatchPage scrapes the caption track list that YouTube embeds in
// a script tag on the public watch page.
func (f *Fetcher) fetchViaWatchPage(ctx context.Context, videoID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+watchEndpoint+"?v="+videoID, nil)
	if err != nil {
		return "", fmt.Errorf("build watch request: %w", err)
	}
	req.Header.Set("User-Agent", personas[2].userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("watch page request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("watch page returned %d", resp.StatusCode)
	}

	tracks, err := extractCaptionTracks(resp.Body)
	if err != nil {
		return "", err
	}
	track := pickTrack(tracks)
	if track == nil {
		return "", ErrNoTranscript
	}
	return f.fetchCaptions(ctx, track.BaseURL)
}

// extractCaptionTracks walks the watch page HTML looking for the script
// element that carries the embedded player response, then decodes only
// the captionTracks array out of it.
func extractCaptionTracks(r io.Reader) ([]captionTrack, error) {
	doc, err := xhtml.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse watch page: %w", err)
	}

	var tracks []captionTrack
	var walk func(n *xhtml.Node)
	walk = func(n *xhtml.Node) {
		if tracks != nil {
			return
		}
		if n.Type == xhtml.ElementNode && n.Data == "script" && n.FirstChild != nil {
			if found, ok := decodeTracksFromScript(n.FirstChild.Data); ok {
				tracks = found
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if tracks == nil {
		return nil, ErrNoTranscript
	}
	return tracks, nil
}

func decodeTracksFromScript(script string) ([]captionTrack, bool) {
	const marker = `"captionTracks":`
	idx := strings.Index(script, marker)
	if idx < 0 {
		return nil, false
	}
	dec := json.NewDecoder(strings.NewReader(script[idx+len(marker):]))
	var tracks []captionTrack
	if err := dec.Decode(&tracks); err != nil {
		return nil, false
	}
	return tracks, true
}

// pickTrack prefers manually authored captions over ASR ones.
func pickTrack(tracks []captionTrack) *captionTrack {
	if len(tracks) == 0 {
		return nil
	}
	for i := range tracks {
		if tracks[i].Kind != "asr" {
			return &tracks[i]
		}
	}
	return &tracks[0]
}

// fetchCaptions downloads one caption track, trying the structured json3
// format first and falling back to the timedtext XML format.
func (f *Fetcher) fetchCaptions(ctx context.Context, baseURL string) (string, error) {
	sep := "?"
	if strings.Contains(baseURL, "?") {
		sep = "&"
	}

	raw, err := f.get(ctx, baseURL+sep+"fmt=json3")
	if err == nil {
		if text, ok := parseJSON3(raw); ok {
			return text, nil
		}
	}

	raw, err = f.get(ctx, baseURL)
	if err != nil {
		return "", err
	}
	return parseTimedText(raw)
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build caption request: %w", err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("caption request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("caption fetch returned %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 4<<20))
}

type json3Payload struct {
	Events []struct {
		Segs []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

func parseJSON3(raw []byte) (string, bool) {
	var payload json3Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", false
	}
	var b strings.Builder
	for _, ev := range payload.Events {
		for _, seg := range ev.Segs {
			b.WriteString(seg.UTF8)
		}
	}
	text := normalize(b.String())
	return text, text != ""
}

type timedText struct {
	Texts []struct {
		Value string `xml:",chardata"`
	} `xml:"text"`
}

func parseTimedText(raw []byte) (string, error) {
	var tt timedText
	if err := xml.Unmarshal(raw, &tt); err != nil {
		return "", fmt.Errorf("parse timedtext captions: %w", err)
	}
	var parts []string
	for _, t := range tt.Texts {
		if s := strings.TrimSpace(html.UnescapeString(t.Value)); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return "", ErrNoTranscript
	}
	return normalize(strings.Join(parts, " ")), nil
}

func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= MaxTranscriptChars {
		return s
	}
	return string(runes[:MaxTranscriptChars])
}
