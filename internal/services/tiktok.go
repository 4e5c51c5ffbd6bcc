// TikTok [Extractor] implementation backed by the tikwm.com API
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/mdx/internal/models"
	"golang.org/x/time/rate"
)

const defaultTikwmURL string = "https://www.tikwm.com/api/"

// tikwmResponse is the tikwm envelope. Code 0 means success.
type tikwmResponse struct {
	Code int        `json:"code"`
	Msg  string     `json:"msg"`
	Data *tikwmData `json:"data"`
}

type tikwmAuthor struct {
	Nickname string `json:"nickname"`
}

type tikwmData struct {
	Title        string       `json:"title"`
	Duration     int          `json:"duration"`
	HDPlay       string       `json:"hdplay"`
	Play         string       `json:"play"`
	Music        string       `json:"music"`
	Images       []string     `json:"images"`
	PlayCount    int64        `json:"play_count"`
	DiggCount    int64        `json:"digg_count"`
	CommentCount int64        `json:"comment_count"`
	ShareCount   int64        `json:"share_count"`
	Author       *tikwmAuthor `json:"author"`
	Cover        string       `json:"cover"`
}

// TikTokService implements [Extractor] for TikTok links.
type TikTokService struct {
	apiURL     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewTikTokService creates a TikTok extractor.
//
// ratePerSecond <= 0 disables throttling.
func NewTikTokService(apiURL string, client *http.Client, ratePerSecond float64) *TikTokService {
	if apiURL == "" {
		apiURL = defaultTikwmURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	limit := rate.Inf
	if ratePerSecond > 0 {
		limit = rate.Limit(ratePerSecond)
	}

	return &TikTokService{
		apiURL:     apiURL,
		httpClient: client,
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// Name returns the service name.
func (s *TikTokService) Name() string {
	return "tikwm"
}

// Extract posts the link to tikwm and maps the result.
func (s *TikTokService) Extract(ctx context.Context, mediaURL, _ string) (*models.MediaDescription, error) {
	var result tikwmResponse
	if err := s.doRequest(ctx, url.Values{"url": {mediaURL}, "hd": {"1"}}, &result); err != nil {
		return nil, err
	}

	if result.Code != 0 || result.Data == nil {
		msg := strings.TrimSpace(result.Msg)
		if msg == "" {
			msg = "no data"
		}
		return nil, fmt.Errorf("tikwm error (code %d): %s", result.Code, msg)
	}

	return result.Data.toMedia(), nil
}

func (s *TikTokService) doRequest(ctx context.Context, form url.Values, result any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("tikwm API error: status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (d *tikwmData) toMedia() *models.MediaDescription {
	media := &models.MediaDescription{
		Platform:        PlatformTikTok,
		Title:           d.Title,
		Thumbnail:       d.Cover,
		Duration:        fmt.Sprintf("%ds", d.Duration),
		DurationSeconds: d.Duration,
		Quality:         "SD",
		Video:           d.HDPlay,
		Audio:           d.Music,
		Images:          d.Images,
		ViewCount:       d.PlayCount,
		LikeCount:       d.DiggCount,
		CommentCount:    d.CommentCount,
		ShareCount:      d.ShareCount,
		Uploader:        "Unknown",
	}

	if media.Title == "" {
		media.Title = "TikTok Video"
	}
	if d.HDPlay != "" {
		media.Quality = "HD"
	} else {
		media.Video = d.Play
	}
	if d.Author != nil && d.Author.Nickname != "" {
		media.Uploader = d.Author.Nickname
	}
	if media.Images == nil {
		media.Images = []string{}
	}
	return media
}
