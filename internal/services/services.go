// package services defines interface Extractor for media providers and the Gateway that routes to them
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mdx/internal/models"
	"github.com/desertthunder/mdx/internal/shared"
)

// PlatformTikTok is the platform name routed to the tikwm API.
const PlatformTikTok = "tiktok"

// Extractor resolves a media URL into a normalised description.
type Extractor interface {
	// Extract fetches metadata for url. format is the requested output ("mp3", "mp4", ...).
	Extract(ctx context.Context, url, format string) (*models.MediaDescription, error)

	// Name returns the provider name (e.g., "tikwm", "yt-dlp")
	Name() string
}

// Gateway dispatches extraction requests to a provider by platform.
type Gateway struct {
	tiktok  Extractor
	general Extractor
	timeout time.Duration
	logger  *log.Logger
}

// NewGateway creates a [Gateway]. A zero timeout leaves only the caller's context deadline.
func NewGateway(tiktok, general Extractor, timeout time.Duration, logger *log.Logger) *Gateway {
	return &Gateway{
		tiktok:  tiktok,
		general: general,
		timeout: timeout,
		logger:  shared.WithLogger(logger, "component", "extractor"),
	}
}

// Extract resolves url through the provider for platform.
//
// Any provider error is returned wrapped with [shared.ErrExtractionFailed].
func (g *Gateway) Extract(ctx context.Context, url, platform, format string) (*models.MediaDescription, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("%w: url is required", shared.ErrInvalidArgument)
	}

	platform = strings.ToLower(strings.TrimSpace(platform))
	format = strings.ToLower(strings.TrimSpace(format))

	provider := g.general
	if platform == PlatformTikTok {
		provider = g.tiktok
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	media, err := provider.Extract(ctx, url, format)
	if err != nil {
		g.logger.Warn("extraction failed", "provider", provider.Name(), "platform", platform, "url", url, "error", err)
		return nil, fmt.Errorf("%w: %w", shared.ErrExtractionFailed, err)
	}

	if platform != PlatformTikTok && platform != "" {
		media.Platform = platform
	}

	g.logger.Debug("extracted media", "provider", provider.Name(), "title", media.Title, "elapsed", time.Since(start))
	return media, nil
}
