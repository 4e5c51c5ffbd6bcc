// yt-dlp [Extractor] implementation for YouTube and the other sites yt-dlp supports
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/desertthunder/mdx/internal/models"
	"github.com/desertthunder/mdx/internal/shared"
	"github.com/lrstanley/go-ytdlp"
)

const descriptionLimit = 200

// ytdlpInfo is the subset of yt-dlp's info JSON we map.
type ytdlpInfo struct {
	Title       string   `json:"title"`
	Thumbnail   string   `json:"thumbnail"`
	Duration    *float64 `json:"duration"`
	Resolution  string   `json:"resolution"`
	URL         string   `json:"url"`
	ViewCount   int64    `json:"view_count"`
	LikeCount   int64    `json:"like_count"`
	Uploader    string   `json:"uploader"`
	UploadDate  string   `json:"upload_date"`
	Description string   `json:"description"`
}

// ytdlpRunner executes yt-dlp for url and returns the info JSON it printed.
type ytdlpRunner func(ctx context.Context, url, format string) ([]byte, error)

// YTDLPService implements [Extractor] using the yt-dlp executable.
type YTDLPService struct {
	run ytdlpRunner
}

// NewYTDLPService creates an extractor that runs yt-dlp. An empty executable resolves yt-dlp from PATH.
func NewYTDLPService(executable string) *YTDLPService {
	return &YTDLPService{run: commandRunner(executable)}
}

// Name returns the service name.
func (s *YTDLPService) Name() string {
	return "yt-dlp"
}

// Extract runs yt-dlp without downloading and maps its metadata.
func (s *YTDLPService) Extract(ctx context.Context, url, format string) (*models.MediaDescription, error) {
	out, err := s.run(ctx, url, format)
	if err != nil {
		return nil, err
	}

	var info ytdlpInfo
	if err := json.Unmarshal(out, &info); err != nil {
		return nil, fmt.Errorf("failed to decode yt-dlp output: %w", err)
	}

	return info.toMedia(format), nil
}

// commandRunner builds the go-ytdlp command for the requested format.
func commandRunner(executable string) ytdlpRunner {
	return func(ctx context.Context, url, format string) ([]byte, error) {
		cmd := ytdlp.New().
			Quiet().
			NoWarnings().
			NoPlaylist().
			SkipDownload().
			DumpSingleJSON()

		if executable != "" {
			cmd = cmd.SetExecutable(executable)
		}

		if format == "mp3" {
			cmd = cmd.Format("bestaudio/best").ExtractAudio().AudioFormat("mp3").AudioQuality("192")
		} else {
			cmd = cmd.Format("best")
		}

		result, err := cmd.Run(ctx, url)
		if err != nil {
			if result != nil && strings.TrimSpace(result.Stderr) != "" {
				return nil, fmt.Errorf("yt-dlp: %s", strings.TrimSpace(result.Stderr))
			}
			return nil, fmt.Errorf("yt-dlp: %w", err)
		}
		return []byte(result.Stdout), nil
	}
}

func (i ytdlpInfo) toMedia(format string) *models.MediaDescription {
	seconds := 0
	if i.Duration != nil {
		seconds = int(*i.Duration)
	}

	media := &models.MediaDescription{
		Title:           i.Title,
		Thumbnail:       i.Thumbnail,
		Duration:        shared.FormatClock(seconds),
		DurationSeconds: seconds,
		Quality:         i.Resolution,
		Format:          strings.ToUpper(format),
		DownloadURL:     i.URL,
		ViewCount:       i.ViewCount,
		LikeCount:       i.LikeCount,
		Uploader:        i.Uploader,
		UploadDate:      i.UploadDate,
		Description:     shared.Truncate(i.Description, descriptionLimit),
	}

	if media.Title == "" {
		media.Title = "Untitled"
	}
	if media.Quality == "" {
		media.Quality = "N/A"
	}
	if media.Uploader == "" {
		media.Uploader = "Unknown"
	}
	if media.UploadDate == "" {
		media.UploadDate = "N/A"
	}
	if media.Description == "" {
		media.Description = "No description"
	}
	return media
}
