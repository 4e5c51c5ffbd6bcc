package services

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func fakeRunner(out string, err error, gotFormat *string) ytdlpRunner {
	return func(ctx context.Context, url, format string) ([]byte, error) {
		if gotFormat != nil {
			*gotFormat = format
		}
		return []byte(out), err
	}
}

func TestYTDLPService(t *testing.T) {
	t.Run("Name", func(t *testing.T) {
		if svc := NewYTDLPService(""); svc.Name() != "yt-dlp" {
			t.Errorf("expected name to be 'yt-dlp', got %s", svc.Name())
		}
	})

	t.Run("Extract", func(t *testing.T) {
		t.Run("maps info JSON", func(t *testing.T) {
			var format string
			info := `{
				"title": "Talk",
				"thumbnail": "https://i/t.jpg",
				"duration": 125.0,
				"resolution": "1280x720",
				"url": "https://media/v.mp4",
				"view_count": 42,
				"like_count": 7,
				"uploader": "chan",
				"upload_date": "20240102",
				"description": "` + strings.Repeat("d", 300) + `"
			}`
			svc := &YTDLPService{run: fakeRunner(info, nil, &format)}

			media, err := svc.Extract(context.Background(), "https://youtu.be/x", "mp3")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if format != "mp3" {
				t.Errorf("expected runner to receive mp3, got %s", format)
			}
			if media.Title != "Talk" || media.Thumbnail != "https://i/t.jpg" {
				t.Errorf("unexpected fields: %+v", media)
			}
			if media.Duration != "2:05" || media.DurationSeconds != 125 {
				t.Errorf("unexpected duration %q/%d", media.Duration, media.DurationSeconds)
			}
			if media.Quality != "1280x720" || media.Format != "MP3" {
				t.Errorf("unexpected quality/format %s/%s", media.Quality, media.Format)
			}
			if media.DownloadURL != "https://media/v.mp4" || media.MediaURL() != "https://media/v.mp4" {
				t.Errorf("unexpected download url %s", media.DownloadURL)
			}
			if media.ViewCount != 42 || media.LikeCount != 7 {
				t.Errorf("unexpected counters: %+v", media)
			}
			if media.UploadDate != "20240102" || media.Uploader != "chan" {
				t.Errorf("unexpected uploader fields: %+v", media)
			}
			if len(media.Description) != descriptionLimit {
				t.Errorf("expected description truncated to %d, got %d", descriptionLimit, len(media.Description))
			}
		})

		t.Run("applies defaults", func(t *testing.T) {
			svc := &YTDLPService{run: fakeRunner(`{}`, nil, nil)}

			media, err := svc.Extract(context.Background(), "u", "mp4")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if media.Title != "Untitled" || media.Quality != "N/A" || media.Uploader != "Unknown" {
				t.Errorf("unexpected defaults: %+v", media)
			}
			if media.UploadDate != "N/A" || media.Description != "No description" {
				t.Errorf("unexpected defaults: %+v", media)
			}
			if media.Duration != "0:00" {
				t.Errorf("expected 0:00, got %s", media.Duration)
			}
		})

		t.Run("propagates runner error", func(t *testing.T) {
			boom := errors.New("yt-dlp: unsupported URL")
			svc := &YTDLPService{run: fakeRunner("", boom, nil)}

			if _, err := svc.Extract(context.Background(), "u", "mp4"); !errors.Is(err, boom) {
				t.Fatalf("expected runner error, got %v", err)
			}
		})

		t.Run("fails on malformed output", func(t *testing.T) {
			svc := &YTDLPService{run: fakeRunner("WARNING: something", nil, nil)}

			if _, err := svc.Extract(context.Background(), "u", "mp4"); err == nil {
				t.Fatal("expected decode error")
			}
		})
	})
}
