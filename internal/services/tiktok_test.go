package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestTikTokService(t *testing.T) {
	t.Run("NewTikTokService", func(t *testing.T) {
		t.Run("creates service with default URL", func(t *testing.T) {
			if svc := NewTikTokService("", nil, 0); svc.apiURL != defaultTikwmURL {
				t.Errorf("expected apiURL to be %s, got %s", defaultTikwmURL, svc.apiURL)
			}
		})

		t.Run("creates service with custom URL", func(t *testing.T) {
			customURL := "http://localhost:9000/api/"
			if svc := NewTikTokService(customURL, nil, 1); svc.apiURL != customURL {
				t.Errorf("expected apiURL to be %s, got %s", customURL, svc.apiURL)
			}
		})
	})

	t.Run("Name", func(t *testing.T) {
		if svc := NewTikTokService("", nil, 0); svc.Name() != "tikwm" {
			t.Errorf("expected name to be 'tikwm', got %s", svc.Name())
		}
	})

	t.Run("Extract", func(t *testing.T) {
		t.Run("maps HD response", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("expected POST, got %s", r.Method)
				}
				if err := r.ParseForm(); err != nil {
					t.Fatalf("failed to parse form: %v", err)
				}
				if got := r.PostForm.Get("url"); got != "https://www.tiktok.com/@a/video/1" {
					t.Errorf("unexpected url field %q", got)
				}
				if got := r.PostForm.Get("hd"); got != "1" {
					t.Errorf("expected hd=1, got %q", got)
				}

				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{
					"code": 0,
					"msg": "success",
					"data": {
						"title": "dance",
						"duration": 15,
						"hdplay": "https://cdn/hd.mp4",
						"play": "https://cdn/sd.mp4",
						"music": "https://cdn/a.mp3",
						"play_count": 100,
						"digg_count": 10,
						"comment_count": 2,
						"author": {"nickname": "dancer"},
						"cover": "https://cdn/cover.jpg"
					}
				}`))
			}))
			defer server.Close()

			svc := NewTikTokService(server.URL, server.Client(), 0)
			media, err := svc.Extract(context.Background(), "https://www.tiktok.com/@a/video/1", "mp4")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if media.Platform != "tiktok" || media.Title != "dance" {
				t.Errorf("unexpected identity fields: %+v", media)
			}
			if media.Duration != "15s" || media.DurationSeconds != 15 {
				t.Errorf("unexpected duration %q/%d", media.Duration, media.DurationSeconds)
			}
			if media.Quality != "HD" || media.Video != "https://cdn/hd.mp4" {
				t.Errorf("expected HD asset, got %s %s", media.Quality, media.Video)
			}
			if media.Audio != "https://cdn/a.mp3" || media.Thumbnail != "https://cdn/cover.jpg" {
				t.Errorf("unexpected assets: %+v", media)
			}
			if media.ViewCount != 100 || media.LikeCount != 10 || media.CommentCount != 2 || media.ShareCount != 0 {
				t.Errorf("unexpected counters: %+v", media)
			}
			if media.Uploader != "dancer" {
				t.Errorf("expected uploader dancer, got %s", media.Uploader)
			}
			if media.MediaURL() != "https://cdn/hd.mp4" {
				t.Errorf("expected media URL to be the HD video, got %s", media.MediaURL())
			}
		})

		t.Run("falls back to SD and defaults", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"code": 0, "data": {"play": "https://cdn/sd.mp4"}}`))
			}))
			defer server.Close()

			media, err := NewTikTokService(server.URL, server.Client(), 0).Extract(context.Background(), "u", "")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if media.Quality != "SD" || media.Video != "https://cdn/sd.mp4" {
				t.Errorf("expected SD asset, got %s %s", media.Quality, media.Video)
			}
			if media.Title != "TikTok Video" || media.Uploader != "Unknown" {
				t.Errorf("expected defaults, got %q %q", media.Title, media.Uploader)
			}
			if media.Images == nil {
				t.Error("expected empty images slice, got nil")
			}
		})

		t.Run("fails on provider code", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"code": -1, "msg": "Url parsing is failed!"}`))
			}))
			defer server.Close()

			_, err := NewTikTokService(server.URL, server.Client(), 0).Extract(context.Background(), "u", "")
			if err == nil || !strings.Contains(err.Error(), "Url parsing is failed!") {
				t.Fatalf("expected provider error, got %v", err)
			}
		})

		t.Run("fails on HTTP error", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			}))
			defer server.Close()

			if _, err := NewTikTokService(server.URL, server.Client(), 0).Extract(context.Background(), "u", ""); err == nil {
				t.Fatal("expected error for 502")
			}
		})

		t.Run("fails on malformed JSON", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`not json`))
			}))
			defer server.Close()

			if _, err := NewTikTokService(server.URL, server.Client(), 0).Extract(context.Background(), "u", ""); err == nil {
				t.Fatal("expected decode error")
			}
		})

		t.Run("rate limit wait honours context", func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"code": 0, "data": {}}`))
			}))
			defer server.Close()

			svc := NewTikTokService(server.URL, server.Client(), 0.01)
			if _, err := svc.Extract(context.Background(), "u", ""); err != nil {
				t.Fatalf("first call should pass the limiter: %v", err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()
			if _, err := svc.Extract(ctx, "u", ""); err == nil {
				t.Fatal("expected second call to be throttled past its deadline")
			}
		})
	})
}
