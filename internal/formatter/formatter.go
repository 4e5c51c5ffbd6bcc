// package formatter provides functions to export playlist data to various formats (CSV, Markdown, plain text, M3U)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/desertthunder/mdx/internal/models"
	"github.com/desertthunder/mdx/internal/shared"
)

// Format names an export format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
	FormatM3U      Format = "m3u"
)

// ParseFormat accepts a format name or a common alias ("md", "txt", "m3u8").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "text", "txt":
		return FormatText, nil
	case "m3u", "m3u8":
		return FormatM3U, nil
	default:
		return "", fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, s)
	}
}

// Extension returns the file extension, with dot, for f.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return ".md"
	case FormatText:
		return ".txt"
	case FormatM3U:
		return ".m3u"
	default:
		return ".csv"
	}
}

// ContentType returns the MIME type served for f.
func (f Format) ContentType() string {
	switch f {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatText:
		return "text/plain; charset=utf-8"
	case FormatM3U:
		return "audio/x-mpegurl"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Export renders content in format f.
func Export(content *models.PlaylistContent, f Format) ([]byte, error) {
	switch f {
	case FormatCSV:
		return ExportToCSV(content)
	case FormatMarkdown:
		return ExportToMarkdown(content, "")
	case FormatText:
		return ExportToText(content)
	case FormatM3U:
		return ExportToM3U(content)
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, f)
	}
}

// ExportToCSV converts playlist content to CSV with columns: ID, Title, URL, Media Type, Duration, Thumbnail, Added At
func ExportToCSV(content *models.PlaylistContent) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "URL", "Media Type", "Duration", "Thumbnail", "Added At"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, item := range content.Items {
		record := []string{
			item.ID,
			item.Title,
			item.URL,
			item.MediaType,
			item.Duration,
			item.Thumbnail,
			item.AddedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts playlist content to Markdown with optional cover image
func ExportToMarkdown(content *models.PlaylistContent, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer
	p := content.Playlist

	buf.WriteString(fmt.Sprintf("# %s\n\n", p.Name))

	if imageFilename != "" {
		buf.WriteString(fmt.Sprintf("![Cover](%s)\n\n", imageFilename))
	}

	if p.Description != "" {
		buf.WriteString(fmt.Sprintf("**Description**: %s\n\n", p.Description))
	}

	buf.WriteString(fmt.Sprintf("**Items**: %d\n", len(content.Items)))
	buf.WriteString(fmt.Sprintf("**Visibility**: %s\n\n", p.Visibility))

	buf.WriteString("## Items\n\n")
	for i, item := range content.Items {
		duration := ""
		if item.Duration != "" {
			duration = fmt.Sprintf(" [%s]", item.Duration)
		}
		buf.WriteString(fmt.Sprintf("%d. [%s](%s) (%s)%s\n", i+1, item.Title, item.URL, item.MediaType, duration))
	}

	return buf.Bytes(), nil
}

// ExportToText converts playlist content to plain text format
func ExportToText(content *models.PlaylistContent) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Playlist: %s\n", content.Playlist.Name))
	if content.Playlist.Description != "" {
		buf.WriteString(fmt.Sprintf("Description: %s\n", content.Playlist.Description))
	}
	buf.WriteString(fmt.Sprintf("Items: %d\n\n", len(content.Items)))

	for i, item := range content.Items {
		buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, item.Title, item.URL))
	}

	return buf.Bytes(), nil
}

// ExportToM3U converts playlist content to an extended M3U playlist.
//
// Durations in m:ss form become #EXTINF seconds; anything else is written as -1.
func ExportToM3U(content *models.PlaylistContent) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("#EXTM3U\n")
	buf.WriteString(fmt.Sprintf("#PLAYLIST:%s\n", content.Playlist.Name))

	for _, item := range content.Items {
		buf.WriteString(fmt.Sprintf("#EXTINF:%d,%s\n", extinfSeconds(item.Duration), item.Title))
		buf.WriteString(item.URL + "\n")
	}

	return buf.Bytes(), nil
}

func extinfSeconds(d string) int {
	var m, s int
	if n, err := fmt.Sscanf(d, "%d:%d", &m, &s); err == nil && n == 2 {
		return m*60 + s
	}
	var secs int
	if n, err := fmt.Sscanf(d, "%ds", &secs); err == nil && n == 1 {
		return secs
	}
	return -1
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

type playlistMetadata struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Visibility  string    `json:"visibility"`
	ItemCount   int       `json:"item_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// ToMetadataJSON generates a JSON representation of playlist metadata (without items or access code)
func ToMetadataJSON(content *models.PlaylistContent) ([]byte, error) {
	p := content.Playlist
	return json.MarshalIndent(playlistMetadata{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Visibility:  p.Visibility.String(),
		ItemCount:   len(content.Items),
		CreatedAt:   p.CreatedAt,
	}, "", "  ")
}

// ExportResult lists the files written by [WriteExport].
type ExportResult struct {
	File         string
	MetadataFile string
	CoverImage   string
}

// WriteExport writes content in format f and a metadata JSON beside it.
//
// An empty path defaults to {playlist.ID}{ext}. Markdown exports download the first item
// thumbnail as a cover image when one exists; a failed download is logged to stderr and skipped.
func WriteExport(content *models.PlaylistContent, f Format, path string) (*ExportResult, error) {
	if path == "" {
		path = content.Playlist.ID + f.Extension()
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	result := &ExportResult{File: path}

	var data []byte
	var err error
	if f == FormatMarkdown {
		data, err = writeMarkdownCover(content, path, result)
	} else {
		data, err = Export(content, f)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to generate %s: %w", f, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s file: %w", f, err)
	}

	metadataJSON, err := ToMetadataJSON(content)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	result.MetadataFile = strings.TrimSuffix(path, filepath.Ext(path)) + "_metadata.json"
	if err := os.WriteFile(result.MetadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return result, nil
}

func writeMarkdownCover(content *models.PlaylistContent, path string, result *ExportResult) ([]byte, error) {
	var cover string
	for _, item := range content.Items {
		if item.Thumbnail != "" {
			cover = item.Thumbnail
			break
		}
	}

	var coverFilename string
	if cover != "" {
		imageData, err := DownloadImage(cover)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to download cover image: %v\n", err)
		} else {
			coverFilename = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + "_cover.jpg"
			coverPath := filepath.Join(filepath.Dir(path), coverFilename)
			if err := os.WriteFile(coverPath, imageData, 0644); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to save cover image: %v\n", err)
				coverFilename = ""
			} else {
				result.CoverImage = coverPath
			}
		}
	}

	return ExportToMarkdown(content, coverFilename)
}
