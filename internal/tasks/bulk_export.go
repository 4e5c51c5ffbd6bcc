package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/mdx/internal/formatter"
	"github.com/desertthunder/mdx/internal/models"
	"golang.org/x/time/rate"
)

// ManifestName is the summary file written into the output directory.
const ManifestName = "export_manifest.json"

// BulkExportOpts contains configuration for bulk playlist exports.
type BulkExportOpts struct {
	Format     formatter.Format // Export format (default: csv)
	OutputDir  string           // Base output directory (default: mdx_export_{epoch})
	NumWorkers int              // Concurrent workers (default: 4, max: 10)
	RateLimit  float64          // Playlist loads per second (default: unlimited)
}

// BulkExportResult summarises a [Exporter.BulkExport] run.
type BulkExportResult struct {
	TotalPlaylists    int                    `json:"total_playlists"`
	SuccessfulExports int                    `json:"successful_exports"`
	FailedExports     int                    `json:"failed_exports"`
	Format            formatter.Format       `json:"format"`
	OutputDirectory   string                 `json:"output_directory"`
	ManifestPath      string                 `json:"-"`
	ExportedAt        time.Time              `json:"exported_at"`
	Results           []PlaylistExportResult `json:"results"`
}

// PlaylistExportResult is the outcome for one playlist.
type PlaylistExportResult struct {
	PlaylistID   string   `json:"playlist_id"`
	PlaylistName string   `json:"playlist_name"`
	Success      bool     `json:"success"`
	Files        []string `json:"files,omitempty"`
	Error        error    `json:"-"`
	ErrorMessage string   `json:"error,omitempty"`
}

type exportJob struct {
	step    int
	content *models.PlaylistContent
}

// BulkExport exports the playlists in ids, owned by actorID, concurrently with rate limiting and progress tracking.
//
// Implements a worker pool: one producer loads playlist content, workers write files.
// Partial failures are recorded per playlist; a manifest summarising the run is written last.
func (e *Exporter) BulkExport(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	actorID string,
	ids []string,
	opts BulkExportOpts,
) (*BulkExportResult, error) {
	if opts.Format == "" {
		opts.Format = formatter.FormatCSV
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("mdx_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	limiter := rate.NewLimiter(limit, 1)

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		TotalPlaylists:  len(ids),
		Format:          opts.Format,
		OutputDirectory: opts.OutputDir,
		ExportedAt:      time.Now().UTC(),
		Results:         make([]PlaylistExportResult, 0, len(ids)),
	}

	jobs := make(chan exportJob, len(ids))
	results := make(chan PlaylistExportResult, len(ids))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, jobs, results, opts)
	}

	// The producer shares the WaitGroup so results is closed only after its last send.
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(jobs)

		e.sendProgress(prog, fetchingPlaylistsUpdate(len(ids)))
		for i, playlistID := range ids {
			if err := limiter.Wait(ctx); err != nil {
				return
			}

			content, err := e.source.GetContent(ctx, playlistID, actorID)
			if err != nil {
				results <- PlaylistExportResult{
					PlaylistID:   playlistID,
					PlaylistName: fmt.Sprintf("Unknown (%s)", playlistID),
					Error:        fmt.Errorf("failed to load playlist: %w", err),
				}
				continue
			}

			e.sendProgress(prog, exportingPlaylistUpdate(i+1, len(ids), content.Playlist.Name))
			jobs <- exportJob{step: i + 1, content: content}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		if res.Error != nil {
			res.ErrorMessage = res.Error.Error()
		}
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulExports++
			e.sendProgress(prog, exportCompletedUpdate(completed, len(ids), res.PlaylistName, len(res.Files)))
		} else {
			result.FailedExports++
			e.sendProgress(prog, exportFailedUpdate(completed, len(ids), res.PlaylistName, res.Error))
		}
	}

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("export interrupted after %d of %d playlists: %w", completed, len(ids), err)
	}

	manifestPath := filepath.Join(opts.OutputDir, ManifestName)
	if err := writeManifest(result, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath

	e.logger.Info("bulk export finished", "dir", opts.OutputDir, "ok", result.SuccessfulExports, "failed", result.FailedExports)
	return result, nil
}

// exportWorker is a worker goroutine that writes playlists from the jobs channel.
func (e *Exporter) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan exportJob,
	results chan<- PlaylistExportResult,
	opts BulkExportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		results <- exportSinglePlaylist(job.content, opts)
	}
}

// exportSinglePlaylist writes one playlist as {OutputDir}/{playlist.ID}{ext} plus its metadata file.
func exportSinglePlaylist(content *models.PlaylistContent, opts BulkExportOpts) PlaylistExportResult {
	result := PlaylistExportResult{
		PlaylistID:   content.Playlist.ID,
		PlaylistName: content.Playlist.Name,
		Files:        []string{},
	}

	path := filepath.Join(opts.OutputDir, content.Playlist.ID+opts.Format.Extension())
	written, err := formatter.WriteExport(content, opts.Format, path)
	if err != nil {
		result.Error = fmt.Errorf("%s export failed: %w", opts.Format, err)
		return result
	}

	result.Files = append(result.Files, written.File, written.MetadataFile)
	if written.CoverImage != "" {
		result.Files = append(result.Files, written.CoverImage)
	}
	result.Success = true
	return result
}

func writeManifest(result *BulkExportResult, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
