package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/desertthunder/mdx/internal/formatter"
	"github.com/desertthunder/mdx/internal/models"
	"github.com/desertthunder/mdx/internal/shared"
	"github.com/desertthunder/mdx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// playlistRow is the JSON shape of a listed playlist.
type playlistRow struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Visibility  string    `json:"visibility"`
	AccessCode  string    `json:"access_code,omitempty"`
	ItemCount   int       `json:"item_count"`
	CreatedAt   time.Time `json:"created_at"`
}

func newPlaylistRow(s models.PlaylistSummary) playlistRow {
	code, _ := s.Visibility.AccessCode()
	return playlistRow{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		Visibility:  s.Visibility.String(),
		AccessCode:  code,
		ItemCount:   s.ItemCount,
		CreatedAt:   s.CreatedAt,
	}
}

// PlaylistList prints the playlists owned by --handle.
func (r *Runner) PlaylistList(ctx context.Context, cmd *cli.Command) error {
	a, err := r.openApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	owner, err := a.identity.Lookup(ctx, cmd.String("handle"))
	if err != nil {
		return err
	}

	summaries, err := a.playlists.List(ctx, owner.UserID)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		rows := make([]playlistRow, len(summaries))
		for i, s := range summaries {
			rows[i] = newPlaylistRow(s)
		}
		return r.writeJSON(rows, true)
	}

	r.writePlainHeader(fmt.Sprintf("Playlists for %s (%d)", owner.Handle, len(summaries)))
	for _, s := range summaries {
		line := fmt.Sprintf("%s  %-30s  %3d items  %s", s.ID, shared.Truncate(s.Name, 30), s.ItemCount, s.Visibility.Kind())
		if code, ok := s.Visibility.AccessCode(); ok {
			line += " " + code
		}
		r.writePlain("%s\n", line)
	}
	return nil
}

// PlaylistExport writes one playlist (--id) or all of an account's playlists (--all) to disk.
func (r *Runner) PlaylistExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	id, all := cmd.String("id"), cmd.Bool("all")
	if id == "" && !all {
		return fmt.Errorf("%w: --id or --all is required", shared.ErrMissingArgument)
	}
	if id != "" && all {
		return fmt.Errorf("%w: --id and --all are mutually exclusive", shared.ErrInvalidArgument)
	}

	a, err := r.openApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	owner, err := a.identity.Lookup(ctx, cmd.String("handle"))
	if err != nil {
		return err
	}

	if all {
		return r.exportAll(ctx, a, owner.UserID, format, cmd)
	}

	content, err := a.playlists.GetContent(ctx, id, owner.UserID)
	if err != nil {
		return err
	}

	result, err := formatter.WriteExport(content, format, cmd.String("output"))
	if err != nil {
		return err
	}

	r.writePlain("✓ Exported %q to %s\n", content.Playlist.Name, result.File)
	r.writePlain("  Metadata: %s\n", result.MetadataFile)
	if result.CoverImage != "" {
		r.writePlain("  Cover: %s\n", result.CoverImage)
	}
	return nil
}

func (r *Runner) exportAll(ctx context.Context, a *app, ownerID string, format formatter.Format, cmd *cli.Command) error {
	summaries, err := a.playlists.List(ctx, ownerID)
	if err != nil {
		return err
	}
	if len(summaries) == 0 {
		return r.writePlain("No playlists to export\n")
	}

	ids := make([]string, len(summaries))
	for i, s := range summaries {
		ids[i] = s.ID
	}

	progress := make(chan tasks.ProgressUpdate, len(ids)*2+1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range progress {
			r.logger.Info(u.Message, "phase", u.Phase, "step", u.Step, "total", u.Total)
		}
	}()

	exporter := tasks.NewExporter(a.playlists, r.logger)
	result, err := exporter.BulkExport(ctx, progress, ownerID, ids, tasks.BulkExportOpts{
		Format:     format,
		OutputDir:  cmd.String("output"),
		NumWorkers: int(cmd.Int("workers")),
	})
	close(progress)
	<-done
	if err != nil {
		return err
	}

	r.writePlainHeader("Export Summary")
	r.writePlain("Directory: %s\n", result.OutputDirectory)
	r.writePlain("Exported:  %d/%d\n", result.SuccessfulExports, result.TotalPlaylists)
	for _, pr := range result.Results {
		if pr.Success {
			r.writePlain("  ✓ %s (%s)\n", pr.PlaylistName, strings.Join(baseNames(pr.Files), ", "))
		} else {
			r.writePlain("  ✗ %s: %s\n", pr.PlaylistID, pr.ErrorMessage)
		}
	}
	r.writePlain("Manifest:  %s\n", result.ManifestPath)

	if result.FailedExports > 0 {
		return fmt.Errorf("%d of %d playlists failed to export", result.FailedExports, result.TotalPlaylists)
	}
	return nil
}

func baseNames(paths []string) []string {
	names := make([]string, len(paths))
	for i, p := range paths {
		names[i] = filepath.Base(p)
	}
	return names
}
