// package tasks implements long-running playlist operations.
package tasks

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/mdx/internal/models"
	"github.com/desertthunder/mdx/internal/shared"
)

// ContentSource loads a playlist with its items on behalf of actorID.
// [playlists.Service] implements it.
type ContentSource interface {
	GetContent(ctx context.Context, playlistID, actorID string) (*models.PlaylistContent, error)
}

// Exporter writes playlists to disk.
type Exporter struct {
	source ContentSource
	logger *log.Logger
}

// NewExporter creates an [Exporter] reading from source.
func NewExporter(source ContentSource, logger *log.Logger) *Exporter {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Exporter{source: source, logger: shared.WithLogger(logger, "component", "tasks")}
}

// sendProgress sends a progress update without blocking.
func (e *Exporter) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}

	select {
	case progress <- update:
	default:
		e.logger.Debug("progress update dropped", "phase", update.Phase, "step", update.Step)
	}
}
