package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/mdx/internal/shared"
	"github.com/urfave/cli/v3"
)

// Extract resolves a URL through the extraction gateway and prints the description as JSON.
func (r *Runner) Extract(ctx context.Context, cmd *cli.Command) error {
	url := cmd.StringArg("url")
	if url == "" {
		return fmt.Errorf("%w: url", shared.ErrMissingArgument)
	}

	media, err := r.gateway().Extract(ctx, url, cmd.String("platform"), cmd.String("format"))
	if err != nil {
		return err
	}

	return r.writeJSON(media, cmd.Bool("pretty"))
}
