package main

import (
	"context"

	"github.com/desertthunder/mdx/internal/identity"
	"github.com/urfave/cli/v3"
)

// UserRegister creates an account from the command line.
func (r *Runner) UserRegister(ctx context.Context, cmd *cli.Command) error {
	a, err := r.openApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := a.identity.Register(ctx, identity.RegisterInput{
		Username: cmd.String("username"),
		Handle:   cmd.String("handle"),
		Password: cmd.String("password"),
	})
	if err != nil {
		return err
	}

	return r.writePlain("✓ Registered %s (%s)\n", user.Handle(), user.ID())
}
