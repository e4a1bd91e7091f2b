package cmd

import (
	"github.com/df07/go-multiquad-light/web/server"
	"github.com/urfave/cli"
)

// Serve estimates, ray inspection and metrics over http.
func Serve(ctx *cli.Context) error {
	if err := setupLogging(ctx); err != nil {
		return err
	}
	return server.NewServer(ctx.Int("port")).Start()
}
