package main

import (
	"context"

	"github.com/alecthomas/kong"
)

var (
	version = "dev"
	cli     struct {
		Debug   bool `help:"Enable debug logging."`
		Version kong.VersionFlag

		Serve   ServeCmd   `cmd:"" default:"withargs" help:"Start the Buddy authentication server."`
		HashKey HashKeyCmd `cmd:"" help:"Print the bcrypt hash of an admin key, for ADMIN_KEY_HASH."`
	}
)

// Globals are the flags shared by every command.
type Globals struct {
	Debug   bool
	Version string
}

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("buddy-auth"),
		kong.Description("Authentication and session lifecycle for the Buddy assistant."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
