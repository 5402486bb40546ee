package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/wolfeidau/scriptpack/cmd/scriptpack/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Build    commands.BuildCmd    `cmd:"" help:"Build one or more profiles"`
		Serve    commands.ServeCmd    `cmd:"" help:"Watch the sources and run the dev server"`
		Profiles commands.ProfilesCmd `cmd:"" help:"Print the resolved build profiles"`
		Debug    bool                 `help:"Enable debug mode." env:"SCRIPTPACK_DEBUG"`
		Version  kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("scriptpack"),
		kong.Description("Build the extension bundles and run the local dev server."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
