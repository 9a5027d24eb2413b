package main

import (
	"context"
	"flag"
	"path/filepath"

	tcli "github.com/thunderstore-io/tcli-go"
	"github.com/thunderstore-io/tcli-go/downloader"
	"github.com/thunderstore-io/tcli-go/installer"
	"github.com/thunderstore-io/tcli-go/project"
)

const launchShortHelp = `Launch the active game with mods enabled`
const launchLongHelp = `
Syncs staged files into the active game's directory and starts the
game via the configured installer, writing a PID file under .tcli/.
`

type launchCommand struct {
	dir         string
	installer   string
	modsEnabled bool
}

func (c *launchCommand) Name() string      { return "launch" }
func (c *launchCommand) Args() string      { return "[flags] [-- game-args...]" }
func (c *launchCommand) ShortHelp() string { return launchShortHelp }
func (c *launchCommand) LongHelp() string  { return launchLongHelp }
func (c *launchCommand) Hidden() bool      { return false }

func (c *launchCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&c.dir, "C", ".", "project directory")
	fs.StringVar(&c.installer, "installer", "", "path to the ecosystem installer package directory (containing manifest.json)")
	fs.BoolVar(&c.modsEnabled, "mods", true, "launch with mods enabled")
}

func (c *launchCommand) Run(ctx *tcli.Ctx, args []string) error {
	if c.installer == "" {
		return errInstallerRequired
	}

	client, err := installer.NewClientForPackage(c.installer, ctx.Logger)
	if err != nil {
		return err
	}

	dl := downloader.New(ctx.Client, ctx.Home)
	installers := project.SingleInstaller{Client: client}

	proj, err := project.Open(c.dir, dl, installers)
	if err != nil {
		return err
	}
	defer proj.Close()

	pid, err := proj.Launch(context.Background(), c.modsEnabled, args)
	if err != nil {
		return err
	}

	ctx.Logger.LogTCLIfln("launched game, pid %d (project %s)", pid, filepath.Clean(c.dir))
	return nil
}
