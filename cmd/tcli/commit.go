package main

import (
	"context"
	"flag"
	"path/filepath"

	"github.com/pkg/errors"

	tcli "github.com/thunderstore-io/tcli-go"
	"github.com/thunderstore-io/tcli-go/core"
	"github.com/thunderstore-io/tcli-go/downloader"
	"github.com/thunderstore-io/tcli-go/index"
	"github.com/thunderstore-io/tcli-go/installer"
	"github.com/thunderstore-io/tcli-go/manifest"
	"github.com/thunderstore-io/tcli-go/project"
	"github.com/thunderstore-io/tcli-go/resolver"
)

const commitShortHelp = `Resolve the manifest and apply the result`
const commitLongHelp = `
Resolves Thunderstore.toml's dependencies against the local package
index, diffs the result against Thunderstore.lock, and drives the
configured installer to uninstall removed packages and install added
ones. Writes an updated statefile and lockfile on success.
`

var errInstallerRequired = errors.New("commit: -installer is required")

type commitCommand struct {
	dir       string
	installer string
}

func (c *commitCommand) Name() string      { return "commit" }
func (c *commitCommand) Args() string      { return "[flags]" }
func (c *commitCommand) ShortHelp() string { return commitShortHelp }
func (c *commitCommand) LongHelp() string  { return commitLongHelp }
func (c *commitCommand) Hidden() bool      { return false }

func (c *commitCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&c.dir, "C", ".", "project directory")
	fs.StringVar(&c.installer, "installer", "", "path to the ecosystem installer package directory (containing manifest.json)")
}

func (c *commitCommand) Run(ctx *tcli.Ctx, args []string) error {
	if c.installer == "" {
		return errInstallerRequired
	}

	m, err := manifest.Read(filepath.Join(c.dir, manifest.FileName))
	if err != nil {
		return err
	}
	direct, err := m.PackageReferences()
	if err != nil {
		return err
	}

	idx := index.Open(ctx.Client, ctx.Repository, ctx.Home)
	defer idx.Close()

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

	resolve := func(direct []core.PackageReference) (*core.DependencyGraph, error) {
		return resolver.Resolve(idx, direct)
	}

	if err := proj.Commit(context.Background(), resolve, direct); err != nil {
		return err
	}

	ctx.Logger.LogTCLIfln("commit complete")
	return nil
}
