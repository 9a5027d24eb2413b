package main

import (
	"flag"

	tcli "github.com/thunderstore-io/tcli-go"
	"github.com/thunderstore-io/tcli-go/index"
)

const syncShortHelp = `Synchronize the local package catalog`
const syncLongHelp = `
Downloads the remote package catalog and replaces the local index cache
at $TCLI_HOME/index. Safe to interrupt: readers see either the old or
the new index, never a partial one.
`

type syncCommand struct {
	force bool
}

func (c *syncCommand) Name() string      { return "sync" }
func (c *syncCommand) Args() string      { return "[flags]" }
func (c *syncCommand) ShortHelp() string { return syncShortHelp }
func (c *syncCommand) LongHelp() string  { return syncLongHelp }
func (c *syncCommand) Hidden() bool      { return false }

func (c *syncCommand) Register(fs *flag.FlagSet) {
	fs.BoolVar(&c.force, "force", false, "sync even if the local index looks up to date")
}

func (c *syncCommand) Run(ctx *tcli.Ctx, args []string) error {
	if !c.force {
		stale, err := index.RequiresUpdate(ctx.Client, ctx.Repository, ctx.Home)
		if err != nil {
			return err
		}
		if !stale {
			ctx.Logger.LogTCLIfln("index is up to date")
			return nil
		}
	}
	if err := index.Sync(ctx.Client, ctx.Repository, ctx.Home); err != nil {
		return err
	}
	ctx.Logger.LogTCLIfln("synced package index")
	return nil
}
