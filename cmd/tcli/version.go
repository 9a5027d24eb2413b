package main

import (
	"flag"

	tcli "github.com/thunderstore-io/tcli-go"
	"github.com/thunderstore-io/tcli-go/installer"
)

const versionShortHelp = `Print the tcli version`
const versionLongHelp = `
Prints the tcli binary version and the installer protocol version it
speaks.
`

// tcliVersion is overridden at release build time via -ldflags.
var tcliVersion = "dev"

type versionCommand struct{}

func (c *versionCommand) Name() string      { return "version" }
func (c *versionCommand) Args() string      { return "" }
func (c *versionCommand) ShortHelp() string { return versionShortHelp }
func (c *versionCommand) LongHelp() string  { return versionLongHelp }
func (c *versionCommand) Hidden() bool      { return false }
func (c *versionCommand) Register(*flag.FlagSet) {}

func (c *versionCommand) Run(ctx *tcli.Ctx, args []string) error {
	ctx.Logger.LogTCLIfln("tcli %s (installer protocol %s)", tcliVersion, installer.ProtocolVersion)
	return nil
}
