package project

import (
	"github.com/thunderstore-io/tcli-go/core"
	"github.com/thunderstore-io/tcli-go/installer"
)

// SingleInstaller is an Installers implementation backing every package
// and every game with the same installer executable. This is the common
// case: one ecosystem (e.g. BepInEx) installer handles the whole project.
type SingleInstaller struct {
	Client *installer.Client
}

func (s SingleInstaller) For(ref core.PackageReference) (*installer.Client, error) {
	return s.Client, nil
}

func (s SingleInstaller) ForGame(gameIdentifier string) (*installer.Client, error) {
	return s.Client, nil
}
