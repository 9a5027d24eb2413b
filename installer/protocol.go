// Package installer speaks the JSON request/response protocol described in
// spec.md §4.3 over the stdio of a per-ecosystem installer executable.
package installer

import (
	"encoding/json"

	"github.com/thunderstore-io/tcli-go/core"
)

// ProtocolVersion is the protocol major.minor.patch this client supports.
// Only the major component is checked for compatibility; minor and patch
// are advisory.
var ProtocolVersion = core.NewVersion(1, 0, 0)

// FileAction classifies one filesystem effect reported by an installer.
type FileAction string

const (
	ActionCreate FileAction = "Create"
	ActionRemove FileAction = "Remove"
	ActionModify FileAction = "Modify"
)

// TrackedFile is one filesystem effect reported by an installer, later
// used to reverse the install.
type TrackedFile struct {
	Action  FileAction `json:"action"`
	Path    string     `json:"path"`
	Context *string    `json:"context,omitempty"`
}

// Request is a tagged union of every message the core may send to an
// installer's stdin, discriminated by Type with the payload under
// Payload.
type Request struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// VersionRequest asks the installer to identify itself and its protocol
// version. It carries no payload.
type VersionRequest struct{}

// PackageInstallRequest asks the installer to install one package.
type PackageInstallRequest struct {
	IsModloader bool                    `json:"is_modloader"`
	Package     core.PackageReference   `json:"package"`
	PackageDeps []core.PackageReference `json:"package_deps"`
	PackageDir  string                  `json:"package_dir"`
	StateDir    string                  `json:"state_dir"`
	StagingDir  string                  `json:"staging_dir"`
}

// PackageUninstallRequest asks the installer to reverse a previous
// install, given the tracked files it reported at install time.
type PackageUninstallRequest struct {
	IsModloader  bool                    `json:"is_modloader"`
	Package      core.PackageReference   `json:"package"`
	PackageDeps  []core.PackageReference `json:"package_deps"`
	PackageDir   string                  `json:"package_dir"`
	StateDir     string                  `json:"state_dir"`
	StagingDir   string                  `json:"staging_dir"`
	TrackedFiles []TrackedFile           `json:"tracked_files"`
}

// StartGameRequest asks the installer to launch the game with the mod
// loader enabled per ModsEnabled.
type StartGameRequest struct {
	ModsEnabled  bool     `json:"mods_enabled"`
	ProjectState string   `json:"project_state"`
	GameDir      string   `json:"game_dir"`
	GameExe      string   `json:"game_exe"`
	Args         []string `json:"args"`
}

// Response is the tagged union returned on an installer's stdout. Payload
// is decoded lazily because its shape depends on Type.
type Response struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// VersionResponse identifies the installer and the protocol it speaks.
type VersionResponse struct {
	Author     string                `json:"author"`
	Identifier core.PackageReference `json:"identifier"`
	Protocol   core.Version          `json:"protocol"`
}

// PackageInstallResponse reports the filesystem effects of an install.
type PackageInstallResponse struct {
	TrackedFiles     []TrackedFile `json:"tracked_files"`
	PostHookContext  *string       `json:"post_hook_context,omitempty"`
}

// PackageUninstallResponse reports the completion of an uninstall.
type PackageUninstallResponse struct {
	PostHookContext *string `json:"post_hook_context,omitempty"`
}

// StartGameResponse reports the PID of the launched game process.
type StartGameResponse struct {
	PID int `json:"pid"`
}

// ErrorResponse carries a message reported by the installer on failure.
type ErrorResponse struct {
	Message string `json:"message"`
}

const (
	typeVersion           = "Version"
	typePackageInstall    = "PackageInstall"
	typePackageUninstall  = "PackageUninstall"
	typeStartGame         = "StartGame"
	typeError             = "Error"
)
