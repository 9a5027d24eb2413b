package installer

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/thunderstore-io/tcli-go/core"
	"github.com/thunderstore-io/tcli-go/log"
)

// BadVersionError is returned when an installer's reported protocol major
// version does not match ProtocolVersion's.
type BadVersionError struct {
	Identifier core.PackageReference
	Reported   core.Version
}

func (e *BadVersionError) Error() string {
	return "installer " + e.Identifier.String() + " speaks incompatible protocol " + e.Reported.String()
}

// RemoteError wraps an Error response returned by the installer on its
// stdout, or a nonzero exit with no parseable response.
type RemoteError struct {
	Message string
	Stderr  string
}

func (e *RemoteError) Error() string {
	msg := "installer reported error: " + e.Message
	if e.Stderr != "" {
		msg += "\nstderr:\n" + e.Stderr
	}
	return msg
}

// sem bounds the number of installer subprocesses running concurrently.
// Acquired for the lifetime of one request and released on every exit
// path, including error, mirroring the scoped-subprocess-resource pattern
// this module is grounded on (golang-dep's gps/cmd.go CtxWithCmdLimit).
type sem chan struct{}

type limitKey struct{}

// WithConcurrencyLimit returns a context that bounds the number of
// concurrently-running installer subprocesses spawned through it to n.
func WithConcurrencyLimit(ctx context.Context, n int) context.Context {
	return context.WithValue(ctx, limitKey{}, make(sem, n))
}

func acquire(ctx context.Context) (release func(), err error) {
	v, _ := ctx.Value(limitKey{}).(sem)
	if v == nil {
		return func() {}, nil
	}
	select {
	case v <- struct{}{}:
		return func() { <-v }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Client drives a single invocation of an ecosystem's installer
// executable. Each Request spawns a fresh subprocess: the installer is not
// expected to be a long-running server.
type Client struct {
	ExecutablePath string
	Logger         *log.Logger
}

// NewClient returns a Client bound to the given installer executable.
func NewClient(executablePath string, logger *log.Logger) *Client {
	return &Client{ExecutablePath: executablePath, Logger: logger}
}

// NewClientForPackage resolves the installer package at dir to the
// executable matching the host's OS/architecture, per spec.md §4.3, and
// returns a Client bound to it.
func NewClientForPackage(dir string, logger *log.Logger) (*Client, error) {
	exe, err := SelectExecutable(dir)
	if err != nil {
		return nil, err
	}
	return NewClient(exe, logger), nil
}

// Handshake sends a Version request and verifies the installer's reported
// protocol major version matches ProtocolVersion's, per spec.md §4.3.
func (c *Client) Handshake(ctx context.Context) (VersionResponse, error) {
	var resp VersionResponse
	if err := c.call(ctx, typeVersion, VersionRequest{}, &resp, typeVersion); err != nil {
		return VersionResponse{}, err
	}
	if resp.Protocol.Major != ProtocolVersion.Major {
		return resp, &BadVersionError{Identifier: resp.Identifier, Reported: resp.Protocol}
	}
	return resp, nil
}

// Install issues a PackageInstall request.
func (c *Client) Install(ctx context.Context, req PackageInstallRequest) (PackageInstallResponse, error) {
	var resp PackageInstallResponse
	err := c.call(ctx, typePackageInstall, req, &resp, typePackageInstall)
	return resp, err
}

// Uninstall issues a PackageUninstall request.
func (c *Client) Uninstall(ctx context.Context, req PackageUninstallRequest) (PackageUninstallResponse, error) {
	var resp PackageUninstallResponse
	err := c.call(ctx, typePackageUninstall, req, &resp, typePackageUninstall)
	return resp, err
}

// StartGame issues a StartGame request and returns the launched process's
// PID.
func (c *Client) StartGame(ctx context.Context, req StartGameRequest) (StartGameResponse, error) {
	var resp StartGameResponse
	err := c.call(ctx, typeStartGame, req, &resp, typeStartGame)
	return resp, err
}

// call spawns one installer subprocess, writes a single Request document
// to its stdin, and decodes a single Response document from its stdout.
// An Error-typed response or a nonzero exit surfaces as a *RemoteError;
// an undecodable response from a process that exited zero is returned as
// a decode error.
func (c *Client) call(ctx context.Context, reqType string, payload interface{}, out interface{}, wantType string) error {
	release, err := acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	correlationID := uuid.NewString()
	if c.Logger != nil {
		c.Logger.Logf("installer[%s]: -> %s\n", correlationID, reqType)
	}

	req := Request{Type: reqType, Payload: payload}
	body, err := json.Marshal(req)
	if err != nil {
		return errors.Wrap(err, "encoding installer request")
	}

	cmd := exec.CommandContext(ctx, c.ExecutablePath)
	cmd.Stdin = bytes.NewReader(body)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	var resp Response
	if decodeErr := json.Unmarshal(stdout.Bytes(), &resp); decodeErr != nil {
		if runErr != nil {
			return &RemoteError{Message: runErr.Error(), Stderr: stderr.String()}
		}
		return errors.Wrapf(decodeErr, "decoding installer response (correlation %s)", correlationID)
	}

	if resp.Type == typeError {
		var errResp ErrorResponse
		_ = json.Unmarshal(resp.Payload, &errResp)
		return &RemoteError{Message: errResp.Message, Stderr: stderr.String()}
	}

	if runErr != nil {
		return &RemoteError{Message: runErr.Error(), Stderr: stderr.String()}
	}

	if resp.Type != wantType {
		return errors.Errorf("installer returned unexpected response type %q, wanted %q", resp.Type, wantType)
	}

	if out != nil {
		if err := json.Unmarshal(resp.Payload, out); err != nil {
			return errors.Wrap(err, "decoding installer response payload")
		}
	}

	if c.Logger != nil {
		c.Logger.Logf("installer[%s]: <- %s\n", correlationID, resp.Type)
	}
	return nil
}
