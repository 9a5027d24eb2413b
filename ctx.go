// Package tcli ties together the package index, dependency resolver,
// project state engine, and installer protocol behind a single ambient
// Ctx, the way golang-dep's own root package wires GOPATH discovery and
// its source manager behind a single *dep.Ctx.
package tcli

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/thunderstore-io/tcli-go/log"
)

const (
	homeEnvVar        = "TCLI_HOME"
	defaultRepository = "https://thunderstore.io"
	defaultHomeDirTag = "tcli"
)

// Ctx is the process-wide ambient state for one command invocation: the
// home directory, an HTTP client bound to the repository, and a logger.
// Per spec.md §9, this is the only ambient state the system carries.
type Ctx struct {
	Home       string
	Repository string
	Client     *http.Client
	Logger     *log.Logger
}

// NewCtx builds a Ctx from TCLI_HOME (falling back to the OS user config
// directory) and an optional bearer token for the repository.
func NewCtx(repository, authToken string, logger *log.Logger) (*Ctx, error) {
	home, err := homeDir()
	if err != nil {
		return nil, errors.Wrap(err, "resolving home directory")
	}
	if err := os.MkdirAll(home, 0o755); err != nil {
		return nil, errors.Wrapf(err, "creating home directory %s", home)
	}

	if repository == "" {
		repository = defaultRepository
	}
	if logger == nil {
		logger = log.New(os.Stderr)
	}

	var transport http.RoundTripper = http.DefaultTransport
	if authToken != "" {
		transport = &bearerTransport{token: authToken, inner: transport}
	}

	return &Ctx{
		Home:       home,
		Repository: repository,
		Client:     &http.Client{Timeout: 2 * time.Minute, Transport: transport},
		Logger:     logger,
	}, nil
}

func homeDir() (string, error) {
	if v := os.Getenv(homeEnvVar); v != "" {
		return v, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, defaultHomeDirTag), nil
}

// bearerTransport attaches an Authorization: Bearer header to every
// request, used when the repository requires an auth token (e.g. for
// publish operations per spec.md §7's Auth error kind).
type bearerTransport struct {
	token string
	inner http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	cloned := req.Clone(req.Context())
	cloned.Header.Set("Authorization", "Bearer "+t.token)
	return t.inner.RoundTrip(cloned)
}
