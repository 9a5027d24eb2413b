package installer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/thunderstore-io/tcli-go/core"
)

// TestMain intercepts subprocess re-invocations of this test binary: when
// TCLI_WANT_HELPER_PROCESS is set, the binary behaves as a fake installer
// executable instead of running the test suite. This is the standard
// os/exec self-exec pattern for testing subprocess protocols without
// shipping a separate compiled fixture binary.
func TestMain(m *testing.M) {
	if os.Getenv("TCLI_WANT_HELPER_PROCESS") == "1" {
		runHelperProcess()
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func runHelperProcess() {
	var req Request
	body, _ := io.ReadAll(os.Stdin)
	_ = json.Unmarshal(body, &req)

	switch os.Getenv("TCLI_HELPER_MODE") {
	case "version_ok":
		writeResponse(typeVersion, VersionResponse{
			Author:     "test-author",
			Identifier: core.PackageReference{Namespace: "test", Name: "installer", Version: core.NewVersion(1, 0, 0)},
			Protocol:   core.NewVersion(1, 0, 0),
		})
	case "version_bad":
		writeResponse(typeVersion, VersionResponse{
			Author:     "test-author",
			Identifier: core.PackageReference{Namespace: "test", Name: "installer", Version: core.NewVersion(1, 0, 0)},
			Protocol:   core.NewVersion(2, 0, 0),
		})
	case "error":
		writeResponse(typeError, ErrorResponse{Message: "boom"})
	}
}

func writeResponse(t string, payload interface{}) {
	b, _ := json.Marshal(payload)
	resp := Response{Type: t, Payload: b}
	out, _ := json.Marshal(resp)
	fmt.Fprint(os.Stdout, string(out))
}

func withHelper(t *testing.T, mode string) *Client {
	t.Helper()
	t.Setenv("TCLI_WANT_HELPER_PROCESS", "1")
	t.Setenv("TCLI_HELPER_MODE", mode)
	return &Client{ExecutablePath: os.Args[0]}
}

func TestHandshakeOK(t *testing.T) {
	c := withHelper(t, "version_ok")
	resp, err := c.Handshake(context.Background())
	require.NoError(t, err)
	require.Equal(t, "test-author", resp.Author)
}

func TestHandshakeBadVersion(t *testing.T) {
	c := withHelper(t, "version_bad")
	_, err := c.Handshake(context.Background())
	require.Error(t, err)
	var bad *BadVersionError
	require.ErrorAs(t, err, &bad)
}

func TestCallSurfacesRemoteError(t *testing.T) {
	c := withHelper(t, "error")
	_, err := c.Handshake(context.Background())
	require.Error(t, err)
	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	require.Equal(t, "boom", remote.Message)
}
