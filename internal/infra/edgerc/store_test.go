package edgerc

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const sampleEdgerc = `[default]
host = https://akab-default.luna.akamaiapis.net/
client_token = akab-client-default
client_secret = secret-default
access_token = akab-access-default

[staging]
host = akab-staging.luna.akamaiapis.net
client_token = akab-client-staging
client_secret = secret-staging
access_token = akab-access-staging
account_key = 1-ABCDEF:1-2QRST
`

func writeEdgerc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".edgerc")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// touch guarantees a mtime change even on coarse-grained filesystems.
func touch(t *testing.T, path string) {
	t.Helper()
	next := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, next, next))
}

func TestParse_Sections(t *testing.T) {
	sections, err := Parse([]byte(sampleEdgerc))
	require.NoError(t, err)
	require.Len(t, sections, 2)

	def, ok := sections["default"]
	require.True(t, ok)
	require.Equal(t, "akab-default.luna.akamaiapis.net", def.Host)
	require.Equal(t, "akab-client-default", def.ClientToken)
	require.Equal(t, "secret-default", def.ClientSecret)
	require.Equal(t, "akab-access-default", def.AccessToken)
	require.Empty(t, def.AccountKey)

	staging, ok := sections["staging"]
	require.True(t, ok)
	require.Equal(t, "akab-staging.luna.akamaiapis.net", staging.Host)
	require.Equal(t, "1-ABCDEF:1-2QRST", staging.AccountKey)
}

func TestParse_AccountSwitchKeyAlias(t *testing.T) {
	sections, err := Parse([]byte(`[prod]
host = akab-prod.luna.akamaiapis.net
client_token = t
client_secret = s
access_token = a
account-switch-key = 1-SWITCH
`))
	require.NoError(t, err)
	require.Equal(t, "1-SWITCH", sections["prod"].AccountKey)
}

func TestParse_IgnoresUnknownKeys(t *testing.T) {
	sections, err := Parse([]byte(`[default]
host = example.net
client_token = t
client_secret = s
access_token = a
max-body = 131072
`))
	require.NoError(t, err)
	require.Equal(t, "example.net", sections["default"].Host)
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte("[unclosed\nhost = x\n"))
	require.Error(t, err)
}

func TestSnapshot_LookupCaseInsensitive(t *testing.T) {
	path := writeEdgerc(t, sampleEdgerc)
	store, err := Open(path, zap.NewNop())
	require.NoError(t, err)

	_, ok := store.Snapshot().Lookup("Staging")
	require.True(t, ok)
	_, ok = store.Snapshot().Lookup("STAGING")
	require.True(t, ok)
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent"), zap.NewNop())
	require.Error(t, err)
}

func TestStore_ReloadReportsRemovedSections(t *testing.T) {
	path := writeEdgerc(t, sampleEdgerc)
	store, err := Open(path, zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, []string{"default", "staging"}, store.Snapshot().Sections())

	require.NoError(t, os.WriteFile(path, []byte(`[default]
host = akab-default.luna.akamaiapis.net
client_token = akab-client-default
client_secret = secret-default
access_token = akab-access-default
`), 0o600))

	removed, err := store.Reload()
	require.NoError(t, err)
	require.Equal(t, []string{"staging"}, removed)
	require.Equal(t, []string{"default"}, store.Snapshot().Sections())
}

func TestStore_ReloadKeepsLastGoodSnapshot(t *testing.T) {
	path := writeEdgerc(t, sampleEdgerc)
	store, err := Open(path, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("[broken\n"), 0o600))
	_, err = store.Reload()
	require.Error(t, err)

	_, ok := store.Snapshot().Lookup("staging")
	require.True(t, ok, "previous snapshot should survive a failed reload")
}

func TestStore_Stale(t *testing.T) {
	path := writeEdgerc(t, sampleEdgerc)
	store, err := Open(path, zap.NewNop())
	require.NoError(t, err)
	require.False(t, store.Stale())

	touch(t, path)
	require.True(t, store.Stale())

	_, err = store.Reload()
	require.NoError(t, err)
	require.False(t, store.Stale())
}

func TestExpandPath_Tilde(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	expanded, err := ExpandPath("~/.edgerc")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".edgerc"), expanded)

	plain, err := ExpandPath("/etc/alecs/edgerc")
	require.NoError(t, err)
	require.Equal(t, "/etc/alecs/edgerc", plain)

	_, err = ExpandPath("  ")
	require.Error(t, err)
}
