package mainboilerplate

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jessevdk/go-flags"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Log   LogConfig `group:"Logging" namespace:"log" env-namespace:"LOG"`
	Store struct {
		Path          string        `long:"path" default:"saved.db" description:"Path"`
		CoalesceDelay time.Duration `long:"coalesce-delay" default:"10ms" description:"Delay"`
	} `group:"Store" namespace:"store"`
}

func TestIniThenArgsLayering(t *testing.T) {
	var dirs = []string{t.TempDir(), t.TempDir()}
	require.NoError(t, os.WriteFile(filepath.Join(dirs[1], "test.ini"), []byte(`
[Store]
Path = from-ini.db
store.coalesce-delay = 50ms
UnknownOption = ignored
`), 0600))

	var cfg testConfig
	var parser = flags.NewParser(&cfg, flags.Default)

	var path, err = ParseIniConfig(parser, "test.ini", dirs)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dirs[1], "test.ini"), path)
	require.Equal(t, "from-ini.db", cfg.Store.Path)
	require.Equal(t, 50*time.Millisecond, cfg.Store.CoalesceDelay)

	_, err = parser.ParseArgs([]string{"--store.coalesce-delay=1s"})
	require.NoError(t, err)
	require.Equal(t, "from-ini.db", cfg.Store.Path)
	require.Equal(t, time.Second, cfg.Store.CoalesceDelay)

	var buf bytes.Buffer
	WriteConfig(&buf, parser)
	require.Contains(t, buf.String(), "Path = from-ini.db")
}

func TestIniConfigNotFound(t *testing.T) {
	var cfg testConfig
	var parser = flags.NewParser(&cfg, flags.Default)

	var path, err = ParseIniConfig(parser, "missing.ini", []string{t.TempDir()})
	require.NoError(t, err)
	require.Equal(t, "", path)
}

func TestApplyLogConfig(t *testing.T) {
	defer log.SetLevel(log.GetLevel())

	require.NoError(t, ApplyLogConfig(LogConfig{Level: "debug", Format: "json"}))
	require.Equal(t, log.DebugLevel, log.GetLevel())

	require.Error(t, ApplyLogConfig(LogConfig{Level: "loud", Format: "text"}))
	require.EqualError(t, ApplyLogConfig(LogConfig{Level: "info", Format: "xml"}),
		`unrecognized log format "xml"`)
}

func TestCommandRegistryBuildsTree(t *testing.T) {
	var parser = flags.NewParser(nil, flags.Default)
	var cr = NewCommandRegistry()

	cr.AddCommand("", "catalog", "Catalog", "", &struct{}{})
	cr.AddCommand("catalog", "search", "Search", "", &struct{}{})
	require.NoError(t, cr.AddCommands("", parser.Command, true))

	var catalog = parser.Find("catalog")
	require.NotNil(t, catalog)
	require.NotNil(t, catalog.Find("search"))
}

func TestDiagnosticsHandler(t *testing.T) {
	var srv = httptest.NewServer(DiagnosticsHandler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/debug/ready")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/debug/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	require.Contains(t, string(body), "go_goroutines")
}

func TestMustPanicsOnError(t *testing.T) {
	require.NotPanics(t, func() { Must(nil, "ok") })
	require.Panics(t, func() { Must(os.ErrNotExist, "failed", "key", "value") })
}
