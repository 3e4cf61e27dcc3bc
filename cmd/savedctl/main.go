package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
	"github.com/spf13/afero"
	"go.arnest.dev/scan/catalog"
	mbp "go.arnest.dev/scan/mainboilerplate"
	"go.arnest.dev/scan/repository"
	"go.arnest.dev/scan/store"
)

const iniFilename = "savedctl.ini"

// CatalogConfig locates the product catalog.
type CatalogConfig struct {
	Path string `long:"path" env:"PATH" default:"catalog.csv" description:"Path of the product catalog CSV"`
}

var (
	baseCfg = new(struct {
		Store       store.Config          `group:"Store" namespace:"store" env-namespace:"STORE"`
		Catalog     CatalogConfig         `group:"Catalog" namespace:"catalog" env-namespace:"CATALOG"`
		Log         mbp.LogConfig         `group:"Logging" namespace:"log" env-namespace:"LOG"`
		Diagnostics mbp.DiagnosticsConfig `group:"Debug" namespace:"debug" env-namespace:"DEBUG"`
	})
	commands = mbp.NewCommandRegistry()
)

func main() {
	var parser = flags.NewParser(baseCfg, flags.Default)

	parser.LongDescription = `savedctl manages the saved products of the ArnestScan scanner.

	See --help pages of each sub-command for documentation and usage examples.
	Optionally configure savedctl with a '` + iniFilename + `' file in the current working directory,
	or with '~/.config/arnest/` + iniFilename + `'. Use the 'print-config' sub-command to inspect
	the tool's current configuration.
	`
	mbp.AddPrintConfigCmd(parser, iniFilename)
	mbp.Must(commands.AddCommands("", parser.Command, true), "could not add subcommand")

	mbp.MustParseConfig(parser, iniFilename)
}

// startup initializes logging and diagnostics, and returns a Context which
// is cancelled on SIGINT or SIGTERM, and a closure to defer.
func startup() (context.Context, func()) {
	mbp.InitLog(baseCfg.Log)
	var recoverFn = mbp.InitDiagnosticsAndRecover(baseCfg.Diagnostics)

	var ctx, cancel = signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	return ctx, func() {
		cancel()
		recoverFn()
	}
}

func mustOpenStore() *store.Store {
	var s, err = store.Open(baseCfg.Store)
	mbp.Must(err, "failed to open store", "path", baseCfg.Store.Path)
	return s
}

func mustLoadCatalog() *catalog.Catalog {
	var c, err = catalog.Load(afero.NewOsFs(), baseCfg.Catalog.Path)
	mbp.Must(err, "failed to load catalog", "path", baseCfg.Catalog.Path)
	return c
}

// mustRepository returns a Repository of the Store and, if |withCatalog|,
// the loaded Catalog. Otherwise the Repository has an empty Catalog.
func mustRepository(withCatalog bool) (*repository.Repository, *store.Store) {
	var c *catalog.Catalog
	if withCatalog {
		c = mustLoadCatalog()
	} else {
		c = catalog.New()
	}
	var s = mustOpenStore()
	return repository.New(c, s), s
}
