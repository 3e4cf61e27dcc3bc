package mainboilerplate

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
)

// ConfigDirs returns directories searched for an INI file, in order:
//   - The current working directory.
//   - $ARNEST_CONFIG_ROOT, if set.
//   - ~/.config/arnest (under the user's $HOME or %UserProfile% directory).
func ConfigDirs() []string {
	var dirs = []string{"."}
	if root := os.Getenv("ARNEST_CONFIG_ROOT"); root != "" {
		dirs = append(dirs, root)
	}
	for _, home := range []string{os.Getenv("HOME"), os.Getenv("UserProfile")} {
		if home != "" {
			dirs = append(dirs, filepath.Join(home, ".config", "arnest"))
		}
	}
	return dirs
}

// ParseIniConfig parses the first INI file named |configName| found within
// |dirs| into the Parser. Options the Parser doesn't know are ignored.
// It returns the path parsed, or "" if no file was found.
func ParseIniConfig(parser *flags.Parser, configName string, dirs []string) (string, error) {
	var origOptions = parser.Options
	parser.Options |= flags.IgnoreUnknown
	defer func() { parser.Options = origOptions }()

	var iniParser = flags.NewIniParser(parser)

	for _, dir := range dirs {
		var path = filepath.Join(dir, configName)

		if err := iniParser.ParseFile(path); err == nil {
			return path, nil
		} else if os.IsNotExist(err) {
			// Pass.
		} else {
			return "", errors.WithMessagef(err, "parsing %s", path)
		}
	}
	return "", nil
}

// MustParseConfig requires that the Parser parse from the combination of an
// optional INI file (see ConfigDirs), configured environment bindings, and
// explicit flags.
func MustParseConfig(parser *flags.Parser, configName string) {
	if _, err := ParseIniConfig(parser, configName, ConfigDirs()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	MustParseArgs(parser, os.Args[1:])
}

// MustParseArgs requires that Parser be able to parse |args| without error.
func MustParseArgs(parser *flags.Parser, args []string) {
	if _, err := parser.ParseArgs(args); err != nil {
		var flagErr, ok = err.(*flags.Error)
		if !ok {
			Must(err, "fatal error")
		}

		switch flagErr.Type {
		case flags.ErrDuplicatedFlag, flags.ErrTag, flags.ErrInvalidTag, flags.ErrShortNameTooLong, flags.ErrMarshal:
			// These error types indicate a problem in the configuration object
			// |parser| was asked to parse (eg, a developer error rather than input error).
			panic(err)

		case flags.ErrCommandRequired:
			// Extend go-flag's "Please specify one command of: ... " output with the full usage.
			// This provides a nicer UX to users running the bare binary.
			os.Stderr.WriteString("\n")
			parser.WriteHelp(os.Stderr)
			fmt.Fprintf(os.Stderr, "\nVersion %s, built at %s.\n", Version, BuildDate)
			os.Exit(1)

		case flags.ErrHelp:
			if parser.Options&flags.PrintErrors != 0 {
				// Help was already printed.
			} else {
				parser.WriteHelp(os.Stderr)
				fmt.Fprintf(os.Stderr, "\nVersion %s, built at %s.\n", Version, BuildDate)
			}
			os.Exit(1)

		default:
			// Other error types indicate a problem of input. Generally, `go-flags`
			// already prints a helpful message and we can simply exit.
			os.Exit(1)
		}
	}
}

// AddPrintConfigCmd to the Parser. The "print-config" command helps users test
// whether their applications are correctly configured, by exporting all runtime
// configuration in INI format.
func AddPrintConfigCmd(parser *flags.Parser, configName string) {
	parser.AddCommand("print-config", "Print combined configuration and exit", `
print-config parses the combined configuration from `+configName+`, flags,
and environment variables, and then writes the configuration to stdout in INI format.
`, &printConfig{parser})
}

type printConfig struct {
	*flags.Parser `no-flag:"t"`
}

func (p printConfig) Execute([]string) error {
	WriteConfig(os.Stdout, p.Parser)
	return nil
}

// WriteConfig writes the Parser's current configuration to |w| in INI format.
func WriteConfig(w io.Writer, parser *flags.Parser) {
	flags.NewIniParser(parser).Write(w,
		flags.IniIncludeComments|flags.IniCommentDefaults|flags.IniIncludeDefaults)
}
