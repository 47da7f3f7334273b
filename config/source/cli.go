package source

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/skekre98/modhost/config"
)

// CLISource turns dotted long flags into nested configuration:
//
//	--server.addr=:9090 --admin.token s3cret
//	  -> {server: {addr: ":9090"}, admin: {token: "s3cret"}}
//
// Single-dash long flags (-server.addr=:9090) are accepted too. Positional
// arguments and empty values are skipped, so the source can read the same
// command line a cobra command is parsing.
type CLISource struct {
	// Args replaces os.Args[1:] when non-nil.
	Args []string
}

func (c *CLISource) Name() string { return "cli" }

func (c *CLISource) Load(ctx context.Context) (map[string]any, error) {
	args := c.Args
	if args == nil {
		args = os.Args[1:]
	}
	return parseFlags(args), nil
}

// Watch returns immediately; flags are fixed for the process.
func (c *CLISource) Watch(ctx context.Context, ch chan<- config.Event) error {
	return nil
}

func parseFlags(raw []string) map[string]any {
	args := normalizeArgs(raw)
	fs := pflag.NewFlagSet("config", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}
		name := flagName(arg)
		if name == "" {
			continue
		}
		if fs.Lookup(name) == nil {
			fs.String(name, "", "")
		}
		if strings.Contains(arg, "=") {
			continue
		}
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			i++
			continue
		}
		// a bare switch such as --watch must not swallow the next flag
		fs.Lookup(name).NoOptDefVal = "true"
	}
	_ = fs.Parse(args)

	result := make(map[string]any)
	fs.Visit(func(f *pflag.Flag) {
		if v := f.Value.String(); v != "" {
			setNestedValue(result, strings.Split(f.Name, "."), v)
		}
	})
	return result
}

// normalizeArgs rewrites -long.flag to --long.flag for pflag.
func normalizeArgs(args []string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		if strings.HasPrefix(arg, "-") && !strings.HasPrefix(arg, "--") && len(arg) > 2 && arg[1] != '=' {
			arg = "-" + arg
		}
		out[i] = arg
	}
	return out
}

func flagName(arg string) string {
	if !strings.HasPrefix(arg, "--") {
		return ""
	}
	name, _, _ := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
	return name
}
