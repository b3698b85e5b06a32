// Command cgconvert reads a call-graph file under any supported container
// version and writes it back at the requested one. A v3-to-v2 conversion
// that would collapse two nodes sharing a name but differing in origin is
// refused unless --discard_failed_metadata opts into the loss.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/viant/metacg/cliconfig"
	"github.com/viant/metacg/ioformat"
)

// versionValue is a pflag.Value restricted to the writable container
// versions, so `--metacg-format-version 4` fails at flag-parse time with
// an argument error instead of surfacing later as a graph error.
type versionValue struct {
	v ioformat.Version
}

var _ pflag.Value = (*versionValue)(nil)

func (v *versionValue) String() string { return strconv.Itoa(int(v.v)) }
func (v *versionValue) Type() string   { return "version" }
func (v *versionValue) Set(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || (n != 2 && n != 3) {
		return fmt.Errorf("supported output versions are 2 and 3, got %q", s)
	}
	v.v = ioformat.Version(n)
	return nil
}

var (
	target                = versionValue{v: ioformat.V3}
	discardFailedMetadata bool
	logLevel              string
)

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(cliconfig.ClassifyError(err))
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cgconvert <in> <out> [version]",
		Short: "Convert a call-graph file between container format versions",
		Args:  cobra.RangeArgs(2, 3),
		RunE:  runConvert,
	}
	flags := cmd.Flags()
	flags.Var(&target, "metacg-format-version", "container version to write, 2 or 3 (overridden by the positional version)")
	flags.BoolVar(&discardFailedMetadata, "discard_failed_metadata", false, "allow lossy conversion, dropping what the target version cannot represent")
	flags.StringVar(&logLevel, "log-level", "info", "debug|info|warn|error")
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", cliconfig.ErrArgument, err)
	})
	return cmd
}

func runConvert(cmd *cobra.Command, args []string) error {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cliconfig.SlogLevel(logLevel)})))

	if len(args) == 3 {
		if err := target.Set(args[2]); err != nil {
			return fmt.Errorf("%w: %v", cliconfig.ErrArgument, err)
		}
	}
	in, out := args[0], args[1]
	if err := ioformat.Convert(context.Background(), in, out, target.v, ioformat.Generator("cgconvert"), discardFailedMetadata); err != nil {
		return err
	}
	slog.Info("converted", "from", in, "to", out, "version", target.v.String())
	return nil
}
