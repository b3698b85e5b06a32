// Command cgformat canonicalizes a call-graph file: stable whitespace,
// sorted arrays and object keys, optional origin-prefix rewriting, and
// optional discarding of metadata payloads that fail to parse. Formatting
// in place (no output argument) is the common case.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/viant/metacg/cliconfig"
	"github.com/viant/metacg/ioformat"
	"github.com/viant/metacg/project"
)

var (
	originPrefix     string
	detectOriginRoot bool
	discardMetadata  bool
	formatVersion    int
	logLevel         string
)

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(cliconfig.ClassifyError(err))
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cgformat <in> [out]",
		Short: "Canonicalize a call-graph file's whitespace, array order, and origin paths",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runFormat,
	}
	flags := cmd.Flags()
	flags.StringVar(&originPrefix, "origin-prefix", "", "rewrite origins, as old=new (old may be empty to prepend)")
	flags.BoolVar(&detectOriginRoot, "detect-origin-root", false, "strip the detected project root from every origin path")
	flags.BoolVar(&discardMetadata, "discard-unparsable-metadata", false, "drop metadata payloads that fail to parse instead of aborting")
	flags.IntVar(&formatVersion, "metacg-format-version", 0, "rewrite at this container version (default: keep the input's)")
	flags.StringVar(&logLevel, "log-level", "info", "debug|info|warn|error")
	return cmd
}

func runFormat(cmd *cobra.Command, args []string) error {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cliconfig.SlogLevel(logLevel)})))

	in := args[0]
	out := in
	if len(args) == 2 {
		out = args[1]
	}

	opts := ioformat.FormatOptions{
		DiscardUnparsableMetadata: discardMetadata,
		Version:                   ioformat.Version(formatVersion),
	}
	switch {
	case originPrefix != "" && detectOriginRoot:
		return fmt.Errorf("%w: --origin-prefix and --detect-origin-root are mutually exclusive", cliconfig.ErrArgument)
	case originPrefix != "":
		old, updated, ok := strings.Cut(originPrefix, "=")
		if !ok {
			return fmt.Errorf("%w: --origin-prefix wants old=new, got %q", cliconfig.ErrArgument, originPrefix)
		}
		opts.OriginPrefixOld, opts.OriginPrefixNew = old, updated
	case detectOriginRoot:
		p, err := project.New().Detect(in)
		if err != nil {
			return fmt.Errorf("cgformat: detecting project root: %w", err)
		}
		slog.Info("detected project root", "root", p.RootPath, "type", p.Type)
		opts.OriginPrefixOld = strings.TrimSuffix(p.RootPath, "/") + "/"
	}

	mismatches, err := ioformat.FormatFile(context.Background(), in, out, opts)
	for _, m := range mismatches {
		slog.Warn("origin prefix mismatch", "node", m)
	}
	if err != nil {
		return err
	}
	slog.Info("formatted", "from", in, "to", out)
	return nil
}
