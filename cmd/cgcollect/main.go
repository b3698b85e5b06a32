// Command cgcollect produces a per-translation-unit *.ipcg file: it parses
// one TU with the tree-sitter frontend, extracts objects/constraints
// (component C4), solves the resulting equivalence classes (C5), resolves
// call edges into a graph.Store (C6), runs the configured collector
// pipeline (C9) over it, optionally prunes, and writes the result through
// the JSON container (C8).
//
// Grounded on hargabyte-cortex/internal/cmd and
// jinterlante1206-AleutianLocal/cmd/aleutian's one-cobra-command-per-tool
// shape: a single RunE that returns a plain error, mapped to the spec §6/§7
// exit-code taxonomy by main() alone.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/viant/metacg/cliconfig"
	"github.com/viant/metacg/collectors"
	"github.com/viant/metacg/extractor"
	"github.com/viant/metacg/frontend/treesitter"
	"github.com/viant/metacg/graph"
	"github.com/viant/metacg/ioformat"
	"github.com/viant/metacg/merger"
	"github.com/viant/metacg/objectname"
	"github.com/viant/metacg/pipeline"
	"github.com/viant/metacg/resolver"
	"github.com/viant/metacg/solver"
)

var (
	configPath            string
	formatVersion         int
	captureCtorsDtors     bool
	captureNewDeleteCalls bool
	captureImplicits      bool
	inferCtorsDtors       bool
	aliasModel            string
	wholeProgram          bool
	prune                 bool
	pluginPaths           []string
	logLevel              string
	collectorNames        []string
	outPath               string
)

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(cliconfig.ClassifyError(err))
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cgcollect <source.cpp> [out.ipcg]",
		Short: "Extract a per-translation-unit call graph from a C/C++ source file",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  runCollect,
	}
	flags := cmd.Flags()
	flags.StringVar(&configPath, "config", "", "path to cgcollect.yaml (default: search upward from the TU's directory)")
	flags.IntVar(&formatVersion, "metacg-format-version", 0, "container version to write, 2 or 3 (default: from config)")
	flags.BoolVar(&captureCtorsDtors, "capture-ctors-dtors", false, "constructor/destructor call capture (accepted for compatibility; extraction does not read this setting)")
	flags.BoolVar(&captureNewDeleteCalls, "capture-new-delete-calls", false, "new/delete call capture (accepted for compatibility; extraction does not read this setting)")
	flags.BoolVar(&captureImplicits, "capture-implicits", false, "visit compiler-synthesized implicit code (unsupported by the tree-sitter frontend)")
	flags.BoolVar(&inferCtorsDtors, "infer-ctors-dtors", false, "synthesize implicit default ctor/dtor facts (unsupported by the tree-sitter frontend)")
	flags.StringVar(&aliasModel, "alias-model", "", "none|all (default: from config)")
	flags.BoolVar(&wholeProgram, "whole-program", false, "treat this TU as the entire program; fail if no main is resolvable")
	flags.BoolVar(&prune, "prune", false, "drop bodyless, edgeless nodes before writing")
	flags.StringSliceVar(&pluginPaths, "pluginPaths", nil, "extra collector-descriptor search paths (accepted for compatibility, unused: nothing is loaded from them)")
	flags.StringVar(&logLevel, "log-level", "", "debug|info|warn|error (default: from config)")
	flags.StringSliceVar(&collectorNames, "collectors", nil, "collector selection set (default: from config)")
	flags.StringVar(&outPath, "out", "", "output path (default: <source>.ipcg, or the second positional argument)")
	return cmd
}

func runCollect(cmd *cobra.Command, args []string) error {
	srcPath := args[0]
	dst := outPath
	if len(args) == 2 {
		dst = args[1]
	}
	if dst == "" {
		dst = srcPath + ".ipcg"
	}

	cfg, err := loadConfig(srcPath)
	if err != nil {
		return err
	}
	applyFlagOverrides(cfg, cmd)

	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	if captureImplicits || inferCtorsDtors {
		slog.Warn("capture-implicits/infer-ctors-dtors requested but the tree-sitter frontend has no semantic pass to synthesize implicit code; these flags are accepted for CLI compatibility and have no effect")
	}

	insp := treesitter.NewInspector(srcPath)
	decls, err := insp.InspectFile()
	if err != nil {
		return fmt.Errorf("cgcollect: %w", err)
	}

	prog := extractor.New().Extract(decls)

	scheme := graph.IDByNameAndOrigin
	if cfg.FormatVersion == 2 {
		scheme = graph.IDByName
	}
	store := graph.NewStore(scheme)

	// resolver.GraphSink needs the identity table up front, but building it
	// is just the (name, origin, hasBody) projection of prog.Functions that
	// extractor.Seed also produces — compute it directly here so the
	// solver can be constructed with its real sink from the start.
	identities := make(map[objectname.ID]resolver.Identity, len(prog.Functions))
	for id, fn := range prog.Functions {
		identities[id] = resolver.Identity{Name: fn.Name, Origin: fn.Origin, HasBody: fn.HasBody}
	}
	sink := resolver.NewGraphSink(store, identities)
	s := solver.New(sink)
	if cfg.AliasModel == "none" {
		extractor.SeedDirect(prog, s)
	} else {
		extractor.Seed(prog, s)
	}

	descriptors, wantOverride := cfg.ResolveCollectors()
	if !(len(cfg.Collectors) == 1 && cfg.Collectors[0] == cliconfig.CollectorNone) {
		p, err := pipeline.Default().Build(descriptors)
		if err != nil {
			return fmt.Errorf("cgcollect: %w", err)
		}
		p.Run(store, decls)
	}
	if wantOverride {
		oc := &collectors.OverrideCollector{Program: prog}
		oc.ComputeForGraph(store)
	}

	if cfg.Prune {
		dropped := merger.Prune(store)
		slog.Info("pruned bodyless, edgeless nodes", "count", dropped)
	}

	if cfg.WholeProgram && store.GetMain() == nil {
		return cliconfig.ErrNoMain
	}

	version := ioformat.Version(cfg.FormatVersion)
	gen := ioformat.Generator("cgcollect")
	if err := ioformat.SaveFile(context.Background(), dst, store, version, gen); err != nil {
		return fmt.Errorf("cgcollect: %w", err)
	}
	slog.Info("wrote translation-unit graph", "path", dst, "nodes", store.NodeCount(), "edges", store.Size())
	return nil
}

func loadConfig(srcPath string) (*cliconfig.Config, error) {
	if configPath != "" {
		return cliconfig.LoadFromPath(configPath)
	}
	return cliconfig.Load(dirOf(srcPath))
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}

func applyFlagOverrides(cfg *cliconfig.Config, cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("metacg-format-version") {
		cfg.FormatVersion = formatVersion
	}
	if flags.Changed("capture-ctors-dtors") {
		cfg.CaptureCtorsDtors = captureCtorsDtors
	}
	if flags.Changed("capture-new-delete-calls") {
		cfg.CaptureNewDeleteCalls = captureNewDeleteCalls
	}
	if flags.Changed("capture-implicits") {
		cfg.CaptureImplicits = captureImplicits
	}
	if flags.Changed("infer-ctors-dtors") {
		cfg.InferCtorsDtors = inferCtorsDtors
	}
	if flags.Changed("alias-model") {
		cfg.AliasModel = aliasModel
	}
	if flags.Changed("whole-program") {
		cfg.WholeProgram = wholeProgram
	}
	if flags.Changed("prune") {
		cfg.Prune = prune
	}
	if flags.Changed("pluginPaths") {
		cfg.PluginPaths = pluginPaths
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("collectors") {
		cfg.Collectors = collectorNames
	}
}
