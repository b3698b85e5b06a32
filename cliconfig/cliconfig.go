// Package cliconfig is the shared YAML configuration loaded by all four
// command-line tools (cmd/cgcollect, cmd/cgmerge, cmd/cgconvert,
// cmd/cgformat): collector selection, plugin paths, alias-model choice, and
// log-level wiring.
//
// Grounded on hargabyte-cortex/internal/config's Load/LoadFromPath/
// DefaultConfig/Merge/Validate shape: Load walks up from a working
// directory looking for a config file, LoadFromPath reads one directly,
// and a loaded file is merged field-by-field over DefaultConfig() rather
// than replacing it wholesale, so a config file only overriding one field
// still gets sane defaults for the rest.
package cliconfig

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/viant/metacg/graph"
	"github.com/viant/metacg/ioformat"
	"github.com/viant/metacg/pipeline"
)

// Exit codes shared by all four CLI tools (spec §6: "0 success, 1 argument
// error, other non-zero for specific failure taxonomy (graph construction,
// no main, IO)"). The CLI boundary is the only place in this module that
// os.Exits; everything below it returns a plain Go error instead, per the
// AMBIENT STACK's "abort means return a distinguishable error" rule.
const (
	ExitSuccess = 0
	// ExitArgumentError is returned for an error wrapped in ErrArgument,
	// before any file is touched. Cobra's own argument-count errors, and its
	// flag-parse errors in every tool except cgconvert, are not wrapped and
	// classify as ExitIOError.
	ExitArgumentError = 1
	// ExitIOError is returned when reading or writing a file fails.
	ExitIOError = 2
	// ExitGraphConstructionError is returned for FormatVersionMismatch,
	// IdHashCollision, LossyExport, or any other error produced while
	// building or serializing the graph itself.
	ExitGraphConstructionError = 3
	// ExitNoMain is returned when --whole-program is set but the merged
	// graph has no resolvable entry point (graph.Store.GetMain() == nil).
	ExitNoMain = 4
)

// ErrNoMain is returned by a command when --whole-program requires an
// entry point and graph.Store.GetMain() finds none.
var ErrNoMain = errors.New("no main function found in whole-program graph")

// ErrArgument marks a malformed command-line argument detected inside a
// RunE body (positional values cobra cannot validate itself), so main()
// reports ExitArgumentError rather than the I/O fallback.
var ErrArgument = errors.New("argument error")

// ClassifyError maps an error returned by ioformat/graph/merger code to the
// exit code taxonomy above, so every cmd/* entrypoint reports failures the
// same way. Falls back to ExitIOError for anything it doesn't recognize,
// since most failures this deep in the pipeline are I/O in practice (a
// malformed or unreadable file).
func ClassifyError(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if errors.Is(err, ErrNoMain) {
		return ExitNoMain
	}
	if errors.Is(err, ErrArgument) {
		return ExitArgumentError
	}
	var fvm *ioformat.ErrFormatVersionMismatch
	if errors.As(err, &fvm) {
		return ExitGraphConstructionError
	}
	var lossy *ioformat.ErrLossyExport
	if errors.As(err, &lossy) {
		return ExitGraphConstructionError
	}
	var collision *graph.ErrIDHashCollision
	if errors.As(err, &collision) {
		return ExitGraphConstructionError
	}
	return ExitIOError
}

// ConfigFileName is the name of the cgcollect configuration file.
const ConfigFileName = "cgcollect.yaml"

// ConfigDirName is the name of the configuration directory searched for by
// Load, the same walk-up-from-workDir lookup hargabyte-cortex uses for
// .cx/config.yaml.
const ConfigDirName = ".cgcollect"

// ErrConfigNotFound is returned when no config file can be located.
var ErrConfigNotFound = errors.New("config file not found")

// ErrInvalidConfig is returned when config validation fails.
var ErrInvalidConfig = errors.New("invalid configuration")

// Collector set names from spec §6's CLI surface. "None" and "All" are
// pseudo-names expanded by ResolveCollectors rather than registered
// pipeline.DeclCollector/GraphCollector names.
const (
	CollectorNone                = "None"
	CollectorAll                 = "All"
	CollectorNumStatements       = "NumStatements"
	CollectorCodeStatistics      = "CodeStatistics"
	CollectorLoopDepth           = "LoopDepth"
	CollectorGlobalLoopDepth     = "GlobalLoopDepth"
	CollectorMallocVariable      = "MallocVariable"
	CollectorNumConditionalBrs   = "NumConditionalBranches"
	CollectorNumOperations       = "NumOperations"
	CollectorUniqueTypes         = "UniqueTypes"
	CollectorOverrideMD          = "OverrideMD"
)

// collectorRegistryNames maps a spec §6 collector-set name to the name it
// was registered under in pipeline.Default() (see package collectors).
// OverrideMD has no entry: it isn't self-registered (collectors.
// OverrideCollector needs a *extractor.Program), so cmd/cgcollect wires it
// in directly instead of going through this table.
var collectorRegistryNames = map[string]string{
	CollectorNumStatements:     "NumStatementsCollector",
	CollectorCodeStatistics:    "CodeStatisticsCollector",
	CollectorLoopDepth:         "LoopDepthCollector",
	CollectorGlobalLoopDepth:   "GlobalLoopDepthCollector",
	CollectorMallocVariable:    "MallocVariableCollector",
	CollectorNumConditionalBrs: "NumConditionalBranchCollector",
	CollectorNumOperations:     "NumOperationsCollector",
	CollectorUniqueTypes:       "UniqueTypeCollector",
}

// allCollectorNames lists every spec §6 name the "All" pseudo-name expands
// to, in a fixed order so repeated runs produce the same pipeline ordering
// hints.
var allCollectorNames = []string{
	CollectorNumStatements,
	CollectorCodeStatistics,
	CollectorLoopDepth,
	CollectorGlobalLoopDepth,
	CollectorMallocVariable,
	CollectorNumConditionalBrs,
	CollectorNumOperations,
	CollectorUniqueTypes,
	CollectorOverrideMD,
}

// ValidAliasModels are the legal values for Config.AliasModel.
var ValidAliasModels = []string{"none", "all"}

// Config holds cgcollect's configuration: flags that are more convenient to
// pin down in a file than to repeat on every invocation. Command-line flags
// on cmd/cgcollect take precedence over a loaded file when both are set.
type Config struct {
	// Collectors is the collector selection set from spec §6, e.g.
	// ["NumStatements", "OverrideMD"], or ["All"] / ["None"].
	Collectors []string `yaml:"collectors"`
	// PluginPaths lists extra collector-descriptor search paths (cage-style,
	// see pipeline.PluginDescriptor); this module loads no shared objects
	// from these paths, but keeps the flag for compatibility
	// with configs written against the reference tool.
	PluginPaths []string `yaml:"pluginPaths"`

	FormatVersion int  `yaml:"metacg_format_version"`
	WholeProgram  bool `yaml:"whole_program"`
	Prune         bool `yaml:"prune"`

	CaptureCtorsDtors    bool `yaml:"capture_ctors_dtors"`
	CaptureNewDeleteCalls bool `yaml:"capture_new_delete_calls"`
	CaptureImplicits     bool `yaml:"capture_implicits"`
	InferCtorsDtors      bool `yaml:"infer_ctors_dtors"`

	// AliasModel is "none" or "all" (spec §6 --alias-model).
	AliasModel string `yaml:"alias_model"`

	// LogLevel is one of "debug", "info", "warn", "error".
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the configuration cgcollect uses when no config
// file exists and no flags override a field.
func DefaultConfig() *Config {
	return &Config{
		Collectors:    []string{CollectorNone},
		PluginPaths:   nil,
		FormatVersion: 3,
		WholeProgram:  false,
		Prune:         false,

		CaptureCtorsDtors:     true,
		CaptureNewDeleteCalls: true,
		CaptureImplicits:      false,
		InferCtorsDtors:       false,

		AliasModel: "all",
		LogLevel:   "info",
	}
}

// Load reads config from workDir/.cgcollect/cgcollect.yaml, walking up the
// directory tree the way hargabyte-cortex's FindConfigDir does, and falls
// back to DefaultConfig when no config directory is found.
func Load(workDir string) (*Config, error) {
	configDir, err := FindConfigDir(workDir)
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFromPath(filepath.Join(configDir, ConfigFileName))
}

// LoadFromPath reads config from a specific file, merges it over
// DefaultConfig, and validates the result.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	loaded := &Config{}
	if err := yaml.Unmarshal(data, loaded); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	merged := Merge(loaded, DefaultConfig())
	if err := Validate(merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// FindConfigDir locates the .cgcollect directory by walking up from
// startDir, the same upward search hargabyte-cortex's config package uses
// for .cx.
func FindConfigDir(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	currentDir := absDir
	for {
		configDir := filepath.Join(currentDir, ConfigDirName)
		if info, err := os.Stat(configDir); err == nil && info.IsDir() {
			return configDir, nil
		}
		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return "", ErrConfigNotFound
		}
		currentDir = parentDir
	}
}

// Merge overlays fields set in loaded on top of defaults. A zero-value
// field (empty slice/string, false bool treated as "not specified" only
// for the bools that default to true) falls back to the default.
func Merge(loaded, defaults *Config) *Config {
	result := &Config{}

	if len(loaded.Collectors) > 0 {
		result.Collectors = loaded.Collectors
	} else {
		result.Collectors = defaults.Collectors
	}

	if len(loaded.PluginPaths) > 0 {
		result.PluginPaths = loaded.PluginPaths
	} else {
		result.PluginPaths = defaults.PluginPaths
	}

	if loaded.FormatVersion != 0 {
		result.FormatVersion = loaded.FormatVersion
	} else {
		result.FormatVersion = defaults.FormatVersion
	}

	result.WholeProgram = loaded.WholeProgram || defaults.WholeProgram
	result.Prune = loaded.Prune || defaults.Prune

	result.CaptureCtorsDtors = loaded.CaptureCtorsDtors || defaults.CaptureCtorsDtors
	result.CaptureNewDeleteCalls = loaded.CaptureNewDeleteCalls || defaults.CaptureNewDeleteCalls
	result.CaptureImplicits = loaded.CaptureImplicits || defaults.CaptureImplicits
	result.InferCtorsDtors = loaded.InferCtorsDtors || defaults.InferCtorsDtors

	if loaded.AliasModel != "" {
		result.AliasModel = loaded.AliasModel
	} else {
		result.AliasModel = defaults.AliasModel
	}

	if loaded.LogLevel != "" {
		result.LogLevel = loaded.LogLevel
	} else {
		result.LogLevel = defaults.LogLevel
	}

	return result
}

// Validate checks that config values are within the set spec §6 allows.
func Validate(cfg *Config) error {
	if cfg.FormatVersion != 2 && cfg.FormatVersion != 3 {
		return fmt.Errorf("%w: metacg_format_version must be 2 or 3, got %d", ErrInvalidConfig, cfg.FormatVersion)
	}

	validAlias := false
	for _, v := range ValidAliasModels {
		if cfg.AliasModel == v {
			validAlias = true
			break
		}
	}
	if !validAlias {
		return fmt.Errorf("%w: alias_model must be one of %v, got %q", ErrInvalidConfig, ValidAliasModels, cfg.AliasModel)
	}

	if _, err := parseLogLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	for _, name := range cfg.Collectors {
		if name == CollectorNone || name == CollectorAll || name == CollectorOverrideMD {
			continue
		}
		if _, ok := collectorRegistryNames[name]; !ok {
			return fmt.Errorf("%w: unknown collector %q", ErrInvalidConfig, name)
		}
	}

	return nil
}

// ResolveCollectors expands Config.Collectors ("None"/"All"/individual
// names) into the PluginDescriptor list cmd/cgcollect feeds to
// pipeline.Registry.Build, plus whether OverrideMD was requested (that one
// collector is wired in by cmd/cgcollect directly rather than resolved
// through pipeline.Default(), see collectors.OverrideCollector).
func (c *Config) ResolveCollectors() (descriptors []pipeline.PluginDescriptor, wantOverrideMD bool) {
	names := c.Collectors
	for _, name := range names {
		if name == CollectorNone {
			return nil, false
		}
		if name == CollectorAll {
			names = allCollectorNames
			break
		}
	}

	for i, name := range names {
		if name == CollectorOverrideMD {
			wantOverrideMD = true
			continue
		}
		registered, ok := collectorRegistryNames[name]
		if !ok {
			continue
		}
		descriptors = append(descriptors, pipeline.PluginDescriptor{Name: registered, OrderingHint: i})
	}
	return descriptors, wantOverrideMD
}

// SlogLevel returns the slog.Level the LogLevel string names, defaulting to
// slog.LevelInfo on an empty or unrecognized value (Validate should have
// already rejected the latter).
func (c *Config) SlogLevel() slog.Level {
	level, err := parseLogLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("log_level must be one of debug/info/warn/error, got %q", s)
	}
}

// SlogLevel is the config-free variant for tools (cgmerge, cgconvert,
// cgformat) that take a bare --log-level flag without a config file.
func SlogLevel(name string) slog.Level {
	level, err := parseLogLevel(name)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// NewLogger builds the stderr slog.Logger cmd/* uses for structured
// output, following jinterlante1206-AleutianLocal/pkg/logging's default of
// stderr-as-default-destination, text-handler output for CLI readability.
func (c *Config) NewLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: c.SlogLevel()})
	return slog.New(handler)
}
