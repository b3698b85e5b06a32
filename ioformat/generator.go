package ioformat

import (
	"log/slog"

	"golang.org/x/mod/semver"
)

// GeneratorVersion is the version every tool in this module stamps into
// the "_MetaCG.generator" block of files it writes.
const GeneratorVersion = "1.0.0"

// Generator returns the GeneratorInfo for the named tool at this module's
// version.
func Generator(tool string) GeneratorInfo {
	return GeneratorInfo{Name: tool, Version: GeneratorVersion}
}

// checkGeneratorVersion warns when a file claims to have been written by a
// generator newer than this module: the container format negotiates on the
// "_MetaCG.version" field, but a newer generator may have attached metadata
// kinds this build does not know, which then round-trip opaquely rather
// than merge semantically.
func checkGeneratorVersion(h Header, url string) {
	v := h.Generator.Version
	if v == "" {
		return
	}
	if semver.Compare(canonical(v), canonical(GeneratorVersion)) > 0 {
		slog.Warn("file written by a newer generator; unknown metadata will be preserved opaquely",
			"path", url, "generator", h.Generator.Name, "fileVersion", v, "toolVersion", GeneratorVersion)
	}
}

func canonical(v string) string {
	if len(v) > 0 && v[0] != 'v' {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return "v0.0.0"
	}
	return v
}
