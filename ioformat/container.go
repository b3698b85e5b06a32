// Package ioformat implements the JSON container (component C8): a
// version-negotiated envelope around the graph body, with readers for
// format versions v1 (legacy, read-only), v2, and v3, and writers for v2
// and v3.
//
// Grounded on original_source/cgcollector/lib/src/{JSONManager,
// CallgraphToJSON}.cpp for the v2 envelope/node shape and
// original_source/pgis/lib/src/libIPCG/MCGReader.cpp's
// VersionOneMetaCGReader/VersionTwoMetaCGReader for the v1-vs-v2 key-rename
// ("parents" vs "callers") and the post-hoc virtual-hierarchy
// reconstruction spec §9 asks to confirm. The v3 node/edge array shape is
// grounded on graph/test/unit/VersionThreeMCGReaderTest.cpp's literal JSON
// fixtures.
package ioformat

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/viant/metacg/graph"
)

// Version identifies a supported container format version.
type Version int

const (
	V1 Version = 1
	V2 Version = 2
	V3 Version = 3
)

func (v Version) String() string {
	switch v {
	case V1:
		return "1.0"
	case V2:
		return "2.0"
	case V3:
		return "3.0"
	default:
		return fmt.Sprintf("unknown(%d)", int(v))
	}
}

// GeneratorInfo is the "_MetaCG.generator" block: name/version of the tool
// that produced the file. LoadFile compares its version against this
// module's GeneratorVersion via golang.org/x/mod/semver and warns when the
// file's is newer.
type GeneratorInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	SHA     string `json:"sha,omitempty"`
}

// Header is the "_MetaCG" top-level key (spec §4.8).
type Header struct {
	Generator GeneratorInfo `json:"generator"`
	Version   string        `json:"version"`
}

// ErrFormatVersionMismatch is spec §7's FormatVersionMismatch: the file
// claims a version this reader cannot parse.
type ErrFormatVersionMismatch struct {
	Wanted, Found string
}

func (e *ErrFormatVersionMismatch) Error() string {
	return fmt.Sprintf("metacg format version mismatch: wanted %s, file declares %s", e.Wanted, e.Found)
}

// ErrLossyExport is spec §7's LossyExport: a conversion would drop
// information the target version cannot represent (e.g. two v3 nodes
// sharing a name but differing in origin, exported to v2).
type ErrLossyExport struct {
	Reason string
}

func (e *ErrLossyExport) Error() string { return "lossy export: " + e.Reason }

// envelope is the raw top-level JSON shape shared by every version; _CG's
// inner shape differs per version and is parsed separately by each reader.
type envelope struct {
	MetaCG Header          `json:"_MetaCG"`
	CG     json.RawMessage `json:"_CG"`
}

// DetectVersion reads the declared format version from raw without fully
// parsing the graph body, so callers can dispatch to the right reader.
func DetectVersion(raw []byte) (Version, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		// v1 files have no envelope at all: the top level *is* the function
		// map (original_source's VersionOneMetaCGReader reads j directly).
		var probe map[string]json.RawMessage
		if jerr := json.Unmarshal(raw, &probe); jerr == nil {
			if _, hasMeta := probe["_MetaCG"]; !hasMeta {
				return V1, nil
			}
		}
		return 0, fmt.Errorf("ioformat: invalid JSON: %w", err)
	}
	if env.CG == nil {
		// No _MetaCG key present at all also means v1.
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(raw, &probe); err == nil {
			if _, hasMeta := probe["_MetaCG"]; !hasMeta {
				return V1, nil
			}
		}
	}
	switch env.MetaCG.Version {
	case "1.0", "1":
		return V1, nil
	case "2.0", "2":
		return V2, nil
	case "3.0", "3", "":
		if env.CG == nil {
			return V1, nil
		}
		return V3, nil
	default:
		return 0, &ErrFormatVersionMismatch{Wanted: "1.0, 2.0, or 3.0", Found: env.MetaCG.Version}
	}
}

// Load parses raw under whatever version it declares and returns the graph.
func Load(raw []byte) (*graph.Store, error) {
	return load(raw, false)
}

// LoadLenient is Load with `--discard_failed_metadata` semantics: a known
// metadata key whose payload fails to parse is dropped with a warning
// instead of failing the whole load. Unknown keys are unaffected — those
// are preserved opaquely by both variants.
func LoadLenient(raw []byte) (*graph.Store, error) {
	return load(raw, true)
}

func load(raw []byte, lenient bool) (*graph.Store, error) {
	v, err := DetectVersion(raw)
	if err != nil {
		return nil, err
	}
	switch v {
	case V1:
		return ReadV1(raw)
	case V2:
		return readV2(raw, lenient)
	case V3:
		return readV3(raw, lenient)
	default:
		return nil, &ErrFormatVersionMismatch{Wanted: "1.0, 2.0, or 3.0", Found: v.String()}
	}
}

// ParseHeader extracts the "_MetaCG" header without parsing the graph
// body. v1 files have no header; the zero Header is returned for them.
func ParseHeader(raw []byte) (Header, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		var probe map[string]json.RawMessage
		if jerr := json.Unmarshal(raw, &probe); jerr == nil {
			if _, hasMeta := probe["_MetaCG"]; !hasMeta {
				return Header{}, nil
			}
		}
		return Header{}, fmt.Errorf("ioformat: invalid JSON: %w", err)
	}
	return env.MetaCG, nil
}

func dropMetadata(key, where string, err error) {
	slog.Warn("discarding unparsable metadata", "key", key, "on", where, "error", err)
}

// Save serializes g under the requested version. v1 is read-only (spec §9's
// "two legacy reader versions"; only v2/v3 are ever written).
func Save(g *graph.Store, v Version, generator GeneratorInfo) ([]byte, error) {
	switch v {
	case V2:
		return WriteV2(g, generator)
	case V3:
		return WriteV3(g, generator)
	default:
		return nil, fmt.Errorf("ioformat: cannot write format version %s", v)
	}
}
