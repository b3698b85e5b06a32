package ioformat

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/viant/afs"
	"github.com/viant/metacg/graph"
)

// LoadFile reads and parses a .ipcg/.mcg file through afs (the teacher's own
// file abstraction, reused here for the same "works against any afs backend"
// reason the teacher holds an afs.Service in inspector/coder and
// inspector/repository).
func LoadFile(ctx context.Context, url string) (*graph.Store, error) {
	fs := afs.New()
	raw, err := fs.DownloadWithURL(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("ioformat: reading %s: %w", url, err)
	}
	if hdr, err := ParseHeader(raw); err == nil {
		checkGeneratorVersion(hdr, url)
	}
	g, err := Load(raw)
	if err != nil {
		return nil, fmt.Errorf("ioformat: parsing %s: %w", url, err)
	}
	return g, nil
}

// SaveFile serializes g at version v and writes it to url through afs.
func SaveFile(ctx context.Context, url string, g *graph.Store, v Version, generator GeneratorInfo) error {
	fs := afs.New()
	raw, err := Save(g, v, generator)
	if err != nil {
		return fmt.Errorf("ioformat: encoding %s: %w", url, err)
	}
	if err := fs.Upload(ctx, url, os.FileMode(0644), bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("ioformat: writing %s: %w", url, err)
	}
	return nil
}

// Convert loads srcURL under any supported version and writes it to
// dstURL at targetVersion, implementing the `cgconvert` CLI operation
// (spec §6). discardFailedMetadata mirrors `--discard_failed_metadata`
// (spec §7 LossyExport): when false, a lossy v3→v2 conversion (two nodes
// sharing a name but differing in origin) aborts with ErrLossyExport
// instead of silently collapsing them.
func Convert(ctx context.Context, srcURL, dstURL string, targetVersion Version, generator GeneratorInfo, discardFailedMetadata bool) error {
	fs := afs.New()
	raw, err := fs.DownloadWithURL(ctx, srcURL)
	if err != nil {
		return fmt.Errorf("ioformat convert: reading %s: %w", srcURL, err)
	}
	g, err := Load(raw)
	if err != nil {
		return fmt.Errorf("ioformat convert: parsing %s: %w", srcURL, err)
	}
	if targetVersion == V2 && !discardFailedMetadata {
		if reason, lossy := detectLossyV2Export(g); lossy {
			return &ErrLossyExport{Reason: reason}
		}
	}
	out, err := Save(g, targetVersion, generator)
	if err != nil {
		return fmt.Errorf("ioformat convert: encoding %s: %w", dstURL, err)
	}
	if err := fs.Upload(ctx, dstURL, os.FileMode(0644), bytes.NewReader(out)); err != nil {
		return fmt.Errorf("ioformat convert: writing %s: %w", dstURL, err)
	}
	return nil
}

// detectLossyV2Export reports whether exporting g to v2 would silently
// collapse two distinct v3 nodes that share a name but differ in origin
// (spec §4.8's "lossy export ... detected and reported as an error unless
// an opt-in discard flag is set").
func detectLossyV2Export(g *graph.Store) (string, bool) {
	originsByName := map[string]map[string]bool{}
	for _, n := range g.Nodes() {
		if originsByName[n.Name] == nil {
			originsByName[n.Name] = map[string]bool{}
		}
		originsByName[n.Name][n.Origin] = true
	}
	for name, origins := range originsByName {
		if len(origins) > 1 {
			return fmt.Sprintf("function %q is defined in %d distinct origins, which v2 cannot distinguish", name, len(origins)), true
		}
	}
	return "", false
}
