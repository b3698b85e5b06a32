package ioformat

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/metacg/graph"
	"github.com/viant/metacg/metadata"
)

// FormatOptions configures FormatFile, the `cgformat` CLI operation
// (spec §6): canonicalize whitespace and array order, optionally rewrite
// origin prefixes, optionally discard unparsable metadata.
type FormatOptions struct {
	// OriginPrefixOld/New rewrite every node origin starting with Old to
	// start with New instead. Nodes whose origin does not match Old are
	// reported back per-node and left untouched (spec §7
	// OriginPrefixMismatch: reported, continues).
	OriginPrefixOld string
	OriginPrefixNew string
	// DiscardUnparsableMetadata loads with LoadLenient instead of Load.
	DiscardUnparsableMetadata bool
	// Version forces the output container version; zero keeps the input's
	// version (v1 input, being read-only, is promoted to v3).
	Version Version
}

// FormatFile reads srcURL, canonicalizes it, and writes the result to
// dstURL. Canonical form is whatever WriteV2/WriteV3 emit: sorted arrays,
// sorted object keys, two-space indentation. Returns the per-node
// origin-prefix mismatch reports, empty when no rewrite was requested or
// every origin matched.
func FormatFile(ctx context.Context, srcURL, dstURL string, opts FormatOptions) ([]string, error) {
	fs := afs.New()
	raw, err := fs.DownloadWithURL(ctx, srcURL)
	if err != nil {
		return nil, fmt.Errorf("ioformat format: reading %s: %w", srcURL, err)
	}
	detected, err := DetectVersion(raw)
	if err != nil {
		return nil, err
	}
	g, err := load(raw, opts.DiscardUnparsableMetadata)
	if err != nil {
		return nil, err
	}

	target := opts.Version
	if target == 0 {
		target = detected
	}
	if target == V1 {
		// v1 is read-only; a canonicalized v1 file comes back as v3.
		target = V3
	}

	var mismatches []string
	if opts.OriginPrefixOld != "" || opts.OriginPrefixNew != "" {
		scheme := graph.IDByNameAndOrigin
		if target == V2 {
			scheme = graph.IDByName
		}
		g, mismatches, err = RewriteOrigins(g, scheme, opts.OriginPrefixOld, opts.OriginPrefixNew)
		if err != nil {
			return mismatches, err
		}
	}

	out, err := Save(g, target, Generator("cgformat"))
	if err != nil {
		return mismatches, err
	}
	if err := fs.Upload(ctx, dstURL, os.FileMode(0644), bytes.NewReader(out)); err != nil {
		return mismatches, fmt.Errorf("ioformat format: writing %s: %w", dstURL, err)
	}
	return mismatches, nil
}

// RewriteOrigins rebuilds g with every origin that starts with oldPrefix
// rewritten to start with newPrefix, re-deriving node ids under scheme
// (origin participates in the v3 id hash, so ids shift with it). Node-id
// references held inside Override and EntryFunction metadata are remapped
// to the new ids. The returned strings name, one per node, the origins
// that did not carry oldPrefix.
func RewriteOrigins(g *graph.Store, scheme graph.IDScheme, oldPrefix, newPrefix string) (*graph.Store, []string, error) {
	out := graph.NewStore(scheme)
	idTable := make(map[uint64]uint64, g.NodeCount())
	var mismatches []string

	nodes := g.Nodes()
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	for _, n := range nodes {
		origin := n.Origin
		switch {
		case origin == "":
			// Bodyless externals carry no origin; nothing to rewrite.
		case oldPrefix == "" || strings.HasPrefix(origin, oldPrefix):
			origin = newPrefix + origin[len(oldPrefix):]
		default:
			mismatches = append(mismatches, fmt.Sprintf("%s: origin %q does not start with %q", n.Name, origin, oldPrefix))
		}
		dst, err := out.GetOrInsert(n.Name, origin)
		if err != nil {
			return nil, mismatches, err
		}
		dst.HasBody = n.HasBody
		idTable[n.ID] = dst.ID
	}

	remap := func(meta map[string]metadata.Value, into map[string]metadata.Value) {
		for key, v := range meta {
			nv := v.Clone()
			switch t := nv.(type) {
			case *metadata.Override:
				t.Overrides = mapIDs(t.Overrides, idTable)
				t.OverriddenBy = mapIDs(t.OverriddenBy, idTable)
			case *metadata.EntryFunction:
				if t.NodeID != nil {
					if mapped, ok := idTable[*t.NodeID]; ok {
						id := mapped
						t.NodeID = &id
					}
				}
			}
			into[key] = nv
		}
	}

	for _, n := range nodes {
		remap(n.Meta, out.Node(idTable[n.ID]).Meta)
	}
	for _, e := range g.Edges() {
		from, to := idTable[e.From], idTable[e.To]
		if _, err := out.AddEdge(from, to); err != nil {
			return nil, mismatches, err
		}
		remap(e.Meta, out.EdgeMetadata(from, to))
	}
	remap(g.GraphMeta, out.GraphMeta)
	return out, mismatches, nil
}

func mapIDs(ids []uint64, table map[uint64]uint64) []uint64 {
	out := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if mapped, ok := table[id]; ok {
			out = append(out, mapped)
			continue
		}
		out = append(out, id)
	}
	return out
}
