package metadata

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

func marshalValue(v any) (json.RawMessage, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func init() {
	Default().Register(NumStatementsKey, func(raw json.RawMessage, _ IDMapper) (Value, error) {
		v := &NumStatements{}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &v.Count); err != nil {
				return nil, fmt.Errorf("numStatements: %w", err)
			}
		}
		return v, nil
	})
	Default().Register(CodeStatisticsKey, func(raw json.RawMessage, _ IDMapper) (Value, error) {
		v := &CodeStatistics{}
		if len(raw) > 0 {
			var body struct {
				NumVars int `json:"numVars"`
			}
			if err := json.Unmarshal(raw, &body); err != nil {
				return nil, fmt.Errorf("codeStatistics: %w", err)
			}
			v.NumVars = body.NumVars
		}
		return v, nil
	})
	Default().Register(LoopDepthKey, func(raw json.RawMessage, _ IDMapper) (Value, error) {
		v := &LoopDepth{}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &v.Depth); err != nil {
				return nil, fmt.Errorf("loopDepth: %w", err)
			}
		}
		return v, nil
	})
	Default().Register(GlobalLoopDepthKey, func(raw json.RawMessage, _ IDMapper) (Value, error) {
		v := &GlobalLoopDepth{}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &v.Depth); err != nil {
				return nil, fmt.Errorf("globalLoopDepth: %w", err)
			}
		}
		return v, nil
	})
	Default().Register(LoopCallDepthKey, func(raw json.RawMessage, _ IDMapper) (Value, error) {
		v := &LoopCallDepth{Depths: map[string]int{}}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &v.Depths); err != nil {
				return nil, fmt.Errorf("loopCallDepth: %w", err)
			}
		}
		return v, nil
	})
	Default().Register(NumConditionalBranchesKey, func(raw json.RawMessage, _ IDMapper) (Value, error) {
		v := &NumConditionalBranches{}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &v.Count); err != nil {
				return nil, fmt.Errorf("numConditionalBranches: %w", err)
			}
		}
		return v, nil
	})
	Default().Register(NumOperationsKey, func(raw json.RawMessage, _ IDMapper) (Value, error) {
		v := &NumOperations{}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, v); err != nil {
				return nil, fmt.Errorf("numOperations: %w", err)
			}
		}
		return v, nil
	})
	Default().Register(FilePropertiesKey, func(raw json.RawMessage, _ IDMapper) (Value, error) {
		v := &FileProperties{}
		if len(raw) > 0 {
			var body struct {
				SystemInclude bool   `json:"systemInclude"`
				Origin        string `json:"origin"`
			}
			if err := json.Unmarshal(raw, &body); err != nil {
				return nil, fmt.Errorf("fileProperties: %w", err)
			}
			v.SystemInclude = body.SystemInclude
			v.Origin = body.Origin
		}
		return v, nil
	})
	Default().Register(InlineKey, func(raw json.RawMessage, _ IDMapper) (Value, error) {
		v := &Inline{}
		if len(raw) > 0 {
			var body struct {
				MarkedInline bool `json:"markedInline"`
				LikelyInline bool `json:"likelyInline"`
				AlwaysInline bool `json:"markedAlwaysInline"`
				IsTemplate   bool `json:"isTemplate"`
			}
			if err := json.Unmarshal(raw, &body); err != nil {
				return nil, fmt.Errorf("inlineInfo: %w", err)
			}
			v.MarkedInline, v.LikelyInline, v.AlwaysInline, v.IsTemplate =
				body.MarkedInline, body.LikelyInline, body.AlwaysInline, body.IsTemplate
		}
		return v, nil
	})
	Default().Register(OverrideKey, func(raw json.RawMessage, _ IDMapper) (Value, error) {
		v := &Override{}
		if len(raw) > 0 {
			var body struct {
				Overrides    []uint64 `json:"overrides"`
				OverriddenBy []uint64 `json:"overriddenBy"`
			}
			if err := json.Unmarshal(raw, &body); err != nil {
				return nil, fmt.Errorf("overrideMD: %w", err)
			}
			v.Overrides, v.OverriddenBy = body.Overrides, body.OverriddenBy
		}
		return v, nil
	})
	Default().Register(EntryFunctionKey, func(raw json.RawMessage, _ IDMapper) (Value, error) {
		v := &EntryFunction{}
		if len(raw) > 0 {
			var id *uint64
			if err := json.Unmarshal(raw, &id); err != nil {
				return nil, fmt.Errorf("entryFunction: %w", err)
			}
			v.NodeID = id
		}
		return v, nil
	})
	Default().Register(MallocVariableKey, func(raw json.RawMessage, _ IDMapper) (Value, error) {
		v := &MallocVariable{Allocs: map[string]string{}}
		if len(raw) > 0 {
			var entries []struct {
				Global    string `json:"global"`
				AllocStmt string `json:"allocStmt"`
			}
			if err := json.Unmarshal(raw, &entries); err != nil {
				return nil, fmt.Errorf("mallocCollector: %w", err)
			}
			for _, e := range entries {
				v.Allocs[e.Global] = e.AllocStmt
			}
		}
		return v, nil
	})
	Default().Register(UniqueTypeKey, func(raw json.RawMessage, _ IDMapper) (Value, error) {
		v := &UniqueType{}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &v.Count); err != nil {
				return nil, fmt.Errorf("uniqueTypeMetaData: %w", err)
			}
		}
		return v, nil
	})
	Default().Register(FunctionSignatureKey, func(raw json.RawMessage, _ IDMapper) (Value, error) {
		v := &FunctionSignature{}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, v); err != nil {
				return nil, fmt.Errorf("functionSignature: %w", err)
			}
		}
		return v, nil
	})
	Default().Register(AllAliasKey, func(raw json.RawMessage, _ IDMapper) (Value, error) {
		v := &AllAlias{}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &v.Signatures); err != nil {
				return nil, fmt.Errorf("allAlias: %w", err)
			}
		}
		return v, nil
	})
}

const (
	NumStatementsKey          = "numStatements"
	CodeStatisticsKey         = "codeStatistics"
	LoopDepthKey              = "loopDepth"
	GlobalLoopDepthKey        = "globalLoopDepth"
	LoopCallDepthKey          = "loopCallDepth"
	NumConditionalBranchesKey = "numConditionalBranches"
	NumOperationsKey          = "numOperations"
	FilePropertiesKey         = "fileProperties"
	InlineKey                 = "inlineInfo"
	OverrideKey               = "overrideMD"
	EntryFunctionKey          = "entryFunction"
	MallocVariableKey         = "mallocCollector"
	UniqueTypeKey             = "uniqueTypeMetaData"
	FunctionSignatureKey      = "functionSignature"
	AllAliasKey               = "allAlias"
)

// NumStatements: additive count, warns on duplicate non-zero definitions
// (spec §4.2).
type NumStatements struct{ Count int }

func (m *NumStatements) Key() string  { return NumStatementsKey }
func (m *NumStatements) Clone() Value { return &NumStatements{Count: m.Count} }
func (m *NumStatements) Merge(other Value, _ Action, _ IDMapper) error {
	o := other.(*NumStatements)
	if m.Count != 0 && o.Count != 0 {
		slog.Warn("duplicate definition: both sides carry a statement count", "key", m.Key())
	}
	m.Count += o.Count
	return nil
}
func (m *NumStatements) ToJSON(IDMapper) (json.RawMessage, error) { return marshalValue(m.Count) }

// CodeStatistics: field-wise additive, same duplicate-definition warning.
type CodeStatistics struct{ NumVars int }

func (m *CodeStatistics) Key() string  { return CodeStatisticsKey }
func (m *CodeStatistics) Clone() Value { return &CodeStatistics{NumVars: m.NumVars} }
func (m *CodeStatistics) Merge(other Value, _ Action, _ IDMapper) error {
	o := other.(*CodeStatistics)
	if m.NumVars != 0 && o.NumVars != 0 {
		slog.Warn("duplicate definition: both sides carry numVars", "key", m.Key())
	}
	m.NumVars += o.NumVars
	return nil
}
func (m *CodeStatistics) ToJSON(IDMapper) (json.RawMessage, error) {
	return marshalValue(struct {
		NumVars int `json:"numVars"`
	}{m.NumVars})
}

// LoopDepth: merge = max.
type LoopDepth struct{ Depth int }

func (m *LoopDepth) Key() string  { return LoopDepthKey }
func (m *LoopDepth) Clone() Value { return &LoopDepth{Depth: m.Depth} }
func (m *LoopDepth) Merge(other Value, _ Action, _ IDMapper) error {
	o := other.(*LoopDepth)
	if o.Depth > m.Depth {
		m.Depth = o.Depth
	}
	return nil
}
func (m *LoopDepth) ToJSON(IDMapper) (json.RawMessage, error) { return marshalValue(m.Depth) }

// GlobalLoopDepth: pointwise merge is defined (max) but is a stopgap — the
// real value must be recomputed from scratch over the merged graph, per
// spec §4.2/§4.7 "Post-merge, derived metadata ... recomputed from scratch".
type GlobalLoopDepth struct{ Depth int }

func (m *GlobalLoopDepth) Key() string  { return GlobalLoopDepthKey }
func (m *GlobalLoopDepth) Clone() Value { return &GlobalLoopDepth{Depth: m.Depth} }
func (m *GlobalLoopDepth) Merge(other Value, _ Action, _ IDMapper) error {
	o := other.(*GlobalLoopDepth)
	slog.Warn("globalLoopDepth cannot be merged pointwise; recompute after the merge pass", "key", m.Key())
	if o.Depth > m.Depth {
		m.Depth = o.Depth
	}
	return nil
}
func (m *GlobalLoopDepth) ToJSON(IDMapper) (json.RawMessage, error) { return marshalValue(m.Depth) }

// LoopCallDepth: map of called-function name to depth, pointwise max, union
// of keys.
type LoopCallDepth struct{ Depths map[string]int }

func (m *LoopCallDepth) Key() string { return LoopCallDepthKey }
func (m *LoopCallDepth) Clone() Value {
	cp := make(map[string]int, len(m.Depths))
	for k, v := range m.Depths {
		cp[k] = v
	}
	return &LoopCallDepth{Depths: cp}
}
func (m *LoopCallDepth) Merge(other Value, _ Action, _ IDMapper) error {
	o := other.(*LoopCallDepth)
	if m.Depths == nil {
		m.Depths = map[string]int{}
	}
	for fn, depth := range o.Depths {
		if cur, ok := m.Depths[fn]; !ok || depth > cur {
			m.Depths[fn] = depth
		}
	}
	return nil
}
func (m *LoopCallDepth) ToJSON(IDMapper) (json.RawMessage, error) { return marshalValue(m.Depths) }

// NumConditionalBranches: additive, duplicate-definition warning.
type NumConditionalBranches struct{ Count int }

func (m *NumConditionalBranches) Key() string  { return NumConditionalBranchesKey }
func (m *NumConditionalBranches) Clone() Value { return &NumConditionalBranches{Count: m.Count} }
func (m *NumConditionalBranches) Merge(other Value, _ Action, _ IDMapper) error {
	o := other.(*NumConditionalBranches)
	if m.Count != 0 && o.Count != 0 {
		slog.Warn("duplicate definition: both sides carry a conditional branch count", "key", m.Key())
	}
	m.Count += o.Count
	return nil
}
func (m *NumConditionalBranches) ToJSON(IDMapper) (json.RawMessage, error) { return marshalValue(m.Count) }

// NumOperations: field-wise additive, duplicate-definition warning.
type NumOperations struct {
	NumberOfIntOps          int `json:"numberOfIntOps"`
	NumberOfFloatOps        int `json:"numberOfFloatOps"`
	NumberOfControlFlowOps  int `json:"numberOfControlFlowOps"`
	NumberOfMemoryAccesses  int `json:"numberOfMemoryAccesses"`
}

func (m *NumOperations) Key() string  { return NumOperationsKey }
func (m *NumOperations) Clone() Value { v := *m; return &v }
func (m *NumOperations) Merge(other Value, _ Action, _ IDMapper) error {
	o := other.(*NumOperations)
	bothNonzero := (m.NumberOfIntOps != 0 && o.NumberOfIntOps != 0) ||
		(m.NumberOfFloatOps != 0 && o.NumberOfFloatOps != 0) ||
		(m.NumberOfControlFlowOps != 0 && o.NumberOfControlFlowOps != 0) ||
		(m.NumberOfMemoryAccesses != 0 && o.NumberOfMemoryAccesses != 0)
	if bothNonzero {
		slog.Warn("duplicate definition: both sides carry operation counts", "key", m.Key())
	}
	m.NumberOfIntOps += o.NumberOfIntOps
	m.NumberOfFloatOps += o.NumberOfFloatOps
	m.NumberOfControlFlowOps += o.NumberOfControlFlowOps
	m.NumberOfMemoryAccesses += o.NumberOfMemoryAccesses
	return nil
}
func (m *NumOperations) ToJSON(IDMapper) (json.RawMessage, error) { return marshalValue(m) }

// FileProperties: systemInclude is OR'd, origin keeps the first non-empty
// value.
type FileProperties struct {
	SystemInclude bool
	Origin        string
}

func (m *FileProperties) Key() string  { return FilePropertiesKey }
func (m *FileProperties) Clone() Value { return &FileProperties{SystemInclude: m.SystemInclude, Origin: m.Origin} }
func (m *FileProperties) Merge(other Value, _ Action, _ IDMapper) error {
	o := other.(*FileProperties)
	m.SystemInclude = m.SystemInclude || o.SystemInclude
	if m.Origin == "" {
		m.Origin = o.Origin
	}
	return nil
}
func (m *FileProperties) ToJSON(IDMapper) (json.RawMessage, error) {
	return marshalValue(struct {
		SystemInclude bool   `json:"systemInclude"`
		Origin        string `json:"origin"`
	}{m.SystemInclude, m.Origin})
}

// Inline: boolean-OR over the inline flags; IsTemplate must agree (warns if
// not).
type Inline struct {
	MarkedInline bool
	LikelyInline bool
	AlwaysInline bool
	IsTemplate   bool
}

func (m *Inline) Key() string  { return InlineKey }
func (m *Inline) Clone() Value { v := *m; return &v }
func (m *Inline) Merge(other Value, _ Action, _ IDMapper) error {
	o := other.(*Inline)
	if m.IsTemplate != o.IsTemplate {
		slog.Warn("merging functions with mismatched isTemplate metadata", "key", m.Key())
	}
	m.MarkedInline = m.MarkedInline || o.MarkedInline
	m.LikelyInline = m.LikelyInline || o.LikelyInline
	m.AlwaysInline = m.AlwaysInline || o.AlwaysInline
	return nil
}
func (m *Inline) ToJSON(IDMapper) (json.RawMessage, error) {
	return marshalValue(struct {
		MarkedInline bool `json:"markedInline"`
		LikelyInline bool `json:"likelyInline"`
		AlwaysInline bool `json:"markedAlwaysInline"`
		IsTemplate   bool `json:"isTemplate"`
	}{m.MarkedInline, m.LikelyInline, m.AlwaysInline, m.IsTemplate})
}

// Override: two lists of node ids (functions this overrides / is overridden
// by); union with id remapping on merge.
type Override struct {
	Overrides    []uint64
	OverriddenBy []uint64
}

func (m *Override) Key() string { return OverrideKey }
func (m *Override) Clone() Value {
	return &Override{Overrides: append([]uint64(nil), m.Overrides...), OverriddenBy: append([]uint64(nil), m.OverriddenBy...)}
}
func (m *Override) Merge(other Value, _ Action, idMap IDMapper) error {
	o := other.(*Override)
	m.Overrides = unionMapped(m.Overrides, o.Overrides, idMap)
	m.OverriddenBy = unionMapped(m.OverriddenBy, o.OverriddenBy, idMap)
	return nil
}
func (m *Override) ToJSON(IDMapper) (json.RawMessage, error) {
	return marshalValue(struct {
		Overrides    []uint64 `json:"overrides"`
		OverriddenBy []uint64 `json:"overriddenBy"`
	}{m.Overrides, m.OverriddenBy})
}

func unionMapped(dst, src []uint64, idMap IDMapper) []uint64 {
	seen := make(map[uint64]bool, len(dst))
	for _, id := range dst {
		seen[id] = true
	}
	for _, foreign := range src {
		mapped := foreign
		if idMap != nil {
			if m, ok := idMap.MapNodeID(foreign); ok {
				mapped = m
			}
		}
		if !seen[mapped] {
			dst = append(dst, mapped)
			seen[mapped] = true
		}
	}
	return dst
}

// EntryFunction: optional node id; if both sides set one, the existing value
// wins and a warning is logged (spec §4.2).
type EntryFunction struct{ NodeID *uint64 }

func (m *EntryFunction) Key() string  { return EntryFunctionKey }
func (m *EntryFunction) Clone() Value {
	if m.NodeID == nil {
		return &EntryFunction{}
	}
	id := *m.NodeID
	return &EntryFunction{NodeID: &id}
}
func (m *EntryFunction) Merge(other Value, _ Action, idMap IDMapper) error {
	o := other.(*EntryFunction)
	if o.NodeID == nil {
		return nil
	}
	if m.NodeID != nil {
		slog.Warn("both merged graphs define an entry function; keeping the existing value", "existing", *m.NodeID)
		return nil
	}
	mapped := *o.NodeID
	if idMap != nil {
		if id, ok := idMap.MapNodeID(mapped); ok {
			mapped = id
		}
	}
	m.NodeID = &mapped
	return nil
}
func (m *EntryFunction) ToJSON(IDMapper) (json.RawMessage, error) { return marshalValue(m.NodeID) }

// MallocVariable: map of allocated-variable name to the allocation statement
// text. Merge is undefined for v1: the existing value is preserved verbatim
// and the incoming one is dropped silently, matching the C++ original's
// literal TODO.
type MallocVariable struct{ Allocs map[string]string }

func (m *MallocVariable) Key() string { return MallocVariableKey }
func (m *MallocVariable) Clone() Value {
	cp := make(map[string]string, len(m.Allocs))
	for k, v := range m.Allocs {
		cp[k] = v
	}
	return &MallocVariable{Allocs: cp}
}
func (m *MallocVariable) Merge(Value, Action, IDMapper) error { return nil }
func (m *MallocVariable) ToJSON(IDMapper) (json.RawMessage, error) {
	type entry struct {
		Global    string `json:"global"`
		AllocStmt string `json:"allocStmt"`
	}
	entries := make([]entry, 0, len(m.Allocs))
	for k, v := range m.Allocs {
		entries = append(entries, entry{Global: k, AllocStmt: v})
	}
	return marshalValue(entries)
}

// UniqueType: additive int, duplicate-definition warning.
type UniqueType struct{ Count int }

func (m *UniqueType) Key() string  { return UniqueTypeKey }
func (m *UniqueType) Clone() Value { return &UniqueType{Count: m.Count} }
func (m *UniqueType) Merge(other Value, _ Action, _ IDMapper) error {
	o := other.(*UniqueType)
	if m.Count != 0 && o.Count != 0 {
		slog.Warn("duplicate definition: both sides carry a unique type count", "key", m.Key())
	}
	m.Count += o.Count
	return nil
}
func (m *UniqueType) ToJSON(IDMapper) (json.RawMessage, error) { return marshalValue(m.Count) }

// FunctionSignature and AllAlias implement the cross-TU indirect-call
// over-approximation pass (spec §4.7 step 4), grounded on
// original_source/tools/cgcollector2/include/metadata/Internal/
// {FunctionSignatureMetadata,AllAliasMetadata}.h.

// FunctionSignature records a node's call signature shape: a normalized
// string (e.g. return-type-erased parameter-count signature) plus the raw
// parameter count, used to match "might call" alias records across TUs.
type FunctionSignature struct {
	Signature     string `json:"signature"`
	ParameterCount int    `json:"parameterCount"`
}

func (m *FunctionSignature) Key() string  { return FunctionSignatureKey }
func (m *FunctionSignature) Clone() Value { v := *m; return &v }
func (m *FunctionSignature) Merge(other Value, _ Action, _ IDMapper) error {
	o := other.(*FunctionSignature)
	if m.Signature == "" {
		m.Signature = o.Signature
	}
	if m.ParameterCount == 0 {
		m.ParameterCount = o.ParameterCount
	}
	return nil
}
func (m *FunctionSignature) ToJSON(IDMapper) (json.RawMessage, error) { return marshalValue(m) }

// AllAlias lists the function signatures a node "might call" through an
// unresolved indirect call whose callee escaped this TU's alias analysis
// (e.g. a function pointer parameter with no known binding within the TU).
// The merger's over-approximation pass (C7 step 4) adds an edge from this
// node to every destination node whose FunctionSignature matches one of
// these.
type AllAlias struct{ Signatures []string }

func (m *AllAlias) Key() string { return AllAliasKey }
func (m *AllAlias) Clone() Value {
	return &AllAlias{Signatures: append([]string(nil), m.Signatures...)}
}
func (m *AllAlias) Merge(other Value, _ Action, _ IDMapper) error {
	o := other.(*AllAlias)
	seen := make(map[string]bool, len(m.Signatures))
	for _, s := range m.Signatures {
		seen[s] = true
	}
	for _, s := range o.Signatures {
		if !seen[s] {
			m.Signatures = append(m.Signatures, s)
			seen[s] = true
		}
	}
	return nil
}
func (m *AllAlias) ToJSON(IDMapper) (json.RawMessage, error) { return marshalValue(m.Signatures) }
