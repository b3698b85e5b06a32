// Package objectname builds the canonical object-name universe (component
// C1): deterministic, composable string identities for every AST entity that
// can participate in a points-to relation — declarations, call sites, `this`,
// new-expressions, temporaries, members, and dereference/address-of levels
// of each.
//
// The id scheme mirrors the teacher's fieldMap/methodMap index pattern
// (inspector/graph/types.go): a string key plus a side index, here folded
// into a single canonical string so two references to the same memory
// location produce byte-identical ids (spec §3 invariant).
package objectname

import (
	"fmt"
	"strings"
)

// ID is a canonical object identity. Two references to the same memory
// location always produce an identical ID.
type ID string

// Kind tags the variant of object an ID denotes, for diagnostics only — the
// solver treats all IDs uniformly.
type Kind int

const (
	KindDecl Kind = iota
	KindCallSite
	KindThis
	KindNew
	KindMaterializedTemp
	KindSymbolicReturn
	KindUnnamedParam
	KindUnnamedField
	KindUnnamedUnion
	KindMember
)

func (k Kind) String() string {
	switch k {
	case KindDecl:
		return "decl"
	case KindCallSite:
		return "call-site"
	case KindThis:
		return "this"
	case KindNew:
		return "new"
	case KindMaterializedTemp:
		return "materialized-temp"
	case KindSymbolicReturn:
		return "symbolic-return"
	case KindUnnamedParam:
		return "unnamed-param"
	case KindUnnamedField:
		return "unnamed-field"
	case KindUnnamedUnion:
		return "unnamed-union"
	case KindMember:
		return "member"
	default:
		return "unknown"
	}
}

// Ref is an object reference: a base ID plus a deref level. 0 is the object
// itself, positive levels are `*`, `**`, ..., negative levels are `&`, `&&`,
// ... . (base, level) is the hash key used throughout the solver (spec §3).
type Ref struct {
	Base  ID
	Level int
}

// String renders the canonical (base, level) pair used as the solver's hash
// key. Ordering agrees with Less: lexical on Base, then numeric on Level.
func (r Ref) String() string {
	if r.Level == 0 {
		return string(r.Base)
	}
	return fmt.Sprintf("%s@%d", r.Base, r.Level)
}

// Deref returns the reference one dereference level deeper (unary `*`).
func (r Ref) Deref() Ref { return Ref{Base: r.Base, Level: r.Level + 1} }

// AddrOf returns the reference one level shallower (unary `&`).
func (r Ref) AddrOf() Ref { return Ref{Base: r.Base, Level: r.Level - 1} }

// Less orders refs by (Base, Level) lexically then numerically, matching
// spec §4.1's ordering rule.
func Less(a, b Ref) bool {
	if a.Base != b.Base {
		return a.Base < b.Base
	}
	return a.Level < b.Level
}

// DeclID builds the identity of a declaration from its mangled/canonical
// symbol name, as supplied by the frontend's symbol generator. Constructors
// and destructors report multiple mangled variants (complete, base,
// deleting, comdat, ...); callers should mint one ID per variant and keep
// them synchronized so a callee matching any mangling resolves (spec §4.1).
func DeclID(mangledName string) ID {
	return ID(mangledName)
}

// CallSiteID composes a call-expression identity from its parent function
// id and a location hash of its begin/end offsets in the expansion source.
// macroArgSpelling disambiguates token-paste duplicates produced by macro
// argument expansion; pass "" when the call site is not inside a macro
// argument.
func CallSiteID(parentFn ID, beginOffset, endOffset int, macroArgSpelling string) ID {
	if macroArgSpelling == "" {
		return ID(fmt.Sprintf("%s@CALL[%d:%d]", parentFn, beginOffset, endOffset))
	}
	return ID(fmt.Sprintf("%s@CALL[%d:%d]#%s", parentFn, beginOffset, endOffset, macroArgSpelling))
}

// ThisID is the identity of the implicit `this` object of a non-static
// member function.
func ThisID(parentFn ID) ID { return ID(string(parentFn) + "@THIS") }

// NewID composes the identity of a `new`-expression at the given parent
// function and source offsets. The allocated object lives at deref level 0
// of this id; the pointer `new` returns lives at level -1 (spec §4.5: "Deref
// level of the result of new").
func NewID(parentFn ID, beginOffset, endOffset int) ID {
	return ID(fmt.Sprintf("%s@NEW[%d:%d]", parentFn, beginOffset, endOffset))
}

// MaterializedTempID composes the identity of a materialize-temporary
// expression.
func MaterializedTempID(parentFn ID, beginOffset, endOffset int) ID {
	return ID(fmt.Sprintf("%s@MTE[%d:%d]", parentFn, beginOffset, endOffset))
}

// SymbolicReturnID is the identity standing in for "whatever this function
// returns", used so virtual overrides whose bodies reference no variable in
// any return statement can still be merged against overrides that do.
func SymbolicReturnID(parentFn ID) ID { return ID(string(parentFn) + "@SRETURN") }

// UnnamedParamID composes the identity of a parameter with no name, keyed by
// its ordinal index in the parameter list.
func UnnamedParamID(parentDecl ID, index int) ID {
	return ID(fmt.Sprintf("%s@UNNAMED_PARAM[%d]", parentDecl, index))
}

// UnnamedFieldID composes the identity of an unnamed struct/union field,
// keyed by its declaration's source location hash.
func UnnamedFieldID(parentDecl ID, locationHash int) ID {
	return ID(fmt.Sprintf("%s@UNNAMED_FIELD[%d]", parentDecl, locationHash))
}

// UnnamedUnionID composes the identity of an unnamed union member.
func UnnamedUnionID(parentDecl ID, locationHash int) ID {
	return ID(fmt.Sprintf("%s@UNNAMED_UNION[%d]", parentDecl, locationHash))
}

// MemberID composes a member-access identity: a base object-name-with-deref
// plus the member's own declaration identity. Arrow access (`p->m`) must
// already have incremented base.Level by the caller (spec §4.5: "Arrow
// member access increases the base's deref level by 1").
func MemberID(base Ref, member ID) ID {
	return ID(fmt.Sprintf("%s.%s", base.String(), member))
}

// IsMemberOf reports the (base, member-decl) pair a member ID was built
// from, the inverse of MemberID.
func IsMemberOf(id ID) (base string, member string, ok bool) {
	s := string(id)
	idx := strings.LastIndex(s, ".")
	if idx < 0 {
		return "", "", false
	}
	return s[:idx], s[idx+1:], true
}
