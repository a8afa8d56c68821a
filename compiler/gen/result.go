package gen

import (
	"go/token"
	"go/types"

	"github.com/syssam/partialgen/compiler/load"
)

// Kind discriminates the variants of a CandidateResult.
type Kind uint8

const (
	// KindEmpty means the candidate does not qualify for generation.
	KindEmpty Kind = iota
	// KindSuccess means the candidate was resolved and qualifies.
	KindSuccess
	// KindError means semantic analysis failed for the candidate.
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindSuccess:
		return "success"
	case KindError:
		return "error"
	}
	return "unknown"
}

// CandidateResult is the outcome of resolving one candidate. Exactly one
// variant holds:
//
//   - Empty carries no data.
//   - Success carries Node, Context, Symbol, TypeName and Key.
//   - Error carries TypeName, Message, an optional Trace and Pos.
type CandidateResult struct {
	Kind Kind
	// Node is the target declaration (Success).
	Node Node
	// Context is the package the declaration belongs to (Success).
	Context *load.Context
	// Symbol is the resolved type (Success).
	Symbol *types.TypeName
	// TypeName is the name of the type (Success and Error).
	TypeName string
	// Message and Trace describe the failure (Error).
	Message string
	Trace   string
	// Pos is the position of the type name (Success and Error).
	Pos token.Position
	// Key fingerprints every declaration the result depends on (Success).
	Key string
}

// Empty returns the empty result.
func Empty() CandidateResult {
	return CandidateResult{Kind: KindEmpty}
}

// Succeeded returns a success result.
func Succeeded(n Node, c *load.Context, sym *types.TypeName, key string) CandidateResult {
	return CandidateResult{
		Kind:     KindSuccess,
		Node:     n,
		Context:  c,
		Symbol:   sym,
		TypeName: sym.Name(),
		Pos:      c.Position(n.Spec.Name.Pos()),
		Key:      key,
	}
}

// Failed returns an error result.
func Failed(typeName, message, trace string, pos token.Position) CandidateResult {
	return CandidateResult{
		Kind:     KindError,
		TypeName: typeName,
		Message:  message,
		Trace:    trace,
		Pos:      pos,
	}
}

// IsEmpty reports whether r is the empty result.
func (r CandidateResult) IsEmpty() bool { return r.Kind == KindEmpty }

// IsSuccess reports whether r is a success result.
func (r CandidateResult) IsSuccess() bool { return r.Kind == KindSuccess }

// IsError reports whether r is an error result.
func (r CandidateResult) IsError() bool { return r.Kind == KindError }

// Equal reports whether two results are equivalent. Results from two
// loads of the same unchanged source are equal even though their syntax
// trees differ.
func (r CandidateResult) Equal(o CandidateResult) bool {
	if r.Kind != o.Kind {
		return false
	}
	switch r.Kind {
	case KindSuccess:
		return r.TypeName == o.TypeName && r.Key == o.Key
	case KindError:
		return r.TypeName == o.TypeName && r.Message == o.Message
	}
	return true
}
