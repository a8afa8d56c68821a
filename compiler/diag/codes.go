package diag

import "fmt"

// Code identifies the kind of a diagnostic.
type Code uint16

const (
	UnknownCode Code = 0

	// Loading.
	LoadInfo         Code = 1000
	LoadTypeErrors   Code = 1001
	LoadMissingTypes Code = 1002

	// Semantic resolution.
	SemInfo           Code = 2000
	SemAnalysisFailed Code = 2001
	SemStackTrace     Code = 2002

	// Synthesis.
	SynInfo              Code = 3000
	SynFailed            Code = 3001
	SynStackTrace        Code = 3002
	SynTypeMismatch      Code = 3003
	SynNoSingleParameter Code = 3004
	SynNoMatches         Code = 3005
	SynUnsupportedMethod Code = 3006
	SynBadDirective      Code = 3007
	SynNotStruct         Code = 3008

	// Emission.
	EmitInfo   Code = 4000
	EmitFailed Code = 4001
)

var codeDescription = map[Code]string{
	UnknownCode:          "Unknown error",
	LoadInfo:             "Load information",
	LoadTypeErrors:       "Package has type errors",
	LoadMissingTypes:     "Package has no type information",
	SemInfo:              "Semantic information",
	SemAnalysisFailed:    "Semantic analysis failed",
	SemStackTrace:        "Semantic analysis stack trace",
	SynInfo:              "Synthesis information",
	SynFailed:            "Synthesis failed",
	SynStackTrace:        "Synthesis stack trace",
	SynTypeMismatch:      "Mapped property type mismatch",
	SynNoSingleParameter: "Mapper does not take a single parameter",
	SynNoMatches:         "Mapper has no matching properties",
	SynUnsupportedMethod: "Unsupported partial method",
	SynBadDirective:      "Malformed directive",
	SynNotStruct:         "Mapper parameter is not a struct",
	EmitInfo:             "Emit information",
	EmitFailed:           "Generated source failed to round-trip",
}

// ID returns the stable identifier, e.g. "PG3003".
func (c Code) ID() string {
	return fmt.Sprintf("PG%04d", uint16(c))
}

func (c Code) String() string {
	return c.ID()
}

// Title returns the short human description of the code.
func (c Code) Title() string {
	if s, ok := codeDescription[c]; ok {
		return s
	}
	return codeDescription[UnknownCode]
}
