//go:build partialgen_debug

package gen

// debugDefault enables stack traces in diagnostics for binaries built with
// the partialgen_debug tag.
const debugDefault = true
