//go:build !partialgen_debug

package gen

const debugDefault = false
