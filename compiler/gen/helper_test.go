package gen

import (
	"context"
	"go/ast"
	"go/parser"
	"go/token"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/syssam/partialgen/compiler/load"
)

// runtimeSrc mirrors the runtime API generated code calls into.
const runtimeSrc = `package partialgen

type Base struct{ props map[string]bool }

type Property struct{ modified bool }

func (b *Base) Property(name string) *Property { return &Property{modified: b.props[name]} }

func (p *Property) IsModified() bool { return p.modified }

func Read[T any](h any, name string) T {
	var zero T
	return zero
}

func Write[T any](h any, name string, value T) {}

func Required[T any](v *T, typ, property string) *T { return v }

type NilPropertyError struct {
	Type     string
	Property string
}

func (e *NilPropertyError) Error() string { return e.Type + "." + e.Property + " is nil" }
`

const shopPath = "example.com/shop"

func runtimeSource() load.Source {
	return load.Source{Path: DefaultRuntime, Files: map[string]string{"partialgen.go": runtimeSrc}}
}

// loadShop type-checks the runtime stub, the given dependencies and a
// package example.com/shop made of files.
func loadShop(t *testing.T, dir string, files map[string]string, deps ...load.Source) *load.Context {
	t.Helper()
	srcs := append([]load.Source{runtimeSource()}, deps...)
	srcs = append(srcs, load.Source{Path: shopPath, Dir: dir, Files: files})
	prog, err := load.Sources(srcs...)
	require.NoError(t, err)
	c, ok := prog.Package(shopPath)
	require.True(t, ok)
	return c
}

func generate(t *testing.T, cfg *Config, files map[string]string, deps ...load.Source) *Result {
	t.Helper()
	c := loadShop(t, "", files, deps...)
	res, err := New(cfg).Generate(context.Background(), c)
	require.NoError(t, err)
	return res
}

func outputOf(t *testing.T, res *Result, typ string) *Output {
	t.Helper()
	for _, out := range res.Outputs {
		if out.Type == typ {
			return out
		}
	}
	require.Failf(t, "no output", "type %s has no output", typ)
	return nil
}

func hasOutput(res *Result, typ string) bool {
	for _, out := range res.Outputs {
		if out.Type == typ {
			return true
		}
	}
	return false
}

func messages(res *Result) []string {
	var msgs []string
	for _, d := range res.Diagnostics {
		msgs = append(msgs, d.Message)
	}
	return msgs
}

// nodeOf parses src and returns the declaration of the named type.
func nodeOf(t *testing.T, src, name string) Node {
	t.Helper()
	f, err := parser.ParseFile(token.NewFileSet(), "x.go", src, parser.ParseComments)
	require.NoError(t, err)
	for _, d := range f.Decls {
		gd, ok := d.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, s := range gd.Specs {
			if ts := s.(*ast.TypeSpec); ts.Name.Name == name {
				return Node{File: f, Decl: gd, Spec: ts}
			}
		}
	}
	require.Failf(t, "no type", "type %s not found", name)
	return Node{}
}
