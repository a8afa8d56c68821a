package gen

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/parser"
	"go/printer"
	"go/token"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-openapi/inflect"
	"golang.org/x/tools/go/ast/astutil"
	"golang.org/x/tools/imports"

	"github.com/syssam/partialgen/compiler/load"
)

// Output is a generated file.
type Output struct {
	// Package is the import path of the package the file belongs to.
	Package string
	// Type is the name of the completed type.
	Type string
	// Path is the file path.
	Path string
	// Source is the formatted file content.
	Source []byte
	// Key is the fingerprint the file was generated from.
	Key string
	// Fallback is set when synthesis failed and Source only records the
	// failure.
	Fallback bool
	// Raw holds the unformatted source when the round trip failed.
	Raw []byte
	// Cached is set when Source came from the cache.
	Cached bool
}

var (
	emptyImportsRx = regexp.MustCompile(`(?m)^import \(\s*\)\n?`)
	blankLinesRx   = regexp.MustCompile(`\n{3,}`)
)

// OutputPath returns the path of the file generated for a type: next to
// the file declaring it, named after the snake cased type name.
func OutputPath(cfg *Config, c *load.Context, n Node) string {
	return filepath.Join(filepath.Dir(c.Filename(n.File)), inflect.Underscore(n.Name())+cfg.FileSuffix)
}

// Emit assembles the generated file of a synthesized type and validates it
// by parsing and formatting it. On failure the assembled source is
// returned in Output.Raw together with the error.
func Emit(sc *SynthesisContext) (*Output, error) {
	var (
		cfg = sc.cfg
		c   = sc.Context
		b   strings.Builder
	)
	b.WriteString(cfg.Header)
	b.WriteString("\n\npackage ")
	b.WriteString(c.Name)
	b.WriteString("\n\nimport (\n")
	for _, spec := range sc.Imports.Specs() {
		b.WriteString("\t")
		b.WriteString(spec)
		b.WriteString("\n")
	}
	b.WriteString(")\n\n")
	b.WriteString(sc.members.String())
	b.WriteString(sc.accessors.String())
	b.WriteString(sc.mappers.String())

	out := &Output{
		Package: c.Path,
		Type:    sc.res.TypeName,
		Path:    OutputPath(cfg, c, sc.res.Node),
		Key:     sc.res.Key,
	}
	raw := cleanup(b.String())
	src, err := roundTrip(out.Path, raw, sc.Imports)
	if err != nil {
		out.Raw = raw
		return out, errors.Wrap(NewSynthesisError(sc.res.TypeName, "emit", "", err), "round trip")
	}
	out.Source = src
	return out, nil
}

// cleanup removes artifacts of text assembly: empty import blocks and runs
// of blank lines. Declaration text copied from source is left alone.
func cleanup(src string) []byte {
	src = emptyImportsRx.ReplaceAllString(src, "")
	src = blankLinesRx.ReplaceAllString(src, "\n\n")
	return []byte(src)
}

// roundTrip parses src, drops the imports it does not use and formats it.
// Imports are pruned here rather than by goimports so the result never
// depends on the module cache.
func roundTrip(filename string, src []byte, set *ImportSet) ([]byte, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, filename, src, parser.ParseComments)
	if err != nil {
		return nil, errors.Wrap(err, "parse generated source")
	}
	used := selectorNames(f)
	for _, spec := range append([]*ast.ImportSpec(nil), f.Imports...) {
		p := importPath(spec)
		var name string
		if spec.Name != nil {
			name = spec.Name.Name
		}
		if !used[set.localOf(name, p)] {
			astutil.DeleteNamedImport(fset, f, name, p)
		}
	}
	var buf bytes.Buffer
	if err := printer.Fprint(&buf, fset, f); err != nil {
		return nil, errors.Wrap(err, "print generated source")
	}
	out, err := imports.Process(filename, buf.Bytes(), &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "format generated source")
	}
	return out, nil
}

// selectorNames returns the identifiers used as the operand of a selector,
// which covers every package qualified reference.
func selectorNames(f *ast.File) map[string]bool {
	names := make(map[string]bool)
	ast.Inspect(f, func(n ast.Node) bool {
		if sel, ok := n.(*ast.SelectorExpr); ok {
			if id, ok := sel.X.(*ast.Ident); ok {
				names[id.Name] = true
			}
		}
		return true
	})
	return names
}

func importPath(spec *ast.ImportSpec) string {
	return strings.Trim(spec.Path.Value, "`\"")
}

// Fallback returns the unit emitted in place of a type whose synthesis
// failed: the header, the package clause and a comment naming the failure.
func Fallback(cfg *Config, c *load.Context, n Node, msg string) *Output {
	msg = strings.Join(strings.Fields(msg), " ")
	src := fmt.Sprintf("%s\n\npackage %s\n\n// partialgen: synthesis failed for type %s: %s\n", cfg.Header, c.Name, n.Name(), msg)
	return &Output{
		Package:  c.Path,
		Type:     n.Name(),
		Path:     OutputPath(cfg, c, n),
		Source:   []byte(src),
		Fallback: true,
	}
}
