// Package load provides the host model the generator runs against: parsed
// syntax, type information and a position index over every loaded file.
//
// Packages are loaded either through golang.org/x/tools/go/packages
// (Packages) or type-checked from in-memory sources (Sources). Both produce
// a Program whose Contexts are treated as read-only snapshots by the
// generator.
package load

import (
	"bytes"
	"context"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/printer"
	"go/token"
	"go/types"
	"path"
	"path/filepath"
	"sort"

	"github.com/cockroachdb/errors"
	"golang.org/x/tools/go/packages"
)

// Mode is the go/packages load mode used by Packages.
const Mode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedImports |
	packages.NeedSyntax |
	packages.NeedTypes |
	packages.NeedTypesInfo

type (
	// Program is a set of loaded packages sharing one file set.
	Program struct {
		Fset     *token.FileSet
		Packages []*Context
		files    map[string]*fileRef
	}

	// Context is the semantic context of one package. It is passed
	// explicitly through every stage of the pipeline.
	Context struct {
		prog *Program
		// Name is the package name.
		Name string
		// Path is the package import path.
		Path string
		// Dir is the directory holding the package files.
		Dir string
		// Files holds the parsed files in deterministic order.
		Files []*ast.File
		// Filenames holds the file names parallel to Files.
		Filenames []string
		// Types is the type-checked package.
		Types *types.Package
		// Info is the type information for Files.
		Info *types.Info
		// Errors holds the type errors tolerated during loading.
		Errors []error
	}

	fileRef struct {
		file *ast.File
		pkg  *Context
	}
)

// Config configures Packages.
type Config struct {
	// Dir is the working directory for pattern resolution.
	Dir string
	// BuildFlags are passed to the build system, e.g. -tags=integration.
	BuildFlags []string
	// Env overrides the environment of the underlying go command.
	Env []string
	// Tests includes test files in the loaded packages.
	Tests bool
}

// Packages loads the packages matching patterns with go/packages.
// Type errors do not fail the load: stale generated files may not
// type-check, and the generator tolerates partial type information.
// Packages without any type information are skipped.
func Packages(ctx context.Context, cfg Config, patterns ...string) (*Program, error) {
	if len(patterns) == 0 {
		patterns = []string{"."}
	}
	prog := newProgram(token.NewFileSet())
	pcfg := &packages.Config{
		Context:    ctx,
		Mode:       Mode,
		Dir:        cfg.Dir,
		Env:        cfg.Env,
		BuildFlags: cfg.BuildFlags,
		Tests:      cfg.Tests,
		Fset:       prog.Fset,
	}
	pkgs, err := packages.Load(pcfg, patterns...)
	if err != nil {
		return nil, errors.Wrapf(err, "load packages %v", patterns)
	}
	if len(pkgs) == 0 {
		return nil, errors.Newf("no packages found for %v", patterns)
	}
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].ID < pkgs[j].ID })
	for _, p := range pkgs {
		if p.Types == nil || p.TypesInfo == nil {
			continue
		}
		c := &Context{
			Name:  p.Name,
			Path:  p.PkgPath,
			Types: p.Types,
			Info:  p.TypesInfo,
		}
		for _, e := range p.Errors {
			c.Errors = append(c.Errors, e)
		}
		for i, f := range p.Syntax {
			name := prog.Fset.Position(f.Package).Filename
			if i < len(p.CompiledGoFiles) {
				name = p.CompiledGoFiles[i]
			}
			c.Files = append(c.Files, f)
			c.Filenames = append(c.Filenames, name)
		}
		if len(c.Filenames) > 0 {
			c.Dir = filepath.Dir(c.Filenames[0])
		}
		prog.add(c)
	}
	return prog, nil
}

// Source is an in-memory package.
type Source struct {
	// Path is the package import path.
	Path string
	// Dir is the directory the files pretend to live in. Defaults to Path.
	Dir string
	// Files maps base file names to their contents.
	Files map[string]string
}

// Sources parses and type-checks in-memory packages. Sources must be given
// in dependency order; a source may import any source before it, and
// everything else is resolved by the default importer. Syntax errors fail
// the load, type errors are recorded on the Context.
func Sources(srcs ...Source) (*Program, error) {
	prog := newProgram(token.NewFileSet())
	checked := make(map[string]*types.Package)
	fallback := importer.Default()
	imp := importerFunc(func(p string) (*types.Package, error) {
		if pkg, ok := checked[p]; ok {
			return pkg, nil
		}
		return fallback.Import(p)
	})
	for _, src := range srcs {
		c, err := check(prog.Fset, imp, src)
		if err != nil {
			return nil, err
		}
		checked[src.Path] = c.Types
		prog.add(c)
	}
	return prog, nil
}

func check(fset *token.FileSet, imp types.Importer, src Source) (*Context, error) {
	if src.Path == "" {
		return nil, errors.New("source package without import path")
	}
	d := src.Dir
	if d == "" {
		d = src.Path
	}
	names := make([]string, 0, len(src.Files))
	for name := range src.Files {
		names = append(names, name)
	}
	sort.Strings(names)
	c := &Context{Path: src.Path, Dir: d}
	for _, name := range names {
		filename := path.Join(d, name)
		f, err := parser.ParseFile(fset, filename, src.Files[name], parser.ParseComments|parser.SkipObjectResolution)
		if err != nil {
			return nil, errors.Wrapf(err, "parse %s", filename)
		}
		c.Files = append(c.Files, f)
		c.Filenames = append(c.Filenames, filename)
	}
	c.Info = NewInfo()
	conf := &types.Config{
		Importer: imp,
		Error:    func(err error) { c.Errors = append(c.Errors, err) },
	}
	// The returned error duplicates the first entry of c.Errors.
	pkg, _ := conf.Check(src.Path, fset, c.Files, c.Info)
	c.Types = pkg
	if pkg != nil {
		c.Name = pkg.Name()
	}
	return c, nil
}

// NewInfo returns a types.Info with every map the generator reads.
func NewInfo() *types.Info {
	return &types.Info{
		Types:      make(map[ast.Expr]types.TypeAndValue),
		Defs:       make(map[*ast.Ident]types.Object),
		Uses:       make(map[*ast.Ident]types.Object),
		Implicits:  make(map[ast.Node]types.Object),
		Selections: make(map[*ast.SelectorExpr]*types.Selection),
		Scopes:     make(map[ast.Node]*types.Scope),
	}
}

type importerFunc func(path string) (*types.Package, error)

func (f importerFunc) Import(path string) (*types.Package, error) { return f(path) }

func newProgram(fset *token.FileSet) *Program {
	return &Program{Fset: fset, files: make(map[string]*fileRef)}
}

func (p *Program) add(c *Context) {
	c.prog = p
	p.Packages = append(p.Packages, c)
	for i, f := range c.Files {
		p.files[c.Filenames[i]] = &fileRef{file: f, pkg: c}
	}
}

// Package returns the loaded package with the given import path.
func (p *Program) Package(path string) (*Context, bool) {
	for _, c := range p.Packages {
		if c.Path == path {
			return c, true
		}
	}
	return nil, false
}

// Fset returns the file set shared by the program.
func (c *Context) Fset() *token.FileSet { return c.prog.Fset }

// Position returns the source position of pos.
func (c *Context) Position(pos token.Pos) token.Position {
	return c.prog.Fset.Position(pos)
}

// FileOf returns the loaded file containing pos and the package it belongs
// to. The lookup spans the whole program, not only this package.
func (c *Context) FileOf(pos token.Pos) (*ast.File, *Context, bool) {
	if !pos.IsValid() {
		return nil, nil, false
	}
	ref, ok := c.prog.files[c.prog.Fset.Position(pos).Filename]
	if !ok {
		return nil, nil, false
	}
	return ref.file, ref.pkg, true
}

// Filename returns the name of a file of this package.
func (c *Context) Filename(f *ast.File) string {
	for i, ff := range c.Files {
		if ff == f {
			return c.Filenames[i]
		}
	}
	return c.prog.Fset.Position(f.Package).Filename
}

// TypeDecl locates the declaration of a type name in the loaded source set.
// It reports false for types declared outside of it, for example in
// dependencies loaded from export data.
func (c *Context) TypeDecl(obj *types.TypeName) (*ast.File, *ast.GenDecl, *ast.TypeSpec, bool) {
	if obj == nil {
		return nil, nil, nil, false
	}
	f, _, ok := c.FileOf(obj.Pos())
	if !ok {
		return nil, nil, nil, false
	}
	for _, d := range f.Decls {
		gd, ok := d.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, s := range gd.Specs {
			if ts, ok := s.(*ast.TypeSpec); ok && ts.Name.Pos() == obj.Pos() {
				return f, gd, ts, true
			}
		}
	}
	return nil, nil, nil, false
}

// Text prints a syntax node in canonical form.
func (c *Context) Text(node ast.Node) string {
	var buf bytes.Buffer
	cfg := printer.Config{Mode: printer.UseSpaces | printer.TabIndent, Tabwidth: 8}
	if err := cfg.Fprint(&buf, c.prog.Fset, node); err != nil {
		return ""
	}
	return buf.String()
}

// IsGenerated reports whether the file carries the standard
// "Code generated ... DO NOT EDIT." header.
func IsGenerated(f *ast.File) bool {
	return ast.IsGenerated(f)
}
