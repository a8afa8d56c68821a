package gen

import (
	"go/ast"
	"go/types"
	"path"
	"strconv"
	"strings"
)

// ImportSet is an insertion-ordered set of import specs. Specs are unique
// by text; a spec importing an already present path under the same local
// name is dropped as well.
type ImportSet struct {
	specs  []importSpec
	byText map[string]bool
	byPath map[string]string // path to local name
	byName map[string]string // local name to path
}

type importSpec struct {
	Name string // explicit name, may be empty
	Path string
	// Local is the identifier the package is referenced by in the file.
	Local string
}

func (s importSpec) text() string {
	if s.Name != "" {
		return s.Name + " " + strconv.Quote(s.Path)
	}
	return strconv.Quote(s.Path)
}

// NewImportSet returns an empty set.
func NewImportSet() *ImportSet {
	return &ImportSet{
		byText: make(map[string]bool),
		byPath: make(map[string]string),
		byName: make(map[string]string),
	}
}

// AddSpec adds an import spec of a source file. info resolves the package
// name of unnamed imports; it may be nil. Blank and dot imports are
// ignored: generated code never relies on them and an unused dot import
// does not compile.
func (s *ImportSet) AddSpec(spec *ast.ImportSpec, info *types.Info) {
	p, err := strconv.Unquote(spec.Path.Value)
	if err != nil {
		return
	}
	var name string
	if spec.Name != nil {
		name = spec.Name.Name
		if name == "_" || name == "." {
			return
		}
	}
	local := name
	if local == "" {
		local = packageName(spec, info, p)
	}
	s.add(importSpec{Name: name, Path: p, Local: local})
}

// Add imports path and returns the identifier to reference it by. An
// existing import of path is reused; a local name clash gets a numbered
// alias.
func (s *ImportSet) Add(name, p string) string {
	if local, ok := s.Local(p); ok {
		return local
	}
	if name == "" {
		name = guessName(p)
	}
	local := name
	for i := 2; ; i++ {
		if _, taken := s.byName[local]; !taken {
			break
		}
		local = name + strconv.Itoa(i)
	}
	spec := importSpec{Path: p, Local: local}
	if local != guessName(p) {
		spec.Name = local
	}
	s.add(spec)
	return local
}

func (s *ImportSet) add(spec importSpec) {
	text := spec.text()
	if s.byText[text] {
		return
	}
	if local, ok := s.byPath[spec.Path]; ok && local == spec.Local {
		return
	}
	// The first import to claim a local name keeps it.
	if p, ok := s.byName[spec.Local]; ok && p != spec.Path {
		return
	}
	s.byText[text] = true
	if _, ok := s.byPath[spec.Path]; !ok {
		s.byPath[spec.Path] = spec.Local
	}
	if _, ok := s.byName[spec.Local]; !ok {
		s.byName[spec.Local] = spec.Path
	}
	s.specs = append(s.specs, spec)
}

// Local returns the identifier path is referenced by, if imported.
func (s *ImportSet) Local(p string) (string, bool) {
	local, ok := s.byPath[p]
	return local, ok
}

// Len returns the number of specs.
func (s *ImportSet) Len() int {
	return len(s.specs)
}

// Specs returns the spec texts in insertion order.
func (s *ImportSet) Specs() []string {
	texts := make([]string, len(s.specs))
	for i, spec := range s.specs {
		texts[i] = spec.text()
	}
	return texts
}

// localOf returns the local name of the spec importing path under name,
// which is empty for unnamed imports.
func (s *ImportSet) localOf(name, p string) string {
	for _, spec := range s.specs {
		if spec.Name == name && spec.Path == p {
			return spec.Local
		}
	}
	if name != "" {
		return name
	}
	return guessName(p)
}

// Qualifier returns a types.Qualifier printing package references relative
// to self, importing every other package it meets.
func (s *ImportSet) Qualifier(self *types.Package) types.Qualifier {
	return func(pkg *types.Package) string {
		if pkg == nil || pkg == self || (self != nil && pkg.Path() == self.Path()) {
			return ""
		}
		return s.Add(pkg.Name(), pkg.Path())
	}
}

// packageName returns the name an unnamed import is referenced by.
func packageName(spec *ast.ImportSpec, info *types.Info, p string) string {
	if info != nil {
		if pn := info.PkgNameOf(spec); pn != nil {
			return pn.Name()
		}
	}
	return guessName(p)
}

// guessName follows the go command conventions for the default name of an
// import path: the last element without a major version suffix or a
// "go-" prefix, and up to the first dot.
func guessName(p string) string {
	base := path.Base(p)
	if strings.HasPrefix(base, "v") && len(base) > 1 && strings.Trim(base[1:], "0123456789") == "" {
		if dir := path.Dir(p); dir != "." {
			base = path.Base(dir)
		}
	}
	base = strings.TrimPrefix(base, "go-")
	if i := strings.IndexAny(base, ".-"); i > 0 {
		base = base[:i]
	}
	return base
}
