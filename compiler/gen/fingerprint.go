package gen

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"go/ast"
	"go/types"
	"hash"
	"sort"

	"github.com/syssam/partialgen/compiler/load"
)

// fingerprint hashes everything the generated file of a type depends on:
// configuration, the declaration with its directives and imports, the
// companion interface, the embedded chain, the mapper destinations and the
// named types their fields refer to. Equal fingerprints imply
// byte-identical output.
func fingerprint(cfg *Config, c *load.Context, n Node, tn *types.TypeName, chain []*types.TypeName) string {
	fp := &hasher{h: sha256.New(), c: c}
	fp.add("config", cfg.Signature())
	fp.add("package", c.Path+" "+c.Name)
	fp.add("file", c.Filename(n.File))
	fp.add("decl", c.Text(n.Spec))
	for _, d := range n.Docs() {
		fp.add("doc", d.Text)
	}
	fp.imports(n.File)
	if in, _, ok := companion(cfg, c, tn.Name()); ok {
		fp.add("interface", c.Text(in.Spec))
		for _, d := range in.Docs() {
			fp.add("interface.doc", d.Text)
		}
	}
	for _, m := range declaredMethods(c, tn) {
		fp.add("method", m)
	}
	for _, emb := range chain {
		fp.typeDecl(emb)
	}
	fp.fields(tn.Type().Underlying())
	for _, arg := range n.Directives(DirectiveMethod) {
		m, err := parseMethod(arg)
		if err != nil || m.Name != cfg.MapperName || m.params() != 1 {
			continue
		}
		t, err := evalParam(c, n, m)
		if err != nil {
			continue
		}
		if dst := embeddedName(t); dst != nil {
			fp.typeDecl(dst)
			for _, emb := range embeddedChain(dst) {
				fp.typeDecl(emb)
			}
		}
		if p := pointer(t); p != nil {
			fp.fields(p.Elem().Underlying())
		}
	}
	return hex.EncodeToString(fp.h.Sum(nil))
}

type hasher struct {
	h hash.Hash
	c *load.Context
}

func (fp *hasher) add(label, s string) {
	fmt.Fprintf(fp.h, "%s\x00%d\x00%s\x00", label, len(s), s)
}

func (fp *hasher) imports(f *ast.File) {
	for _, imp := range f.Imports {
		fp.add("import", fp.c.Text(imp))
	}
}

// typeDecl hashes the declaration of tn and the imports of its file, or its
// structure when it is declared outside of the loaded source set.
func (fp *hasher) typeDecl(tn *types.TypeName) {
	f, _, ts, ok := fp.c.TypeDecl(tn)
	if !ok {
		fp.add("external", qualifiedName(tn)+" "+types.TypeString(tn.Type().Underlying(), nil))
		return
	}
	fp.add("type", qualifiedName(tn)+" "+fp.c.Text(ts))
	fp.imports(f)
}

// fields hashes the types of the fields of st, promoted ones included,
// together with the named types they refer to. Mappers pick assignment,
// conversion or nil handling from these types, which may be declared far
// from the struct.
func (fp *hasher) fields(t types.Type) {
	st, ok := t.(*types.Struct)
	if !ok {
		return
	}
	seen := make(map[*types.Named]bool)
	for _, v := range promotedFields(st, func(*types.Var, string) bool { return true }) {
		fp.add("field", v.Name()+" "+types.TypeString(v.Type(), nil))
		fp.shape(v.Type(), seen)
	}
}

// shape hashes the underlying type and the method sets of every named type
// reachable from t through composite types.
func (fp *hasher) shape(t types.Type, seen map[*types.Named]bool) {
	switch u := types.Unalias(t).(type) {
	case *types.Named:
		if seen[u] {
			return
		}
		seen[u] = true
		fp.add("underlying", types.TypeString(u, nil)+" "+types.TypeString(u.Underlying(), nil))
		for _, ms := range []*types.MethodSet{types.NewMethodSet(u), types.NewMethodSet(types.NewPointer(u))} {
			for i := range ms.Len() {
				sel := ms.At(i)
				fp.add("methodset", sel.Obj().Name()+" "+types.TypeString(sel.Type(), nil))
			}
		}
	case *types.Pointer:
		fp.shape(u.Elem(), seen)
	case *types.Slice:
		fp.shape(u.Elem(), seen)
	case *types.Array:
		fp.shape(u.Elem(), seen)
	case *types.Map:
		fp.shape(u.Key(), seen)
		fp.shape(u.Elem(), seen)
	case *types.Chan:
		fp.shape(u.Elem(), seen)
	}
}

// declaredMethods returns the sorted names of the methods of tn declared
// in hand-written files.
func declaredMethods(c *load.Context, tn *types.TypeName) []string {
	named, ok := tn.Type().(*types.Named)
	if !ok {
		return nil
	}
	var names []string
	for i := range named.NumMethods() {
		m := named.Method(i)
		if f, _, ok := c.FileOf(m.Pos()); ok && load.IsGenerated(f) {
			continue
		}
		names = append(names, m.Name())
	}
	sort.Strings(names)
	return names
}
