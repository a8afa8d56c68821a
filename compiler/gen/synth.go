package gen

import (
	"go/ast"
	"go/types"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"github.com/dave/jennifer/jen"
	"github.com/go-openapi/inflect"

	"github.com/syssam/partialgen/compiler/diag"
	"github.com/syssam/partialgen/compiler/load"
)

// testHookSynthesize, when set, runs before a type is synthesized.
var testHookSynthesize func(res CandidateResult)

// SynthesisContext accumulates the generated code of one type. It is
// created for a single synthesis and never shared.
type SynthesisContext struct {
	cfg *Config
	res CandidateResult

	// Context is the package of the target type.
	Context *load.Context
	// Interface is the companion interface, if declared.
	Interface *Node
	iface     *ast.InterfaceType
	// Receiver names the receiver of generated methods.
	Receiver string
	// Imports collects the imports of the generated file.
	Imports *ImportSet
	runtime string

	accessors strings.Builder
	members   strings.Builder
	mappers   strings.Builder
	fragment  []jen.Code
	declared  map[string]bool

	diags []diag.Diagnostic
}

// Synthesize generates the accessors, interface fragment and mapper methods
// of a resolved type. Errors and panics are returned as a *SynthesisError.
func Synthesize(cfg *Config, res CandidateResult) (sc *SynthesisContext, err error) {
	defer func() {
		if v := recover(); v != nil {
			sc, err = nil, errors.WithStack(NewSynthesisError(res.TypeName, "", "", recovered(v)))
		}
	}()
	if !res.IsSuccess() {
		return nil, errors.WithStack(NewSynthesisError(res.TypeName, "", "type was not resolved", nil))
	}
	if testHookSynthesize != nil {
		testHookSynthesize(res)
	}
	sc = newSynthesisContext(cfg, res)
	if err := sc.properties(); err != nil {
		return nil, err
	}
	if err := sc.mapperMethods(); err != nil {
		return nil, err
	}
	if err := sc.interfaceFragment(); err != nil {
		return nil, err
	}
	return sc, nil
}

func newSynthesisContext(cfg *Config, res CandidateResult) *SynthesisContext {
	c := res.Context
	sc := &SynthesisContext{
		cfg:      cfg,
		res:      res,
		Context:  c,
		Imports:  collectImports(c, res.Node, res.Symbol),
		declared: make(map[string]bool),
	}
	if c.Path != cfg.Runtime {
		sc.runtime = sc.Imports.Add(guessName(cfg.Runtime), cfg.Runtime)
	}
	if in, it, ok := companion(cfg, c, res.TypeName); ok {
		sc.Interface, sc.iface = &in, it
	}
	for _, m := range declaredMethods(c, res.Symbol) {
		sc.declared[m] = true
	}
	sc.Receiver = receiverName(res.TypeName, sc.Imports)
	return sc
}

// Diagnostics returns the informational and warning diagnostics collected
// during synthesis.
func (sc *SynthesisContext) Diagnostics() []diag.Diagnostic {
	return sc.diags
}

// TypeName returns the name of the target type.
func (sc *SynthesisContext) TypeName() string {
	return sc.res.TypeName
}

func (sc *SynthesisContext) info(code diag.Code, format string, args ...any) {
	sc.diags = append(sc.diags, diag.Info(code, sc.res.TypeName, sc.res.Pos, format, args...))
}

func (sc *SynthesisContext) warn(code diag.Code, format string, args ...any) {
	sc.diags = append(sc.diags, diag.Warning(code, sc.res.TypeName, sc.res.Pos, format, args...))
}

// rt references an identifier of the runtime package.
func (sc *SynthesisContext) rt(name string) *jen.Statement {
	if sc.runtime == "" {
		return jen.Id(name)
	}
	return jen.Id(sc.runtime).Dot(name)
}

// recv returns the receiver clause of generated methods.
func (sc *SynthesisContext) recv(name string) *jen.Statement {
	return jen.Params(jen.Id(name).Op("*").Id(sc.res.TypeName))
}

// typeString prints t relative to the target package, importing the
// packages it references.
func (sc *SynthesisContext) typeString(t types.Type) string {
	return types.TypeString(t, sc.Imports.Qualifier(sc.Context.Types))
}

func (sc *SynthesisContext) render(b *strings.Builder, s *jen.Statement) error {
	if err := s.Render(b); err != nil {
		return err
	}
	b.WriteString("\n\n")
	return nil
}

// properties emits an accessor pair for every partial field declared on
// the target struct, in declaration order.
func (sc *SynthesisContext) properties() error {
	st, ok := sc.res.Node.Spec.Type.(*ast.StructType)
	if !ok {
		return errors.WithStack(NewSynthesisError(sc.res.TypeName, "property", "not a struct type", nil))
	}
	explicit := sc.interfaceMethods()
	for _, f := range partialFields(st) {
		typ := sc.Context.Text(f.Type)
		if typ == "" {
			return errors.WithStack(NewSynthesisError(sc.res.TypeName, "property", "cannot print type of field "+f.Names[0].Name, nil))
		}
		for _, id := range f.Names {
			if id.Name == "_" {
				continue
			}
			if err := sc.property(id.Name, typ, explicit); err != nil {
				return errors.Wrapf(NewSynthesisError(sc.res.TypeName, "property", "property "+id.Name, err), "render")
			}
		}
	}
	return nil
}

func (sc *SynthesisContext) property(name, typ string, explicit map[string]bool) error {
	getter, setter := accessorNames(name)
	if explicit != nil && !explicit[getter] {
		sc.fragment = append(sc.fragment,
			jen.Id(getter).Params().Id(typ),
			jen.Id(setter).Params(jen.Id("value").Id(typ)),
		)
	}
	r := sc.Receiver
	if sc.declared[getter] {
		sc.info(diag.SynInfo, "method %s already declared; accessor not generated", getter)
	} else {
		get := jen.Func().Add(sc.recv(r)).Id(getter).Params().Id(typ).Block(
			jen.Return(sc.rt("Read").Types(jen.Id(typ)).Call(jen.Id(r), jen.Lit(name))),
		)
		if err := sc.render(&sc.accessors, get); err != nil {
			return err
		}
	}
	if sc.declared[setter] {
		sc.info(diag.SynInfo, "method %s already declared; accessor not generated", setter)
		return nil
	}
	set := jen.Func().Add(sc.recv(r)).Id(setter).Params(jen.Id("value").Id(typ)).Block(
		sc.rt("Write").Call(jen.Id(r), jen.Lit(name), jen.Id("value")),
	)
	return sc.render(&sc.accessors, set)
}

// interfaceMethods returns the names of the methods written explicitly in
// a partial companion interface, or nil when there is none. Embedded
// interfaces and the method set are ignored so that the generated fragment
// never feeds back into the lookup.
func (sc *SynthesisContext) interfaceMethods() map[string]bool {
	if sc.Interface == nil || !sc.Interface.HasDirective(DirectivePartial) {
		return nil
	}
	names := make(map[string]bool)
	if sc.iface.Methods == nil {
		return names
	}
	for _, m := range sc.iface.Methods.List {
		if _, ok := m.Type.(*ast.FuncType); !ok {
			continue
		}
		for _, id := range m.Names {
			names[id.Name] = true
		}
	}
	return names
}

// interfaceFragment renders the members missing from the companion
// interface as the generated fragment interface.
func (sc *SynthesisContext) interfaceFragment() error {
	if len(sc.fragment) == 0 {
		return nil
	}
	s := jen.Type().Id(sc.cfg.FragmentName(sc.res.TypeName)).Interface(sc.fragment...)
	if err := sc.render(&sc.members, s); err != nil {
		return errors.Wrap(NewSynthesisError(sc.res.TypeName, "interface", "", err), "render")
	}
	return nil
}

// companion returns the companion interface of a type declared in a
// hand-written file of the package.
func companion(cfg *Config, c *load.Context, typeName string) (Node, *ast.InterfaceType, bool) {
	tn, ok := c.Types.Scope().Lookup(cfg.InterfaceName(typeName)).(*types.TypeName)
	if !ok {
		return Node{}, nil, false
	}
	f, gd, ts, ok := c.TypeDecl(tn)
	if !ok || load.IsGenerated(f) {
		return Node{}, nil, false
	}
	it, ok := ts.Type.(*ast.InterfaceType)
	if !ok {
		return Node{}, nil, false
	}
	return Node{File: f, Decl: gd, Spec: ts}, it, true
}

// collectImports starts from the imports of the target file and adds those
// of the files declaring its embedded types.
func collectImports(c *load.Context, n Node, tn *types.TypeName) *ImportSet {
	set := NewImportSet()
	for _, spec := range n.File.Imports {
		set.AddSpec(spec, c.Info)
	}
	for _, emb := range embeddedChain(tn) {
		f, owner, ok := c.FileOf(emb.Pos())
		if !ok || f == n.File {
			continue
		}
		for _, spec := range f.Imports {
			set.AddSpec(spec, owner.Info)
		}
	}
	return set
}

// accessorNames returns the getter and setter names of a property. They
// keep the export status of the field.
func accessorNames(field string) (getter, setter string) {
	r, _ := utf8.DecodeRuneInString(field)
	if unicode.IsUpper(r) {
		return "Get" + field, "Set" + field
	}
	return "get" + inflect.Capitalize(field), "set" + inflect.Capitalize(field)
}

// receiverName returns the lower cased first letter of the type name,
// avoiding the local names of imported packages.
func receiverName(typeName string, imports *ImportSet) string {
	r, _ := utf8.DecodeRuneInString(typeName)
	name := string(unicode.ToLower(r))
	if _, taken := imports.byName[name]; taken || name == "_" {
		return "recv"
	}
	return name
}
