package gen

import (
	"bytes"
	"go/ast"
	"go/parser"
	"go/printer"
	"go/token"
	"go/types"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/dave/jennifer/jen"
	"golang.org/x/text/cases"

	"github.com/syssam/partialgen/compiler/diag"
	"github.com/syssam/partialgen/compiler/load"
)

// method is a partial method declared with //partialgen:method.
type method struct {
	Name string
	Type *ast.FuncType
	fset *token.FileSet
}

// parseMethod parses the argument of a method directive, for example
// "MapModifiedTo(dst *Record) error".
func parseMethod(arg string) (*method, error) {
	i := strings.IndexByte(arg, '(')
	if i <= 0 {
		return nil, errors.Newf("malformed partial method %q", arg)
	}
	name := strings.TrimSpace(arg[:i])
	if !token.IsIdentifier(name) {
		return nil, errors.Newf("malformed partial method name %q", name)
	}
	fset := token.NewFileSet()
	expr, err := parser.ParseExprFrom(fset, "", "func"+arg[i:], 0)
	if err != nil {
		return nil, errors.Wrapf(err, "malformed partial method %q", arg)
	}
	ft, ok := expr.(*ast.FuncType)
	if !ok {
		return nil, errors.Newf("malformed partial method %q", arg)
	}
	return &method{Name: name, Type: ft, fset: fset}, nil
}

// params returns the number of parameters.
func (m *method) params() int {
	n := 0
	for _, f := range m.Type.Params.List {
		n += max(len(f.Names), 1)
	}
	return n
}

// param returns the name and type of the first parameter.
func (m *method) param() (string, ast.Expr) {
	f := m.Type.Params.List[0]
	if len(f.Names) == 0 {
		return "", f.Type
	}
	return f.Names[0].Name, f.Type
}

func (m *method) text(node ast.Node) string {
	var buf bytes.Buffer
	if err := printer.Fprint(&buf, m.fset, node); err != nil {
		return ""
	}
	return buf.String()
}

// signature returns "Name(params) results" for messages.
func (m *method) signature() string {
	sig := strings.TrimPrefix(m.text(m.Type), "func")
	return m.Name + sig
}

// evalParam resolves the type of the single parameter of m in the scope
// of the file declaring n.
func evalParam(c *load.Context, n Node, m *method) (types.Type, error) {
	_, typ := m.param()
	tv, err := types.Eval(c.Fset(), c.Types, n.Spec.Pos(), m.text(typ))
	if err != nil {
		return nil, err
	}
	if !tv.IsType() {
		return nil, errors.Newf("%s is not a type", m.text(typ))
	}
	return tv.Type, nil
}

// returnsError reports whether m returns exactly an error. ok is false for
// any other result list.
func (m *method) returnsError(c *load.Context, n Node) (returns, ok bool) {
	if m.Type.Results == nil || len(m.Type.Results.List) == 0 {
		return false, true
	}
	if len(m.Type.Results.List) != 1 || len(m.Type.Results.List[0].Names) > 1 {
		return false, false
	}
	tv, err := types.Eval(c.Fset(), c.Types, n.Spec.Pos(), m.text(m.Type.Results.List[0].Type))
	if err != nil || !tv.IsType() {
		return false, false
	}
	return types.Identical(tv.Type, types.Universe.Lookup("error").Type()), true
}

// mapperMethods scans the partial methods of the type and emits a body for
// every valid mapper. A mapper that does not take a single parameter is
// reported and skipped; with HaltOnInvalidMapper the scan stops there.
func (sc *SynthesisContext) mapperMethods() error {
	emitted := make(map[string]bool)
	for _, arg := range sc.res.Node.Directives(DirectiveMethod) {
		m, err := parseMethod(arg)
		if err != nil {
			sc.info(diag.SynBadDirective, "%s", err.Error())
			continue
		}
		if m.Name != sc.cfg.MapperName {
			sc.info(diag.SynUnsupportedMethod, "partial method %s is not supported; only %s gets a body", m.Name, sc.cfg.MapperName)
			continue
		}
		if m.params() != 1 {
			sc.info(diag.SynNoSingleParameter, "no single parameter found for %s", m.signature())
			if sc.cfg.HaltOnInvalidMapper {
				break
			}
			continue
		}
		if emitted[m.Name] {
			sc.info(diag.SynUnsupportedMethod, "duplicate partial method %s ignored", m.signature())
			continue
		}
		ok, err := sc.mapper(m)
		if err != nil {
			return errors.Wrap(NewSynthesisError(sc.res.TypeName, "mapper", m.signature(), err), "render")
		}
		emitted[m.Name] = ok
	}
	return nil
}

// property is a partial property of the target, possibly promoted from an
// embedded type.
type property struct {
	Name   string
	Type   types.Type
	Direct bool
}

// mapper emits one mapper method. It reports false when nothing was
// emitted.
func (sc *SynthesisContext) mapper(m *method) (bool, error) {
	c, n := sc.Context, sc.res.Node
	t, err := evalParam(c, n, m)
	if err != nil {
		sc.info(diag.SynNotStruct, "cannot resolve parameter of %s: %v", m.signature(), err)
		return false, nil
	}
	ptr, ok := types.Unalias(t).(*types.Pointer)
	if !ok {
		sc.info(diag.SynNotStruct, "parameter of %s must be a pointer to a struct", m.signature())
		return false, nil
	}
	dst, ok := ptr.Elem().Underlying().(*types.Struct)
	if !ok {
		sc.info(diag.SynNotStruct, "parameter of %s must be a pointer to a struct", m.signature())
		return false, nil
	}
	returnsErr, ok := m.returnsError(c, n)
	if !ok {
		sc.info(diag.SynUnsupportedMethod, "%s must return nothing or error", m.signature())
		return false, nil
	}

	param, typ := m.param()
	if param == "" || param == "_" {
		param = "dst"
	}
	recv := sc.Receiver
	if recv == param {
		recv = "src"
	}
	local := "val"
	if local == param || local == recv {
		local = "value"
	}
	a := &assigner{sc: sc, recv: recv, param: param, local: local, returnsErr: returnsErr}

	fields := sc.destinationFields(dst)
	var body []jen.Code
	for _, p := range sc.targetProperties() {
		f, ok := fields[sc.matchKey(p.Name)]
		if !ok {
			continue
		}
		stmts, ok := a.assign(p, f)
		if !ok {
			continue
		}
		guard := jen.Id(recv).Dot("Property").Call(jen.Lit(p.Name)).Dot("IsModified").Call()
		body = append(body, jen.If(guard).Block(stmts...))
	}
	if len(body) == 0 {
		sc.info(diag.SynNoMatches, "no matching properties for %s; method not generated", m.signature())
		return false, nil
	}
	fn := jen.Func().Add(sc.recv(recv)).Id(m.Name).Params(jen.Id(param).Id(m.text(typ)))
	if returnsErr {
		body = append(body, jen.Return(jen.Nil()))
		fn = fn.Id("error")
	}
	if err := sc.render(&sc.mappers, fn.Block(body...)); err != nil {
		return false, err
	}
	return true, nil
}

func (sc *SynthesisContext) matchKey(name string) string {
	if sc.cfg.FoldNames {
		return cases.Fold().String(name)
	}
	return name
}

// accessible reports whether generated code in the target package may use v.
func (sc *SynthesisContext) accessible(v *types.Var) bool {
	return v.Exported() || v.Pkg() == sc.Context.Types
}

// destinationFields indexes the assignable fields of the destination
// struct, including promoted ones. The shallowest field wins.
func (sc *SynthesisContext) destinationFields(st *types.Struct) map[string]*types.Var {
	fields := make(map[string]*types.Var)
	for _, v := range promotedFields(st, func(v *types.Var, _ string) bool { return sc.accessible(v) }) {
		key := sc.matchKey(v.Name())
		if _, ok := fields[key]; !ok {
			fields[key] = v
		}
	}
	return fields
}

// targetProperties returns the partial properties of the target, declared
// or promoted, in declaration order.
func (sc *SynthesisContext) targetProperties() []property {
	st := sc.res.Symbol.Type().Underlying().(*types.Struct)
	direct := make(map[*types.Var]bool, st.NumFields())
	for i := range st.NumFields() {
		direct[st.Field(i)] = true
	}
	keep := func(v *types.Var, tag string) bool {
		return isPartialTag(tag) && sc.accessible(v)
	}
	var props []property
	for _, v := range promotedFields(st, keep) {
		props = append(props, property{Name: v.Name(), Type: v.Type(), Direct: direct[v]})
	}
	return props
}

// promotedFields walks st and its embedded structs breadth first and
// returns the non-embedded fields selected by keep. A field shadowed by a
// shallower field of the same name, or ambiguous at its depth, is dropped.
func promotedFields(st *types.Struct, keep func(v *types.Var, tag string) bool) []*types.Var {
	var (
		out     []*types.Var
		shadow  = make(map[string]bool)
		visited = make(map[*types.TypeName]bool)
		level   = []*types.Struct{st}
	)
	for len(level) > 0 {
		var (
			next  []*types.Struct
			found []*types.Var
			count = make(map[string]int)
		)
		for _, s := range level {
			for i := range s.NumFields() {
				v := s.Field(i)
				if shadow[v.Name()] {
					continue
				}
				count[v.Name()]++
				if v.Embedded() {
					if tn := embeddedName(v.Type()); tn != nil && !visited[tn] {
						visited[tn] = true
						if es, ok := tn.Type().Underlying().(*types.Struct); ok {
							next = append(next, es)
						}
					}
					continue
				}
				if keep(v, s.Tag(i)) {
					found = append(found, v)
				}
			}
		}
		for _, v := range found {
			if count[v.Name()] == 1 {
				out = append(out, v)
			}
		}
		for name := range count {
			shadow[name] = true
		}
		level = next
	}
	return out
}

// assigner renders the guarded assignment of one property.
type assigner struct {
	sc         *SynthesisContext
	recv       string
	param      string
	local      string
	returnsErr bool
}

// source reads the property: through the generated getter for properties
// declared on the target, through the runtime otherwise.
func (a *assigner) source(p property) *jen.Statement {
	if p.Direct {
		getter, _ := accessorNames(p.Name)
		return jen.Id(a.recv).Dot(getter).Call()
	}
	return a.sc.rt("Read").Types(jen.Id(a.sc.typeString(p.Type))).Call(jen.Id(a.recv), jen.Lit(p.Name))
}

// field returns the selector of destination field f.
func (a *assigner) field(f *types.Var) *jen.Statement {
	return jen.Id(a.param).Dot(f.Name())
}

func (a *assigner) assign(p property, f *types.Var) ([]jen.Code, bool) {
	var (
		sc   = a.sc
		src  = p.Type
		dst  = f.Type()
		srcP = pointer(src)
		dstP = pointer(dst)
	)
	switch {
	case types.AssignableTo(src, dst):
		return []jen.Code{a.field(f).Op("=").Add(a.source(p))}, true

	case srcP != nil && dstP == nil && !nillable(dst):
		conv, ok := a.conversion(p, f, srcP.Elem(), dst)
		if !ok {
			return nil, false
		}
		if a.returnsErr {
			return []jen.Code{
				jen.Id(a.local).Op(":=").Add(a.source(p)),
				jen.If(jen.Id(a.local).Op("==").Nil()).Block(
					jen.Return(jen.Op("&").Add(sc.rt("NilPropertyError")).Values(jen.Dict{
						jen.Id("Type"):     jen.Lit(sc.res.TypeName),
						jen.Id("Property"): jen.Lit(p.Name),
					})),
				),
				a.field(f).Op("=").Add(conv(jen.Op("*").Id(a.local))),
			}, true
		}
		required := jen.Op("*").Add(sc.rt("Required")).Call(a.source(p), jen.Lit(sc.res.TypeName), jen.Lit(p.Name))
		return []jen.Code{a.field(f).Op("=").Add(conv(required))}, true

	case srcP != nil && dstP == nil:
		// The destination holds nil itself: nil maps to nil.
		conv, ok := a.conversion(p, f, srcP.Elem(), dst)
		if !ok {
			return nil, false
		}
		return []jen.Code{
			jen.Id(a.local).Op(":=").Add(a.source(p)),
			jen.If(jen.Id(a.local).Op("==").Nil()).Block(
				a.field(f).Op("=").Nil(),
			).Else().Block(
				a.field(f).Op("=").Add(conv(jen.Op("*").Id(a.local))),
			),
		}, true

	case srcP == nil && dstP != nil:
		conv, ok := a.conversion(p, f, src, dstP.Elem())
		if !ok {
			return nil, false
		}
		return []jen.Code{
			jen.Id(a.local).Op(":=").Add(conv(a.source(p))),
			a.field(f).Op("=").Op("&").Id(a.local),
		}, true
	}
	conv, ok := a.conversion(p, f, src, dst)
	if !ok {
		return nil, false
	}
	return []jen.Code{a.field(f).Op("=").Add(conv(a.source(p)))}, true
}

// conversion returns a function wrapping a value of type from into a
// conversion to to. Assignable types convert silently, other differing
// types are reported as a mismatch, and types that cannot be converted are
// not mapped.
func (a *assigner) conversion(p property, f *types.Var, from, to types.Type) (func(jen.Code) *jen.Statement, bool) {
	if types.Identical(from, to) {
		return func(x jen.Code) *jen.Statement { return jen.Add(x) }, true
	}
	sc := a.sc
	switch {
	case types.AssignableTo(from, to):
	case types.ConvertibleTo(from, to):
		sc.warn(diag.SynTypeMismatch, "property type mismatch: %s.%s is %s but %s is %s; converted",
			sc.res.TypeName, p.Name, sc.typeString(p.Type), f.Name(), sc.typeString(f.Type()))
	default:
		sc.warn(diag.SynTypeMismatch, "property type mismatch: %s.%s is %s but %s is %s; not mapped",
			sc.res.TypeName, p.Name, sc.typeString(p.Type), f.Name(), sc.typeString(f.Type()))
		return nil, false
	}
	text := sc.typeString(to)
	return func(x jen.Code) *jen.Statement {
		if needsParens(to) {
			return jen.Parens(jen.Id(text)).Call(x)
		}
		return jen.Id(text).Call(x)
	}, true
}

// nillable reports whether a value of type t can be nil.
func nillable(t types.Type) bool {
	switch t.Underlying().(type) {
	case *types.Pointer, *types.Interface, *types.Map, *types.Slice, *types.Chan, *types.Signature:
		return true
	}
	return false
}

func pointer(t types.Type) *types.Pointer {
	p, _ := types.Unalias(t).(*types.Pointer)
	return p
}

// needsParens reports whether a conversion to t must parenthesize the type.
func needsParens(t types.Type) bool {
	switch u := types.Unalias(t).(type) {
	case *types.Pointer, *types.Signature:
		return true
	case *types.Chan:
		return u.Dir() == types.RecvOnly
	}
	return false
}
