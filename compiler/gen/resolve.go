package gen

import (
	"go/types"

	"github.com/cockroachdb/errors"

	"github.com/syssam/partialgen/compiler/load"
)

// testHookResolve, when set, runs before a candidate is resolved.
var testHookResolve func(n Node)

// Resolve binds a candidate to its semantic model and decides whether it
// qualifies for generation: the type must reach the marker base type
// through its chain of embedded fields. Errors and panics are converted
// into a KindError result and never propagate.
func Resolve(cfg *Config, c *load.Context, n Node) (res CandidateResult) {
	name := n.Name()
	pos := c.Position(n.Spec.Name.Pos())
	defer func() {
		if v := recover(); v != nil {
			err := recovered(v)
			res = Failed(name, message(err), trace(err, cfg.Debug), pos)
		}
	}()
	if testHookResolve != nil {
		testHookResolve(n)
	}
	res, err := resolve(cfg, c, n)
	if err != nil {
		return Failed(name, message(err), trace(err, cfg.Debug), pos)
	}
	return res
}

func resolve(cfg *Config, c *load.Context, n Node) (CandidateResult, error) {
	if c.Info == nil || c.Types == nil {
		return Empty(), nil
	}
	tn, ok := c.Info.Defs[n.Spec.Name].(*types.TypeName)
	if !ok || tn == nil || tn.IsAlias() {
		return Empty(), nil
	}
	if !n.HasDirective(DirectivePartial) {
		return Empty(), nil
	}
	if _, ok := tn.Type().Underlying().(*types.Struct); !ok {
		return Empty(), nil
	}
	chain := embeddedChain(tn)
	if !reachesMarker(cfg, chain) {
		return Empty(), nil
	}
	if n.Spec.TypeParams != nil {
		return Empty(), errors.WithStack(NewResolveError(tn.Name(), "generic partial types are not supported", nil))
	}
	return Succeeded(n, c, tn, fingerprint(cfg, c, n, tn, chain)), nil
}

// embeddedChain returns the types reachable from tn through embedded
// fields, breadth first. Pointer embeddings are followed and every type is
// visited once, so cyclic embeddings through pointers terminate.
func embeddedChain(tn *types.TypeName) []*types.TypeName {
	var (
		chain   []*types.TypeName
		visited = map[*types.TypeName]bool{tn: true}
		queue   = []*types.TypeName{tn}
	)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		st, ok := cur.Type().Underlying().(*types.Struct)
		if !ok {
			continue
		}
		for i := range st.NumFields() {
			f := st.Field(i)
			if !f.Embedded() {
				continue
			}
			emb := embeddedName(f.Type())
			if emb == nil || visited[emb] {
				continue
			}
			visited[emb] = true
			chain = append(chain, emb)
			queue = append(queue, emb)
		}
	}
	return chain
}

// embeddedName returns the named type of an embedded field type.
func embeddedName(t types.Type) *types.TypeName {
	t = types.Unalias(t)
	if p, ok := t.(*types.Pointer); ok {
		t = types.Unalias(p.Elem())
	}
	if named, ok := t.(*types.Named); ok {
		return named.Origin().Obj()
	}
	return nil
}

func reachesMarker(cfg *Config, chain []*types.TypeName) bool {
	for _, tn := range chain {
		if qualifiedName(tn) == cfg.Marker {
			return true
		}
	}
	return false
}

// qualifiedName returns "import/path.Name" for package level types.
func qualifiedName(tn *types.TypeName) string {
	if tn.Pkg() == nil {
		return tn.Name()
	}
	return tn.Pkg().Path() + "." + tn.Name()
}
