package gen

import (
	"go/ast"
	"reflect"
	"strconv"
)

// IsCandidate reports whether a type declaration is worth semantic analysis:
// it carries the partial directive, is a struct type and declares at least
// one partial property. It inspects syntax only.
func IsCandidate(n Node) bool {
	if n.Spec == nil || !n.HasDirective(DirectivePartial) {
		return false
	}
	st, ok := n.Spec.Type.(*ast.StructType)
	if !ok {
		return false
	}
	return len(partialFields(st)) > 0
}

// partialFields returns the named fields of st tagged as partial properties.
func partialFields(st *ast.StructType) []*ast.Field {
	if st.Fields == nil {
		return nil
	}
	var fields []*ast.Field
	for _, f := range st.Fields.List {
		if len(f.Names) > 0 && hasPartialTag(f) {
			fields = append(fields, f)
		}
	}
	return fields
}

func hasPartialTag(f *ast.Field) bool {
	if f.Tag == nil {
		return false
	}
	tag, err := strconv.Unquote(f.Tag.Value)
	if err != nil {
		return false
	}
	return isPartialTag(tag)
}

func isPartialTag(tag string) bool {
	_, ok := reflect.StructTag(tag).Lookup(PartialTag)
	return ok
}
