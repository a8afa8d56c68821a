package gen

import (
	"go/ast"
	"go/token"
	"strings"

	"github.com/syssam/partialgen/compiler/load"
)

// Directives recognized on type declarations.
const (
	directivePrefix = "//partialgen:"
	// DirectivePartial marks a struct type or companion interface as partial.
	DirectivePartial = "partial"
	// DirectiveMethod declares a partial method: //partialgen:method Name(params) [results].
	DirectiveMethod = "method"
)

// PartialTag is the struct tag key marking a field as a partial property.
const PartialTag = "partial"

// Node is a type declaration in a loaded file.
type Node struct {
	File *ast.File
	Decl *ast.GenDecl
	Spec *ast.TypeSpec
}

// Name returns the declared type name.
func (n Node) Name() string {
	return n.Spec.Name.Name
}

// Docs returns the doc comments attached to the type: the spec doc and, for
// an ungrouped declaration, the declaration doc.
func (n Node) Docs() []*ast.Comment {
	var docs []*ast.Comment
	if n.Decl != nil && !n.Decl.Lparen.IsValid() && n.Decl.Doc != nil {
		docs = append(docs, n.Decl.Doc.List...)
	}
	if n.Spec.Doc != nil {
		docs = append(docs, n.Spec.Doc.List...)
	}
	return docs
}

// Directives returns the arguments of every //partialgen:<verb> directive
// on the type, in source order. A directive without arguments yields "".
func (n Node) Directives(verb string) []string {
	var args []string
	for _, c := range n.Docs() {
		v, arg, ok := directive(c.Text)
		if ok && v == verb {
			args = append(args, arg)
		}
	}
	return args
}

// HasDirective reports whether the type carries the given directive.
func (n Node) HasDirective(verb string) bool {
	return len(n.Directives(verb)) > 0
}

// directive splits "//partialgen:verb args" into its verb and arguments.
// CommentGroup.Text drops directives, so the raw comment text is used.
func directive(text string) (verb, args string, ok bool) {
	rest, ok := strings.CutPrefix(text, directivePrefix)
	if !ok {
		return "", "", false
	}
	verb, args, _ = strings.Cut(rest, " ")
	if verb == "" {
		return "", "", false
	}
	return verb, strings.TrimSpace(args), true
}

// Nodes returns the type declarations of a package in source order.
// Generated files are skipped.
func Nodes(c *load.Context) []Node {
	var nodes []Node
	for _, f := range c.Files {
		if load.IsGenerated(f) {
			continue
		}
		for _, d := range f.Decls {
			gd, ok := d.(*ast.GenDecl)
			if !ok || gd.Tok != token.TYPE {
				continue
			}
			for _, s := range gd.Specs {
				if ts, ok := s.(*ast.TypeSpec); ok {
					nodes = append(nodes, Node{File: f, Decl: gd, Spec: ts})
				}
			}
		}
	}
	return nodes
}
