package gen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsCandidate(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want bool
	}{
		{
			name: "partial struct with partial field",
			src: `package p
//partialgen:partial
type T struct {
	Name string ` + "`partial:\"\"`" + `
}`,
			want: true,
		},
		{
			name: "directive on grouped spec",
			src: `package p
type (
	//partialgen:partial
	T struct {
		Name string ` + "`json:\"name\" partial:\"\"`" + `
	}
)`,
			want: true,
		},
		{
			name: "directive on group does not apply to specs",
			src: `package p
//partialgen:partial
type (
	T struct {
		Name string ` + "`partial:\"\"`" + `
	}
)`,
			want: false,
		},
		{
			name: "no directive",
			src: `package p
type T struct {
	Name string ` + "`partial:\"\"`" + `
}`,
			want: false,
		},
		{
			name: "directive text in prose is ignored",
			src: `package p
// T is partialgen:partial but not marked.
type T struct {
	Name string ` + "`partial:\"\"`" + `
}`,
			want: false,
		},
		{
			name: "no partial field",
			src: `package p
//partialgen:partial
type T struct {
	Name string ` + "`json:\"name\"`" + `
}`,
			want: false,
		},
		{
			name: "embedded field with tag is not a property",
			src: `package p
//partialgen:partial
type T struct {
	Base ` + "`partial:\"\"`" + `
}`,
			want: false,
		},
		{
			name: "not a struct",
			src: `package p
//partialgen:partial
type T interface{ M() }`,
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCandidate(nodeOf(t, tt.src, "T")))
		})
	}
}

func TestDirectives(t *testing.T) {
	n := nodeOf(t, `package p
// T is a type.
//
//partialgen:partial
//partialgen:method MapModifiedTo(dst *R) error
//partialgen:method   Other()
//partialgen:
type T struct{}`, "T")

	assert.True(t, n.HasDirective(DirectivePartial))
	assert.Equal(t, []string{""}, n.Directives(DirectivePartial))
	assert.Equal(t, []string{"MapModifiedTo(dst *R) error", "Other()"}, n.Directives(DirectiveMethod))
	assert.False(t, n.HasDirective("unknown"))
	assert.Equal(t, "T", n.Name())
}
