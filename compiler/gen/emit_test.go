package gen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanup(t *testing.T) {
	in := "package p\n\nimport (\n)\n\n\n\nfunc f(a int) {}\n\n\n\nvar x = g(1)\n"
	assert.Equal(t, "package p\n\nfunc f(a int) {}\n\nvar x = g(1)\n", string(cleanup(in)))

	tagged := "type T struct {\n\tF struct {\n\t\tX int `csv:\"a,)\"`\n\t}\n}\n"
	assert.Equal(t, tagged, string(cleanup(tagged)), "source text is kept verbatim")
}

func TestRoundTrip(t *testing.T) {
	set := NewImportSet()
	set.Add("", "example.com/used")
	set.Add("", "example.com/unused")
	set.Add("alias", "example.com/aliased")
	set.Add("", "gopkg.in/yaml.v3")

	src := []byte(`// Code generated by partialgen. DO NOT EDIT.

package p

import (
	"example.com/used"
	"example.com/unused"
	alias "example.com/aliased"
	"gopkg.in/yaml.v3"
)

func   F() used.T { return used.T{} }
func G() alias.T { var n yaml.Node; _ = n; return alias.T{} }
`)
	out, err := roundTrip("p/x_partial.go", src, set)
	require.NoError(t, err)
	got := string(out)
	assert.Contains(t, got, `"example.com/used"`)
	assert.Contains(t, got, `alias "example.com/aliased"`)
	assert.Contains(t, got, `"gopkg.in/yaml.v3"`)
	assert.NotContains(t, got, "unused")
	assert.Contains(t, got, "func F() used.T { return used.T{} }")
	assert.Contains(t, got, "// Code generated by partialgen. DO NOT EDIT.\n")

	_, err = roundTrip("p/x_partial.go", []byte("package p\nfunc {"), set)
	assert.Error(t, err)
}

func TestFallback(t *testing.T) {
	c := loadShop(t, "/src/shop", map[string]string{"customer.go": customerSrc})
	n := Nodes(c)[0]

	out := Fallback(MustNewConfig(), c, n, "line one\n\tline two")
	assert.True(t, out.Fallback)
	assert.Equal(t, "/src/shop/customer_partial.go", out.Path)
	assert.Equal(t, "Customer", out.Type)
	assert.Equal(t, DefaultHeader+"\n\npackage shop\n\n// partialgen: synthesis failed for type Customer: line one line two\n", string(out.Source))
}

func TestOutputPath(t *testing.T) {
	c := loadShop(t, "/src/shop", map[string]string{"types.go": `package shop

type OrderLine struct{}
`})
	n := Nodes(c)[0]
	assert.Equal(t, "/src/shop/order_line_partial.go", OutputPath(MustNewConfig(), c, n))
	assert.Equal(t, "/src/shop/order_line.gen.go", OutputPath(MustNewConfig(WithFileSuffix(".gen.go")), c, n))
}

func TestEmitFailureKeepsRawSource(t *testing.T) {
	c := loadShop(t, "", map[string]string{"customer.go": customerSrc})
	res := Resolve(MustNewConfig(), c, Nodes(c)[0])
	require.True(t, res.IsSuccess())

	sc, err := Synthesize(MustNewConfig(), res)
	require.NoError(t, err)
	sc.accessors.WriteString("func broken( {\n")

	out, err := Emit(sc)
	require.Error(t, err)
	assert.True(t, IsSynthesisError(err))
	assert.Contains(t, string(out.Raw), "func broken( {")
	assert.Nil(t, out.Source)
}
