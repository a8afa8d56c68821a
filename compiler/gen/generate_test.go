package gen

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/partialgen/compiler/diag"
	"github.com/syssam/partialgen/compiler/load"
)

func twoTypes() map[string]string {
	return map[string]string{
		"foo.go": strings.ReplaceAll(customerSrc, "Customer", "Foo"),
		"bar.go": strings.ReplaceAll(customerSrc, "Customer", "Bar"),
	}
}

func TestGenerate(t *testing.T) {
	files := twoTypes()
	files["plain.go"] = `package shop

type Plain struct{ Name string }

//partialgen:partial
type Orphan struct {
	Name string ` + tag(`partial:""`) + `
}
`
	res := generate(t, MustNewConfig(WithWorkers(2)), files)

	require.Len(t, res.Outputs, 2)
	assert.Equal(t, "Bar", res.Outputs[0].Type, "outputs follow source order")
	assert.Equal(t, "Foo", res.Outputs[1].Type)
	assert.Equal(t, Stats{
		Packages:   1,
		Candidates: 3,
		Generated:  2,
		Skipped:    1,
		Duration:   res.Stats.Duration,
	}, res.Stats)
	assert.Equal(t, []string{"example.com/shop"}, res.Dirs)
	assert.False(t, res.HasWarnings())
}

func TestGenerateResolvePanicIsIsolated(t *testing.T) {
	testHookResolve = func(n Node) {
		if n.Name() == "Foo" {
			panic("boom")
		}
	}
	defer func() { testHookResolve = nil }()

	res := generate(t, MustNewConfig(WithDebug(true)), twoTypes())

	assert.False(t, hasOutput(res, "Foo"))
	assert.True(t, hasOutput(res, "Bar"))
	assert.Equal(t, []string{"example.com/shop/foo_partial.go"}, res.Keep)
	assert.Equal(t, 1, res.Stats.Failed)
	assert.True(t, res.HasWarnings())

	var failure, stack bool
	for _, d := range res.Diagnostics {
		switch d.Code {
		case diag.SemAnalysisFailed:
			failure = true
			assert.Equal(t, "semantic analysis failed for type Foo: boom", d.Message)
			assert.Equal(t, "Foo", d.Type)
			assert.Equal(t, "example.com/shop/foo.go", d.Pos.Filename)
		case diag.SemStackTrace:
			stack = true
			assert.Contains(t, d.Message, "Foo")
			assert.Contains(t, d.Message, "boom")
		}
	}
	assert.True(t, failure)
	assert.True(t, stack)
}

func TestGenerateCache(t *testing.T) {
	cache := NewMemoryCache()
	cfg := MustNewConfig(WithCache(cache))

	first := generate(t, cfg, twoTypes())
	assert.Equal(t, 2, first.Stats.Generated)
	assert.Zero(t, first.Stats.Cached)
	assert.Equal(t, 2, cache.Len())

	testHookSynthesize = func(CandidateResult) { panic("synthesis must be skipped on a cache hit") }
	defer func() { testHookSynthesize = nil }()

	second := generate(t, cfg, twoTypes())
	assert.Equal(t, 2, second.Stats.Cached)
	assert.Zero(t, second.Stats.Generated)
	require.Len(t, second.Outputs, 2)
	for i, out := range second.Outputs {
		assert.True(t, out.Cached)
		assert.Equal(t, first.Outputs[i].Source, out.Source)
		assert.Equal(t, first.Outputs[i].Path, out.Path)
	}

	testHookSynthesize = nil
	changed := twoTypes()
	changed["foo.go"] = strings.Replace(changed["foo.go"], "Name string", "Name int", 1)
	third := generate(t, cfg, changed)
	assert.Equal(t, 1, third.Stats.Cached)
	assert.Equal(t, 1, third.Stats.Generated)
	assert.Contains(t, string(outputOf(t, third, "Foo").Source), "GetName() int")
}

func TestGenerateCachesDiagnostics(t *testing.T) {
	cache := NewMemoryCache()
	cfg := MustNewConfig(WithCache(cache))
	files := mapperShop("MapModifiedTo(dst *Other)")
	files["other.go"] = "package shop\n\ntype Other struct{ C int }\n"

	first := generate(t, cfg, files)
	second := generate(t, cfg, files)
	assert.Equal(t, 1, second.Stats.Cached)
	assert.Equal(t, first.Diagnostics, second.Diagnostics)
	assert.NotEmpty(t, second.Diagnostics)
}

func TestGenerateCacheFollowsReferencedTypes(t *testing.T) {
	cache := NewMemoryCache()
	cfg := MustNewConfig(WithCache(cache))
	files := func(money string) map[string]string {
		return map[string]string{
			"customer.go": `package shop

import "github.com/syssam/partialgen"

//partialgen:partial
//partialgen:method MapModifiedTo(dst *Record)
type Customer struct {
	partialgen.Base

	Total Money ` + tag(`partial:""`) + `
}

type Record struct{ Total int }
`,
			"money.go": "package shop\n\n" + money,
		}
	}

	first := generate(t, cfg, files("type Money int\n"))
	assert.Contains(t, string(outputOf(t, first, "Customer").Source), "dst.Total = int(c.GetTotal())")

	second := generate(t, cfg, files("type Money struct{ Cents int }\n"))
	out := outputOf(t, second, "Customer")
	assert.False(t, out.Cached)
	assert.NotContains(t, string(out.Source), "MapModifiedTo")
}

// ctxCache fails writes made with a done context.
type ctxCache struct {
	*MemoryCache
}

func (c ctxCache) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.MemoryCache.Set(ctx, key, value)
}

func TestGenerateStoresWithCallerContext(t *testing.T) {
	cache := ctxCache{NewMemoryCache()}
	res := generate(t, MustNewConfig(WithCache(cache)), twoTypes())
	assert.Equal(t, 2, res.Stats.Generated)
	assert.Equal(t, 2, cache.Len())
}

func TestGenerateFallbackIsNotCached(t *testing.T) {
	cache := NewMemoryCache()
	testHookSynthesize = func(CandidateResult) { panic("boom") }
	defer func() { testHookSynthesize = nil }()

	res := generate(t, MustNewConfig(WithCache(cache)), twoTypes())
	assert.Equal(t, 2, res.Stats.Failed)
	assert.Zero(t, cache.Len())
}

func TestGenerateReportsTypeErrors(t *testing.T) {
	files := map[string]string{
		"customer.go": customerSrc,
		"broken.go":   "package shop\n\nvar x int = \"s\"\n",
	}
	res := generate(t, MustNewConfig(), files)

	assert.True(t, hasOutput(res, "Customer"))
	require.NotEmpty(t, res.Diagnostics)
	d := res.Diagnostics[0]
	assert.Equal(t, diag.LoadTypeErrors, d.Code)
	assert.Equal(t, diag.SevInfo, d.Severity)
	assert.Equal(t, "example.com/shop/broken.go", d.Pos.Filename)
}

func TestGenerateDuplicateOutputPath(t *testing.T) {
	files := map[string]string{
		"a.go": strings.ReplaceAll(customerSrc, "Customer", "OrderLine"),
		"b.go": strings.ReplaceAll(customerSrc, "Customer", "Order_Line"),
	}
	res := generate(t, MustNewConfig(), files)
	require.Len(t, res.Outputs, 1)
	assert.Equal(t, "OrderLine", res.Outputs[0].Type)
	assert.Equal(t, "example.com/shop/order_line_partial.go", res.Outputs[0].Path)
	assert.True(t, res.HasWarnings())
	assert.Contains(t, messages(res), "output example.com/shop/order_line_partial.go already generated for type OrderLine; type Order_Line skipped")
}

func TestGenerateCanceled(t *testing.T) {
	c := loadShop(t, "", twoTypes())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(nil).Generate(ctx, c)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerateSkipsGeneratedFiles(t *testing.T) {
	files := map[string]string{
		"customer.go": customerSrc,
		"other_partial.go": DefaultHeader + `

package shop

import "github.com/syssam/partialgen"

//partialgen:partial
type Other struct {
	partialgen.Base
	Name string ` + tag(`partial:""`) + `
}
`,
	}
	res := generate(t, MustNewConfig(), files)
	assert.True(t, hasOutput(res, "Customer"))
	assert.False(t, hasOutput(res, "Other"))
	assert.Equal(t, 1, res.Stats.Candidates)
}

func TestGenerateMultiplePackages(t *testing.T) {
	srcs := []load.Source{
		runtimeSource(),
		{Path: "example.com/a", Files: map[string]string{"customer.go": strings.Replace(customerSrc, "package shop", "package a", 1)}},
		{Path: "example.com/b", Files: map[string]string{"customer.go": strings.Replace(customerSrc, "package shop", "package b", 1)}},
	}
	prog, err := load.Sources(srcs...)
	require.NoError(t, err)

	res, err := New(MustNewConfig()).Generate(context.Background(), prog.Packages...)
	require.NoError(t, err)
	require.Len(t, res.Outputs, 2)
	assert.Equal(t, "example.com/a/customer_partial.go", res.Outputs[0].Path)
	assert.Contains(t, string(res.Outputs[0].Source), "package a\n")
	assert.Equal(t, "example.com/b/customer_partial.go", res.Outputs[1].Path)
	assert.Equal(t, 3, res.Stats.Packages)
}
