package diag_test

import (
	"go/token"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/partialgen/compiler/diag"
)

func pos(file string, line, col int) token.Position {
	return token.Position{Filename: file, Line: line, Column: col}
}

func TestSeverity(t *testing.T) {
	assert.Equal(t, "INFO", diag.SevInfo.String())
	assert.Equal(t, "WARNING", diag.SevWarning.String())
	assert.Equal(t, "ERROR", diag.SevError.String())
	assert.Equal(t, "UNKNOWN", diag.Severity(42).String())
	assert.True(t, diag.SevError > diag.SevWarning)
}

func TestCode(t *testing.T) {
	assert.Equal(t, "PG3003", diag.SynTypeMismatch.ID())
	assert.Equal(t, "PG2001", diag.SemAnalysisFailed.String())
	assert.Equal(t, "Mapped property type mismatch", diag.SynTypeMismatch.Title())
	assert.Equal(t, "Unknown error", diag.Code(9999).Title())
}

func TestFailure(t *testing.T) {
	t.Run("semantic without trace", func(t *testing.T) {
		ds := diag.Failure(diag.SemAnalysisFailed, "Customer", pos("a.go", 3, 6), "boom", "")
		require.Len(t, ds, 1)
		assert.Equal(t, diag.SevWarning, ds[0].Severity)
		assert.Equal(t, "semantic analysis failed for type Customer: boom", ds[0].Message)
		assert.Equal(t, "Customer", ds[0].Type)
	})
	t.Run("synthesis with trace", func(t *testing.T) {
		ds := diag.Failure(diag.SynFailed, "Customer", pos("a.go", 3, 6), "boom", "  goroutine 1\n  main.go:1\n")
		require.Len(t, ds, 2)
		assert.Equal(t, "synthesis failed for type Customer: boom", ds[0].Message)
		assert.Equal(t, diag.SevInfo, ds[1].Severity)
		assert.Equal(t, diag.SynStackTrace, ds[1].Code)
		assert.Contains(t, ds[1].Message, "goroutine 1")
	})
	t.Run("semantic trace code", func(t *testing.T) {
		ds := diag.Failure(diag.SemAnalysisFailed, "T", token.Position{}, "x", "trace")
		require.Len(t, ds, 2)
		assert.Equal(t, diag.SemStackTrace, ds[1].Code)
	})
}

func TestDiagnosticString(t *testing.T) {
	d := diag.Warning(diag.SynTypeMismatch, "Customer", pos("a.go", 3, 6), "property %q type mismatch", "Age")
	assert.Equal(t, `a.go:3:6: warning PG3003: property "Age" type mismatch`, d.String())

	d = diag.Info(diag.SynNoMatches, "", token.Position{}, "no matches")
	assert.Equal(t, "info PG3005: no matches", d.String())
}

func TestBag(t *testing.T) {
	b := diag.NewBag()
	assert.Zero(t, b.Len())
	assert.False(t, b.HasWarnings())

	b.Add(diag.Info(diag.SynNoMatches, "A", pos("b.go", 1, 1), "x"))
	assert.False(t, b.HasWarnings())
	b.Report(diag.Warning(diag.SynTypeMismatch, "A", pos("a.go", 1, 1), "y"))
	assert.True(t, b.HasWarnings())
	assert.False(t, b.HasErrors())
	assert.Equal(t, 1, b.Count(diag.SevWarning))

	b.Add(diag.New(diag.SevError, diag.EmitFailed, "A", pos("a.go", 1, 1), "z"))
	assert.True(t, b.HasErrors())
	assert.Equal(t, 3, b.Len())

	items := b.Items()
	items[0].Message = "mutated"
	assert.NotEqual(t, "mutated", b.Items()[0].Message)
}

func TestBagSort(t *testing.T) {
	b := diag.NewBag()
	b.Add(
		diag.Info(diag.SynNoMatches, "", pos("b.go", 1, 1), "4"),
		diag.Warning(diag.SynTypeMismatch, "", pos("a.go", 2, 1), "3"),
		diag.Info(diag.SynNoMatches, "", pos("a.go", 1, 5), "2"),
		diag.Warning(diag.SynTypeMismatch, "", pos("a.go", 1, 5), "1"),
		diag.Info(diag.SynInfo, "", pos("a.go", 1, 5), "1b"),
	)
	b.Sort()
	var got []string
	for _, d := range b.Items() {
		got = append(got, d.Message)
	}
	assert.Equal(t, []string{"1", "1b", "2", "3", "4"}, got)
}

func TestBagDedup(t *testing.T) {
	b := diag.NewBag()
	d := diag.Warning(diag.SynTypeMismatch, "A", pos("a.go", 1, 1), "same")
	b.Add(d, d, diag.Warning(diag.SynTypeMismatch, "A", pos("a.go", 2, 1), "same"))
	b.Dedup()
	assert.Equal(t, 2, b.Len())
}

func TestReporters(t *testing.T) {
	var got []diag.Diagnostic
	collect := diag.ReporterFunc(func(d diag.Diagnostic) { got = append(got, d) })
	bag := diag.NewBag()

	r := diag.MultiReporter{collect, nil, diag.MinSeverity(diag.SevWarning, bag)}
	diag.ReportAll(r, []diag.Diagnostic{
		diag.Info(diag.SynNoMatches, "", token.Position{}, "info"),
		diag.Warning(diag.SynTypeMismatch, "", token.Position{}, "warn"),
	})
	assert.Len(t, got, 2)
	assert.Equal(t, 1, bag.Len())
}

func TestParseSeverity(t *testing.T) {
	for in, want := range map[string]diag.Severity{
		"info":    diag.SevInfo,
		"WARNING": diag.SevWarning,
		" warn ":  diag.SevWarning,
		"Error":   diag.SevError,
	} {
		got, err := diag.ParseSeverity(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := diag.ParseSeverity("fatal")
	assert.EqualError(t, err, `unknown severity "fatal"`)
}
