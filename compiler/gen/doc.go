// Package gen completes partial Go types with generated code.
//
// A partial type is a struct whose doc comment carries the
// //partialgen:partial directive, that embeds the marker base type
// (directly or through other embedded types) and that tags some of its
// fields as partial properties:
//
//	//partialgen:partial
//	//partialgen:method MapModifiedTo(dst *Record) error
//	type Customer struct {
//	    partialgen.Base
//
//	    Name string  `partial:""`
//	    Age  *int    `partial:""`
//	}
//
// For every such type the generator writes customer_partial.go next to
// it with a Get/Set accessor pair per property, the members missing from
// the companion interface (ICustomer) as the ICustomerGenerated fragment,
// and the bodies of declared mapper methods.
//
// # Pipeline
//
// The pipeline runs these stages for each type:
//
//	Nodes + IsCandidate   syntax only filter
//	        ↓
//	Resolve               CandidateResult: Empty, Success or Error
//	        ↓
//	Synthesize            accessors, interface fragment, mappers, imports
//	        ↓
//	Emit                  assemble, clean up, parse and format
//	        ↓
//	Writer                write changed files, prune stale ones
//
// Every stage reports findings as diag.Diagnostic values. A failure of one
// type never affects another: a failed resolution produces no file, a
// failed synthesis produces a fallback file naming the failure.
//
// # Error Handling
//
// The package uses structured error types:
//
//   - ResolveError: semantic analysis of a type failed
//   - SynthesisError: synthesis or emission of a type failed
//   - ConfigError: configuration errors
//   - GenerationError: load, cache and file system errors
//
// Only GenerationError and context errors are returned to callers; the
// per-type errors surface as diagnostics.
//
// # Configuration
//
// Configuration is done via the functional options pattern:
//
//	cfg, err := gen.NewConfig(
//	    gen.WithMarker("github.com/org/project/model.Entity"),
//	    gen.WithFoldNames(true),
//	    gen.WithCache(gen.NewMemoryCache()),
//	)
//	res, err := gen.New(cfg).Generate(ctx, prog.Packages...)
//	err = gen.NewWriter(cfg).WithPrune(true).Write(ctx, res)
//
// Stack traces are attached to failure diagnostics with WithDebug or in
// binaries built with the partialgen_debug tag.
package gen
