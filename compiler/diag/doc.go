// Package diag defines the diagnostics side channel of the generator.
//
// Every pipeline stage reports findings as Diagnostic records instead of
// returning errors, so that one failing type never stops generation for the
// others. A Diagnostic carries:
//
//   - Severity: Info, Warning or Error.
//   - Code: stable identifier with a string form such as "PG2001".
//   - Type: the name of the type being generated, if any.
//   - Pos: the source position the finding refers to.
//   - Message: short, actionable text.
//
// Producers write to a Reporter; Bag collects diagnostics and provides
// deterministic ordering and de-duplication for output. Rendering for
// terminals lives in the command, not here.
package diag
