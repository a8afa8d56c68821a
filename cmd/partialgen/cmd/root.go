// Package cmd implements the partialgen command line.
package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/syssam/partialgen/compiler/gen"
)

// ErrStale is returned by check when generated files are out of date.
var ErrStale = errors.New("generated files are out of date - run 'partialgen' to update")

// Exit codes.
const (
	ExitOK    = 0
	ExitStale = 1
	ExitError = 2
)

// ExitCode maps an Execute error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrStale):
		return ExitStale
	}
	return ExitError
}

// Execute runs the command line with the process arguments until an
// interrupt or termination signal.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
}

// NewRootCmd returns the partialgen command. Without a subcommand it
// generates the partial files of the given packages.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "partialgen [flags] [packages]",
		Short: "Generate accessors and mappers for partial types",
		Long: `Generate property accessors, interface fragments and change mappers for
struct types marked with //partialgen:partial.

A partial type embeds partialgen.Base, directly or through other embedded
types. Its fields tagged partial:"" become properties; a
//partialgen:method MapModifiedTo(dst *T) directive asks for a method copying
modified properties to T.

Configuration is read from flags, PARTIALGEN_* environment variables and
.partialgen.yaml in the working directory, in that order of precedence.

Examples:
  partialgen                          # Generate for ./...
  partialgen ./model/...              # Specific packages
  partialgen --dry-run --prune        # Show what would change
  partialgen check                    # Fail when generated files are stale
  partialgen watch                    # Regenerate on change`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, args, stdout, stderr)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	addFlags(root.PersistentFlags())
	root.AddCommand(
		newCheckCmd(stdout, stderr),
		newWatchCmd(stdout, stderr),
	)
	return root
}

func preparePass(cmd *cobra.Command, args []string, stdout, stderr io.Writer) (*pass, error) {
	s, err := loadSettings(cmd.Flags())
	if err != nil {
		return nil, err
	}
	return newPass(s, args, stdout, stderr)
}

func runGenerate(cmd *cobra.Command, args []string, stdout, stderr io.Writer) error {
	p, err := preparePass(cmd, args, stdout, stderr)
	if err != nil {
		return err
	}
	defer p.sync()
	_, err = p.generate(cmd.Context())
	return err
}

// generate runs one pass and writes its outputs.
func (p *pass) generate(ctx context.Context) (*gen.Result, error) {
	res, err := p.run(ctx)
	if err != nil {
		return nil, err
	}
	w := p.writer()
	if err := w.Write(ctx, res); err != nil {
		return nil, err
	}
	m := w.Metrics()
	switch {
	case !p.settings.DryRun:
		p.out.success("%d types: %d written, %d unchanged, %d removed",
			len(res.Outputs), m.FilesWritten, m.FilesUnchanged, m.FilesRemoved)
	case len(m.Changed) == 0:
		p.out.success("Nothing to change")
	default:
		p.out.failure("%d files would change:", len(m.Changed))
		p.out.list(m.Changed)
	}
	return res, nil
}

func newCheckCmd(stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "check [packages]",
		Short: "Check if generated files are up to date",
		Long: `Check if the generated files match what partialgen would generate now.
Stale generated files of types that no longer qualify count as changes.

Exit codes:
  0 - Generated files are up to date
  1 - Generated files are out of date
  2 - Error during check`,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := preparePass(cmd, args, stdout, stderr)
			if err != nil {
				return err
			}
			defer p.sync()
			return p.check(cmd.Context())
		},
	}
}

// check runs one pass without writing and reports the files it would
// change.
func (p *pass) check(ctx context.Context) error {
	res, err := p.run(ctx)
	if err != nil {
		return err
	}
	changed, err := p.writer().Check(res)
	if err != nil {
		return err
	}
	if len(changed) == 0 {
		p.out.success("Generated files are up to date")
		return nil
	}
	p.out.failure("Generated files are out of date:")
	p.out.list(changed)
	return ErrStale
}

func newWatchCmd(stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [packages]",
		Short: "Regenerate partial files whenever sources change",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := preparePass(cmd, args, stdout, stderr)
			if err != nil {
				return err
			}
			defer p.sync()
			return p.watch(cmd.Context())
		},
	}
}
