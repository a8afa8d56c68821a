package gen

import (
	"fmt"
	"regexp"
	"runtime"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

// Defaults used by NewConfig.
const (
	// DefaultRuntime is the import path of the runtime package generated
	// code calls into.
	DefaultRuntime = "github.com/syssam/partialgen"
	// DefaultMarker is the qualified name of the marker base type.
	DefaultMarker = DefaultRuntime + ".Base"
	// DefaultHeader is the first line of every generated file.
	DefaultHeader = "// Code generated by partialgen. DO NOT EDIT."
	// DefaultInterfaceFormat names the companion interface of a type.
	DefaultInterfaceFormat = "I%s"
	// DefaultFragmentFormat names the generated interface fragment of a type.
	DefaultFragmentFormat = "I%sGenerated"
	// DefaultMapperName is the reserved name of the partial mapper method.
	DefaultMapperName = "MapModifiedTo"
	// DefaultFileSuffix is appended to the snake cased type name to build
	// the name of the generated file.
	DefaultFileSuffix = "_partial.go"
)

// generatedRx matches the header recognized by the go command as marking a
// generated file.
var generatedRx = regexp.MustCompile(`^// Code generated .* DO NOT EDIT\.$`)

// Config holds the generator configuration.
type Config struct {
	// Marker is the qualified name ("import/path.Name") of the base type a
	// partial type must embed, directly or through other embedded types.
	Marker string
	// Runtime is the import path of the package generated code calls into.
	Runtime string
	// Header is the first line of generated files.
	Header string
	// InterfaceFormat and FragmentFormat are fmt formats applied to the type
	// name to get the companion interface and the generated fragment names.
	InterfaceFormat string
	FragmentFormat  string
	// MapperName is the only partial method name that gets a body.
	MapperName string
	// FileSuffix is the suffix of generated file names.
	FileSuffix string
	// Debug attaches stack traces to failure diagnostics.
	Debug bool
	// FoldNames matches mapper properties and destination fields
	// case-insensitively.
	FoldNames bool
	// HaltOnInvalidMapper stops scanning the partial methods of a type at the
	// first mapper that does not take exactly one parameter.
	HaltOnInvalidMapper bool
	// Workers bounds the number of types processed in parallel.
	Workers int
	// Cache memoizes synthesized files across runs. Nil disables caching.
	Cache Cache
	// Logger receives progress logs. Defaults to a no-op logger.
	Logger *zap.Logger
}

// Option configures code generation.
type Option func(*Config) error

// WithMarker sets the qualified name of the marker base type,
// for example "github.com/org/project/model.Entity".
func WithMarker(marker string) Option {
	return func(c *Config) error {
		i := strings.LastIndex(marker, ".")
		if i <= 0 || i == len(marker)-1 {
			return NewConfigError("Marker", marker, "marker must be a qualified name like import/path.Name")
		}
		c.Marker = marker
		return nil
	}
}

// WithRuntime sets the import path of the runtime package.
func WithRuntime(path string) Option {
	return func(c *Config) error {
		if path == "" {
			return NewConfigError("Runtime", nil, "runtime cannot be empty")
		}
		c.Runtime = path
		return nil
	}
}

// WithHeader sets the file header comment. It must keep the
// "// Code generated ... DO NOT EDIT." form so generated files are
// recognized and skipped on the next run.
func WithHeader(header string) Option {
	return func(c *Config) error {
		if !generatedRx.MatchString(header) {
			return NewConfigError("Header", header, `header must match "// Code generated ... DO NOT EDIT."`)
		}
		c.Header = header
		return nil
	}
}

// WithInterfaceFormat sets the format of companion interface names.
func WithInterfaceFormat(format string) Option {
	return func(c *Config) error {
		if err := checkFormat(format); err != nil {
			return NewConfigError("InterfaceFormat", format, err.Error())
		}
		c.InterfaceFormat = format
		return nil
	}
}

// WithFragmentFormat sets the format of generated interface fragment names.
func WithFragmentFormat(format string) Option {
	return func(c *Config) error {
		if err := checkFormat(format); err != nil {
			return NewConfigError("FragmentFormat", format, err.Error())
		}
		c.FragmentFormat = format
		return nil
	}
}

// WithMapperName sets the reserved mapper method name.
func WithMapperName(name string) Option {
	return func(c *Config) error {
		if name == "" {
			return NewConfigError("MapperName", nil, "mapper name cannot be empty")
		}
		c.MapperName = name
		return nil
	}
}

// WithFileSuffix sets the suffix of generated file names.
func WithFileSuffix(suffix string) Option {
	return func(c *Config) error {
		if !strings.HasSuffix(suffix, ".go") || strings.HasSuffix(suffix, "_test.go") || strings.ContainsRune(suffix, '/') {
			return NewConfigError("FileSuffix", suffix, "suffix must end in .go and must not name a test file")
		}
		c.FileSuffix = suffix
		return nil
	}
}

// WithDebug attaches stack traces to failure diagnostics.
func WithDebug(debug bool) Option {
	return func(c *Config) error {
		c.Debug = debug
		return nil
	}
}

// WithFoldNames enables case-insensitive mapper matching.
func WithFoldNames(fold bool) Option {
	return func(c *Config) error {
		c.FoldNames = fold
		return nil
	}
}

// WithHaltOnInvalidMapper stops the partial method scan of a type at the
// first mapper with a wrong parameter count.
func WithHaltOnInvalidMapper(halt bool) Option {
	return func(c *Config) error {
		c.HaltOnInvalidMapper = halt
		return nil
	}
}

// WithWorkers sets the number of parallel workers.
func WithWorkers(n int) Option {
	return func(c *Config) error {
		if n < 0 {
			return NewConfigError("Workers", n, "workers cannot be negative")
		}
		if n == 0 {
			n = runtime.GOMAXPROCS(0)
		}
		c.Workers = n
		return nil
	}
}

// WithCache sets the incremental cache.
func WithCache(cache Cache) Option {
	return func(c *Config) error {
		c.Cache = cache
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) error {
		if l == nil {
			return NewConfigError("Logger", nil, "logger cannot be nil")
		}
		c.Logger = l
		return nil
	}
}

func checkFormat(format string) error {
	if strings.Count(format, "%s") != 1 || strings.Count(format, "%") != 1 {
		return errors.New("format must contain exactly one %s verb")
	}
	return nil
}

// Apply applies options to the config.
// It returns the first error encountered.
func (c *Config) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}
	return nil
}

// ApplyAll applies options and collects all errors.
// Returns a joined error if any options failed.
func (c *Config) ApplyAll(opts ...Option) error {
	var errs []error
	for _, opt := range opts {
		if err := opt(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewConfig creates a new Config with defaults and the given options.
func NewConfig(opts ...Option) (*Config, error) {
	c := &Config{
		Marker:          DefaultMarker,
		Runtime:         DefaultRuntime,
		Header:          DefaultHeader,
		InterfaceFormat: DefaultInterfaceFormat,
		FragmentFormat:  DefaultFragmentFormat,
		MapperName:      DefaultMapperName,
		FileSuffix:      DefaultFileSuffix,
		Debug:           debugDefault,
		Workers:         runtime.GOMAXPROCS(0),
		Logger:          zap.NewNop(),
	}
	if err := c.Apply(opts...); err != nil {
		return nil, err
	}
	return c, nil
}

// MustNewConfig creates a new Config with the given options.
// It panics if any option fails.
func MustNewConfig(opts ...Option) *Config {
	c, err := NewConfig(opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// InterfaceName returns the companion interface name of a type.
func (c *Config) InterfaceName(typeName string) string {
	return fmt.Sprintf(c.InterfaceFormat, typeName)
}

// FragmentName returns the generated interface fragment name of a type.
func (c *Config) FragmentName(typeName string) string {
	return fmt.Sprintf(c.FragmentFormat, typeName)
}

// MarkerPath splits Marker into its package path and type name.
func (c *Config) MarkerPath() (pkg, name string) {
	i := strings.LastIndex(c.Marker, ".")
	if i < 0 {
		return "", c.Marker
	}
	return c.Marker[:i], c.Marker[i+1:]
}

// Signature identifies the settings that change generated output. It is
// part of every cache key.
func (c *Config) Signature() string {
	return strings.Join([]string{
		c.Marker,
		c.Runtime,
		c.Header,
		c.InterfaceFormat,
		c.FragmentFormat,
		c.MapperName,
		c.FileSuffix,
		fmt.Sprint(c.Debug, c.FoldNames, c.HaltOnInvalidMapper),
	}, "\x00")
}

func (c *Config) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}
