package cmd

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/syssam/partialgen/compiler/diag"
	"github.com/syssam/partialgen/compiler/gen"
)

// EnvPrefix prefixes the environment variables read by the command.
const EnvPrefix = "PARTIALGEN"

// ConfigName is the base name of the project configuration file looked up
// in the working directory.
const ConfigName = ".partialgen"

// Settings is the merged command configuration. Precedence, highest first:
// flags, PARTIALGEN_* environment variables, the configuration file,
// defaults.
type Settings struct {
	Dir      string        `mapstructure:"dir"`
	Tags     []string      `mapstructure:"tags"`
	Workers  int           `mapstructure:"workers"`
	Cache    string        `mapstructure:"cache"`
	DryRun   bool          `mapstructure:"dry-run"`
	Prune    bool          `mapstructure:"prune"`
	Report   string        `mapstructure:"report"`
	JSONLog  bool          `mapstructure:"json-log"`
	NoColor  bool          `mapstructure:"no-color"`
	Debug    bool          `mapstructure:"debug"`
	Debounce time.Duration `mapstructure:"debounce"`
	// MinSeverity hides printed diagnostics below this severity.
	MinSeverity string `mapstructure:"min-severity"`

	// Generator settings, only read from the environment and the
	// configuration file.
	Marker              string `mapstructure:"marker"`
	Runtime             string `mapstructure:"runtime"`
	Header              string `mapstructure:"header"`
	InterfaceFormat     string `mapstructure:"interface-format"`
	FragmentFormat      string `mapstructure:"fragment-format"`
	MapperName          string `mapstructure:"mapper-name"`
	FileSuffix          string `mapstructure:"file-suffix"`
	FoldNames           bool   `mapstructure:"fold-names"`
	HaltOnInvalidMapper bool   `mapstructure:"halt-on-invalid-mapper"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("dir", ".")
	v.SetDefault("tags", []string{})
	v.SetDefault("workers", 0)
	v.SetDefault("cache", "")
	v.SetDefault("dry-run", false)
	v.SetDefault("prune", false)
	v.SetDefault("report", "")
	v.SetDefault("json-log", false)
	v.SetDefault("no-color", false)
	v.SetDefault("debug", false)
	v.SetDefault("debounce", 300*time.Millisecond)
	v.SetDefault("min-severity", "info")

	v.SetDefault("marker", "")
	v.SetDefault("runtime", "")
	v.SetDefault("header", "")
	v.SetDefault("interface-format", "")
	v.SetDefault("fragment-format", "")
	v.SetDefault("mapper-name", "")
	v.SetDefault("file-suffix", "")
	v.SetDefault("fold-names", false)
	v.SetDefault("halt-on-invalid-mapper", false)
}

// addFlags declares the flags shared by every command.
func addFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "configuration file (default: ./"+ConfigName+".yaml)")
	fs.StringP("dir", "C", ".", "working directory for package patterns")
	fs.StringSlice("tags", nil, "build tags used when loading packages")
	fs.IntP("workers", "j", 0, "types processed in parallel (0: GOMAXPROCS)")
	fs.String("cache", "", "directory of the persistent generation cache")
	fs.Bool("dry-run", false, "report changes without writing files")
	fs.Bool("prune", false, "remove generated files of types that no longer qualify")
	fs.String("report", "", "write a YAML report of the pass to this file")
	fs.Bool("json-log", false, "log as JSON")
	fs.Bool("no-color", false, "disable colored output")
	fs.Bool("debug", false, "attach stack traces to failure diagnostics and log debug messages")
	fs.Duration("debounce", 300*time.Millisecond, "watch: delay between a change and regeneration")
	fs.String("min-severity", "info", "lowest severity of printed diagnostics: info, warning or error")
}

// loadSettings merges flags, environment, configuration file and defaults.
func loadSettings(fs *pflag.FlagSet) (*Settings, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	if err := v.BindPFlags(fs); err != nil {
		return nil, errors.Wrap(err, "bind flags")
	}

	explicit := v.GetString("config")
	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(v.GetString("dir"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read configuration")
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, errors.Wrap(err, "decode configuration")
	}
	return &s, nil
}

// options translates the settings into generator options.
func (s *Settings) options(log *zap.Logger) ([]gen.Option, error) {
	opts := []gen.Option{
		gen.WithWorkers(s.Workers),
		gen.WithFoldNames(s.FoldNames),
		gen.WithHaltOnInvalidMapper(s.HaltOnInvalidMapper),
		gen.WithLogger(log),
	}
	if s.Debug {
		opts = append(opts, gen.WithDebug(true))
	}
	for _, o := range []struct {
		value string
		opt   func(string) gen.Option
	}{
		{s.Marker, gen.WithMarker},
		{s.Runtime, gen.WithRuntime},
		{s.Header, gen.WithHeader},
		{s.InterfaceFormat, gen.WithInterfaceFormat},
		{s.FragmentFormat, gen.WithFragmentFormat},
		{s.MapperName, gen.WithMapperName},
		{s.FileSuffix, gen.WithFileSuffix},
	} {
		if o.value != "" {
			opts = append(opts, o.opt(o.value))
		}
	}
	if s.Cache != "" {
		cache, err := gen.OpenFileCache(s.Cache)
		if err != nil {
			return nil, err
		}
		opts = append(opts, gen.WithCache(cache))
	}
	return opts, nil
}

// severity returns the lowest severity of printed diagnostics.
func (s *Settings) severity() (diag.Severity, error) {
	sev, err := diag.ParseSeverity(s.MinSeverity)
	if err != nil {
		return diag.SevInfo, errors.Wrap(err, "min-severity")
	}
	return sev, nil
}

// buildFlags returns the go command flags for the configured build tags.
func (s *Settings) buildFlags() []string {
	if len(s.Tags) == 0 {
		return nil
	}
	return []string{"-tags=" + strings.Join(s.Tags, ",")}
}
