// Package config resolves client settings from defaults, an optional config
// file, ACVP_* environment variables, EXEC_WRAPPER, and bound CLI flags.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/lattice-substrate/mlkem-acvp/iut"
	"github.com/lattice-substrate/mlkem-acvp/output"
	"github.com/lattice-substrate/mlkem-acvp/route"
	"github.com/lattice-substrate/mlkem-acvp/vector"
)

// EnvPrefix prefixes every environment override, e.g. ACVP_BUILD_ROOT.
const EnvPrefix = "ACVP"

// WrapperEnv is the conventional emulator wrapper variable.
const WrapperEnv = "EXEC_WRAPPER"

// Keys.
const (
	KeyBuildRoot   = "build_root"
	KeyDataDir     = "data_dir"
	KeyCatalog     = "catalog"
	KeyExecWrapper = "exec_wrapper"
	KeyIUTEnv      = "iut_env"
	KeyTimeout     = "timeout"
	KeyLogLevel    = "log_level"
	KeyLogFormat   = "log_format"
	KeyNoColor     = "no_color"
)

// Settings is the resolved configuration of one client run.
type Settings struct {
	BuildRoot   string
	DataDir     string
	Catalog     string
	ExecWrapper string
	// IUTEnv holds KEY=VALUE entries added to the IUT environment.
	IUTEnv      []string
	Timeout     time.Duration
	LogLevel    string
	LogFormat   string
	NoColor     bool
}

// New returns a viper instance with defaults and environment bindings.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyBuildRoot, route.DefaultBuildRoot)
	v.SetDefault(KeyDataDir, vector.DefaultDataDir)
	v.SetDefault(KeyCatalog, "")
	v.SetDefault(KeyExecWrapper, "")
	v.SetDefault(KeyIUTEnv, []string{})
	v.SetDefault(KeyTimeout, time.Duration(0))
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyNoColor, false)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	// EXEC_WRAPPER is shared with the rest of the build tooling, so it is
	// bound without the prefix.
	_ = v.BindEnv(KeyExecWrapper, WrapperEnv, EnvPrefix+"_EXEC_WRAPPER")
	return v
}

// Load reads configFile (when non-empty) into v and returns the validated
// settings.
func Load(v *viper.Viper, configFile string) (*Settings, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}
	s := &Settings{
		BuildRoot:   v.GetString(KeyBuildRoot),
		DataDir:     v.GetString(KeyDataDir),
		Catalog:     v.GetString(KeyCatalog),
		ExecWrapper: v.GetString(KeyExecWrapper),
		IUTEnv:      v.GetStringSlice(KeyIUTEnv),
		Timeout:     v.GetDuration(KeyTimeout),
		LogLevel:    v.GetString(KeyLogLevel),
		LogFormat:   v.GetString(KeyLogFormat),
		NoColor:     v.GetBool(KeyNoColor),
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return s, nil
}

// Validate checks settings semantics.
func (s *Settings) Validate() error {
	if s.BuildRoot == "" {
		return fmt.Errorf("%s is required", KeyBuildRoot)
	}
	if s.Timeout < 0 {
		return fmt.Errorf("%s cannot be negative", KeyTimeout)
	}
	if _, err := s.Env(); err != nil {
		return err
	}
	if _, err := output.ParseLevel(s.LogLevel); err != nil {
		return err
	}
	switch strings.ToLower(s.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", s.LogFormat)
	}
	return nil
}

// Wrapper returns the EXEC_WRAPPER tokens.
func (s *Settings) Wrapper() []string {
	return iut.ParseWrapper(s.ExecWrapper)
}

// Env parses IUTEnv into a map. Entries must be KEY=VALUE with a non-empty
// key; a repeated key keeps its last value.
func (s *Settings) Env() (map[string]string, error) {
	if len(s.IUTEnv) == 0 {
		return nil, nil
	}
	env := make(map[string]string, len(s.IUTEnv))
	for _, kv := range s.IUTEnv {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("%s entry %q is not KEY=VALUE", KeyIUTEnv, kv)
		}
		env[k] = v
	}
	return env, nil
}

// CatalogValue resolves the catalog to run when no prompt is given: the
// configured catalog file, or the default catalog under DataDir.
func (s *Settings) CatalogValue() (vector.Catalog, error) {
	if s.Catalog != "" {
		return vector.LoadCatalogFile(s.Catalog)
	}
	return vector.DefaultCatalog(s.DataDir), nil
}
