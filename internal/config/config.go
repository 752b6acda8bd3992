// Package config loads and validates sdlctl's configuration: which repos to
// index, where to persist state, the policy rules gating slice/card
// requests, and tuning knobs for indexing and slicing. Loading follows the
// viper-based layered pattern (defaults, then config file, then
// $SDL_CONFIG_PATH override, then environment variables) used throughout
// this codebase's ancestor tool.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	sdlerrors "github.com/sdlctl/sdlctl/internal/errors"
	"github.com/sdlctl/sdlctl/internal/paths"
)

// EnvOverride records an environment variable override that was applied
// during load, surfaced by `sdlctl config show` for diagnosability.
type EnvOverride struct {
	EnvVar    string
	Path      string
	Value     interface{}
	FromValue string
}

// LoadResult bundles the loaded config with metadata about how it was
// assembled.
type LoadResult struct {
	Config       *Config
	ConfigPath   string
	EnvOverrides []EnvOverride
	UsedDefaults bool
}

// RepoConfig describes one repository to index (spec §2, Repo / §7 config).
type RepoConfig struct {
	RepoID          string   `mapstructure:"repoId" validate:"required"`
	Root            string   `mapstructure:"root" validate:"required"`
	Languages       []string `mapstructure:"languages"`
	IgnoreGlobs     []string `mapstructure:"ignoreGlobs"`
	WorkspaceGlobs  []string `mapstructure:"workspaceGlobs"`
	DefaultBranch   string   `mapstructure:"defaultBranch"`
}

// PolicyRuleConfig describes one prioritized policy rule (spec §5).
type PolicyRuleConfig struct {
	Name        string                 `mapstructure:"name" validate:"required"`
	Priority    int                    `mapstructure:"priority"`
	Effect      string                 `mapstructure:"effect" validate:"required,oneof=allow deny"`
	Match       map[string]interface{} `mapstructure:"match"`
	Reason      string                 `mapstructure:"reason"`
	NextBestAction string              `mapstructure:"nextBestAction"`
}

// BudgetCapsConfig bounds the budget a slice/card request may ask for
// (spec §6 config shape, §4.10 budgetCaps rule).
type BudgetCapsConfig struct {
	MaxCards           int `mapstructure:"maxCards" validate:"omitempty,gt=0"`
	MaxEstimatedTokens int `mapstructure:"maxEstimatedTokens" validate:"omitempty,gt=0"`
}

// PolicyConfig groups the thresholds internal/policy's standard rules read
// (spec §4.10, §6). Rules and DefaultEffect are loaded, env-expanded and
// validated, but internal/policy does not read them: the engine evaluates
// only the five rules policy.StandardRules builds.
type PolicyConfig struct {
	MaxWindowLines     int                `mapstructure:"maxWindowLines" validate:"omitempty,gt=0"`
	MaxWindowTokens    int                `mapstructure:"maxWindowTokens" validate:"omitempty,gt=0"`
	RequireIdentifiers bool               `mapstructure:"requireIdentifiers"`
	AllowBreakGlass    bool               `mapstructure:"allowBreakGlass"`
	DefaultDenyRaw     bool               `mapstructure:"defaultDenyRaw"`
	BudgetCaps         BudgetCapsConfig   `mapstructure:"budgetCaps"`
	Rules              []PolicyRuleConfig `mapstructure:"rules"`
	DefaultEffect      string             `mapstructure:"defaultEffect" validate:"omitempty,oneof=allow deny"`
}

// IndexingConfig tunes the scanner, parser pool, and indexer concurrency
// (spec §4).
type IndexingConfig struct {
	MaxFileBytes      int64 `mapstructure:"maxFileBytes" validate:"omitempty,gt=0"`
	MaxConcurrency    int   `mapstructure:"maxConcurrency" validate:"omitempty,gt=0"`
	FileIOConcurrency int   `mapstructure:"fileIoConcurrency" validate:"omitempty,gt=0"`
	DBIOConcurrency   int   `mapstructure:"dbIoConcurrency" validate:"omitempty,gt=0"`
	QueueTimeoutMs    int   `mapstructure:"queueTimeoutMs" validate:"omitempty,gt=0"`
	TaskTimeoutMs     int   `mapstructure:"taskTimeoutMs" validate:"omitempty,gt=0"`
}

// SliceConfig tunes default and maximum context-slice budgets (spec §5).
type SliceConfig struct {
	DefaultBudgetTokens int `mapstructure:"defaultBudgetTokens" validate:"omitempty,gt=0"`
	MaxBudgetTokens     int `mapstructure:"maxBudgetTokens" validate:"omitempty,gt=0"`
	CardCacheEntries    int `mapstructure:"cardCacheEntries" validate:"omitempty,gt=0"`
	CardCacheBytes      int `mapstructure:"cardCacheBytes" validate:"omitempty,gt=0"`
}

// RedactionConfig controls pseudonymization of free-text audit fields
// (spec §6, the previously-undefined `redaction?` key).
type RedactionConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Salt    string `mapstructure:"salt"`
}

// ObservabilityConfig controls the optional /metrics endpoint.
type ObservabilityConfig struct {
	MetricsEnabled bool   `mapstructure:"metricsEnabled"`
	MetricsAddr    string `mapstructure:"metricsAddr"`
}

// SummaryConfig controls the optional external summariser (spec: "the
// actual large-language-model summariser ... consumed through a narrow
// provider contract"). Empty APIKey leaves the core on NoopProvider.
type SummaryConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	APIKey    string `mapstructure:"apiKey"`
	Model     string `mapstructure:"model"`
	MaxTokens int64  `mapstructure:"maxTokens"`
}

// DeltaConfig holds the stability-score weights the delta engine applies
// per change (spec §4.7: "weights are configuration constants"). The three
// weights must sum to 100; Validate enforces this.
type DeltaConfig struct {
	InterfaceWeight   int `mapstructure:"interfaceWeight" validate:"omitempty,gte=0,lte=100"`
	BehaviorWeight    int `mapstructure:"behaviorWeight" validate:"omitempty,gte=0,lte=100"`
	SideEffectsWeight int `mapstructure:"sideEffectsWeight" validate:"omitempty,gte=0,lte=100"`
}

// Config is the root sdlctl configuration document.
type Config struct {
	Repos         []RepoConfig        `mapstructure:"repos" validate:"required,dive"`
	DBPath        string              `mapstructure:"dbPath"`
	Policy        PolicyConfig        `mapstructure:"policy"`
	Indexing      IndexingConfig      `mapstructure:"indexing"`
	Slice         SliceConfig         `mapstructure:"slice"`
	Delta         DeltaConfig         `mapstructure:"delta"`
	Redaction     RedactionConfig     `mapstructure:"redaction"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Summary       SummaryConfig       `mapstructure:"summary"`
	LogFormat     string              `mapstructure:"logFormat" validate:"omitempty,oneof=json human"`
	LogLevel      string              `mapstructure:"logLevel" validate:"omitempty,oneof=debug info warn error"`
}

// Default returns a Config with every optional knob filled in per spec
// defaults. Repos is left empty; callers must populate it from a config
// file or explicit CLI flags.
func Default() *Config {
	return &Config{
		Repos:  nil,
		DBPath: "",
		Policy: PolicyConfig{
			MaxWindowLines:     180,
			MaxWindowTokens:    1400,
			RequireIdentifiers: false,
			AllowBreakGlass:    false,
			DefaultDenyRaw:     true,
			BudgetCaps:         BudgetCapsConfig{MaxCards: 60, MaxEstimatedTokens: 12000},
			DefaultEffect:      "allow",
			Rules:              nil,
		},
		Indexing: IndexingConfig{
			MaxFileBytes:      1 << 20,
			MaxConcurrency:    8,
			FileIOConcurrency: 16,
			DBIOConcurrency:   4,
			QueueTimeoutMs:    5000,
			TaskTimeoutMs:     30000,
		},
		Slice: SliceConfig{
			DefaultBudgetTokens: 4000,
			MaxBudgetTokens:     32000,
			CardCacheEntries:    2000,
			CardCacheBytes:      64 << 20,
		},
		Delta: DeltaConfig{
			InterfaceWeight:   40,
			BehaviorWeight:    40,
			SideEffectsWeight: 20,
		},
		Redaction: RedactionConfig{
			Enabled: false,
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: false,
			MetricsAddr:    ":9121",
		},
		Summary: SummaryConfig{
			Enabled:   false,
			Model:     "claude-3-5-sonnet-latest",
			MaxTokens: 512,
		},
		LogFormat: "human",
		LogLevel:  "info",
	}
}

// envExpansionPattern matches ${NAME} placeholders inside string config
// values, resolved against the process environment after the config file
// is parsed (spec §7: config values may reference environment variables).
var envExpansionPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

func expandEnv(value string) string {
	return envExpansionPattern.ReplaceAllStringFunc(value, func(match string) string {
		name := envExpansionPattern.FindStringSubmatch(match)[1]
		if resolved, ok := os.LookupEnv(name); ok {
			return resolved
		}
		return match
	})
}

// expandConfigStrings applies ${NAME} expansion in place to dbPath, the
// redaction salt, the summary API key, each repo's root and repoId, and each
// policy rule's reason and nextBestAction. A placeholder naming an unset
// variable is a ConfigError.
func expandConfigStrings(cfg *Config) error {
	var unresolved []string
	expand := func(value string) string {
		out := expandEnv(value)
		for _, m := range envExpansionPattern.FindAllStringSubmatch(out, -1) {
			unresolved = append(unresolved, m[1])
		}
		return out
	}
	cfg.DBPath = expand(cfg.DBPath)
	cfg.Redaction.Salt = expand(cfg.Redaction.Salt)
	cfg.Summary.APIKey = expand(cfg.Summary.APIKey)
	for i := range cfg.Repos {
		cfg.Repos[i].Root = expand(cfg.Repos[i].Root)
		cfg.Repos[i].RepoID = expand(cfg.Repos[i].RepoID)
	}
	for i := range cfg.Policy.Rules {
		cfg.Policy.Rules[i].Reason = expand(cfg.Policy.Rules[i].Reason)
		cfg.Policy.Rules[i].NextBestAction = expand(cfg.Policy.Rules[i].NextBestAction)
	}
	if len(unresolved) > 0 {
		return sdlerrors.New(sdlerrors.ConfigError, "undefined environment variable in config: "+strings.Join(unresolved, ", "), nil)
	}
	return nil
}

// Load loads configuration from the given path (or the default search
// path rooted at workingDir) without returning load metadata.
func Load(workingDir string) (*Config, error) {
	result, err := LoadWithDetails(workingDir)
	if err != nil {
		return nil, err
	}
	return result.Config, nil
}

// LoadWithDetails loads configuration and reports the path it was loaded
// from and which environment overrides were applied, mirroring the
// ancestor tool's LoadConfigWithDetails.
func LoadWithDetails(workingDir string) (*LoadResult, error) {
	result := &LoadResult{}

	v := viper.New()
	v.SetConfigType("toml")

	explicitPath := os.Getenv("SDL_CONFIG_PATH")
	if explicitPath == "" {
		explicitPath = os.Getenv("SDL_CONFIG")
	}
	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
	} else {
		v.SetConfigName("sdlctl")
		v.AddConfigPath(workingDir)
		v.AddConfigPath(".")
	}

	cfg := Default()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			result.Config = cfg
			result.UsedDefaults = true
		} else {
			return nil, fmt.Errorf("sdlctl: reading config: %w", err)
		}
	} else {
		if err := v.Unmarshal(cfg); err != nil {
			return nil, fmt.Errorf("sdlctl: decoding config: %w", err)
		}
		result.Config = cfg
		result.ConfigPath = v.ConfigFileUsed()
	}

	if err := expandConfigStrings(result.Config); err != nil {
		return nil, err
	}

	result.EnvOverrides = applyEnvOverrides(result.Config)

	if result.Config.DBPath == "" && len(result.Config.Repos) > 0 {
		result.Config.DBPath = paths.DefaultDBPath(result.Config.Repos[0].Root)
	}

	return result, nil
}

type envVarDef struct {
	path    string
	varType string
}

var envVarMappings = map[string]envVarDef{
	"SDL_LOG_LEVEL":               {path: "logLevel", varType: "string"},
	"SDL_LOG_FORMAT":              {path: "logFormat", varType: "string"},
	"SDL_DB_PATH":                 {path: "dbPath", varType: "string"},
	"SDL_INDEXING_MAX_FILE_BYTES": {path: "indexing.maxFileBytes", varType: "int"},
	"SDL_INDEXING_MAX_CONCURRENCY": {path: "indexing.maxConcurrency", varType: "int"},
	"SDL_SLICE_DEFAULT_BUDGET_TOKENS": {path: "slice.defaultBudgetTokens", varType: "int"},
	"SDL_SLICE_MAX_BUDGET_TOKENS":     {path: "slice.maxBudgetTokens", varType: "int"},
	"SDL_REDACTION_ENABLED":       {path: "redaction.enabled", varType: "bool"},
	"SDL_OBSERVABILITY_METRICS_ENABLED": {path: "observability.metricsEnabled", varType: "bool"},
}

func applyEnvOverrides(cfg *Config) []EnvOverride {
	var overrides []EnvOverride

	for envVar, def := range envVarMappings {
		value := os.Getenv(envVar)
		if value == "" {
			continue
		}

		var parsedValue interface{}
		var err error

		switch def.varType {
		case "string":
			parsedValue = value
		case "int":
			parsedValue, err = strconv.Atoi(value)
			if err != nil {
				continue
			}
		case "bool":
			parsedValue, err = strconv.ParseBool(value)
			if err != nil {
				continue
			}
		}

		if applyOverride(cfg, def.path, parsedValue) {
			overrides = append(overrides, EnvOverride{
				EnvVar:    envVar,
				Path:      def.path,
				Value:     parsedValue,
				FromValue: value,
			})
		}
	}

	return overrides
}

func applyOverride(cfg *Config, path string, value interface{}) bool {
	parts := strings.Split(path, ".")

	switch parts[0] {
	case "logLevel":
		if v, ok := value.(string); ok {
			cfg.LogLevel = v
			return true
		}
	case "logFormat":
		if v, ok := value.(string); ok {
			cfg.LogFormat = v
			return true
		}
	case "dbPath":
		if v, ok := value.(string); ok {
			cfg.DBPath = v
			return true
		}
	case "indexing":
		if len(parts) < 2 {
			return false
		}
		switch parts[1] {
		case "maxFileBytes":
			if v, ok := value.(int); ok {
				cfg.Indexing.MaxFileBytes = int64(v)
				return true
			}
		case "maxConcurrency":
			if v, ok := value.(int); ok {
				cfg.Indexing.MaxConcurrency = v
				return true
			}
		}
	case "slice":
		if len(parts) < 2 {
			return false
		}
		switch parts[1] {
		case "defaultBudgetTokens":
			if v, ok := value.(int); ok {
				cfg.Slice.DefaultBudgetTokens = v
				return true
			}
		case "maxBudgetTokens":
			if v, ok := value.(int); ok {
				cfg.Slice.MaxBudgetTokens = v
				return true
			}
		}
	case "redaction":
		if len(parts) < 2 {
			return false
		}
		if parts[1] == "enabled" {
			if v, ok := value.(bool); ok {
				cfg.Redaction.Enabled = v
				return true
			}
		}
	case "observability":
		if len(parts) < 2 {
			return false
		}
		if parts[1] == "metricsEnabled" {
			if v, ok := value.(bool); ok {
				cfg.Observability.MetricsEnabled = v
				return true
			}
		}
	}

	return false
}

// GetSupportedEnvVars returns the full set of recognized environment
// variable overrides.
func GetSupportedEnvVars() []string {
	vars := make([]string, 0, len(envVarMappings))
	for v := range envVarMappings {
		vars = append(vars, v)
	}
	return vars
}

var configValidator = validator.New()

// Validate runs struct-tag validation across the whole config and returns
// an aggregated, field-path-qualified error (spec §7: configuration errors
// must name every failing field, not just the first one).
func (c *Config) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		validationErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return err
		}
		var messages []string
		for _, fe := range validationErrs {
			messages = append(messages, fmt.Sprintf("%s: failed '%s' validation", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(messages, "\n  "))
	}

	seen := make(map[string]bool, len(c.Repos))
	for _, r := range c.Repos {
		if seen[r.RepoID] {
			return fmt.Errorf("config validation failed: duplicate repoId %q", r.RepoID)
		}
		seen[r.RepoID] = true
		if _, err := os.Stat(r.Root); err != nil {
			return fmt.Errorf("config validation failed: repo %q root %q: %w", r.RepoID, r.Root, err)
		}
	}

	if sum := c.Delta.InterfaceWeight + c.Delta.BehaviorWeight + c.Delta.SideEffectsWeight; sum != 100 {
		return fmt.Errorf("config validation failed: delta weights sum to %d, not 100", sum)
	}

	return nil
}

// Save writes the configuration as TOML to the given path.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return tomlEncode(f, c)
}
