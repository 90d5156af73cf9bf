// Package yaml provides YAML-based configuration and package manifest adapters.
package yaml

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ochairo/pkginspect/internal/domain/entities"
	"github.com/ochairo/pkginspect/internal/domain/interfaces"
)

// yamlConfig represents the raw YAML structure
type yamlConfig struct {
	WorkDir         string            `yaml:"workdir,omitempty"`
	FailThreshold   string            `yaml:"fail_threshold,omitempty"`
	Suppress        string            `yaml:"suppress,omitempty"`
	UIDBoundary     *int              `yaml:"uid_boundary,omitempty"`
	AllowedUIDs     []int             `yaml:"allowed_uids,omitempty"` // an empty list exempts no UID
	Unicode         yamlUnicode       `yaml:"unicode,omitempty"`
	PrepCommand     []string          `yaml:"prep_command,omitempty"`
	SecurityRules   []yamlSecRule     `yaml:"security_rules,omitempty"`
	SecurityDefault map[string]string `yaml:"security_default,omitempty"`
	Fetch           yamlFetch         `yaml:"fetch,omitempty"`
	Inspections     []string          `yaml:"inspections,omitempty"`
}

type yamlUnicode struct {
	ForbiddenCodepoints []string `yaml:"forbidden_codepoints,omitempty"`
	Exclude             string   `yaml:"exclude,omitempty"` // regex over paths relative to the source tree or package root
	ExcludedMimeTypes   []string `yaml:"excluded_mime_types,omitempty"`
}

type yamlSecRule struct {
	Package string            `yaml:"package,omitempty"`
	Path    string            `yaml:"path,omitempty"`
	Rules   map[string]string `yaml:"rules"`
}

type yamlFetch struct {
	Workers      int    `yaml:"workers,omitempty"`
	PollTimeout  string `yaml:"poll_timeout,omitempty"`
	IdleInterval string `yaml:"idle_interval,omitempty"`
	Keyring      string `yaml:"keyring,omitempty"`
}

var knownActions = map[string]entities.SecurityAction{
	string(entities.ActionSkip):   entities.ActionSkip,
	string(entities.ActionInform): entities.ActionInform,
	string(entities.ActionVerify): entities.ActionVerify,
	string(entities.ActionFail):   entities.ActionFail,
}

// ConfigParser parses YAML configuration files. It implements
// repositories.ConfigRepository.
type ConfigParser struct {
	logger interfaces.Logger
}

// NewConfigParser creates a new YAML config parser
func NewConfigParser(logger interfaces.Logger) *ConfigParser {
	return &ConfigParser{logger: interfaces.OrNoOp(logger)}
}

// LoadConfig reads a configuration file. An empty path returns defaults.
func (p *ConfigParser) LoadConfig(filePath string) (*entities.Config, error) {
	if filePath == "" {
		return entities.DefaultConfig(), nil
	}

	//nolint:gosec // G304: filePath is the user-selected configuration file
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	return p.Parse(data)
}

// Parse parses YAML bytes on top of the default configuration
func (p *ConfigParser) Parse(data []byte) (*entities.Config, error) {
	var raw yamlConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg := entities.DefaultConfig()

	if raw.WorkDir != "" {
		cfg.WorkDir = raw.WorkDir
	}

	if raw.FailThreshold != "" {
		s, err := entities.ParseSeverity(raw.FailThreshold)
		if err != nil {
			return nil, fmt.Errorf("fail_threshold: %w", err)
		}
		cfg.FailThreshold = s
	}

	if raw.Suppress != "" {
		s, err := entities.ParseSeverity(raw.Suppress)
		if err != nil {
			return nil, fmt.Errorf("suppress: %w", err)
		}
		cfg.Suppress = s
	}

	if raw.UIDBoundary != nil {
		if *raw.UIDBoundary < 0 {
			return nil, fmt.Errorf("uid_boundary must not be negative")
		}
		cfg.UIDBoundary = *raw.UIDBoundary
	}
	cfg.AllowedUIDs = raw.AllowedUIDs

	if err := p.convertUnicode(raw.Unicode, &cfg.Unicode); err != nil {
		return nil, err
	}

	if len(raw.PrepCommand) > 0 {
		cfg.PrepCommand = raw.PrepCommand
	}

	rules, err := convertSecurityRules(raw.SecurityRules)
	if err != nil {
		return nil, err
	}
	cfg.SecurityRules = rules

	for kind, action := range raw.SecurityDefault {
		a, ok := knownActions[strings.ToLower(action)]
		if !ok {
			return nil, fmt.Errorf("security_default.%s: unknown action %q", kind, action)
		}
		cfg.SecurityDefault[entities.SecurityRuleKind(kind)] = a
	}

	if err := convertFetch(raw.Fetch, &cfg.Fetch); err != nil {
		return nil, err
	}

	if len(raw.Inspections) > 0 {
		cfg.Inspections = raw.Inspections
	}

	return cfg, nil
}

func (p *ConfigParser) convertUnicode(yu yamlUnicode, out *entities.UnicodeConfig) error {
	if len(yu.ForbiddenCodepoints) > 0 {
		out.ForbiddenCodepoints = out.ForbiddenCodepoints[:0]
		for _, s := range yu.ForbiddenCodepoints {
			cp, err := ParseCodepoint(s)
			if err != nil {
				p.logger.Warn("ignoring forbidden code point", interfaces.F("value", s), interfaces.F("error", err))
				continue
			}
			out.ForbiddenCodepoints = append(out.ForbiddenCodepoints, cp)
		}
	}

	if yu.Exclude != "" {
		re, err := regexp.Compile(yu.Exclude)
		if err != nil {
			return fmt.Errorf("unicode.exclude: %w", err)
		}
		out.Exclude = re
	}

	out.ExcludedMimeTypes = yu.ExcludedMimeTypes
	return nil
}

func convertSecurityRules(rules []yamlSecRule) ([]entities.SecurityRule, error) {
	out := make([]entities.SecurityRule, 0, len(rules))
	for i, r := range rules {
		actions := make(map[entities.SecurityRuleKind]entities.SecurityAction, len(r.Rules))
		for kind, action := range r.Rules {
			a, ok := knownActions[strings.ToLower(action)]
			if !ok {
				return nil, fmt.Errorf("security_rules[%d].%s: unknown action %q", i, kind, action)
			}
			actions[entities.SecurityRuleKind(kind)] = a
		}
		out = append(out, entities.SecurityRule{Package: r.Package, Path: r.Path, Actions: actions})
	}
	return out, nil
}

func convertFetch(yf yamlFetch, out *entities.FetchConfig) error {
	if yf.Workers < 0 {
		return fmt.Errorf("fetch.workers must not be negative")
	}
	if yf.Workers > 0 {
		out.Workers = yf.Workers
	}

	if yf.PollTimeout != "" {
		d, err := time.ParseDuration(yf.PollTimeout)
		if err != nil {
			return fmt.Errorf("fetch.poll_timeout: %w", err)
		}
		out.PollTimeout = d
	}

	if yf.IdleInterval != "" {
		d, err := time.ParseDuration(yf.IdleInterval)
		if err != nil {
			return fmt.Errorf("fetch.idle_interval: %w", err)
		}
		out.IdleInterval = d
	}

	out.Keyring = yf.Keyring
	return nil
}

// ParseCodepoint accepts 0x202E, U+202E or bare hex
func ParseCodepoint(s string) (entities.Codepoint, error) {
	hex := strings.TrimSpace(s)
	for _, prefix := range []string{"0x", "0X", "U+", "u+"} {
		if rest, ok := strings.CutPrefix(hex, prefix); ok {
			hex = rest
			break
		}
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid code point %q", s)
	}
	if v > 0x10FFFF || (v >= 0xD800 && v <= 0xDFFF) {
		return 0, fmt.Errorf("code point %q is not a Unicode scalar value", s)
	}

	return entities.Codepoint(v), nil
}

// Marshal renders a configuration back to YAML
func (p *ConfigParser) Marshal(cfg *entities.Config) ([]byte, error) {
	raw := yamlConfig{
		WorkDir:         cfg.WorkDir,
		FailThreshold:   cfg.FailThreshold.String(),
		Suppress:        cfg.Suppress.String(),
		UIDBoundary:     &cfg.UIDBoundary,
		AllowedUIDs:     cfg.AllowedUIDs,
		PrepCommand:     cfg.PrepCommand,
		SecurityDefault: make(map[string]string, len(cfg.SecurityDefault)),
		Fetch: yamlFetch{
			Workers:      cfg.Fetch.Workers,
			PollTimeout:  cfg.Fetch.PollTimeout.String(),
			IdleInterval: cfg.Fetch.IdleInterval.String(),
			Keyring:      cfg.Fetch.Keyring,
		},
		Inspections: cfg.Inspections,
	}

	for _, cp := range cfg.Unicode.ForbiddenCodepoints {
		raw.Unicode.ForbiddenCodepoints = append(raw.Unicode.ForbiddenCodepoints, cp.String())
	}
	if cfg.Unicode.Exclude != nil {
		raw.Unicode.Exclude = cfg.Unicode.Exclude.String()
	}
	raw.Unicode.ExcludedMimeTypes = cfg.Unicode.ExcludedMimeTypes

	for _, rule := range cfg.SecurityRules {
		r := yamlSecRule{Package: rule.Package, Path: rule.Path, Rules: make(map[string]string, len(rule.Actions))}
		for kind, action := range rule.Actions {
			r.Rules[string(kind)] = string(action)
		}
		raw.SecurityRules = append(raw.SecurityRules, r)
	}
	for kind, action := range cfg.SecurityDefault {
		raw.SecurityDefault[string(kind)] = string(action)
	}

	data, err := yaml.Marshal(&raw)
	if err != nil {
		return nil, fmt.Errorf("failed to render YAML: %w", err)
	}
	return data, nil
}
