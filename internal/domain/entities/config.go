package entities

import (
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// SecurityRuleKind names a class of security-relevant finding
type SecurityRuleKind string

const (
	SecRuleUnicode SecurityRuleKind = "unicode"
)

// SecurityAction is what a deployment wants done with a security finding
type SecurityAction string

const (
	ActionSkip   SecurityAction = "skip"
	ActionInform SecurityAction = "inform"
	ActionVerify SecurityAction = "verify"
	ActionFail   SecurityAction = "fail"
)

// SecurityRule maps package and path patterns to per-kind actions
type SecurityRule struct {
	Package string // shell pattern matched against the package name
	Path    string // shell pattern matched against the normalized file path
	Actions map[SecurityRuleKind]SecurityAction
}

// UnicodeConfig configures the forbidden code point inspection
type UnicodeConfig struct {
	ForbiddenCodepoints []Codepoint
	Exclude             *regexp.Regexp // matched against the normalized path, never the work directory path
	ExcludedMimeTypes   []string
}

// FetchConfig configures the artifact fetch manager
type FetchConfig struct {
	Workers      int
	PollTimeout  time.Duration
	IdleInterval time.Duration
	Keyring      string // armored OpenPGP keyring for signature checks
}

// Config holds every already-validated input the inspections read.
// It is loaded once per run and treated as read-only afterwards.
type Config struct {
	WorkDir         string
	FailThreshold   Severity
	Suppress        Severity
	UIDBoundary     int
	AllowedUIDs     []int // UIDs above UIDBoundary that are still accepted; empty accepts none
	Rebase          bool
	Unicode         UnicodeConfig
	PrepCommand     []string
	SecurityRules   []SecurityRule
	SecurityDefault map[SecurityRuleKind]SecurityAction
	Fetch           FetchConfig
	Inspections     []string
}

// DefaultForbiddenCodepoints are the bidirectional control characters
// used to hide source code from reviewers
var DefaultForbiddenCodepoints = []Codepoint{
	0x061C,
	0x200E, 0x200F,
	0x202A, 0x202B, 0x202C, 0x202D, 0x202E,
	0x2066, 0x2067, 0x2068, 0x2069,
}

// DefaultPrepCommand runs only the preparation stage of the package build
var DefaultPrepCommand = []string{
	"rpmbuild", "-bp", "--nodeps", "--define", "_topdir {topdir}", "{spec}",
}

// DefaultConfig returns the configuration used when no file overrides it
func DefaultConfig() *Config {
	return &Config{
		WorkDir:       filepath.Join(os.TempDir(), "pkginspect"),
		FailThreshold: SeverityVerify,
		Suppress:      SeverityOK,
		UIDBoundary:   200,
		Unicode: UnicodeConfig{
			ForbiddenCodepoints: append([]Codepoint(nil), DefaultForbiddenCodepoints...),
		},
		PrepCommand:     append([]string(nil), DefaultPrepCommand...),
		SecurityDefault: map[SecurityRuleKind]SecurityAction{SecRuleUnicode: ActionVerify},
		Fetch: FetchConfig{
			Workers:      4,
			PollTimeout:  time.Second,
			IdleInterval: 100 * time.Millisecond,
		},
		Inspections: []string{"scriptlets", "unicode"},
	}
}
