// Package services defines interfaces for domain service contracts.
package services

import (
	"github.com/ochairo/pkginspect/internal/domain/entities"
)

// PolicyService defines how results combine into a pass/fail decision
type PolicyService interface {
	// FinalSeverity is the maximum severity in the report, at least OK
	FinalSeverity(report *entities.Report) entities.Severity

	// ShouldFail reports whether the run fails at the given threshold
	ShouldFail(report *entities.Report, threshold entities.Severity) bool

	// Visible filters results for rendering, hiding those below suppress
	Visible(report *entities.Report, suppress entities.Severity) []entities.InspectionResult

	// SecurityAction looks up the configured action for a finding
	SecurityAction(cfg *entities.Config, pkg, path string, kind entities.SecurityRuleKind) entities.SecurityAction

	// ActionSeverity converts a security action to a reporting severity
	ActionSeverity(action entities.SecurityAction) entities.Severity
}

// ScriptletService contains the scriptlet rules
type ScriptletService interface {
	// Scriptlet pulls one hook's scriptlet from a header, if present
	Scriptlet(h entities.Header, hook entities.ScriptletHook) (*entities.ScriptletRecord, bool)

	// CheckUseradd evaluates account creation commands in a scriptlet
	CheckUseradd(cfg *entities.Config, pkg *entities.Package, rebase bool, scriptlet *entities.ScriptletRecord) []entities.InspectionResult
}
