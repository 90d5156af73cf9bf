// Package services implements domain business logic and use cases.
package services

import (
	"path"

	"github.com/ochairo/pkginspect/internal/domain/entities"
	"github.com/ochairo/pkginspect/internal/domain/interfaces/services"
)

// policyService implements PolicyService with pure business logic
type policyService struct{}

// NewPolicyService creates a new policy service
func NewPolicyService() services.PolicyService {
	return &policyService{}
}

// FinalSeverity returns the highest severity in the report, never below OK.
// Pure business logic - no I/O
func (s *policyService) FinalSeverity(report *entities.Report) entities.Severity {
	final := entities.SeverityOK
	if report == nil {
		return final
	}

	for _, r := range report.Results() {
		if r.Severity > final {
			final = r.Severity
		}
	}

	return final
}

// ShouldFail determines if the run fails at the given threshold
func (s *policyService) ShouldFail(report *entities.Report, threshold entities.Severity) bool {
	return s.FinalSeverity(report) >= threshold
}

// Visible returns the results a renderer should show. Results are never
// dropped from the report itself; suppression only happens here.
func (s *policyService) Visible(report *entities.Report, suppress entities.Severity) []entities.InspectionResult {
	visible := make([]entities.InspectionResult, 0)
	if report == nil {
		return visible
	}

	for _, r := range report.Results() {
		if r.Severity >= suppress {
			visible = append(visible, r)
		}
	}

	return visible
}

// SecurityAction looks up the configured action for one finding kind.
// The first rule whose package and path patterns both match wins; when
// none match the per-kind default applies, then verify.
func (s *policyService) SecurityAction(cfg *entities.Config, pkg, file string, kind entities.SecurityRuleKind) entities.SecurityAction {
	if cfg == nil {
		return entities.ActionVerify
	}

	for _, rule := range cfg.SecurityRules {
		action, ok := rule.Actions[kind]
		if !ok {
			continue
		}
		if !globMatch(rule.Package, pkg) || !globMatch(rule.Path, file) {
			continue
		}
		return action
	}

	if action, ok := cfg.SecurityDefault[kind]; ok {
		return action
	}

	return entities.ActionVerify
}

// ActionSeverity implements PolicyService
func (s *policyService) ActionSeverity(action entities.SecurityAction) entities.Severity {
	return ActionSeverity(action)
}

// ActionSeverity converts a security action to a reporting severity.
// ActionSkip maps to SeverityNull, meaning "do not report".
func ActionSeverity(action entities.SecurityAction) entities.Severity {
	switch action {
	case entities.ActionSkip:
		return entities.SeverityNull
	case entities.ActionInform:
		return entities.SeverityInfo
	case entities.ActionFail:
		return entities.SeverityBad
	default:
		return entities.SeverityVerify
	}
}

// globMatch matches a shell pattern; an empty pattern matches everything
func globMatch(pattern, name string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}
	ok, err := path.Match(pattern, name)
	return err == nil && ok
}
