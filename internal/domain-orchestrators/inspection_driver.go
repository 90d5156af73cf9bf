// Package orchestrators coordinates complex workflows across multiple domain services.
package orchestrators

import (
	"context"
	"fmt"

	"github.com/ochairo/pkginspect/internal/domain/entities"
	"github.com/ochairo/pkginspect/internal/domain/interfaces"
	"github.com/ochairo/pkginspect/internal/domain/interfaces/services"
)

const remedyLostScriptlet = "Restore the scriptlet in the after build, or confirm that removing it was intentional."

// InspectionDriver runs one inspection plugin over every peer
type InspectionDriver struct {
	scriptlets services.ScriptletService
}

// NewInspectionDriver creates a driver that pulls scriptlets through scriptlets
func NewInspectionDriver(scriptlets services.ScriptletService) *InspectionDriver {
	return &InspectionDriver{scriptlets: scriptlets}
}

// Run executes plugin against peers and reports whether it produced no
// failing findings. Results are appended to ic.Report in peer order, then
// hook order.
func (d *InspectionDriver) Run(ctx context.Context, ic *services.InspectionContext, peers []*entities.PeerSet, plugin services.Inspection) bool {
	logger := interfaces.OrNoOp(ic.Logger)
	start := ic.Report.Len()
	result := true

	peerInspector, _ := plugin.(services.PeerInspector)
	scriptletInspector, _ := plugin.(services.ScriptletInspector)

	for _, peer := range peers {
		if err := ctx.Err(); err != nil {
			logger.Warn("inspection interrupted", interfaces.F("inspection", plugin.Name()), interfaces.F("error", err))
			return false
		}

		// disappeared packages are reported by a dedicated check
		if peer.After == nil {
			continue
		}
		if !inScope(plugin.Scope(), peer.After) {
			continue
		}

		if peerInspector != nil && !peerInspector.InspectPeer(ctx, ic, peer) {
			result = false
		}

		if scriptletInspector != nil && !d.runScriptlets(ctx, ic, peer, scriptletInspector) {
			result = false
		}
	}

	if finisher, ok := plugin.(services.Finisher); ok && !finisher.Finish(ctx, ic) {
		result = false
	}

	if !reported(ic.Report.Since(start)) {
		ic.Report.Add(entities.InspectionResult{
			Header:   plugin.Name(),
			Severity: entities.SeverityOK,
		})
	}

	logger.Debug("inspection finished", interfaces.F("inspection", plugin.Name()), interfaces.F("passed", result))
	return result
}

// runScriptlets walks the lifecycle hooks of one peer
func (d *InspectionDriver) runScriptlets(ctx context.Context, ic *services.InspectionContext, peer *entities.PeerSet, plugin services.ScriptletInspector) bool {
	result := true
	rebase := ic.Config.Rebase || peer.IsRebase()

	for _, hook := range entities.ScriptletHooks {
		after, hasAfter := d.scriptlets.Scriptlet(peer.After.Header, hook)

		hasBefore := false
		if peer.Before != nil {
			_, hasBefore = d.scriptlets.Scriptlet(peer.Before.Header, hook)
		}

		if !hasAfter && !hasBefore {
			continue
		}

		if !hasAfter {
			if !d.reportLost(ic, plugin.Name(), peer.After, hook, rebase) {
				result = false
			}
			continue
		}

		if !plugin.InspectScriptlet(ctx, ic, peer, after) {
			result = false
		}
	}

	return result
}

// reportLost records a scriptlet present before but missing after
func (d *InspectionDriver) reportLost(ic *services.InspectionContext, header string, pkg *entities.Package, hook entities.ScriptletHook, rebase bool) bool {
	r := entities.InspectionResult{
		Header:     header,
		Severity:   entities.SeverityVerify,
		WaiverAuth: entities.WaivableByAnyone,
		Message:    fmt.Sprintf("The %s scriptlet in the %s package on %s was lost in the after build.", hook.Name, pkg.Name, pkg.Arch),
		Remedy:     remedyLostScriptlet,
		Arch:       pkg.Arch,
	}
	if rebase {
		r.Severity = entities.SeverityInfo
	}
	ic.Report.Add(r)
	return !failing(r)
}

// inScope applies an inspection's package filter
func inScope(scope services.InspectionScope, pkg *entities.Package) bool {
	switch scope {
	case services.ScopeBinary:
		return !pkg.Source && !pkg.IsDebugInfo() && !pkg.IsDebugSource()
	case services.ScopeSource:
		return pkg.Source
	default:
		return true
	}
}

// failing reports whether a result counts against the inspection.
// Informational results never do.
func failing(r entities.InspectionResult) bool {
	return r.Severity > entities.SeverityInfo
}

func reported(results []entities.InspectionResult) bool {
	for _, r := range results {
		if r.Severity > entities.SeverityOK {
			return true
		}
	}
	return false
}

// addResults appends results to the report and reports whether none failed
func addResults(report *entities.Report, results []entities.InspectionResult) bool {
	ok := true
	for _, r := range results {
		report.Add(r)
		if failing(r) {
			ok = false
		}
	}
	return ok
}
