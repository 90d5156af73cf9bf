package orchestrators

import (
	"context"

	"github.com/ochairo/pkginspect/internal/domain/entities"
	"github.com/ochairo/pkginspect/internal/domain/interfaces/services"
)

// ScriptletInspection checks package lifecycle scriptlets
type ScriptletInspection struct {
	scriptlets services.ScriptletService
}

// NewScriptletInspection creates the scriptlets inspection plugin
func NewScriptletInspection(scriptlets services.ScriptletService) *ScriptletInspection {
	return &ScriptletInspection{scriptlets: scriptlets}
}

// Name implements services.Inspection
func (i *ScriptletInspection) Name() string { return entities.HeaderScriptlets }

// Scope implements services.Inspection
func (i *ScriptletInspection) Scope() services.InspectionScope { return services.ScopeBinary }

// InspectScriptlet implements services.ScriptletInspector
func (i *ScriptletInspection) InspectScriptlet(_ context.Context, ic *services.InspectionContext, peer *entities.PeerSet, scriptlet *entities.ScriptletRecord) bool {
	rebase := ic.Config.Rebase || peer.IsRebase()
	return addResults(ic.Report, i.scriptlets.CheckUseradd(ic.Config, peer.After, rebase, scriptlet))
}
