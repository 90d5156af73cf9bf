package services

import (
	"context"

	"github.com/ochairo/pkginspect/internal/domain/entities"
	"github.com/ochairo/pkginspect/internal/domain/interfaces"
)

// InspectionScope limits which packages an inspection looks at
type InspectionScope int

const (
	// ScopeAll inspects every package
	ScopeAll InspectionScope = iota
	// ScopeBinary skips source, debuginfo and debugsource packages
	ScopeBinary
	// ScopeSource only inspects source packages
	ScopeSource
)

// InspectionContext is the per-run state threaded through every inspection
type InspectionContext struct {
	Config *entities.Config
	Report *entities.Report
	Logger interfaces.Logger
	Policy PolicyService
}

// Inspection is the contract every rule plugin implements. A plugin
// additionally implements PeerInspector, ScriptletInspector or both.
type Inspection interface {
	Name() string
	Scope() InspectionScope
}

// PeerInspector examines a whole peer and returns false on failing findings
type PeerInspector interface {
	Inspection
	InspectPeer(ctx context.Context, ic *InspectionContext, peer *entities.PeerSet) bool
}

// ScriptletInspector examines the after scriptlet of one lifecycle hook.
// It is never called with a nil scriptlet; lost scriptlets are reported
// by the driver.
type ScriptletInspector interface {
	Inspection
	InspectScriptlet(ctx context.Context, ic *InspectionContext, peer *entities.PeerSet, scriptlet *entities.ScriptletRecord) bool
}

// Finisher runs once after every peer has been inspected
type Finisher interface {
	Finish(ctx context.Context, ic *InspectionContext) bool
}
