package orchestrators

import (
	"context"
	"errors"
	"fmt"

	"github.com/ochairo/pkginspect/internal/domain/entities"
	"github.com/ochairo/pkginspect/internal/domain/interfaces"
	"github.com/ochairo/pkginspect/internal/domain/interfaces/gateways"
	"github.com/ochairo/pkginspect/internal/domain/interfaces/services"
)

const (
	remedyUnicode = "Remove the forbidden code point from the source file. If it is legitimately needed, " +
		"add a security rule that skips or informs on this path."
	remedyUnicodePrep = "Make sure the spec file's %prep section runs on this system, " +
		"or that every declared source archive can be unpacked."
)

// UnicodeInspection looks for forbidden code points in the prepared
// source tree and the files of every source package
type UnicodeInspection struct {
	preparer gateways.SourcePreparer
	scanner  gateways.ContentScanner
	seen     bool
}

// NewUnicodeInspection creates the unicode inspection plugin
func NewUnicodeInspection(preparer gateways.SourcePreparer, scanner gateways.ContentScanner) *UnicodeInspection {
	return &UnicodeInspection{preparer: preparer, scanner: scanner}
}

// Name implements services.Inspection
func (i *UnicodeInspection) Name() string { return entities.HeaderUnicode }

// Scope implements services.Inspection
func (i *UnicodeInspection) Scope() services.InspectionScope { return services.ScopeSource }

// InspectPeer implements services.PeerInspector
func (i *UnicodeInspection) InspectPeer(ctx context.Context, ic *services.InspectionContext, peer *entities.PeerSet) bool {
	pkg := peer.After
	i.seen = true

	patterns := make([]entities.Pattern, 0, len(ic.Config.Unicode.ForbiddenCodepoints))
	for _, cp := range ic.Config.Unicode.ForbiddenCodepoints {
		patterns = append(patterns, cp)
	}
	if len(patterns) == 0 {
		return true
	}

	result := true
	usedBy := pkg.NVR()

	if spec, ok := pkg.SpecFile(); ok {
		usedBy = spec.LocalPath
		if !i.scanTree(ctx, ic, pkg, spec, patterns) {
			result = false
		}
	}

	for _, f := range pkg.Files {
		violations := i.scanner.ScanFile(ctx, f.FullPath, pkg.Root, patterns)
		if !i.report(ic, pkg, usedBy, violations) {
			result = false
		}
	}

	return result
}

// scanTree materializes the source tree for spec, scans it and removes it
func (i *UnicodeInspection) scanTree(ctx context.Context, ic *services.InspectionContext, pkg *entities.Package, spec entities.PackageFile, patterns []entities.Pattern) bool {
	logger := interfaces.OrNoOp(ic.Logger)

	tree, err := i.preparer.Prepare(ctx, pkg, ic.Config.WorkDir)
	if err != nil {
		r := entities.InspectionResult{
			Header:     entities.HeaderUnicode,
			Severity:   entities.SeverityBad,
			WaiverAuth: entities.NotWaivable,
			Message:    fmt.Sprintf("Unable to run through the %%prep section in %s or manually unpack sources for further scanning.", spec.LocalPath),
			Remedy:     remedyUnicodePrep,
			Arch:       pkg.Arch,
			File:       spec.LocalPath,
		}
		var prepErr *entities.PrepError
		if errors.As(err, &prepErr) {
			r.Details = prepErr.Details
		}
		logger.Warn("source preparation failed", interfaces.F("package", pkg.NVR()), interfaces.F("error", err))
		ic.Report.Add(r)
		return false
	}

	logger.Debug("prepared source tree", interfaces.F("package", pkg.NVR()), interfaces.F("method", tree.Method.String()))
	violations := i.scanner.ScanTree(ctx, tree, pkg.Root, patterns)
	if err := tree.Remove(); err != nil {
		logger.Warn("failed to remove source tree", interfaces.F("path", tree.Base), interfaces.F("error", err))
	}

	return i.report(ic, pkg, spec.LocalPath, violations)
}

// report classifies violations through the security rule table
func (i *UnicodeInspection) report(ic *services.InspectionContext, pkg *entities.Package, usedBy string, violations []entities.Violation) bool {
	result := true

	for _, v := range violations {
		action := ic.Policy.SecurityAction(ic.Config, pkg.Name, v.Path, entities.SecRuleUnicode)
		severity := ic.Policy.ActionSeverity(action)
		if severity == entities.SeverityNull {
			continue
		}

		r := entities.InspectionResult{
			Header:   entities.HeaderUnicode,
			Severity: severity,
			Message: fmt.Sprintf("A forbidden code point, %s, was found in the %s source file on line %d at column %d.  This source file is used by %s.",
				v.Pattern, v.Path, v.Line, v.Column, usedBy),
			Remedy: remedyUnicode,
			Arch:   pkg.Arch,
			File:   v.Path,
		}
		if severity == entities.SeverityInfo {
			r.WaiverAuth = entities.NotWaivable
		} else {
			r.WaiverAuth = entities.WaivableBySecurity
			result = false
		}
		ic.Report.Add(r)
	}

	return result
}

// Finish implements services.Finisher
func (i *UnicodeInspection) Finish(_ context.Context, ic *services.InspectionContext) bool {
	if !i.seen {
		ic.Report.Add(entities.InspectionResult{
			Header:     entities.HeaderUnicode,
			Severity:   entities.SeverityInfo,
			WaiverAuth: entities.NotWaivable,
			Message:    "The unicode inspection is only for source packages, skipping.",
		})
	}
	i.seen = false
	return true
}
