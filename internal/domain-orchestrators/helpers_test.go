package orchestrators

import (
	"context"
	"testing"

	"github.com/ochairo/pkginspect/internal/domain/entities"
	"github.com/ochairo/pkginspect/internal/domain/interfaces"
	"github.com/ochairo/pkginspect/internal/domain/interfaces/services"
	domainservices "github.com/ochairo/pkginspect/internal/domain/services"
)

// mapHeaderReader reads headers that are plain tag maps
type mapHeaderReader struct{}

func (mapHeaderReader) TagString(h entities.Header, tag entities.Tag) (string, bool) {
	m, ok := h.(map[entities.Tag]string)
	if !ok {
		return "", false
	}
	v, ok := m[tag]
	return v, ok
}

func (mapHeaderReader) TagStrings(_ entities.Header, _ entities.Tag) []string { return nil }

func (mapHeaderReader) IsSource(h entities.Header) bool {
	v, _ := mapHeaderReader{}.TagString(h, entities.TagArch)
	return v == "src"
}

func (mapHeaderReader) Arch(h entities.Header) string {
	v, _ := mapHeaderReader{}.TagString(h, entities.TagArch)
	return v
}

func binaryPackage(name, version string, tags map[entities.Tag]string) *entities.Package {
	header := map[entities.Tag]string{
		entities.TagName:    name,
		entities.TagVersion: version,
		entities.TagArch:    "x86_64",
	}
	for k, v := range tags {
		header[k] = v
	}
	return &entities.Package{Name: name, Version: version, Release: "1", Arch: "x86_64", Header: header}
}

func newContext(t *testing.T, cfg *entities.Config) *services.InspectionContext {
	t.Helper()
	if cfg == nil {
		cfg = entities.DefaultConfig()
	}
	return &services.InspectionContext{
		Config: cfg,
		Report: entities.NewReport("test"),
		Logger: &interfaces.NoOpLogger{},
		Policy: domainservices.NewPolicyService(),
	}
}

func newDriver() *InspectionDriver {
	return NewInspectionDriver(domainservices.NewScriptletService(mapHeaderReader{}))
}

func newScriptletInspection() *ScriptletInspection {
	return NewScriptletInspection(domainservices.NewScriptletService(mapHeaderReader{}))
}

// countingInspection records which packages it was offered
type countingInspection struct {
	scope    services.InspectionScope
	seen     []string
	result   bool
	finished bool
}

func (c *countingInspection) Name() string                    { return "counting" }
func (c *countingInspection) Scope() services.InspectionScope { return c.scope }

func (c *countingInspection) InspectPeer(_ context.Context, _ *services.InspectionContext, peer *entities.PeerSet) bool {
	c.seen = append(c.seen, peer.After.Name)
	return c.result
}

func (c *countingInspection) Finish(_ context.Context, _ *services.InspectionContext) bool {
	c.finished = true
	return true
}
