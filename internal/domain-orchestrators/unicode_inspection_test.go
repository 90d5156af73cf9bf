package orchestrators

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ochairo/pkginspect/internal/domain/entities"
)

type fakePreparer struct {
	tree  *entities.SourceTree
	err   error
	calls int
}

func (f *fakePreparer) Prepare(_ context.Context, _ *entities.Package, _ string) (*entities.SourceTree, error) {
	f.calls++
	return f.tree, f.err
}

type fakeScanner struct {
	tree  []entities.Violation
	files map[string][]entities.Violation
}

func (f *fakeScanner) ScanTree(_ context.Context, _ *entities.SourceTree, _ string, _ []entities.Pattern) []entities.Violation {
	return f.tree
}

func (f *fakeScanner) ScanFile(_ context.Context, path, _ string, _ []entities.Pattern) []entities.Violation {
	return f.files[filepath.Base(path)]
}

func sourcePackage(t *testing.T) *entities.Package {
	t.Helper()
	root := t.TempDir()
	return &entities.Package{
		Name:    "hello",
		Version: "1.0",
		Release: "1",
		Arch:    "src",
		Source:  true,
		Root:    root,
		Files: []entities.PackageFile{
			{LocalPath: "hello-1.0.tar.gz", FullPath: filepath.Join(root, "hello-1.0.tar.gz")},
			{LocalPath: "hello.spec", FullPath: filepath.Join(root, "hello.spec")},
		},
	}
}

func preparedTree(t *testing.T) *entities.SourceTree {
	t.Helper()
	base := filepath.Join(t.TempDir(), "prep-1")
	require.NoError(t, os.MkdirAll(filepath.Join(base, "BUILD"), 0750))
	return &entities.SourceTree{Base: base, Root: filepath.Join(base, "BUILD")}
}

func rlo(path string, line, col int) entities.Violation {
	return entities.Violation{Path: path, Line: line, Column: col, Pattern: entities.Codepoint(0x202E)}
}

func TestUnicodeInspection_Violation(t *testing.T) {
	tree := preparedTree(t)
	preparer := &fakePreparer{tree: tree}
	scanner := &fakeScanner{tree: []entities.Violation{rlo("hello-1.0/src/main.c", 3, 4)}}

	ic := newContext(t, nil)
	passed := newDriver().Run(context.Background(), ic, []*entities.PeerSet{{After: sourcePackage(t)}}, NewUnicodeInspection(preparer, scanner))

	assert.False(t, passed)
	results := ic.Report.Results()
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, entities.SeverityVerify, r.Severity)
	assert.Equal(t, entities.WaivableBySecurity, r.WaiverAuth)
	assert.Equal(t, "A forbidden code point, 0x202E, was found in the hello-1.0/src/main.c source file on line 3 at column 4.  This source file is used by hello.spec.", r.Message)
	assert.Equal(t, "hello-1.0/src/main.c", r.File)
	assert.Equal(t, "src", r.Arch)
	assert.NotEmpty(t, r.Remedy)

	assert.Equal(t, 1, preparer.calls)
	assert.NoDirExists(t, tree.Base, "the prepared tree must be removed after scanning")
}

func TestUnicodeInspection_SecurityRules(t *testing.T) {
	tests := []struct {
		name       string
		rules      []entities.SecurityRule
		wantPass   bool
		wantSev    entities.Severity
		wantWaiver entities.WaiverAuth
	}{
		{
			name:       "inform",
			rules:      []entities.SecurityRule{{Path: "docs/*", Actions: map[entities.SecurityRuleKind]entities.SecurityAction{entities.SecRuleUnicode: entities.ActionInform}}},
			wantPass:   true,
			wantSev:    entities.SeverityInfo,
			wantWaiver: entities.NotWaivable,
		},
		{
			name:       "skip",
			rules:      []entities.SecurityRule{{Package: "hello", Actions: map[entities.SecurityRuleKind]entities.SecurityAction{entities.SecRuleUnicode: entities.ActionSkip}}},
			wantPass:   true,
			wantSev:    entities.SeverityOK,
			wantWaiver: entities.WaiverNull,
		},
		{
			name:       "fail",
			rules:      []entities.SecurityRule{{Package: "hel*", Actions: map[entities.SecurityRuleKind]entities.SecurityAction{entities.SecRuleUnicode: entities.ActionFail}}},
			wantPass:   false,
			wantSev:    entities.SeverityBad,
			wantWaiver: entities.WaivableBySecurity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := entities.DefaultConfig()
			cfg.SecurityRules = tt.rules

			scanner := &fakeScanner{tree: []entities.Violation{rlo("docs/readme.txt", 1, 0)}}
			ic := newContext(t, cfg)
			passed := newDriver().Run(context.Background(), ic, []*entities.PeerSet{{After: sourcePackage(t)}},
				NewUnicodeInspection(&fakePreparer{tree: preparedTree(t)}, scanner))

			assert.Equal(t, tt.wantPass, passed)
			results := ic.Report.Results()
			require.Len(t, results, 1)
			assert.Equal(t, tt.wantSev, results[0].Severity)
			assert.Equal(t, tt.wantWaiver, results[0].WaiverAuth)
		})
	}
}

func TestUnicodeInspection_PrepFailure(t *testing.T) {
	preparer := &fakePreparer{err: &entities.PrepError{Package: "hello-1.0-1", Details: "error: Bad exit status", Err: errors.New("exit status 1")}}
	scanner := &fakeScanner{files: map[string][]entities.Violation{"hello.spec": {rlo("hello.spec", 7, 2)}}}

	ic := newContext(t, nil)
	passed := newDriver().Run(context.Background(), ic, []*entities.PeerSet{{After: sourcePackage(t)}}, NewUnicodeInspection(preparer, scanner))

	assert.False(t, passed)
	results := ic.Report.Results()
	require.Len(t, results, 2, "prep failure plus the violation in the spec file itself")

	assert.Equal(t, entities.SeverityBad, results[0].Severity)
	assert.Equal(t, entities.NotWaivable, results[0].WaiverAuth)
	assert.Equal(t, "error: Bad exit status", results[0].Details)
	assert.True(t, strings.HasPrefix(results[0].Message, "Unable to run through the %prep section in hello.spec"))

	assert.Equal(t, "hello.spec", results[1].File)
}

func TestUnicodeInspection_NoSourcePackages(t *testing.T) {
	ic := newContext(t, nil)
	plugin := NewUnicodeInspection(&fakePreparer{}, &fakeScanner{})

	passed := newDriver().Run(context.Background(), ic, []*entities.PeerSet{{After: binaryPackage("hello", "1", nil)}}, plugin)

	assert.True(t, passed)
	results := ic.Report.Results()
	require.Len(t, results, 1)
	assert.Equal(t, entities.SeverityInfo, results[0].Severity)
	assert.Contains(t, results[0].Message, "only for source packages")
}

func TestUnicodeInspection_NoForbiddenCodepoints(t *testing.T) {
	cfg := entities.DefaultConfig()
	cfg.Unicode.ForbiddenCodepoints = nil

	preparer := &fakePreparer{}
	ic := newContext(t, cfg)
	passed := newDriver().Run(context.Background(), ic, []*entities.PeerSet{{After: sourcePackage(t)}}, NewUnicodeInspection(preparer, &fakeScanner{}))

	assert.True(t, passed)
	assert.Zero(t, preparer.calls)
	results := ic.Report.Results()
	require.Len(t, results, 1)
	assert.Equal(t, entities.SeverityOK, results[0].Severity)
}
