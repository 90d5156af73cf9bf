package services

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/ochairo/pkginspect/internal/domain/entities"
	"github.com/ochairo/pkginspect/internal/domain/interfaces/gateways"
	"github.com/ochairo/pkginspect/internal/domain/interfaces/services"
)

// UseraddCommand is the account creation command the scriptlet rule looks for
const UseraddCommand = "useradd"

const (
	remedyUseraddOptions = "Add -r (or -u with an explicit UID) and -s /sbin/nologin to the useradd invocation in the scriptlet."
	remedyUseraddUID     = "Create system accounts with -r/--system, or pass an explicit UID with -u/--uid."
	remedyUseraddBound   = "Use a UID at or below the configured boundary, or have it added to the allowed UID list."
	remedyUseraddShell   = "System accounts created by packages should use /sbin/nologin as their login shell."
)

// scriptletService implements ScriptletService
type scriptletService struct {
	reader gateways.HeaderReader
}

// NewScriptletService creates a new scriptlet service reading headers through reader
func NewScriptletService(reader gateways.HeaderReader) services.ScriptletService {
	return &scriptletService{reader: reader}
}

// Scriptlet returns the scriptlet for one hook, or false when the
// package does not define it
func (s *scriptletService) Scriptlet(h entities.Header, hook entities.ScriptletHook) (*entities.ScriptletRecord, bool) {
	if h == nil || s.reader == nil {
		return nil, false
	}

	body, ok := s.reader.TagString(h, hook.BodyTag)
	if !ok {
		return nil, false
	}

	interpreter, _ := s.reader.TagString(h, hook.InterTag)

	return &entities.ScriptletRecord{
		Hook:        hook,
		Interpreter: interpreter,
		Body:        body,
	}, true
}

// useraddCall holds the options of one useradd invocation and the
// logical line it sits on
type useraddCall struct {
	line   string
	system bool
	hasUID bool
	uid    int
	uidNum bool
	shell  string
	hasSh  bool
}

// CheckUseradd evaluates every useradd invocation in the scriptlet.
// All applicable checks fire for a single invocation.
func (s *scriptletService) CheckUseradd(
	cfg *entities.Config,
	pkg *entities.Package,
	rebase bool,
	scriptlet *entities.ScriptletRecord,
) []entities.InspectionResult {
	results := make([]entities.InspectionResult, 0)
	if scriptlet == nil || pkg == nil {
		return results
	}

	for _, line := range strings.Split(JoinContinuedLines(scriptlet.Body), "\n") {
		for _, call := range parseUseradd(line) {
			results = append(results, s.useraddResults(cfg, pkg, rebase, scriptlet, call)...)
		}
	}

	return results
}

// useraddResults applies every useradd check to one invocation
func (s *scriptletService) useraddResults(
	cfg *entities.Config,
	pkg *entities.Package,
	rebase bool,
	scriptlet *entities.ScriptletRecord,
	call useraddCall,
) []entities.InspectionResult {
	var results []entities.InspectionResult

	base := entities.InspectionResult{
		Header:     entities.HeaderScriptlets,
		Severity:   entities.SeverityVerify,
		WaiverAuth: entities.WaivableByAnyone,
		Details:    call.line,
		Arch:       pkg.Arch,
	}
	prefix := fmt.Sprintf("The %s command is present in the %s scriptlet in the %s package on %s",
		UseraddCommand, scriptlet.Hook.Name, pkg.Name, pkg.Arch)

	if !call.system && !call.hasUID && !call.hasSh {
		r := base
		if rebase {
			r.Severity = entities.SeverityInfo
		}
		r.Message = prefix + ", but it is missing the required options (-r or -u/--uid as well as -s/--shell)."
		r.Remedy = remedyUseraddOptions
		results = append(results, r)
	}

	if !call.system && !call.hasUID && call.hasSh {
		r := base
		r.Message = prefix + ", but it is missing either the -r/--system option or the -u/--uid option."
		r.Remedy = remedyUseraddUID
		results = append(results, r)
	}

	// a UID given as a shell variable cannot be checked against the boundary
	if call.uidNum && cfg != nil && call.uid > cfg.UIDBoundary && !slices.Contains(cfg.AllowedUIDs, call.uid) {
		r := base
		r.WaiverAuth = entities.WaivableBySecurity
		r.Message = fmt.Sprintf("%s, but it specifies a UID value greater than the configured boundary: %d > %d.  And it is not an allowed UID.",
			prefix, call.uid, cfg.UIDBoundary)
		r.Remedy = remedyUseraddBound
		results = append(results, r)
	}

	if call.hasSh && !strings.HasSuffix(call.shell, "/nologin") {
		r := base
		r.Message = fmt.Sprintf("%s, but it specifies a login shell other than `nologin': %s", prefix, call.shell)
		r.Remedy = remedyUseraddShell
		results = append(results, r)
	}

	return results
}

// parseUseradd splits one logical line into shell commands and collects
// the options of every useradd invocation among them
func parseUseradd(line string) []useraddCall {
	if !strings.Contains(line, UseraddCommand) {
		return nil
	}

	var calls []useraddCall
	for _, command := range splitCommands(line) {
		if call, ok := parseUseraddCommand(line, command); ok {
			calls = append(calls, call)
		}
	}
	return calls
}

func parseUseraddCommand(line, command string) (useraddCall, bool) {
	call := useraddCall{line: line}
	tokens := strings.Fields(command)
	found := false

	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if !found {
			found = strings.HasSuffix(tok, UseraddCommand)
			continue
		}

		name, value, inline := strings.Cut(tok, "=")
		next := func() (string, bool) {
			if inline {
				return value, true
			}
			if i+1 < len(tokens) {
				i++
				return tokens[i], true
			}
			return "", false
		}

		switch name {
		case "-r", "--system":
			call.system = true
		case "-s", "--shell":
			if arg, ok := next(); ok {
				call.hasSh = true
				call.shell = arg
			}
		case "-u", "--uid":
			if arg, ok := next(); ok {
				call.hasUID = true
				if uid, err := strconv.Atoi(arg); err == nil {
					call.uid = uid
					call.uidNum = true
				}
			}
		}
	}

	return call, found
}

// splitCommands cuts a line at the shell separators ; & && | ||, whether
// or not they stand apart from the surrounding words
func splitCommands(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		return r == ';' || r == '&' || r == '|'
	})
}

// JoinContinuedLines joins lines ending in a backslash with the line
// that follows, so every logical command is on one line
func JoinContinuedLines(script string) string {
	lines := strings.Split(script, "\n")
	joined := make([]string, 0, len(lines))

	var pending strings.Builder
	continuing := false

	for _, line := range lines {
		if continuing {
			line = strings.TrimSpace(line)
		}

		if strings.HasSuffix(line, "\\") {
			pending.WriteString(strings.TrimSuffix(line, "\\"))
			continuing = true
			continue
		}

		if continuing {
			pending.WriteString(line)
			joined = append(joined, pending.String())
			pending.Reset()
			continuing = false
			continue
		}

		joined = append(joined, line)
	}

	if continuing {
		joined = append(joined, pending.String())
	}

	return strings.Join(joined, "\n")
}
