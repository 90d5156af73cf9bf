package gateways

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"time"
)

// CommandRunner spawns child processes with their stdout and stderr
// captured through one pipe
type CommandRunner struct {
	defaultTimeout time.Duration
}

// NewCommandRunner creates a new command runner
func NewCommandRunner() *CommandRunner {
	return &CommandRunner{
		defaultTimeout: 30 * time.Minute,
	}
}

// RunConfig describes one child process
type RunConfig struct {
	Args       []string
	WorkingDir string
	Env        map[string]string
	Timeout    time.Duration
}

// RunResult is the outcome of one child process
type RunResult struct {
	Success  bool
	ExitCode int    // -1 when the process could not start or was killed
	Output   string // combined stdout and stderr, trailing newline trimmed
	Duration time.Duration
	Error    error
}

// Run starts the command and reads its combined output line by line until
// the child closes its end of the pipe, then waits for the exit status.
// The pipe is always drained before Wait so a chatty child cannot block.
func (r *CommandRunner) Run(ctx context.Context, config RunConfig) *RunResult {
	startTime := time.Now()
	result := &RunResult{ExitCode: -1}

	if len(config.Args) == 0 {
		result.Error = fmt.Errorf("no command given")
		return result
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = r.defaultTimeout
	}

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	//nolint:gosec // G204: The command line comes from configuration
	cmd := exec.CommandContext(execCtx, config.Args[0], config.Args[1:]...)
	if config.WorkingDir != "" {
		cmd.Dir = config.WorkingDir
	}

	env := os.Environ()
	for key, value := range config.Env {
		env = append(env, fmt.Sprintf("%s=%s", key, value))
	}
	cmd.Env = env
	isolateProcessGroup(cmd)

	pr, pw, err := os.Pipe()
	if err != nil {
		result.Error = fmt.Errorf("failed to create pipe: %w", err)
		return result
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		_ = pw.Close()
		_ = pr.Close()
		result.Error = fmt.Errorf("failed to start %s: %w", config.Args[0], err)
		result.Duration = time.Since(startTime)
		return result
	}

	// the child holds its own copy now
	_ = pw.Close()

	var output strings.Builder
	reader := bufio.NewReader(pr)
	for {
		line, readErr := reader.ReadString('\n')
		output.WriteString(line)
		if readErr != nil {
			if !errors.Is(readErr, io.EOF) {
				result.Error = fmt.Errorf("failed to read output: %w", readErr)
			}
			break
		}
	}
	_ = pr.Close()

	err = cmd.Wait()
	result.Duration = time.Since(startTime)
	result.Output = strings.TrimSuffix(output.String(), "\n")

	if err != nil {
		result.Error = err
		var exitErr *exec.ExitError
		//nolint:gocritic // ifElseChain: checking different error types, not suitable for switch
		if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
			result.ExitCode = exitErr.ExitCode()
		} else if execCtx.Err() == context.DeadlineExceeded {
			result.Error = fmt.Errorf("command timeout after %v", timeout)
		}
		return result
	}

	if result.Error != nil {
		return result
	}

	result.Success = true
	result.ExitCode = 0
	return result
}
