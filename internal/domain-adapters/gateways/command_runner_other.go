//go:build !unix

package gateways

import "os/exec"

func isolateProcessGroup(_ *exec.Cmd) {}
