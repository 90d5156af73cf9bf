//go:build !unix

package gateways

import "sync/atomic"

func terminalWidth(_ uintptr) int {
	return defaultTermWidth
}

func watchResize(_ *atomic.Bool) func() {
	return func() {}
}
