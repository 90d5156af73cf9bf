//go:build unix

package gateways

import (
	"os"
	"syscall"
)

// deviceOf returns the device a file lives on
func deviceOf(info os.FileInfo) (uint64, bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, false
	}
	//nolint:unconvert // Dev is not uint64 on every platform
	return uint64(st.Dev), true
}
