//go:build !unix

package gateways

import "os"

func deviceOf(_ os.FileInfo) (uint64, bool) {
	return 0, false
}
