package gateways

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// walkFiles visits every regular file below root in lexical order. It
// never follows symbolic links and never descends into a directory on a
// different device than root. Unreadable directories are reported to
// onError and skipped.
func walkFiles(ctx context.Context, root string, visit func(path string), onError func(path string, err error)) error {
	rootInfo, err := os.Lstat(root)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", root, err)
	}
	if !rootInfo.IsDir() {
		return fmt.Errorf("%s is not a directory", root)
	}
	rootDev, haveDev := deviceOf(rootInfo)

	type item struct {
		path string
		dir  bool
	}

	// stack of pending entries; children are pushed in reverse so they
	// pop in lexical order
	stack := []item{{path: root, dir: true}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		next := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !next.dir {
			visit(next.path)
			continue
		}

		entries, err := os.ReadDir(next.path)
		if err != nil {
			onError(next.path, err)
			continue
		}

		for i := len(entries) - 1; i >= 0; i-- {
			entry := entries[i]
			path := filepath.Join(next.path, entry.Name())

			switch {
			case entry.Type()&os.ModeSymlink != 0:
				continue

			case entry.IsDir():
				if haveDev {
					info, err := entry.Info()
					if err != nil {
						onError(path, err)
						continue
					}
					if dev, ok := deviceOf(info); ok && dev != rootDev {
						continue
					}
				}
				stack = append(stack, item{path: path, dir: true})

			case entry.Type().IsRegular():
				stack = append(stack, item{path: path})
			}
		}
	}

	return nil
}
