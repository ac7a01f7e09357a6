//go:build !linux && !darwin && !windows

package journal

import (
	"io/fs"
	"time"
)

func createdAt(_ string, info fs.FileInfo) time.Time {
	return info.ModTime()
}
