package journal

import (
	"bytes"
	"errors"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/wilbur182/sessiontail/internal/cache"
	"github.com/wilbur182/sessiontail/internal/cursor"
)

// isHeader reports whether line is the file-header record.
func isHeader(line []byte) bool {
	return bytes.Contains(bytes.ToLower(line), []byte(headerTag))
}

// isExcludedHeader reports whether a header line names the excluded channel.
func isExcludedHeader(line []byte) bool {
	lower := bytes.ToLower(line)
	return bytes.Contains(lower, []byte(headerTag)) && bytes.Contains(lower, []byte(excludedChannel))
}

// inspect reads path from the start up to the file-header record.
// It returns the xxhash of the first complete line (0 when there is none yet)
// and whether the header names the excluded channel.
func inspect(path string) (fingerprint uint64, excluded bool, err error) {
	r, err := cache.NewIncrementalReader(path, 0)
	if err != nil {
		return 0, false, err
	}
	defer func() { _ = r.Close() }()

	for first := true; ; first = false {
		line, err := r.Next()
		if errors.Is(err, io.EOF) {
			return fingerprint, false, nil
		}
		if err != nil {
			return fingerprint, false, err
		}
		if first {
			fingerprint = xxhash.Sum64(line)
		}
		if isHeader(line) {
			return fingerprint, isExcludedHeader(line), nil
		}
	}
}

// excludedLocked is the channel filter. A positive result is cached on the
// entry forever; a negative one is recomputed on every call.
// It also resets the entry when the path now holds a different file.
// Caller holds tf.mu.
func (t *Tailer) excludedLocked(path string, tf *trackedFile) (bool, error) {
	if tf.excluded {
		return true, nil
	}

	fp, excluded, err := inspect(path)
	if err != nil {
		return false, err
	}
	if fp != 0 && tf.cur.Fingerprint != 0 && fp != tf.cur.Fingerprint {
		t.logger.Info("journal: file replaced, restarting from the beginning", "path", path)
		tf.cur = cursor.Cursor{}
	}
	if fp != 0 {
		tf.cur.Fingerprint = fp
	}

	if excluded {
		tf.excluded = true
		t.metrics.FileExcluded()
		t.logger.Debug("journal: excluded channel", "path", path)
	}
	return excluded, nil
}
