package journal

import (
	"bytes"
	"encoding/json"
)

// markerRecord is the subset of the LoadGame record we need.
type markerRecord struct {
	Event     string `json:"event"`
	Commander string `json:"Commander"`
}

// resolveSession inspects one line for the marker record.
// It returns ok=false when the line is not a marker; a malformed marker
// resolves to DefaultSession.
func resolveSession(line []byte) (session string, ok bool) {
	if !bytes.Contains(line, []byte(markerTag)) {
		return "", false
	}
	var rec markerRecord
	if err := json.Unmarshal(line, &rec); err != nil || rec.Commander == "" {
		return DefaultSession, true
	}
	return rec.Commander, true
}

// observe runs the session resolver over one line.
// Once a session is cached, later lines are not inspected. Caller holds tf.mu.
func (tf *trackedFile) observe(line []byte) {
	if tf.cur.Session != "" {
		return
	}
	if s, ok := resolveSession(line); ok {
		tf.cur.Session = s
	}
}

// session returns the cached session or DefaultSession. Caller holds tf.mu.
func (tf *trackedFile) session() string {
	if tf.cur.Session == "" {
		return DefaultSession
	}
	return tf.cur.Session
}
