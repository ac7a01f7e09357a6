package journal

import "strings"

// DefaultSession is the sentinel session for unattributed content.
const DefaultSession = "Default"

const (
	// markerTag identifies the record naming the session.
	markerTag = `"event":"LoadGame"`
	// headerTag and excludedChannel are matched case-insensitively.
	headerTag       = "fileheader"
	excludedChannel = "beta"
)

// Pattern matches journal file names in the watched directory.
type Pattern struct {
	Prefix string
	Suffix string
}

// DefaultPattern matches Journal.*.log.
var DefaultPattern = Pattern{Prefix: "Journal.", Suffix: ".log"}

// Match reports whether a base file name is a journal file.
func (p Pattern) Match(name string) bool {
	return len(name) >= len(p.Prefix)+len(p.Suffix) &&
		strings.HasPrefix(name, p.Prefix) &&
		strings.HasSuffix(name, p.Suffix)
}

// Batch is the result of one incremental read.
type Batch struct {
	Session string
	Lines   []string
}

// Collection groups lines by session.
type Collection map[string][]string

// Add appends lines to session's collection. Empty input is ignored.
func (c Collection) Add(session string, lines ...string) {
	if len(lines) == 0 {
		return
	}
	c[session] = append(c[session], lines...)
}
