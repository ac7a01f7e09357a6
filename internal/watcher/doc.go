// Package watcher drives journal reads from two triggers: fsnotify events on
// the journal directory, and a periodic refresh of the newest journal file for
// platforms and filesystems where change events or file metadata lag behind
// writes from other processes.
package watcher
