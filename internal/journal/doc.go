// Package journal tails a flat directory of append-only journal files.
//
// A Tailer remembers, per file, how many bytes have already been handed out,
// which session (commander) the file belongs to, and whether the file was
// written by the excluded pre-release channel. Reads are incremental: each call
// returns only complete lines appended since the previous call for that file.
// Full-directory scans (All, Since) group the results by session.
//
// All per-file state is guarded by a per-file mutex, so Read may be called
// concurrently from watch callbacks, refresh timers and scan callers.
package journal
