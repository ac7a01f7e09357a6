// Package cache provides a generic thread-safe path-keyed cache with optional
// LRU eviction, file-metadata change detection, and an incremental line reader
// that shares pooled scanner buffers.
package cache
