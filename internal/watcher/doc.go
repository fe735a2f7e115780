// Package watcher keeps the known-record store in step with the archive
// directories.
//
// The Watcher subscribes to filesystem events for every configured archive
// directory through fsnotify. Events are debounced per path: an archive
// that is still being written produces a burst of write events but is
// scanned once, after it has been quiet for the debounce interval. Created
// or rewritten archives are handed to the scanner; removed or renamed ones
// have their records forgotten.
//
// Key features:
//   - Recursive directory watches, extended as subdirectories appear
//   - Per-path debounce with a single flushing goroutine
//   - Daemon mode with PID file management and rotating log output
//   - Graceful shutdown on SIGTERM/SIGINT
//
// Example usage:
//
//	sc, err := scanner.New(st, builder, scanner.Options{})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	w, err := watcher.New(sc, cfg.ArchiveDirs, watcher.Options{})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if err := w.Start(); err != nil {
//		log.Fatal(err)
//	}
//	defer w.Stop()
package watcher
