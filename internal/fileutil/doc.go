// Package fileutil finds task files on disk.
//
// ScanDirectory walks a directory and returns matching files as sorted
// absolute paths, skipping hidden and excluded directories and collecting
// non-fatal errors instead of stopping. ResolveTaskFiles expands the
// command-line arguments of "evalrun eval" into the task files to load.
package fileutil
