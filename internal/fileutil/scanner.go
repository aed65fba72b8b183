package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// TaskExtensions are the file types a directory scan treats as task files.
var TaskExtensions = []string{".yaml", ".yml", ".md"}

// ScanOptions configures ScanDirectory
type ScanOptions struct {
	// Extensions to include, case-insensitive; empty includes every file
	Extensions []string
	// Recursive descends into subdirectories
	Recursive bool
	// ExcludeDirs are directory names never entered
	ExcludeDirs []string
}

// ScanResult holds the files found by a scan
type ScanResult struct {
	Files  []string // Absolute paths, sorted
	Errors []error  // Non-fatal errors met while walking
}

// ScanDirectory walks dir for files matching opts. Directories whose names
// start with "." are skipped.
func ScanDirectory(dir string, opts ScanOptions) (*ScanResult, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", dir)
	}

	extensions := make(map[string]bool, len(opts.Extensions))
	for _, ext := range opts.Extensions {
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		extensions[strings.ToLower(ext)] = true
	}
	excluded := make(map[string]bool, len(opts.ExcludeDirs))
	for _, name := range opts.ExcludeDirs {
		excluded[name] = true
	}

	result := &ScanResult{Files: []string{}, Errors: []error{}}
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("error accessing %s: %w", path, err))
			return nil
		}
		if path == dir {
			return nil
		}

		if d.IsDir() {
			if !opts.Recursive || excluded[d.Name()] || strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		if len(extensions) > 0 && !extensions[strings.ToLower(filepath.Ext(d.Name()))] {
			return nil
		}

		abs, err := filepath.Abs(path)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("failed to resolve path %s: %w", path, err))
			return nil
		}
		result.Files = append(result.Files, abs)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	sort.Strings(result.Files)
	return result, nil
}

// ResolveTaskFiles expands args into task files. Files are taken as given;
// directories are scanned recursively for TaskExtensions. Each file appears
// once, in argument order.
func ResolveTaskFiles(args []string) ([]string, error) {
	var files []string
	seen := make(map[string]bool)
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("task path %s: %w", arg, err)
		}
		if !info.IsDir() {
			abs, err := filepath.Abs(arg)
			if err != nil {
				return nil, fmt.Errorf("resolve %s: %w", arg, err)
			}
			add(abs)
			continue
		}

		result, err := ScanDirectory(arg, ScanOptions{
			Extensions:  TaskExtensions,
			Recursive:   true,
			ExcludeDirs: []string{"node_modules", "vendor", "testdata"},
		})
		if err != nil {
			return nil, err
		}
		if len(result.Errors) > 0 {
			return nil, result.Errors[0]
		}
		for _, f := range result.Files {
			add(f)
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no task files found in %s", strings.Join(args, ", "))
	}
	return files, nil
}
