package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// ScanDirectory walks root and returns one entry per PDF, sorted by path.
// Files whose metadata can be neither taken from opts nor read from the name
// are reported with Err set and counted as failed; the walk continues.
func ScanDirectory(root string, opts Options) ([]Entry, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []Entry
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root {
				return walkErr
			}
			stats.Failed++
			results = append(results, Entry{Path: path, Filename: filepath.Base(path), Err: walkErr.Error()})
			return nil // continue walking
		}
		if path != root && opts.SkipHidden && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			stats.Skipped++
			return nil
		}
		if d.IsDir() {
			return nil
		}
		stats.Scanned++
		if !AllowedExt(filepath.Ext(path)) {
			stats.Skipped++
			return nil
		}
		stats.Matched++

		e := Entry{Path: path, Filename: filepath.Base(path), SubjectCode: opts.SubjectCode, TermYear: opts.TermYear}
		if e.SubjectCode == "" || e.TermYear == "" {
			subject, term, ok := MetaFromName(e.Filename)
			if !ok {
				stats.Failed++
				e.Err = "cannot infer subject code and term from file name; pass them explicitly"
				results = append(results, e)
				return nil
			}
			if e.SubjectCode == "" {
				e.SubjectCode = subject
			}
			if e.TermYear == "" {
				e.TermYear = term
			}
		}
		results = append(results, e)
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Path < results[j].Path })
	return results, stats, nil
}
