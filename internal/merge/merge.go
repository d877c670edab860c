// Package merge combines records from many documents into one deduplicated,
// ordered dataset and classifies underenrolled sections.
package merge

import (
	"sort"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/course-extractor/constants"
	"github.com/joseph-ayodele/course-extractor/internal/record"
)

// Options tune a merge. The zero value merges everything and ignores no titles.
type Options struct {
	// GraduateOnly drops records whose course number is below the graduate threshold.
	// Records without a readable course number are kept.
	GraduateOnly bool
	// IgnoreTitles never count as underenrolled; they stay in the combined set.
	IgnoreTitles []string
}

// DefaultOptions matches the service defaults.
func DefaultOptions() Options {
	return Options{GraduateOnly: true, IgnoreTitles: constants.IgnoreCourses}
}

// Result is the output of one merge.
type Result struct {
	Combined      []record.Record
	Underenrolled []record.Record
	// Collapsed counts input rows absorbed into another row of the same key.
	Collapsed int
	// Filtered counts input rows removed by the graduate filter.
	Filtered int
}

// Merge groups records by (crn, term_year), keeps the most complete row per
// group and orders the result by subject code, course number and CRN.
// Inputs are not modified.
func Merge(in []record.Record, opts Options) Result {
	res := Result{Combined: []record.Record{}, Underenrolled: []record.Record{}}

	type group struct {
		best    record.Record
		rows    int
		crossed bool
		sources map[string]struct{}
	}
	groups := make(map[record.Key]*group)
	order := make([]record.Key, 0)

	for _, r := range in {
		if opts.GraduateOnly && !isGraduate(r) {
			res.Filtered++
			continue
		}
		k := r.Key()
		g, ok := groups[k]
		if !ok {
			g = &group{best: r.Clone(), sources: map[string]struct{}{}}
			groups[k] = g
			order = append(order, k)
		} else {
			res.Collapsed++
			if better(r, g.best) {
				g.best = r.Clone()
			}
		}
		g.rows++
		g.crossed = g.crossed || r.IsCrossListed
		for _, s := range splitSources(r.SourceFile) {
			g.sources[s] = struct{}{}
		}
	}

	for _, k := range order {
		g := groups[k]
		merged := g.best
		merged.IsCrossListed = g.crossed || g.rows > 1
		merged.SourceFile = joinSources(g.sources)
		res.Combined = append(res.Combined, merged)
	}
	sort.SliceStable(res.Combined, func(i, j int) bool {
		return less(res.Combined[i], res.Combined[j])
	})

	for _, r := range res.Combined {
		if IsUnderenrolled(r) && !constants.IsIgnoredTitle(r.Title, opts.IgnoreTitles) {
			res.Underenrolled = append(res.Underenrolled, r.Clone())
		}
	}
	return res
}

// IsUnderenrolled reports a known enrollment below the threshold.
// Unknown enrollment is never underenrolled.
func IsUnderenrolled(r record.Record) bool {
	return r.Enrolled != nil && *r.Enrolled < constants.UnderenrolledThreshold
}

func isGraduate(r record.Record) bool {
	level, ok := r.CourseLevel()
	return !ok || level >= constants.GraduateLevelThreshold
}

// better prefers fewer nulls, then the lexically smaller source for stability.
func better(candidate, current record.Record) bool {
	cn, bn := candidate.NullCount(), current.NullCount()
	if cn != bn {
		return cn < bn
	}
	return candidate.SourceFile < current.SourceFile
}

const sourceSep = "; "

func splitSources(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func joinSources(set map[string]struct{}) string {
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return strings.Join(out, sourceSep)
}

func less(a, b record.Record) bool {
	if a.SubjectCode != b.SubjectCode {
		return a.SubjectCode < b.SubjectCode
	}
	if c := compareMixed(a.CourseNumber, b.CourseNumber); c != 0 {
		return c < 0
	}
	if c := compareMixed(a.CRN, b.CRN); c != 0 {
		return c < 0
	}
	return a.TermYear < b.TermYear
}

// compareMixed orders numeric strings by value and everything else lexically.
// Numbers sort before non-numbers.
func compareMixed(a, b string) int {
	an, aerr := strconv.ParseInt(a, 10, 64)
	bn, berr := strconv.ParseInt(b, 10, 64)
	switch {
	case aerr == nil && berr == nil:
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
		return strings.Compare(a, b)
	case aerr == nil:
		return -1
	case berr == nil:
		return 1
	}
	return strings.Compare(a, b)
}
