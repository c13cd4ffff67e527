// Package selector implements the selection engine: given the candidate
// files of a directory, a history snapshot, and the request flags, it
// decides which files to act on next. It owns no state; the caller commits
// the resulting history delta.
package selector

import (
	"errors"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"path"
	"path/filepath"
	"sort"

	"github.com/hayeah/choosenext/internal/natsort"
)

// CountAll is the infinite count sentinel: select every remaining unseen
// candidate.
const CountAll = -1

// Mode selects the ordering strategy.
type Mode int

const (
	// ModeSequential picks unseen files in natural path order.
	ModeSequential Mode = iota
	// ModeRandom samples unseen files uniformly without replacement.
	ModeRandom
	// ModeLast replays the most recent history entry without recording it.
	ModeLast
)

var (
	// ErrNoCandidates is returned when the directory has no eligible files
	// and no explicit files were given.
	ErrNoCandidates = errors.New("no files available for selection")
	// ErrInvalidCount is returned for a zero or negative finite count.
	ErrInvalidCount = errors.New("invalid selection count")
	// ErrEmptyHistory is returned when a replay is requested with no history.
	ErrEmptyHistory = errors.New("history is empty")
	// ErrFileNotFound is returned when an explicit file is neither a
	// candidate nor present on the filesystem.
	ErrFileNotFound = errors.New("file not found")
)

// Request bundles the inputs of a selection.
type Request struct {
	Candidates []string // eligible files, relative to the directory
	History    []string // history snapshot, oldest first
	Explicit   []string // files named by the caller, selected first
	Mode       Mode
	Count      int // positive, or CountAll
	Prepend    bool
	Rand       *rand.Rand // randomness source for ModeRandom; nil uses the global one
}

// Result is an ordered selection plus how the history log must change once
// the files have been acted on.
type Result struct {
	Files []string
	// Wrapped is set when the unseen set was exhausted and the full
	// candidate set was put back into rotation. Committing a wrapped
	// selection rewrites the log so the next cycle starts fresh.
	Wrapped bool
	// NoMutation is set when the selection must not touch the log
	// (replaying the last file does not count as a new view).
	NoMutation bool
}

// Select runs the selection algorithm. fsys is the watched directory; it
// is only consulted to validate explicit files that are not candidates.
func Select(fsys fs.FS, req Request) (*Result, error) {
	if req.Mode == ModeLast {
		if len(req.History) == 0 {
			return nil, fmt.Errorf("%w: nothing to replay", ErrEmptyHistory)
		}
		return &Result{
			Files:      []string{req.History[len(req.History)-1]},
			NoMutation: true,
		}, nil
	}

	if req.Count != CountAll && req.Count <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCount, req.Count)
	}
	if len(req.Candidates) == 0 && len(req.Explicit) == 0 {
		return nil, ErrNoCandidates
	}

	inCandidates := make(map[string]bool, len(req.Candidates))
	for _, c := range req.Candidates {
		inCandidates[c] = true
	}

	if err := checkExplicit(fsys, req.Explicit, inCandidates); err != nil {
		return nil, err
	}

	// every explicitly named file is selected, even past a smaller count
	count := req.Count
	if count != CountAll && count < len(req.Explicit) {
		count = len(req.Explicit)
	}

	ordered := make([]string, len(req.Candidates))
	copy(ordered, req.Candidates)
	sort.Slice(ordered, func(i, j int) bool { return natsort.Less(ordered[i], ordered[j]) })

	seen := make(map[string]bool, len(req.History))
	for _, h := range req.History {
		seen[h] = true
	}

	var unseen []string
	for _, c := range ordered {
		if !seen[c] {
			unseen = append(unseen, c)
		}
	}

	// wrap around: once everything has been seen, the whole candidate set
	// goes back into rotation
	wrapped := false
	if len(unseen) == 0 && len(ordered) > 0 {
		unseen = ordered
		wrapped = true
	}

	selection := make([]string, 0, len(req.Explicit))
	picked := make(map[string]bool, len(req.Explicit))
	for _, e := range req.Explicit {
		selection = append(selection, e)
		picked[e] = true
	}

	pool := make([]string, 0, len(unseen))
	for _, c := range unseen {
		if !picked[c] {
			pool = append(pool, c)
		}
	}

	n := len(pool)
	if count != CountAll && count-len(selection) < n {
		n = count - len(selection)
	}

	if n > 0 {
		switch req.Mode {
		case ModeRandom:
			selection = append(selection, sample(req.Rand, pool, n)...)
		default:
			selection = append(selection, pool[:n]...)
		}
	}

	return &Result{Files: selection, Wrapped: wrapped}, nil
}

// checkExplicit validates the caller-named files. A file that is a
// candidate is fine as is; anything else acts as an override and must at
// least exist under the directory.
func checkExplicit(fsys fs.FS, explicit []string, inCandidates map[string]bool) error {
	for _, e := range explicit {
		if inCandidates[e] {
			continue
		}
		name := path.Clean(filepath.ToSlash(e))
		if !fs.ValidPath(name) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, e)
		}
		if _, err := fs.Stat(fsys, name); err != nil {
			return fmt.Errorf("%w: %s", ErrFileNotFound, e)
		}
	}
	return nil
}

// sample returns n elements of pool drawn uniformly without replacement.
// pool is not modified.
func sample(rng *rand.Rand, pool []string, n int) []string {
	shuffled := make([]string, len(pool))
	copy(shuffled, pool)
	swap := func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] }
	if rng != nil {
		rng.Shuffle(len(shuffled), swap)
	} else {
		rand.Shuffle(len(shuffled), swap)
	}
	return shuffled[:n]
}
