package forking

import (
	"sort"
	"sync"

	"github.com/google/go-github/v59/github"

	"github.com/salesforce/dockerfile-image-update-sub000/internal/orderedmap"
)

// CandidateContent is a file that references the searched image.
type CandidateContent struct {
	// Parent is the full name of the repository containing the file.
	Parent string
	Path   string
	// SearchedRepo is the full name of the repository that was returned by
	// the code search.
	SearchedRepo string
}

// ForkRecord is the fork of a parent repository and the paths of the
// candidate files in the parent.
type ForkRecord struct {
	Parent *github.Repository
	Fork   *github.Repository

	lock  sync.Mutex
	paths map[string]struct{}
}

func newForkRecord(parent, fork *github.Repository) *ForkRecord {
	return &ForkRecord{
		Parent: parent,
		Fork:   fork,
		paths:  map[string]struct{}{},
	}
}

// AddPath adds p to the record, it returns false if it already existed.
func (r *ForkRecord) AddPath(p string) bool {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, exists := r.paths[p]; exists {
		return false
	}

	r.paths[p] = struct{}{}

	return true
}

// Paths returns the sorted candidate paths.
func (r *ForkRecord) Paths() []string {
	r.lock.Lock()
	defer r.lock.Unlock()

	result := make([]string, 0, len(r.paths))
	for p := range r.paths {
		result = append(result, p)
	}

	sort.Strings(result)

	return result
}

// Records is the set of forks that were acquired during a run.
// It is safe for concurrent use.
type Records struct {
	lock    sync.Mutex
	records *orderedmap.Map[string, *ForkRecord]
	skipped *orderedmap.Map[string, string]
}

func NewRecords() *Records {
	return &Records{
		records: orderedmap.New[string, *ForkRecord](),
		skipped: orderedmap.New[string, string](),
	}
}

// Get returns the record of the parent repository with the given full name,
// or nil.
func (r *Records) Get(parent string) *ForkRecord {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.records.Get(parent)
}

func (r *Records) add(parent string, rec *ForkRecord) bool {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.records.AddIfNotExist(parent, rec)
}

// skip marks the parent as not processable in this run.
func (r *Records) skip(parent, reason string) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.skipped.AddIfNotExist(parent, reason)
}

// SkipReason returns the reason why the parent was skipped.
// If it was not skipped an empty string is returned.
func (r *Records) SkipReason(parent string) string {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.skipped.Get(parent)
}

func (r *Records) Len() int {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.records.Len()
}

// All returns the records in the order they were added.
func (r *Records) All() []*ForkRecord {
	r.lock.Lock()
	defer r.lock.Unlock()

	return r.records.AsSlice()
}

// Skipped returns the full names of skipped parents and the skip reasons.
func (r *Records) Skipped() map[string]string {
	r.lock.Lock()
	defer r.lock.Unlock()

	result := make(map[string]string, r.skipped.Len())
	r.skipped.Foreach(func(k, v string) bool {
		result[k] = v
		return true
	})

	return result
}
