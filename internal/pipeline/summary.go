package pipeline

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/salesforce/dockerfile-image-update-sub000/internal/logfields"
	"github.com/salesforce/dockerfile-image-update-sub000/internal/pullrequest"
)

// Failure is an error that prevented updating a repository.
type Failure struct {
	Image      string
	Tag        string
	Repository string
	Err        error
}

func (f *Failure) Error() string {
	if f.Repository == "" {
		return fmt.Sprintf("%s:%s: %s", f.Image, f.Tag, f.Err)
	}

	return fmt.Sprintf("%s:%s: %s: %s", f.Image, f.Tag, f.Repository, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Summary counts the results of the processed repositories.
// It is safe for concurrent use.
type Summary struct {
	created   atomic.Int64
	reused    atomic.Int64
	noCommits atomic.Int64
	denied    atomic.Int64

	lock     sync.Mutex
	failures []*Failure
}

func (s *Summary) addOutcome(outcome pullrequest.Outcome) {
	switch outcome {
	case pullrequest.Created:
		s.created.Inc()
	case pullrequest.Reused:
		s.reused.Inc()
	case pullrequest.SkippedNoCommits:
		s.noCommits.Inc()
	}
}

func (s *Summary) addDenied() {
	s.denied.Inc()
}

func (s *Summary) addFailure(image, tag, repo string, err error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.failures = append(s.failures, &Failure{
		Image:      image,
		Tag:        tag,
		Repository: repo,
		Err:        err,
	})
}

func (s *Summary) Created() int64 {
	return s.created.Load()
}

func (s *Summary) Reused() int64 {
	return s.reused.Load()
}

func (s *Summary) SkippedNoCommits() int64 {
	return s.noCommits.Load()
}

// Denied returns the number of repositories that were not forked.
func (s *Summary) Denied() int64 {
	return s.denied.Load()
}

// Failures returns the failures sorted by image, tag and repository.
func (s *Summary) Failures() []*Failure {
	s.lock.Lock()
	result := append([]*Failure(nil), s.failures...)
	s.lock.Unlock()

	sort.SliceStable(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Image != b.Image {
			return a.Image < b.Image
		}

		if a.Tag != b.Tag {
			return a.Tag < b.Tag
		}

		return a.Repository < b.Repository
	})

	return result
}

// Err returns an error that combines all failures, nil if no failures
// happened.
func (s *Summary) Err() error {
	var errs error

	for _, f := range s.Failures() {
		errs = multierr.Append(errs, f)
	}

	return errs
}

func (s *Summary) String() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "pull requests created: %d, reused: %d, skipped without changes: %d, repositories not forkable: %d, failures: %d",
		s.Created(), s.Reused(), s.SkippedNoCommits(), s.Denied(), len(s.Failures()),
	)

	for _, f := range s.Failures() {
		sb.WriteString("\n  ")
		sb.WriteString(f.Error())
	}

	return sb.String()
}

// Log logs the counters and every failure.
func (s *Summary) Log(logger *zap.Logger) {
	failures := s.Failures()

	logger.Info(
		"run finished",
		logfields.Event("run_finished"),
		zap.Int64("pull_requests_created", s.Created()),
		zap.Int64("pull_requests_reused", s.Reused()),
		zap.Int64("pull_requests_skipped_no_commits", s.SkippedNoCommits()),
		zap.Int64("repositories_denied", s.Denied()),
		zap.Int("failures", len(failures)),
	)

	for _, f := range failures {
		logger.Error(
			"updating repository failed",
			logfields.Event("repository_update_failed"),
			logfields.Image(f.Image),
			logfields.Tag(f.Tag),
			logfields.Repository(f.Repository),
			zap.Error(f.Err),
		)
	}
}
