package forking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/go-github/v59/github"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/salesforce/dockerfile-image-update-sub000/internal/githubclt"
	"github.com/salesforce/dockerfile-image-update-sub000/internal/logfields"
)

const loggerName = "fork_orchestrator"

// GithubClient defines the methods of a GitHub client that are used to
// acquire forks.
type GithubClient interface {
	LoginResolver
	GetRepository(ctx context.Context, fullName string) (*github.Repository, error)
	ListForks(ctx context.Context, owner, repo string) ([]*github.Repository, error)
	CreateFork(ctx context.Context, owner, repo string) (*github.Repository, error)
}

// ErrNoFork is returned when a fork could not be acquired.
var ErrNoFork = errors.New("fork could not be acquired")

// Orchestrator ensures that at most 1 fork per parent repository is
// acquired in a run.
type Orchestrator struct {
	clt       GithubClient
	identity  *Identity
	validator *Validator
	records   *Records
	logger    *zap.Logger

	lock        sync.Mutex
	parentLocks map[string]*sync.Mutex
}

// NewOrchestrator returns an Orchestrator that stores its results in
// records.
func NewOrchestrator(clt GithubClient, identity *Identity, records *Records) *Orchestrator {
	return &Orchestrator{
		clt:         clt,
		identity:    identity,
		validator:   NewValidator(identity),
		records:     records,
		logger:      zap.L().Named(loggerName),
		parentLocks: map[string]*sync.Mutex{},
	}
}

func (o *Orchestrator) Records() *Records {
	return o.records
}

func (o *Orchestrator) parentLock(parent string) *sync.Mutex {
	o.lock.Lock()
	defer o.lock.Unlock()

	l, exists := o.parentLocks[parent]
	if !exists {
		l = &sync.Mutex{}
		o.parentLocks[parent] = l
	}

	return l
}

// AddAll calls Add for every candidate. Errors are aggregated, a failed
// candidate does not prevent the processing of the others.
func (o *Orchestrator) AddAll(ctx context.Context, candidates []*CandidateContent) error {
	var errs error

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}

		errs = multierr.Append(errs, o.Add(ctx, c))
	}

	return errs
}

// Add attaches the candidate to the fork record of its parent repository.
// If no record exists yet, the parent is fetched, validated and a fork is
// acquired.
// Parents that are denied are skipped, nil is returned for them.
// When acquiring the fork fails, the parent is skipped for the rest of the
// run and an error is returned once.
func (o *Orchestrator) Add(ctx context.Context, c *CandidateContent) error {
	pl := o.parentLock(c.Parent)
	pl.Lock()
	defer pl.Unlock()

	logger := o.logger.With(logfields.Repository(c.Parent), logfields.Path(c.Path))

	if rec := o.records.Get(c.Parent); rec != nil {
		if rec.AddPath(c.Path) {
			logger.Debug(
				"added path to existing fork record",
				logfields.Event("fork_record_path_added"),
			)
		}

		return nil
	}

	if reason := o.records.SkipReason(c.Parent); reason != "" {
		logger.Debug(
			"ignoring candidate of skipped parent repository",
			logfields.Event("candidate_of_skipped_parent_ignored"),
			logfields.Reason(reason),
		)
		return nil
	}

	parent, err := o.clt.GetRepository(ctx, c.Parent)
	if err != nil {
		o.records.skip(c.Parent, "fetching repository failed")
		return fmt.Errorf("fetching parent repository %s failed: %w", c.Parent, err)
	}

	res := o.validator.ShouldFork(ctx, parent)
	if !res.Allowed() {
		o.records.skip(c.Parent, res.Reason())

		if res.Err() != nil {
			return fmt.Errorf("%s: %s: %w", c.Parent, res.Reason(), res.Err())
		}

		logger.Info(
			"skipping repository, it can not be forked",
			logfields.Event("fork_denied"),
			logfields.Reason(res.Reason()),
		)

		return nil
	}

	fork, err := o.getOrCreateFork(ctx, parent)
	if err != nil {
		o.records.skip(c.Parent, "fork acquisition failed")
		return fmt.Errorf("acquiring fork of %s failed: %w", c.Parent, err)
	}

	rec := newForkRecord(parent, fork)
	rec.AddPath(c.Path)
	o.records.add(c.Parent, rec)

	logger.Info(
		"fork acquired",
		logfields.Event("fork_acquired"),
		logfields.Fork(fork.GetFullName()),
	)

	return nil
}

// getOrCreateFork returns the fork of parent that is owned by the
// authenticated user. If none exists, it is created.
func (o *Orchestrator) getOrCreateFork(ctx context.Context, parent *github.Repository) (*github.Repository, error) {
	owner := parent.GetOwner().GetLogin()
	repo := parent.GetName()

	login, err := o.identity.Login(ctx)
	if err != nil {
		return nil, err
	}

	forks, err := o.clt.ListForks(ctx, owner, repo)
	if err != nil && !githubclt.IsNotFound(err) {
		return nil, fmt.Errorf("listing forks failed: %w", err)
	}

	for _, f := range forks {
		if strings.EqualFold(f.GetOwner().GetLogin(), login) {
			o.logger.Debug(
				"reusing existing fork",
				logfields.Event("existing_fork_found"),
				logfields.Repository(parent.GetFullName()),
				logfields.Fork(f.GetFullName()),
			)
			return f, nil
		}
	}

	fork, err := o.clt.CreateFork(ctx, owner, repo)
	if err != nil {
		return nil, fmt.Errorf("creating fork failed: %w", err)
	}

	if fork == nil {
		return nil, ErrNoFork
	}

	o.logger.Info(
		"fork created",
		logfields.Event("fork_created"),
		logfields.Repository(parent.GetFullName()),
		logfields.Fork(fork.GetFullName()),
	)

	return fork, nil
}
