// Package pipeline updates the references of a docker image in all GitHub
// repositories that use it.
//
// A run searches for files that reference the image, forks every parent
// repository that can be forked, rewrites the references on a branch of the
// fork and opens a pull request to the parent. Repositories are processed
// concurrently by a pool of workers, a failure in one repository does not
// stop the processing of the others.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/go-github/v59/github"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/salesforce/dockerfile-image-update-sub000/internal/branch"
	"github.com/salesforce/dockerfile-image-update-sub000/internal/content"
	"github.com/salesforce/dockerfile-image-update-sub000/internal/diuerr"
	"github.com/salesforce/dockerfile-image-update-sub000/internal/filescope"
	"github.com/salesforce/dockerfile-image-update-sub000/internal/forking"
	"github.com/salesforce/dockerfile-image-update-sub000/internal/logfields"
	"github.com/salesforce/dockerfile-image-update-sub000/internal/metrics"
	"github.com/salesforce/dockerfile-image-update-sub000/internal/orderedmap"
	"github.com/salesforce/dockerfile-image-update-sub000/internal/pullrequest"
	"github.com/salesforce/dockerfile-image-update-sub000/internal/ratelimit"
	"github.com/salesforce/dockerfile-image-update-sub000/internal/retry"
	"github.com/salesforce/dockerfile-image-update-sub000/internal/routines"
	"github.com/salesforce/dockerfile-image-update-sub000/internal/searchterms"
	"github.com/salesforce/dockerfile-image-update-sub000/internal/tagstore"
)

const loggerName = "pipeline"

const (
	DefWorkers            = 4
	DefSearchLimit        = 1000
	DefEmptySearchRetries = 2
	DefPRRetryDelay       = 30 * time.Second
)

// Config configures a Pipeline. Zero values are replaced by defaults.
type Config struct {
	// Filenames is the comma separated list of searched filenames.
	Filenames string
	// Branch overrides the name of the branch in the fork.
	Branch string
	// Org restricts the search to an organization.
	Org string
	// User restricts the search to the repositories of a user.
	User string

	SearchLimit        int
	EmptySearchRetries uint
	SearchRetryDelay   time.Duration

	// CommitMessage is appended to the message of every commit.
	CommitMessage string

	Workers int

	ContentRetryer *retry.Retryer
	PRRetryer      *retry.Retryer
	// RateLimiter limits the pull request creations, nil disables rate
	// limiting.
	RateLimiter *ratelimit.RateLimiter
	Templates   *pullrequest.Templates
	// Metrics is optional.
	Metrics *metrics.Collector
}

func (c *Config) setDefaults() error {
	if c.Filenames == "" {
		c.Filenames = filescope.DefFilenames
	}

	if c.SearchLimit <= 0 {
		c.SearchLimit = DefSearchLimit
	}

	if c.SearchRetryDelay <= 0 {
		c.SearchRetryDelay = retry.DefDelay
	}

	if c.Workers <= 0 {
		c.Workers = DefWorkers
	}

	if c.ContentRetryer == nil {
		c.ContentRetryer = retry.New(retry.DefAttempts, retry.DefDelay)
	}

	if c.PRRetryer == nil {
		c.PRRetryer = retry.New(retry.DefAttempts, DefPRRetryDelay)
	}

	if c.Templates == nil {
		templates, err := pullrequest.NewTemplates("", "")
		if err != nil {
			return err
		}

		c.Templates = templates
	}

	return nil
}

// Pipeline updates images in GitHub repositories.
type Pipeline struct {
	clt           GithubClient
	cfg           Config
	scope         filescope.Scope
	identity      *forking.Identity
	updater       *content.Updater
	coordinator   *pullrequest.Coordinator
	searchRetryer *retry.Retryer
	summary       *Summary
	logger        *zap.Logger
}

func New(clt GithubClient, cfg Config) (*Pipeline, error) {
	if err := cfg.setDefaults(); err != nil {
		return nil, err
	}

	scope := filescope.Parse(cfg.Filenames)

	return &Pipeline{
		clt:           clt,
		cfg:           cfg,
		scope:         scope,
		identity:      forking.NewIdentity(clt),
		updater:       content.NewUpdater(clt, cfg.ContentRetryer, scope, cfg.CommitMessage),
		coordinator:   pullrequest.NewCoordinator(clt, cfg.RateLimiter, cfg.PRRetryer, cfg.Templates),
		searchRetryer: retry.New(cfg.EmptySearchRetries+1, cfg.SearchRetryDelay),
		summary:       &Summary{},
		logger:        zap.L().Named(loggerName),
	}, nil
}

// Summary returns the results of all runs of the pipeline.
func (p *Pipeline) Summary() *Summary {
	return p.summary
}

// parentCandidates are the candidates that belong to the same parent
// repository.
type parentCandidates struct {
	parent     string
	candidates []*forking.CandidateContent
}

// Run updates image to tag in all repositories that are found by the code
// search.
// Failures of individual repositories are recorded in the Summary.
// An error is only returned if the run could not be started, it is also
// recorded in the Summary.
func (p *Pipeline) Run(ctx context.Context, image, tag string) error {
	logger := p.logger.With(logfields.Image(image), logfields.Tag(tag))

	b, err := branch.New(image, tag, p.cfg.Branch, p.cfg.Filenames)
	if err != nil {
		p.summary.addFailure(image, tag, "", err)
		return err
	}

	candidates, err := p.search(ctx, image)
	if err != nil {
		p.summary.addFailure(image, tag, "", err)
		return err
	}

	if len(candidates) == 0 {
		logger.Info("no repository references the image", logfields.Event("no_candidates_found"))
		return nil
	}

	p.cfg.Metrics.SearchHitsAdd(image, len(candidates))

	p.process(ctx, b, groupByParent(candidates))

	return nil
}

// RunForRepository updates image to tag in the repository with the given
// full name, without searching for it.
func (p *Pipeline) RunForRepository(ctx context.Context, fullName, image, tag string) error {
	b, err := branch.New(image, tag, p.cfg.Branch, p.cfg.Filenames)
	if err != nil {
		p.summary.addFailure(image, tag, fullName, err)
		return err
	}

	p.process(ctx, b, []*parentCandidates{{
		parent: fullName,
		candidates: []*forking.CandidateContent{{
			Parent:       fullName,
			SearchedRepo: fullName,
		}},
	}})

	return nil
}

// RunStore runs the pipeline for every entry of the store that matches
// filter. A nil filter matches all entries.
func (p *Pipeline) RunStore(ctx context.Context, store tagstore.Store, filter *tagstore.Filter) error {
	entries, err := store.Content(ctx)
	if err != nil {
		return fmt.Errorf("reading store failed: %w", err)
	}

	entries, err = filter.Apply(ctx, entries)
	if err != nil {
		return err
	}

	p.logger.Info(
		"processing store entries",
		logfields.Event("store_run_started"),
		zap.Int("entries", len(entries)),
	)

	var errs error
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}

		errs = multierr.Append(errs, p.Run(ctx, e.Image, e.Tag))
	}

	return errs
}

func groupByParent(candidates []*forking.CandidateContent) []*parentCandidates {
	groups := orderedmap.New[string, *parentCandidates]()

	for _, c := range candidates {
		groups.AddIfNotExist(c.Parent, &parentCandidates{parent: c.Parent})
		g := groups.Get(c.Parent)
		g.candidates = append(g.candidates, c)
	}

	return groups.AsSlice()
}

// process acquires forks for all parents and updates them concurrently.
func (p *Pipeline) process(ctx context.Context, b *branch.GitForkBranch, groups []*parentCandidates) {
	orchestrator := forking.NewOrchestrator(p.clt, p.identity, forking.NewRecords())
	pool := routines.NewPool(p.cfg.Workers)

	for _, g := range groups {
		g := g
		pool.Queue(func() {
			p.processParent(ctx, orchestrator, b, g)
		})
	}

	pool.Wait()
}

func (p *Pipeline) processParent(ctx context.Context, orchestrator *forking.Orchestrator, b *branch.GitForkBranch, g *parentCandidates) {
	image := b.ImageName()
	tag := b.ImageTag()

	if err := ctx.Err(); err != nil {
		p.summary.addFailure(image, tag, g.parent, err)
		return
	}

	for _, c := range g.candidates {
		if err := orchestrator.Add(ctx, c); err != nil {
			p.cfg.Metrics.ForkInc(image, metrics.ForkFailed)
			p.summary.addFailure(image, tag, g.parent, err)
			return
		}
	}

	rec := orchestrator.Records().Get(g.parent)
	if rec == nil {
		p.cfg.Metrics.ForkInc(image, metrics.ForkDenied)
		p.summary.addDenied()
		return
	}

	p.cfg.Metrics.ForkInc(image, metrics.ForkAcquired)

	outcome, err := p.update(ctx, b, rec)
	p.cfg.Metrics.PullRequestInc(image, outcome)
	if err != nil {
		p.summary.addFailure(image, tag, g.parent, err)
		return
	}

	p.summary.addOutcome(outcome)
}

// update rewrites the image references in the fork of rec and opens or
// reuses the pull request.
// If an open pull request for the branch family exists, its head branch is
// updated and no new pull request is opened.
func (p *Pipeline) update(ctx context.Context, b *branch.GitForkBranch, rec *forking.ForkRecord) (pullrequest.Outcome, error) {
	logger := p.logger.With(
		logfields.Repository(rec.Parent.GetFullName()),
		logfields.Fork(rec.Fork.GetFullName()),
		logfields.Image(b.ImageName()),
		logfields.Tag(b.ImageTag()),
	)

	existing, err := p.coordinator.FindExisting(ctx, rec.Parent, rec.Fork.GetOwner().GetLogin(), b)
	if err != nil {
		return pullrequest.Failed, err
	}

	headBranch := b.Name()
	if existing != nil {
		headBranch = existing.GetHead().GetRef()
	}

	if err := p.updater.EnsureBranch(ctx, rec.Fork, headBranch); err != nil {
		return pullrequest.Failed, err
	}

	modified, err := p.updater.Update(ctx, &content.Target{
		Fork:   rec.Fork,
		Branch: headBranch,
		Image:  b.ImageName(),
		Tag:    b.ImageTag(),
	})
	p.cfg.Metrics.UpdatedFilesAdd(b.ImageName(), len(modified))
	if err != nil {
		return pullrequest.Failed, err
	}

	logger.Debug(
		"content updated",
		logfields.Event("content_updated"),
		logfields.Branch(headBranch),
		zap.Strings("candidate_paths", rec.Paths()),
		zap.Strings("modified_paths", modified),
	)

	req := pullrequest.Request{
		Parent:     rec.Parent,
		Fork:       rec.Fork,
		Branch:     b,
		HeadBranch: headBranch,
	}

	if existing != nil {
		logger.Info(
			"updated branch of existing pull request",
			logfields.Event("existing_pull_request_updated"),
			logfields.PullRequest(existing.GetNumber()),
			logfields.Branch(headBranch),
		)

		// the title and body can still name the tag of a previous run
		if _, err := p.coordinator.Refresh(ctx, &req, existing); err != nil {
			logger.Warn(
				"pull request describes a previous tag, updating it failed",
				logfields.Event("pull_request_description_stale"),
				logfields.PullRequest(existing.GetNumber()),
				zap.String("title", existing.GetTitle()),
				zap.Error(err),
			)
		}

		return pullrequest.Reused, nil
	}

	outcome, _, err := p.coordinator.Open(ctx, &req)

	return outcome, err
}

var errNoSearchResults = errors.New("code search returned no results")

// search returns the candidates for image. Duplicate results and files that
// are not in scope are omitted.
// GitHub indexes new content with a delay, empty results are retried.
func (p *Pipeline) search(ctx context.Context, image string) ([]*forking.CandidateContent, error) {
	query := buildQuery(image, p.cfg)

	var results []*github.CodeResult
	var total int

	err := p.searchRetryer.Run(ctx, func(ctx context.Context) error {
		var err error

		results, total, err = p.clt.SearchCode(ctx, query, p.cfg.SearchLimit)
		if err != nil {
			return err
		}

		if len(results) == 0 {
			return diuerr.NewRetryableAnytimeError(errNoSearchResults)
		}

		return nil
	}, []zap.Field{logfields.Image(image), zap.String("search_query", query)})
	if err != nil {
		if errors.Is(err, errNoSearchResults) {
			return nil, nil
		}

		return nil, fmt.Errorf("code search failed: %w", err)
	}

	p.logger.Info(
		"code search finished",
		logfields.Event("code_search_finished"),
		logfields.Image(image),
		zap.String("search_query", query),
		zap.Int("search_total_count", total),
		zap.Int("search_results", len(results)),
	)

	return p.candidates(results), nil
}

func buildQuery(image string, cfg Config) string {
	return searchterms.Query(image, cfg.Filenames, searchterms.QueryOptions{
		Org:  cfg.Org,
		User: cfg.User,
	})
}

func (p *Pipeline) candidates(results []*github.CodeResult) []*forking.CandidateContent {
	type key struct{ repo, path string }

	seen := map[key]struct{}{}
	result := make([]*forking.CandidateContent, 0, len(results))

	for _, r := range results {
		repo := r.GetRepository().GetFullName()
		k := key{repo: repo, path: r.GetPath()}

		if repo == "" {
			continue
		}

		if _, exists := seen[k]; exists {
			continue
		}
		seen[k] = struct{}{}

		if !p.scope.Matches(r.GetPath()) {
			p.logger.Debug(
				"ignoring search result, file is not in scope",
				logfields.Event("search_result_ignored"),
				logfields.Repository(repo),
				logfields.Path(r.GetPath()),
			)
			continue
		}

		result = append(result, &forking.CandidateContent{
			Parent:       repo,
			Path:         r.GetPath(),
			SearchedRepo: repo,
		})
	}

	return result
}
