// Package pullrequest opens the pull requests that propose the image updates
// to the parent repositories.
package pullrequest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/go-github/v59/github"
	"go.uber.org/zap"

	"github.com/salesforce/dockerfile-image-update-sub000/internal/branch"
	"github.com/salesforce/dockerfile-image-update-sub000/internal/diuerr"
	"github.com/salesforce/dockerfile-image-update-sub000/internal/githubclt"
	"github.com/salesforce/dockerfile-image-update-sub000/internal/logfields"
	"github.com/salesforce/dockerfile-image-update-sub000/internal/ratelimit"
	"github.com/salesforce/dockerfile-image-update-sub000/internal/retry"
)

const loggerName = "pull_request_coordinator"

// GithubClient defines the methods of a GitHub client that are used to
// manage pull requests.
type GithubClient interface {
	ListPullRequests(ctx context.Context, owner, repo, state, sort, sortDirection string) githubclt.PRIterator
	CreatePullRequest(ctx context.Context, owner, repo string, pr *github.NewPullRequest) (*github.PullRequest, error)
	UpdatePullRequest(ctx context.Context, owner, repo string, number int, title, body string) error
	DeleteRepository(ctx context.Context, owner, repo string) error
}

// Request describes the pull request from a branch of a fork to the
// default branch of its parent.
type Request struct {
	Parent *github.Repository
	Fork   *github.Repository
	Branch *branch.GitForkBranch
	// HeadBranch is the branch in the fork that contains the changes, if
	// empty the name of Branch is used.
	HeadBranch string
}

func (r *Request) headBranch() string {
	if r.HeadBranch != "" {
		return r.HeadBranch
	}

	return r.Branch.Name()
}

func (r *Request) logFields() []zap.Field {
	return []zap.Field{
		logfields.Repository(r.Parent.GetFullName()),
		logfields.BaseBranch(r.Parent.GetDefaultBranch()),
		logfields.Fork(r.Fork.GetFullName()),
		logfields.Branch(r.headBranch()),
	}
}

// Coordinator opens pull requests, at most 1 per parent repository and
// branch.
type Coordinator struct {
	clt       GithubClient
	limiter   *ratelimit.RateLimiter
	retryer   *retry.Retryer
	templates *Templates
	logger    *zap.Logger
}

// NewCoordinator returns a Coordinator.
// Every creation attempt waits for a token of limiter, a nil limiter
// disables rate limiting. Transient creation errors are retried with
// retryer.
func NewCoordinator(clt GithubClient, limiter *ratelimit.RateLimiter, retryer *retry.Retryer, templates *Templates) *Coordinator {
	return &Coordinator{
		clt:       clt,
		limiter:   limiter,
		retryer:   retryer,
		templates: templates,
		logger:    zap.L().Named(loggerName),
	}
}

// FindExisting returns the first open pull request of the parent repository
// whose head branch is in a repository owned by forkOwner and belongs to the
// same branch family as b.
// If none exists, nil is returned.
func (c *Coordinator) FindExisting(ctx context.Context, parent *github.Repository, forkOwner string, b *branch.GitForkBranch) (*github.PullRequest, error) {
	it := c.clt.ListPullRequests(ctx, parent.GetOwner().GetLogin(), parent.GetName(), "open", "created", "desc")

	for {
		pr, err := it.Next()
		if err != nil {
			return nil, fmt.Errorf("listing open pull requests of %s failed: %w", parent.GetFullName(), err)
		}

		if pr == nil {
			return nil, nil
		}

		head := pr.GetHead()
		if !strings.EqualFold(head.GetRepo().GetOwner().GetLogin(), forkOwner) {
			continue
		}

		if b.MatchesExisting(head.GetRef()) {
			c.logger.Debug(
				"found existing pull request",
				logfields.Event("existing_pull_request_found"),
				logfields.Repository(parent.GetFullName()),
				logfields.PullRequest(pr.GetNumber()),
				logfields.Branch(head.GetRef()),
			)

			return pr, nil
		}
	}
}

func (c *Coordinator) render(req *Request) (title, body string, err error) {
	return c.templates.Render(&TemplateData{
		Image:  req.Branch.ImageName(),
		Tag:    req.Branch.ImageTag(),
		Branch: req.headBranch(),
		Parent: req.Parent.GetFullName(),
	})
}

// Refresh sets the title and body of the existing pull request pr to the
// rendered templates of req. pr is only updated if they differ.
// It returns true if pr was updated.
func (c *Coordinator) Refresh(ctx context.Context, req *Request, pr *github.PullRequest) (bool, error) {
	title, body, err := c.render(req)
	if err != nil {
		return false, err
	}

	if pr.GetTitle() == title && pr.GetBody() == body {
		return false, nil
	}

	err = c.clt.UpdatePullRequest(ctx, req.Parent.GetOwner().GetLogin(), req.Parent.GetName(), pr.GetNumber(), title, body)
	if err != nil {
		return false, fmt.Errorf("updating pull request #%d failed: %w", pr.GetNumber(), err)
	}

	c.logger.Info(
		"pull request title and body updated",
		append(req.logFields(),
			logfields.Event("pull_request_description_updated"),
			logfields.PullRequest(pr.GetNumber()),
			zap.String("previous_title", pr.GetTitle()),
		)...,
	)

	return true, nil
}

// Open creates the pull request described by req.
// If GitHub reports that the pull request exists already, Reused is
// returned. If the head branch has no changes compared to the base branch,
// the fork is deleted when it is not the head of another open pull request
// and SkippedNoCommits is returned.
// Other errors are retried with the retryer, when they are transient.
func (c *Coordinator) Open(ctx context.Context, req *Request) (Outcome, *github.PullRequest, error) {
	logger := c.logger.With(req.logFields()...)

	title, body, err := c.render(req)
	if err != nil {
		return Failed, nil, err
	}

	newPR := github.NewPullRequest{
		Title:               github.String(title),
		Body:                github.String(body),
		Head:                github.String(req.Fork.GetOwner().GetLogin() + ":" + req.headBranch()),
		Base:                github.String(req.Parent.GetDefaultBranch()),
		MaintainerCanModify: github.Bool(true),
	}

	var kind Kind
	var pr *github.PullRequest

	err = c.retryer.Run(ctx, func(ctx context.Context) error {
		if err := c.limiter.Consume(ctx); err != nil {
			return err
		}

		var err error
		pr, err = c.clt.CreatePullRequest(ctx, req.Parent.GetOwner().GetLogin(), req.Parent.GetName(), &newPR)
		kind = ClassifyCreateError(err)

		switch kind {
		case Success, AlreadyExists, NoCommits:
			return nil
		case Transient:
			if diuerr.IsRetryable(err) {
				return err
			}

			return diuerr.NewRetryableAnytimeError(err)
		default:
			return err
		}
	}, req.logFields())
	if err != nil {
		return Failed, nil, fmt.Errorf("creating pull request failed: %w", err)
	}

	switch kind {
	case Success:
		logger.Info(
			"pull request created",
			logfields.Event("pull_request_created"),
			logfields.PullRequest(pr.GetNumber()),
			zap.String("github.pull_request_url", pr.GetHTMLURL()),
		)

		return Created, pr, nil

	case AlreadyExists:
		logger.Info(
			"pull request exists already, branch was updated",
			logfields.Event("pull_request_reused"),
		)

		return Reused, nil, nil

	case NoCommits:
		logger.Info(
			"branch contains no changes, skipping pull request creation",
			logfields.Event("pull_request_skipped_no_commits"),
		)

		c.deleteUnusedFork(ctx, req, logger)

		return SkippedNoCommits, nil, nil

	default:
		return Failed, nil, fmt.Errorf("unexpected pull request creation result: %s", kind)
	}
}

// deleteUnusedFork deletes the fork of req when it is not the head
// repository of any open pull request of the parent.
// Failures are only logged.
func (c *Coordinator) deleteUnusedFork(ctx context.Context, req *Request, logger *zap.Logger) {
	inUse, err := c.forkHasOpenPullRequests(ctx, req)
	if err != nil {
		logger.Warn(
			"not deleting fork, checking for open pull requests failed",
			logfields.Event("fork_deletion_check_failed"),
			zap.Error(err),
		)
		return
	}

	if inUse {
		logger.Info(
			"not deleting fork, it is the head of open pull requests",
			logfields.Event("fork_deletion_skipped"),
		)
		return
	}

	err = c.clt.DeleteRepository(ctx, req.Fork.GetOwner().GetLogin(), req.Fork.GetName())
	if err != nil && !errors.Is(err, githubclt.ErrNotFound) {
		logger.Warn(
			"deleting fork failed",
			logfields.Event("fork_deletion_failed"),
			zap.Error(err),
		)
		return
	}

	logger.Info("fork deleted", logfields.Event("fork_deleted"))
}

func (c *Coordinator) forkHasOpenPullRequests(ctx context.Context, req *Request) (bool, error) {
	it := c.clt.ListPullRequests(ctx, req.Parent.GetOwner().GetLogin(), req.Parent.GetName(), "open", "created", "desc")

	for {
		pr, err := it.Next()
		if err != nil {
			return false, err
		}

		if pr == nil {
			return false, nil
		}

		if strings.EqualFold(pr.GetHead().GetRepo().GetFullName(), req.Fork.GetFullName()) {
			return true, nil
		}
	}
}
