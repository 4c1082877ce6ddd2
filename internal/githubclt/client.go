// Package githubclt provides a github API client.
package githubclt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/go-github/v59/github"
	"github.com/shurcooL/githubv4"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/salesforce/dockerfile-image-update-sub000/internal/diuerr"
	"github.com/salesforce/dockerfile-image-update-sub000/internal/logfields"
)

const DefaultHTTPClientTimeout = time.Minute

const loggerName = "github_client"

const perPage = 100

var (
	// ErrNotFound is wrapped by errors returned for a http 404 response.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is wrapped by errors returned when a resource
	// that should be created exists already.
	ErrAlreadyExists = errors.New("already exists")
)

// New returns a new github api client for github.com.
func New(oauthAPItoken string) *Client {
	httpClient := newHTTPClient(oauthAPItoken)
	return &Client{
		restClt:    github.NewClient(httpClient),
		graphQLClt: githubv4.NewClient(httpClient),
		logger:     zap.L().Named(loggerName),
	}
}

// NewEnterprise returns a new github api client for a GitHub Enterprise
// installation. apiURL is the REST API endpoint, e.g.
// https://github.example.com/api/v3/.
func NewEnterprise(oauthAPItoken, apiURL string) (*Client, error) {
	httpClient := newHTTPClient(oauthAPItoken)

	restClt, err := github.NewClient(httpClient).WithEnterpriseURLs(apiURL, apiURL)
	if err != nil {
		return nil, fmt.Errorf("configuring github enterprise url failed: %w", err)
	}

	return &Client{
		restClt:    restClt,
		graphQLClt: githubv4.NewEnterpriseClient(graphQLURL(apiURL), httpClient),
		logger:     zap.L().Named(loggerName),
	}, nil
}

// graphQLURL derives the GraphQL endpoint from a GitHub Enterprise REST
// endpoint.
func graphQLURL(apiURL string) string {
	u := strings.TrimSuffix(apiURL, "/")
	u = strings.TrimSuffix(u, "/v3")

	return u + "/graphql"
}

func newHTTPClient(apiToken string) *http.Client {
	if apiToken == "" {
		return &http.Client{
			Timeout: DefaultHTTPClientTimeout,
		}
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: apiToken},
	)

	tc := oauth2.NewClient(context.Background(), ts)
	tc.Timeout = DefaultHTTPClientTimeout

	return tc
}

// Client is an github API client.
// All methods return a diuerr.RetryableError when an operation can be retried.
// This can be e.g. the case when the API ratelimit is exceeded.
// Errors for 404 responses wrap ErrNotFound.
type Client struct {
	restClt    *github.Client
	graphQLClt *githubv4.Client
	logger     *zap.Logger
}

// SplitFullName splits a repository name of the form "owner/name".
func SplitFullName(fullName string) (owner, repo string, err error) {
	owner, repo, found := strings.Cut(fullName, "/")
	if !found || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("invalid repository name %q, expecting <owner>/<name>", fullName)
	}

	return owner, repo, nil
}

// AuthenticatedLogin returns the login name of the user that the API token
// belongs to.
func (clt *Client) AuthenticatedLogin(ctx context.Context) (string, error) {
	var q struct {
		Viewer struct {
			Login githubv4.String
		}
	}

	if err := clt.graphQLClt.Query(ctx, &q, nil); err != nil {
		return "", clt.wrapGraphQLRetryableErrors(err)
	}

	if q.Viewer.Login == "" {
		return "", errors.New("github returned an empty login for the authenticated user")
	}

	return string(q.Viewer.Login), nil
}

// GetRepository returns the repository with the given full name (owner/name).
func (clt *Client) GetRepository(ctx context.Context, fullName string) (*github.Repository, error) {
	owner, repo, err := SplitFullName(fullName)
	if err != nil {
		return nil, err
	}

	r, _, err := clt.restClt.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return nil, clt.wrapErrors(err)
	}

	return r, nil
}

// SearchCode runs a code search and returns up to limit results.
// If limit is <=0 all results are returned.
// Additionally the total number of results reported by GitHub is returned.
func (clt *Client) SearchCode(ctx context.Context, query string, limit int) ([]*github.CodeResult, int, error) {
	var results []*github.CodeResult

	opts := github.SearchOptions{ListOptions: github.ListOptions{PerPage: perPage}}

	for {
		res, resp, err := clt.restClt.Search.Code(ctx, query, &opts)
		if err != nil {
			return nil, 0, clt.wrapErrors(err)
		}

		results = append(results, res.CodeResults...)

		if limit > 0 && len(results) >= limit {
			return results[:limit], res.GetTotal(), nil
		}

		if resp.NextPage == 0 || len(res.CodeResults) == 0 {
			return results, res.GetTotal(), nil
		}

		opts.Page = resp.NextPage
	}
}

// ListForks returns all forks of a repository.
func (clt *Client) ListForks(ctx context.Context, owner, repo string) ([]*github.Repository, error) {
	var result []*github.Repository

	opts := github.RepositoryListForksOptions{ListOptions: github.ListOptions{PerPage: perPage}}

	for {
		forks, resp, err := clt.restClt.Repositories.ListForks(ctx, owner, repo, &opts)
		if err != nil {
			return nil, clt.wrapErrors(err)
		}

		result = append(result, forks...)

		if resp.NextPage == 0 {
			return result, nil
		}

		opts.Page = resp.NextPage
	}
}

// CreateFork forks a repository into the account of the authenticated user.
// GitHub creates forks asynchronously, the returned repository might not
// be accessible immediately.
func (clt *Client) CreateFork(ctx context.Context, owner, repo string) (*github.Repository, error) {
	fork, _, err := clt.restClt.Repositories.CreateFork(ctx, owner, repo, &github.RepositoryCreateForkOptions{})
	if err != nil {
		var acceptedErr *github.AcceptedError
		if !errors.As(err, &acceptedErr) {
			return nil, clt.wrapErrors(err)
		}

		clt.logger.Debug(
			"fork creation scheduled",
			logfields.Event("github_fork_creation_scheduled"),
			logfields.Repository(owner+"/"+repo),
		)
	}

	if fork.GetFullName() == "" {
		return nil, fmt.Errorf("github returned an incomplete repository object for the fork of %s/%s", owner, repo)
	}

	return fork, nil
}

// DeleteRepository deletes a repository.
func (clt *Client) DeleteRepository(ctx context.Context, owner, repo string) error {
	_, err := clt.restClt.Repositories.Delete(ctx, owner, repo)
	return clt.wrapErrors(err)
}

// GetContents returns the file or the directory listing at path for ref.
// For a file fileContent is set, for a directory dirContent.
func (clt *Client) GetContents(ctx context.Context, owner, repo, path, ref string) (fileContent *github.RepositoryContent, dirContent []*github.RepositoryContent, err error) {
	fileContent, dirContent, _, err = clt.restClt.Repositories.GetContents(
		ctx, owner, repo, path,
		&github.RepositoryContentGetOptions{Ref: ref},
	)
	if err != nil {
		return nil, nil, clt.wrapErrors(err)
	}

	return fileContent, dirContent, nil
}

// UpdateFile commits a new version of an existing file.
func (clt *Client) UpdateFile(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentFileOptions) error {
	_, _, err := clt.restClt.Repositories.UpdateFile(ctx, owner, repo, path, opts)
	return clt.wrapErrors(err)
}

// CreateFile commits a new file.
func (clt *Client) CreateFile(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentFileOptions) error {
	_, _, err := clt.restClt.Repositories.CreateFile(ctx, owner, repo, path, opts)
	return clt.wrapErrors(err)
}

// BranchSHA returns the commit SHA the branch points to.
func (clt *Client) BranchSHA(ctx context.Context, owner, repo, branch string) (string, error) {
	ref, _, err := clt.restClt.Git.GetRef(ctx, owner, repo, "refs/heads/"+branch)
	if err != nil {
		return "", clt.wrapErrors(err)
	}

	sha := ref.GetObject().GetSHA()
	if sha == "" {
		return "", fmt.Errorf("github returned a reference for branch %q without commit sha", branch)
	}

	return sha, nil
}

// CreateBranch creates a branch pointing to the commit sha.
// If the branch exists already, an error wrapping ErrAlreadyExists is
// returned.
func (clt *Client) CreateBranch(ctx context.Context, owner, repo, branch, sha string) error {
	_, _, err := clt.restClt.Git.CreateRef(ctx, owner, repo, &github.Reference{
		Ref:    github.String("refs/heads/" + branch),
		Object: &github.GitObject{SHA: github.String(sha)},
	})
	if err != nil {
		var respErr *github.ErrorResponse
		if errors.As(err, &respErr) &&
			respErr.Response != nil &&
			respErr.Response.StatusCode == http.StatusUnprocessableEntity &&
			strings.Contains(respErr.Message, "Reference already exists") {
			return fmt.Errorf("%w: %w", ErrAlreadyExists, err)
		}

		return clt.wrapErrors(err)
	}

	return nil
}

// CreatePullRequest creates a pull request.
// Errors that GitHub returned for the request are not wrapped, except for
// rate limit errors, to allow classifying them.
func (clt *Client) CreatePullRequest(ctx context.Context, owner, repo string, pr *github.NewPullRequest) (*github.PullRequest, error) {
	created, _, err := clt.restClt.PullRequests.Create(ctx, owner, repo, pr)
	if err != nil {
		return nil, clt.wrapRetryableErrors(err)
	}

	return created, nil
}

// UpdatePullRequest sets the title and body of a pull request.
func (clt *Client) UpdatePullRequest(ctx context.Context, owner, repo string, number int, title, body string) error {
	_, _, err := clt.restClt.PullRequests.Edit(ctx, owner, repo, number, &github.PullRequest{
		Title: &title,
		Body:  &body,
	})
	if err != nil {
		return clt.wrapErrors(err)
	}

	return nil
}

//go:generate mockgen -package mocks -destination ../mocks/priterator.go . PRIterator

// PRIterator iterates over pull requests.
type PRIterator interface {
	Next() (*github.PullRequest, error)
}

type PRIter struct {
	clt *Client

	ctx   context.Context
	owner string
	repo  string

	filterState   string
	sortOrder     string
	sortDirection string

	unseen []*github.PullRequest

	nextPage int
	finished bool
}

// Next returns the next pullRequest.
// When the last result was returned a nil PullRequest is returned.
func (it *PRIter) Next() (*github.PullRequest, error) {
	if len(it.unseen) > 0 {
		result := it.unseen[0]
		it.unseen = it.unseen[1:]

		return result, nil
	}

	if it.finished {
		return nil, nil
	}

	prs, resp, err := it.clt.restClt.PullRequests.List(it.ctx, it.owner, it.repo, &github.PullRequestListOptions{
		State:     it.filterState,
		Sort:      it.sortOrder,
		Direction: it.sortDirection,
		ListOptions: github.ListOptions{
			Page:    it.nextPage,
			PerPage: perPage,
		},
	})
	if err != nil {
		return nil, it.clt.wrapErrors(err)
	}

	if resp.NextPage == 0 || len(prs) == 0 {
		it.finished = true
	} else {
		it.nextPage = resp.NextPage
	}

	it.unseen = prs

	return it.Next()
}

// ListPullRequests returns an iterator for receiving all pull requests.
// The parameters state, sort, sortDirection expect the same values then their pendants in the struct github.PullRequestListOptions.
func (clt *Client) ListPullRequests(ctx context.Context, owner, repo, state, sort, sortDirection string) PRIterator { // interface is returned to make the method mockable
	return &PRIter{
		clt:           clt,
		ctx:           ctx,
		owner:         owner,
		repo:          repo,
		sortOrder:     sort,
		sortDirection: sortDirection,
		filterState:   state,
		nextPage:      1,
	}
}

// IsNotFound returns true if err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func (clt *Client) wrapErrors(err error) error {
	if err == nil {
		return nil
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) && respErr.Response != nil && respErr.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	return clt.wrapRetryableErrors(err)
}

func (clt *Client) wrapRetryableErrors(err error) error {
	switch v := err.(type) {
	case *github.RateLimitError:
		clt.logger.Info(
			"rate limit exceeded",
			logfields.Event("github_api_rate_limit_exceeded"),
			zap.Int("github_api_rate_limit", v.Rate.Limit),
			zap.Time("github_api_rate_limit_reset_time", v.Rate.Reset.Time),
		)

		return diuerr.NewRetryableError(err, v.Rate.Reset.Time)

	case *github.AbuseRateLimitError:
		clt.logger.Info(
			"secondary rate limit exceeded",
			logfields.Event("github_api_secondary_rate_limit_exceeded"),
			zap.Duration("github_api_retry_after", v.GetRetryAfter()),
		)

		return diuerr.NewRetryableError(err, time.Now().Add(v.GetRetryAfter()))

	case *github.ErrorResponse:
		if v.Response != nil && v.Response.StatusCode >= 500 && v.Response.StatusCode < 600 {
			return diuerr.NewRetryableAnytimeError(err)
		}
	}

	return err
}

var graphQlHTTPStatusErrRe = regexp.MustCompile(`^non-200 OK status code: ([0-9]+) .*`)

func (clt *Client) wrapGraphQLRetryableErrors(err error) error {
	matches := graphQlHTTPStatusErrRe.FindStringSubmatch(err.Error())
	if len(matches) != 2 {
		return err
	}

	errcode, atoiErr := strconv.Atoi(matches[1])
	if atoiErr != nil {
		clt.logger.Info(
			"parsing http code from error string failed",
			zap.Error(atoiErr),
			zap.String("error_string", err.Error()),
			zap.String("http_errcode", matches[1]),
		)
		return err
	}

	if errcode >= 500 && errcode < 600 {
		return diuerr.NewRetryableAnytimeError(err)
	}

	return err
}
