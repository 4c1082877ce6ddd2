package pipeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/go-github/v59/github"
	"go.uber.org/zap"

	"github.com/salesforce/dockerfile-image-update-sub000/internal/githubclt"
	"github.com/salesforce/dockerfile-image-update-sub000/internal/logfields"
)

// DryGithubClient is a github-client that does not do any changes on github.
// All operations that could cause a change are simulated and always succeed.
// All other operations are forwarded to a wrapped GithubClient.
// Reads of simulated forks are redirected to their parent repository, reads
// of simulated branches to the commit the branch was created from.
type DryGithubClient struct {
	clt    GithubClient
	logger *zap.Logger

	lock sync.Mutex
	// forks maps the full name of a simulated fork to its parent
	forks map[string]*github.Repository
	// branches maps "<owner>/<repo>:<branch>" of simulated branches to a
	// commit sha
	branches map[string]string
}

var _ GithubClient = &DryGithubClient{}

func NewDryGithubClient(clt GithubClient, logger *zap.Logger) *DryGithubClient {
	return &DryGithubClient{
		clt:      clt,
		logger:   logger.Named("dry_github_client"),
		forks:    map[string]*github.Repository{},
		branches: map[string]string{},
	}
}

func branchKey(owner, repo, branch string) string {
	return owner + "/" + repo + ":" + branch
}

// resolve returns the owner and name of the parent if owner/repo is a
// simulated fork, otherwise owner and repo.
func (c *DryGithubClient) resolve(owner, repo string) (string, string) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if parent, exists := c.forks[owner+"/"+repo]; exists {
		return parent.GetOwner().GetLogin(), parent.GetName()
	}

	return owner, repo
}

func (c *DryGithubClient) simulatedBranchSHA(owner, repo, branch string) (string, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	sha, exists := c.branches[branchKey(owner, repo, branch)]
	return sha, exists
}

func (c *DryGithubClient) AuthenticatedLogin(ctx context.Context) (string, error) {
	return c.clt.AuthenticatedLogin(ctx)
}

func (c *DryGithubClient) GetRepository(ctx context.Context, fullName string) (*github.Repository, error) {
	return c.clt.GetRepository(ctx, fullName)
}

func (c *DryGithubClient) SearchCode(ctx context.Context, query string, limit int) ([]*github.CodeResult, int, error) {
	return c.clt.SearchCode(ctx, query, limit)
}

func (c *DryGithubClient) ListForks(ctx context.Context, owner, repo string) ([]*github.Repository, error) {
	return c.clt.ListForks(ctx, owner, repo)
}

func (c *DryGithubClient) ListPullRequests(ctx context.Context, owner, repo, state, sort, sortDirection string) githubclt.PRIterator {
	return c.clt.ListPullRequests(ctx, owner, repo, state, sort, sortDirection)
}

func (c *DryGithubClient) CreateFork(ctx context.Context, owner, repo string) (*github.Repository, error) {
	login, err := c.clt.AuthenticatedLogin(ctx)
	if err != nil {
		return nil, err
	}

	parent, err := c.clt.GetRepository(ctx, owner+"/"+repo)
	if err != nil {
		return nil, err
	}

	fork := github.Repository{
		Name:          github.String(repo),
		FullName:      github.String(login + "/" + repo),
		Owner:         &github.User{Login: github.String(login)},
		DefaultBranch: github.String(parent.GetDefaultBranch()),
		Fork:          github.Bool(true),
	}

	c.lock.Lock()
	c.forks[fork.GetFullName()] = parent
	c.lock.Unlock()

	c.logger.Info(
		"simulated creating fork",
		logfields.Repository(parent.GetFullName()),
		logfields.Fork(fork.GetFullName()),
	)

	return &fork, nil
}

func (c *DryGithubClient) DeleteRepository(_ context.Context, owner, repo string) error {
	c.logger.Info("simulated deleting repository", logfields.Repository(owner+"/"+repo))
	return nil
}

func (c *DryGithubClient) BranchSHA(ctx context.Context, owner, repo, branch string) (string, error) {
	if sha, exists := c.simulatedBranchSHA(owner, repo, branch); exists {
		return sha, nil
	}

	owner, repo = c.resolve(owner, repo)

	return c.clt.BranchSHA(ctx, owner, repo, branch)
}

func (c *DryGithubClient) CreateBranch(_ context.Context, owner, repo, branch, sha string) error {
	c.lock.Lock()
	c.branches[branchKey(owner, repo, branch)] = sha
	c.lock.Unlock()

	c.logger.Info(
		"simulated creating branch",
		logfields.Repository(owner+"/"+repo),
		logfields.Branch(branch),
		logfields.Commit(sha),
	)

	return nil
}

func (c *DryGithubClient) GetContents(ctx context.Context, owner, repo, path, ref string) (*github.RepositoryContent, []*github.RepositoryContent, error) {
	if sha, exists := c.simulatedBranchSHA(owner, repo, ref); exists {
		ref = sha
	}

	owner, repo = c.resolve(owner, repo)

	return c.clt.GetContents(ctx, owner, repo, path, ref)
}

func (c *DryGithubClient) UpdateFile(_ context.Context, owner, repo, path string, opts *github.RepositoryContentFileOptions) error {
	c.logger.Info(
		"simulated committing file",
		logfields.Repository(owner+"/"+repo),
		logfields.Branch(opts.GetBranch()),
		logfields.Path(path),
		zap.String("commit_message", opts.GetMessage()),
		zap.ByteString("content", opts.Content),
	)

	return nil
}

func (c *DryGithubClient) CreateFile(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentFileOptions) error {
	return c.UpdateFile(ctx, owner, repo, path, opts)
}

func (c *DryGithubClient) UpdatePullRequest(_ context.Context, owner, repo string, number int, title, _ string) error {
	c.logger.Info(
		"simulated updating pull request",
		logfields.Repository(owner+"/"+repo),
		logfields.PullRequest(number),
		zap.String("title", title),
	)

	return nil
}

func (c *DryGithubClient) CreatePullRequest(_ context.Context, owner, repo string, pr *github.NewPullRequest) (*github.PullRequest, error) {
	c.logger.Info(
		"simulated creating pull request",
		logfields.Repository(owner+"/"+repo),
		logfields.Branch(pr.GetHead()),
		logfields.BaseBranch(pr.GetBase()),
		zap.String("title", pr.GetTitle()),
	)

	return &github.PullRequest{
		Title:   pr.Title,
		Body:    pr.Body,
		HTMLURL: github.String(fmt.Sprintf("dry-run://%s/%s/pull", owner, repo)),
	}, nil
}
