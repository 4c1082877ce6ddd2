package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/go-github/v59/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/salesforce/dockerfile-image-update-sub000/internal/githubclt"
	"github.com/salesforce/dockerfile-image-update-sub000/internal/mocks"
	"github.com/salesforce/dockerfile-image-update-sub000/internal/retry"
	"github.com/salesforce/dockerfile-image-update-sub000/internal/tagstore"
)

const login = "bot"

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type prSliceIter struct {
	prs []*github.PullRequest
}

func (it *prSliceIter) Next() (*github.PullRequest, error) {
	if len(it.prs) == 0 {
		return nil, nil
	}

	pr := it.prs[0]
	it.prs = it.prs[1:]

	return pr, nil
}

func repository(owner, name string) *github.Repository {
	return &github.Repository{
		Name:          github.String(name),
		FullName:      github.String(owner + "/" + name),
		Owner:         &github.User{Login: github.String(owner)},
		DefaultBranch: github.String("main"),
	}
}

func codeResult(fullName, path string) *github.CodeResult {
	return &github.CodeResult{
		Path:       github.String(path),
		Repository: &github.Repository{FullName: github.String(fullName)},
	}
}

func fileEntry(p string) *github.RepositoryContent {
	return &github.RepositoryContent{
		Type:        github.String("file"),
		Path:        github.String(p),
		DownloadURL: github.String("https://raw.example.com/" + p),
	}
}

func file(p, content string) *github.RepositoryContent {
	return &github.RepositoryContent{
		Type:    github.String("file"),
		Path:    github.String(p),
		SHA:     github.String("sha-" + p),
		Content: github.String(content),
	}
}

func testConfig() Config {
	return Config{
		SearchRetryDelay:   time.Millisecond,
		EmptySearchRetries: 2,
		Workers:            2,
		ContentRetryer:     retry.New(3, time.Millisecond),
		PRRetryer:          retry.New(3, time.Millisecond),
	}
}

func newPipeline(t *testing.T) (*Pipeline, *mocks.MockGithubClient) {
	t.Helper()

	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mockctrl := gomock.NewController(t)
	clt := mocks.NewMockGithubClient(mockctrl)

	p, err := New(clt, testConfig())
	require.NoError(t, err)

	return p, clt
}

func TestRunUpdatesRepositoryOnceAndReusesOnRerun(t *testing.T) {
	p, clt := newPipeline(t)
	ctx := context.Background()

	clt.EXPECT().AuthenticatedLogin(gomock.Any()).Return(login, nil).Times(1)

	// first run: fork, branch, commit and pull request are created
	clt.EXPECT().SearchCode(gomock.Any(), gomock.Any(), DefSearchLimit).
		Return([]*github.CodeResult{
			codeResult("org/app", "Dockerfile"),
			codeResult("org/app", "Dockerfile"),
		}, 2, nil).Times(1)
	clt.EXPECT().GetRepository(gomock.Any(), "org/app").Return(repository("org", "app"), nil).Times(1)
	clt.EXPECT().ListForks(gomock.Any(), "org", "app").Return(nil, nil).Times(1)
	clt.EXPECT().CreateFork(gomock.Any(), "org", "app").Return(repository(login, "app"), nil).Times(1)
	clt.EXPECT().ListPullRequests(gomock.Any(), "org", "app", "open", gomock.Any(), gomock.Any()).
		Return(&prSliceIter{}).Times(1)
	clt.EXPECT().BranchSHA(gomock.Any(), login, "app", "base-2.0").
		Return("", fmt.Errorf("%w: ref", githubclt.ErrNotFound)).Times(1)
	clt.EXPECT().BranchSHA(gomock.Any(), login, "app", "main").Return("abc", nil).Times(1)
	clt.EXPECT().CreateBranch(gomock.Any(), login, "app", "base-2.0", "abc").Return(nil).Times(1)
	clt.EXPECT().GetContents(gomock.Any(), login, "app", "", "base-2.0").
		Return(nil, []*github.RepositoryContent{fileEntry("Dockerfile")}, nil).Times(1)
	clt.EXPECT().GetContents(gomock.Any(), login, "app", "Dockerfile", "base-2.0").
		Return(file("Dockerfile", "FROM base:1.0\n"), nil, nil).Times(1)
	clt.EXPECT().UpdateFile(gomock.Any(), login, "app", "Dockerfile", gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _, _ string, opts *github.RepositoryContentFileOptions) error {
			assert.Equal(t, "FROM base:2.0\n", string(opts.Content))
			assert.Equal(t, "base-2.0", opts.GetBranch())
			return nil
		}).Times(1)
	var title, body string
	clt.EXPECT().CreatePullRequest(gomock.Any(), "org", "app", gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, pr *github.NewPullRequest) (*github.PullRequest, error) {
			assert.Equal(t, "bot:base-2.0", pr.GetHead())
			assert.Equal(t, "main", pr.GetBase())
			title, body = pr.GetTitle(), pr.GetBody()
			return &github.PullRequest{Number: github.Int(1), Title: pr.Title, Body: pr.Body}, nil
		}).Times(1)

	require.NoError(t, p.Run(ctx, "base", "2.0"))
	assert.Equal(t, int64(1), p.Summary().Created())
	require.NoError(t, p.Summary().Err())

	// second run: the existing fork, branch and pull request are reused
	clt.EXPECT().SearchCode(gomock.Any(), gomock.Any(), DefSearchLimit).
		Return([]*github.CodeResult{codeResult("org/app", "Dockerfile")}, 1, nil).Times(1)
	clt.EXPECT().GetRepository(gomock.Any(), "org/app").Return(repository("org", "app"), nil).Times(1)
	clt.EXPECT().ListForks(gomock.Any(), "org", "app").
		Return([]*github.Repository{repository(login, "app")}, nil).Times(1)
	clt.EXPECT().ListPullRequests(gomock.Any(), "org", "app", "open", gomock.Any(), gomock.Any()).
		Return(&prSliceIter{prs: []*github.PullRequest{{
			Number: github.Int(1),
			Title:  github.String(title),
			Body:   github.String(body),
			Head: &github.PullRequestBranch{
				Ref:  github.String("base-2.0"),
				Repo: repository(login, "app"),
			},
		}}}).Times(1)
	clt.EXPECT().BranchSHA(gomock.Any(), login, "app", "base-2.0").Return("def", nil).Times(1)
	clt.EXPECT().GetContents(gomock.Any(), login, "app", "", "base-2.0").
		Return(nil, []*github.RepositoryContent{fileEntry("Dockerfile")}, nil).Times(1)
	clt.EXPECT().GetContents(gomock.Any(), login, "app", "Dockerfile", "base-2.0").
		Return(file("Dockerfile", "FROM base:2.0\n"), nil, nil).Times(1)

	require.NoError(t, p.Run(ctx, "base", "2.0"))
	assert.Equal(t, int64(1), p.Summary().Created())
	assert.Equal(t, int64(1), p.Summary().Reused())
	require.NoError(t, p.Summary().Err())
}

func TestRunWithNewTagUpdatesExistingPullRequest(t *testing.T) {
	p, clt := newPipeline(t)

	clt.EXPECT().AuthenticatedLogin(gomock.Any()).Return(login, nil).Times(1)
	clt.EXPECT().SearchCode(gomock.Any(), gomock.Any(), DefSearchLimit).
		Return([]*github.CodeResult{codeResult("org/app", "Dockerfile")}, 1, nil).Times(1)
	clt.EXPECT().GetRepository(gomock.Any(), "org/app").Return(repository("org", "app"), nil).Times(1)
	clt.EXPECT().ListForks(gomock.Any(), "org", "app").
		Return([]*github.Repository{repository(login, "app")}, nil).Times(1)
	clt.EXPECT().ListPullRequests(gomock.Any(), "org", "app", "open", gomock.Any(), gomock.Any()).
		Return(&prSliceIter{prs: []*github.PullRequest{{
			Number: github.Int(7),
			Title:  github.String("Automatic Dockerfile Image Updater"),
			Body:   github.String("The Docker base image `base` was updated to the tag `2.0`."),
			Head: &github.PullRequestBranch{
				Ref:  github.String("base-2.0"),
				Repo: repository(login, "app"),
			},
		}}}).Times(1)
	clt.EXPECT().BranchSHA(gomock.Any(), login, "app", "base-2.0").Return("def", nil).Times(1)
	clt.EXPECT().GetContents(gomock.Any(), login, "app", "", "base-2.0").
		Return(nil, []*github.RepositoryContent{fileEntry("Dockerfile")}, nil).Times(1)
	clt.EXPECT().GetContents(gomock.Any(), login, "app", "Dockerfile", "base-2.0").
		Return(file("Dockerfile", "FROM base:2.0\n"), nil, nil).Times(1)
	clt.EXPECT().UpdateFile(gomock.Any(), login, "app", "Dockerfile", gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _, _ string, opts *github.RepositoryContentFileOptions) error {
			assert.Equal(t, "FROM base:3.0\n", string(opts.Content))
			assert.Equal(t, "base-2.0", opts.GetBranch())
			return nil
		}).Times(1)
	clt.EXPECT().UpdatePullRequest(gomock.Any(), "org", "app", 7, "Automatic Dockerfile Image Updater", gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ string, _ int, _, body string) error {
			assert.Contains(t, body, "`3.0`")
			return nil
		}).Times(1)

	require.NoError(t, p.Run(context.Background(), "base", "3.0"))
	assert.Equal(t, int64(1), p.Summary().Reused())
	assert.Equal(t, int64(0), p.Summary().Created())
	require.NoError(t, p.Summary().Err())
}

func TestRunRecordsFailuresAndContinues(t *testing.T) {
	p, clt := newPipeline(t)

	archived := repository("org", "archived")
	archived.Archived = github.Bool(true)

	clt.EXPECT().AuthenticatedLogin(gomock.Any()).Return(login, nil).AnyTimes()
	clt.EXPECT().SearchCode(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]*github.CodeResult{
			codeResult("org/archived", "Dockerfile"),
			codeResult("org/broken", "Dockerfile"),
			codeResult("org/app", "README.md"),
		}, 3, nil)
	clt.EXPECT().GetRepository(gomock.Any(), "org/archived").Return(archived, nil)
	clt.EXPECT().GetRepository(gomock.Any(), "org/broken").Return(repository("org", "broken"), nil)
	clt.EXPECT().ListForks(gomock.Any(), "org", "broken").Return(nil, nil)
	clt.EXPECT().CreateFork(gomock.Any(), "org", "broken").Return(nil, errors.New("forking disabled"))

	require.NoError(t, p.Run(context.Background(), "base", "2.0"))

	summary := p.Summary()
	assert.Equal(t, int64(1), summary.Denied())

	failures := summary.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "org/broken", failures[0].Repository)
	assert.Equal(t, "base", failures[0].Image)
	assert.Equal(t, "2.0", failures[0].Tag)
	assert.Error(t, summary.Err())
	assert.Contains(t, summary.String(), "org/broken")
}

func TestRunRetriesEmptySearchResults(t *testing.T) {
	p, clt := newPipeline(t)

	clt.EXPECT().SearchCode(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, 0, nil).Times(3)

	require.NoError(t, p.Run(context.Background(), "base", "2.0"))
	require.NoError(t, p.Summary().Err())
}

func TestRunFailsOnSearchError(t *testing.T) {
	p, clt := newPipeline(t)

	clt.EXPECT().SearchCode(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, 0, errors.New("bad credentials"))

	require.Error(t, p.Run(context.Background(), "base", "2.0"))
	require.Len(t, p.Summary().Failures(), 1)
}

func TestCandidatesAreDeduplicatedAndScoped(t *testing.T) {
	p, _ := newPipeline(t)

	result := p.candidates([]*github.CodeResult{
		codeResult("org/app", "Dockerfile"),
		codeResult("org/app", "svc/Dockerfile"),
		codeResult("org/app", "Dockerfile"),
		codeResult("org/app", "docs/README.md"),
		codeResult("org/lib", "docker-compose.yml"),
		codeResult("", "Dockerfile"),
	})

	require.Len(t, result, 3)
	assert.Equal(t, "svc/Dockerfile", result[1].Path)
	assert.Equal(t, "org/lib", result[2].Parent)

	groups := groupByParent(result)
	require.Len(t, groups, 2)
	assert.Equal(t, "org/app", groups[0].parent)
	assert.Len(t, groups[0].candidates, 2)
}

type memStore struct {
	entries []*tagstore.Entry
}

func (s *memStore) Update(_ context.Context, image, tag string) error {
	s.entries = append(s.entries, &tagstore.Entry{Image: image, Tag: tag})
	return nil
}

func (s *memStore) Content(context.Context) ([]*tagstore.Entry, error) {
	return s.entries, nil
}

func TestRunStoreAppliesFilter(t *testing.T) {
	p, clt := newPipeline(t)

	store := memStore{entries: []*tagstore.Entry{
		{Image: "registry.example.com/base", Tag: "2.0"},
		{Image: "other", Tag: "1"},
	}}

	filter, err := tagstore.NewFilter(`.image | startswith("registry.example.com/")`)
	require.NoError(t, err)

	clt.EXPECT().SearchCode(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, query string, _ int) ([]*github.CodeResult, int, error) {
			assert.Contains(t, query, "registry.example.com/base")
			return nil, 0, nil
		}).Times(3)

	require.NoError(t, p.RunStore(context.Background(), &store, filter))
}

func TestDryGithubClientSimulatesWrites(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mockctrl := gomock.NewController(t)
	clt := mocks.NewMockGithubClient(mockctrl)
	dry := NewDryGithubClient(clt, zap.L())
	ctx := context.Background()

	clt.EXPECT().AuthenticatedLogin(gomock.Any()).Return(login, nil)
	clt.EXPECT().GetRepository(gomock.Any(), "org/app").Return(repository("org", "app"), nil)

	fork, err := dry.CreateFork(ctx, "org", "app")
	require.NoError(t, err)
	assert.Equal(t, "bot/app", fork.GetFullName())
	assert.Equal(t, "main", fork.GetDefaultBranch())

	clt.EXPECT().BranchSHA(gomock.Any(), "org", "app", "main").Return("abc", nil)
	sha, err := dry.BranchSHA(ctx, login, "app", "main")
	require.NoError(t, err)

	require.NoError(t, dry.CreateBranch(ctx, login, "app", "base-2.0", sha))

	sha, err = dry.BranchSHA(ctx, login, "app", "base-2.0")
	require.NoError(t, err)
	assert.Equal(t, "abc", sha)

	clt.EXPECT().GetContents(gomock.Any(), "org", "app", "Dockerfile", "abc").Return(file("Dockerfile", "FROM base:1.0\n"), nil, nil)
	f, _, err := dry.GetContents(ctx, login, "app", "Dockerfile", "base-2.0")
	require.NoError(t, err)
	assert.Equal(t, "sha-Dockerfile", f.GetSHA())

	require.NoError(t, dry.UpdateFile(ctx, login, "app", "Dockerfile", &github.RepositoryContentFileOptions{}))
	require.NoError(t, dry.DeleteRepository(ctx, login, "app"))

	pr, err := dry.CreatePullRequest(ctx, "org", "app", &github.NewPullRequest{Title: github.String("t")})
	require.NoError(t, err)
	assert.Equal(t, "t", pr.GetTitle())
}
