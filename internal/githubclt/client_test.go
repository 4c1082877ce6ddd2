package githubclt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-github/v59/github"
	"github.com/shurcooL/githubv4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/salesforce/dockerfile-image-update-sub000/internal/diuerr"
)

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	restClt := github.NewClient(srv.Client())
	baseURL, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	restClt.BaseURL = baseURL

	return &Client{
		logger:     zap.L(),
		restClt:    restClt,
		graphQLClt: githubv4.NewEnterpriseClient(srv.URL+"/graphql", srv.Client()),
	}
}

func TestWrapRetryableErrorsGraphql(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mux := http.NewServeMux()
	mux.HandleFunc("/graphql", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	clt := newTestClient(t, mux)

	login, err := clt.AuthenticatedLogin(context.Background())
	require.Error(t, err)
	assert.Empty(t, login)

	var retryableErr *diuerr.RetryableError
	assert.ErrorAs(t, err, &retryableErr)
}

func TestWrapRetryableErrorsGraphqlWithNonStatusErr(t *testing.T) {
	err := errors.New("error")
	wrappedErr := (&Client{}).wrapGraphQLRetryableErrors(err)
	assert.Equal(t, err, wrappedErr)
}

func TestAuthenticatedLogin(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mux := http.NewServeMux()
	mux.HandleFunc("/graphql", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":{"viewer":{"login":"octocat"}}}`)
	})

	clt := newTestClient(t, mux)

	login, err := clt.AuthenticatedLogin(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "octocat", login)
}

func TestGetRepositoryNotFound(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/org/app", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"Not Found"}`)
	})

	clt := newTestClient(t, mux)

	_, err := clt.GetRepository(context.Background(), "org/app")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.False(t, diuerr.IsRetryable(err))
}

func TestGetRepositoryServerErrorIsRetryable(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/org/app", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	clt := newTestClient(t, mux)

	_, err := clt.GetRepository(context.Background(), "org/app")
	require.Error(t, err)
	assert.True(t, diuerr.IsRetryable(err))
}

func TestGetRepositoryInvalidName(t *testing.T) {
	_, err := (&Client{}).GetRepository(context.Background(), "no-slash")
	assert.Error(t, err)
}

func TestSplitFullName(t *testing.T) {
	owner, repo, err := SplitFullName("org/app")
	require.NoError(t, err)
	assert.Equal(t, "org", owner)
	assert.Equal(t, "app", repo)

	for _, name := range []string{"", "org", "org/", "/app", "a/b/c"} {
		_, _, err := SplitFullName(name)
		assert.Error(t, err, name)
	}
}

func TestCreateForkAccepted(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/org/app/forks", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.WriteHeader(http.StatusAccepted)
		fmt.Fprint(w, `{"full_name":"me/app","name":"app","owner":{"login":"me"}}`)
	})

	clt := newTestClient(t, mux)

	fork, err := clt.CreateFork(context.Background(), "org", "app")
	require.NoError(t, err)
	assert.Equal(t, "me/app", fork.GetFullName())
}

func TestSearchCodePaginatesUntilLimit(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	var srvURL string
	var requests int

	mux := http.NewServeMux()
	mux.HandleFunc("/search/code", func(w http.ResponseWriter, r *http.Request) {
		requests++
		assert.Equal(t, "FROM base", r.URL.Query().Get("q"))

		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `{"total_count":3,"items":[{"path":"c/Dockerfile","repository":{"full_name":"org/c"}}]}`)
			return
		}

		w.Header().Set("Link", fmt.Sprintf(`<%s/search/code?q=x&page=2>; rel="next"`, srvURL))
		fmt.Fprint(w, `{"total_count":3,"items":[
			{"path":"Dockerfile","repository":{"full_name":"org/a"}},
			{"path":"Dockerfile","repository":{"full_name":"org/b"}}
		]}`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	srvURL = srv.URL

	restClt := github.NewClient(srv.Client())
	restClt.BaseURL, _ = url.Parse(srv.URL + "/")
	clt := &Client{logger: zap.L(), restClt: restClt}

	results, total, err := clt.SearchCode(context.Background(), "FROM base", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, results, 3)
	assert.Equal(t, "org/c", results[2].GetRepository().GetFullName())
	assert.Equal(t, 2, requests)

	requests = 0
	results, _, err = clt.SearchCode(context.Background(), "FROM base", 1)
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, 1, requests)
}

func TestCreatePullRequestKeepsValidationError(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/org/app/pulls", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"message":"Validation Failed","errors":[{"resource":"PullRequest","code":"custom","message":"A pull request already exists for me:base-2.0."}]}`)
	})

	clt := newTestClient(t, mux)

	_, err := clt.CreatePullRequest(context.Background(), "org", "app", &github.NewPullRequest{
		Title: github.String("title"),
		Head:  github.String("me:base-2.0"),
		Base:  github.String("main"),
	})
	require.Error(t, err)

	var respErr *github.ErrorResponse
	require.ErrorAs(t, err, &respErr)
	require.Len(t, respErr.Errors, 1)
	assert.Contains(t, respErr.Errors[0].Message, "A pull request already exists")
}

func TestUpdatePullRequestSendsTitleAndBody(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/org/app/pulls/7", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)

		var req struct {
			Title string `json:"title"`
			Body  string `json:"body"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "new title", req.Title)
		assert.Equal(t, "new body", req.Body)

		fmt.Fprint(w, `{"number":7}`)
	})

	clt := newTestClient(t, mux)

	require.NoError(t, clt.UpdatePullRequest(context.Background(), "org", "app", 7, "new title", "new body"))
}

func TestCreateBranchAlreadyExists(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/me/app/git/refs", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"message":"Reference already exists"}`)
	})

	clt := newTestClient(t, mux)

	err := clt.CreateBranch(context.Background(), "me", "app", "base-2.0", "abc")
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestBranchSHA(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/me/app/git/ref/heads/main", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"ref":"refs/heads/main","object":{"sha":"abc123","type":"commit"}}`)
	})

	clt := newTestClient(t, mux)

	sha, err := clt.BranchSHA(context.Background(), "me", "app", "main")
	require.NoError(t, err)
	assert.Equal(t, "abc123", sha)

	_, err = clt.BranchSHA(context.Background(), "me", "app", "missing")
	assert.True(t, IsNotFound(err))
}

func TestListPullRequestsIteratesPages(t *testing.T) {
	t.Cleanup(zap.ReplaceGlobals(zaptest.NewLogger(t).Named(t.Name())))

	var srvURL string

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/org/app/pulls", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "open", r.URL.Query().Get("state"))

		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `[{"number":2}]`)
			return
		}

		w.Header().Set("Link", fmt.Sprintf(`<%s/repos/org/app/pulls?page=2>; rel="next"`, srvURL))
		fmt.Fprint(w, `[{"number":1}]`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	srvURL = srv.URL

	restClt := github.NewClient(srv.Client())
	restClt.BaseURL, _ = url.Parse(srv.URL + "/")
	clt := &Client{logger: zap.L(), restClt: restClt}

	it := clt.ListPullRequests(context.Background(), "org", "app", "open", "created", "asc")

	var numbers []int
	for {
		pr, err := it.Next()
		require.NoError(t, err)
		if pr == nil {
			break
		}

		numbers = append(numbers, pr.GetNumber())
	}

	assert.Equal(t, []int{1, 2}, numbers)
}

func TestGraphQLURL(t *testing.T) {
	assert.Equal(t, "https://ghe.example.com/api/graphql", graphQLURL("https://ghe.example.com/api/v3/"))
	assert.Equal(t, "https://ghe.example.com/api/graphql", graphQLURL("https://ghe.example.com/api/v3"))
}
