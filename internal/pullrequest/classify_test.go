package pullrequest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/go-github/v59/github"
	"github.com/stretchr/testify/assert"

	"github.com/salesforce/dockerfile-image-update-sub000/internal/diuerr"
)

func errResponse(status int, msg string, errMsgs ...string) *github.ErrorResponse {
	resp := github.ErrorResponse{
		Response: &http.Response{StatusCode: status},
		Message:  msg,
	}

	for _, m := range errMsgs {
		resp.Errors = append(resp.Errors, github.Error{Resource: "PullRequest", Code: "custom", Message: m})
	}

	return &resp
}

func TestClassifyCreateError(t *testing.T) {
	testcases := []struct {
		name   string
		err    error
		result Kind
	}{
		{name: "nil", err: nil, result: Success},
		{
			name:   "already exists",
			err:    errResponse(http.StatusUnprocessableEntity, "Validation Failed", "A pull request already exists for bot:base-2.0."),
			result: AlreadyExists,
		},
		{
			name:   "already exists in message",
			err:    errResponse(http.StatusUnprocessableEntity, "A pull request already exists for bot:base-2.0."),
			result: AlreadyExists,
		},
		{
			name:   "already exists wrapped",
			err:    fmt.Errorf("creating failed: %w", errResponse(http.StatusUnprocessableEntity, "Validation Failed", "a PULL REQUEST already exists")),
			result: AlreadyExists,
		},
		{
			name:   "no commits",
			err:    errResponse(http.StatusUnprocessableEntity, "Validation Failed", "No commits between org:main and bot:base-2.0"),
			result: NoCommits,
		},
		{
			name:   "no commits after other error",
			err:    errResponse(http.StatusUnprocessableEntity, "Validation Failed", "something", "No commits between org:main and bot:base-2.0"),
			result: NoCommits,
		},
		{
			name:   "other validation error",
			err:    errResponse(http.StatusUnprocessableEntity, "Validation Failed", "head sha can't be blank"),
			result: Transient,
		},
		{
			name:   "unauthorized",
			err:    errResponse(http.StatusUnauthorized, "Bad credentials"),
			result: Fatal,
		},
		{
			name:   "forbidden",
			err:    errResponse(http.StatusForbidden, "Resource not accessible by integration"),
			result: Fatal,
		},
		{
			name:   "not found",
			err:    errResponse(http.StatusNotFound, "Not Found"),
			result: Fatal,
		},
		{
			name:   "server error",
			err:    diuerr.NewRetryableAnytimeError(errResponse(http.StatusBadGateway, "Bad Gateway")),
			result: Transient,
		},
		{
			name:   "response without http response",
			err:    &github.ErrorResponse{Message: "unknown"},
			result: Transient,
		},
		{
			name:   "network error",
			err:    errors.New("connection reset by peer"),
			result: Transient,
		},
		{
			name:   "cancelled",
			err:    fmt.Errorf("request failed: %w", context.Canceled),
			result: Fatal,
		},
		{
			name:   "deadline exceeded",
			err:    context.DeadlineExceeded,
			result: Fatal,
		},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.result.String(), ClassifyCreateError(tc.err).String())
		})
	}
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "created", Created.String())
	assert.Equal(t, "skipped_no_commits", SkippedNoCommits.String())
	assert.Equal(t, "unsupported Outcome value: 200", Outcome(200).String())
}
