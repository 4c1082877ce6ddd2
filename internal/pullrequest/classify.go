package pullrequest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/go-github/v59/github"

	"github.com/salesforce/dockerfile-image-update-sub000/internal/diuerr"
)

// Kind is the classification of the result of a pull request creation.
type Kind uint8

const (
	KindUndefined Kind = iota
	Success
	AlreadyExists
	NoCommits
	Transient
	Fatal
)

var kindStrings = [...]string{
	KindUndefined: "undefined",
	Success:       "success",
	AlreadyExists: "already_exists",
	NoCommits:     "no_commits",
	Transient:     "transient",
	Fatal:         "fatal",
}

func (k Kind) String() string {
	if int(k) > len(kindStrings)-1 {
		return fmt.Sprintf("unsupported Kind value: %d", k)
	}

	return kindStrings[k]
}

const (
	alreadyExistsMsg = "a pull request already exists"
	noCommitsMsg     = "no commits between"
)

// ClassifyCreateError classifies an error returned by the GitHub API when
// creating a pull request.
//
// GitHub reports an existing pull request and a pull request without
// changes only as text in the validation errors of a 422 response. The
// messages are matched case-insensitive.
// Other validation errors are transient, GitHub returns them e.g. when the
// head branch of a fresh fork is not replicated yet.
// Authentication, authorization and not found errors are fatal.
// Errors that are not responses of the GitHub API are transient, except
// context cancellation.
func ClassifyCreateError(err error) Kind {
	if err == nil {
		return Success
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Fatal
	}

	if diuerr.IsRetryable(err) {
		return Transient
	}

	var respErr *github.ErrorResponse
	if !errors.As(err, &respErr) {
		return Transient
	}

	for _, msg := range errorMessages(respErr) {
		msg = strings.ToLower(msg)

		if strings.Contains(msg, alreadyExistsMsg) {
			return AlreadyExists
		}

		if strings.Contains(msg, noCommitsMsg) {
			return NoCommits
		}
	}

	if respErr.Response == nil {
		return Transient
	}

	switch respErr.Response.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return Fatal
	default:
		return Transient
	}
}

func errorMessages(respErr *github.ErrorResponse) []string {
	result := make([]string, 0, len(respErr.Errors)+1)
	result = append(result, respErr.Message)

	for _, e := range respErr.Errors {
		result = append(result, e.Message)
	}

	return result
}
