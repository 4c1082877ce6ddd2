package pipeline

import (
	"context"

	"github.com/google/go-github/v59/github"

	"github.com/salesforce/dockerfile-image-update-sub000/internal/content"
	"github.com/salesforce/dockerfile-image-update-sub000/internal/forking"
	"github.com/salesforce/dockerfile-image-update-sub000/internal/pullrequest"
	"github.com/salesforce/dockerfile-image-update-sub000/internal/tagstore"
)

//go:generate mockgen -package mocks -destination ../mocks/githubclient.go . GithubClient

// GithubClient defines all methods of a GitHub client that are used in a
// run.
type GithubClient interface {
	forking.GithubClient
	content.GithubClient
	pullrequest.GithubClient
	tagstore.GithubClient

	SearchCode(ctx context.Context, query string, limit int) ([]*github.CodeResult, int, error)
}
