// Package tagstore persists the latest known tag of docker images.
// The store is either a JSON file in a GitHub repository or an S3 bucket.
package tagstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"go.uber.org/zap"

	"github.com/salesforce/dockerfile-image-update-sub000/internal/logfields"
)

const loggerName = "tag_store"

const s3Scheme = "s3://"

// Entry is an image and its latest tag.
type Entry struct {
	Image string `json:"image"`
	Tag   string `json:"tag"`
}

// Store persists image tags.
type Store interface {
	// Update sets the tag of image.
	Update(ctx context.Context, image, tag string) error
	// Content returns all entries of the store.
	Content(ctx context.Context) ([]*Entry, error)
}

var ErrInvalidURI = errors.New("invalid store uri")

// NewFromURI returns the store for uri.
// "s3://<bucket>" returns an S3Store, "<owner>/<repository>" a GitJSONStore
// that is accessed with clt.
func NewFromURI(ctx context.Context, uri string, clt GithubClient) (Store, error) {
	uri = strings.TrimSpace(uri)

	if strings.HasPrefix(uri, s3Scheme) {
		bucket := strings.TrimSuffix(strings.TrimPrefix(uri, s3Scheme), "/")
		if bucket == "" || strings.Contains(bucket, "/") {
			return nil, fmt.Errorf("%w: %q, expecting s3://<bucket>", ErrInvalidURI, uri)
		}

		return NewS3StoreFromEnv(ctx, bucket)
	}

	parts := strings.Split(uri, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("%w: %q, expecting s3://<bucket> or <owner>/<repository>", ErrInvalidURI, uri)
	}

	return NewGitJSONStore(clt, parts[0], parts[1]), nil
}

// warnOnDowngrade logs a warning when both tags are semantic versions and
// newTag is lower than oldTag.
func warnOnDowngrade(logger *zap.Logger, image, oldTag, newTag string) {
	if oldTag == "" || oldTag == newTag {
		return
	}

	oldVer, err := semver.NewVersion(oldTag)
	if err != nil {
		return
	}

	newVer, err := semver.NewVersion(newTag)
	if err != nil {
		return
	}

	if newVer.LessThan(oldVer) {
		logger.Warn(
			"tag is replaced by a lower version",
			logfields.Event("tag_store_version_downgrade"),
			logfields.Image(image),
			logfields.Tag(newTag),
			zap.String("previous_tag", oldTag),
		)
	}
}
