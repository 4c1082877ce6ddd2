package tagstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/go-github/v59/github"
	"go.uber.org/zap"

	"github.com/salesforce/dockerfile-image-update-sub000/internal/githubclt"
	"github.com/salesforce/dockerfile-image-update-sub000/internal/logfields"
)

const gitJSONStoreFile = "store.json"

// GithubClient defines the methods of a GitHub client that are used to
// access the store file.
type GithubClient interface {
	GetContents(ctx context.Context, owner, repo, path, ref string) (*github.RepositoryContent, []*github.RepositoryContent, error)
	UpdateFile(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentFileOptions) error
	CreateFile(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentFileOptions) error
}

type gitJSONDocument struct {
	Images map[string]string `json:"images"`
}

// GitJSONStore stores the tags in the file store.json on the default branch
// of a GitHub repository.
type GitJSONStore struct {
	clt    GithubClient
	owner  string
	repo   string
	logger *zap.Logger
}

func NewGitJSONStore(clt GithubClient, owner, repo string) *GitJSONStore {
	return &GitJSONStore{
		clt:    clt,
		owner:  owner,
		repo:   repo,
		logger: zap.L().Named(loggerName).With(logfields.Repository(owner + "/" + repo)),
	}
}

// read returns the document and the blob sha of the store file.
// If the file does not exist, an empty document and an empty sha are
// returned.
func (s *GitJSONStore) read(ctx context.Context) (*gitJSONDocument, string, error) {
	doc := gitJSONDocument{Images: map[string]string{}}

	file, _, err := s.clt.GetContents(ctx, s.owner, s.repo, gitJSONStoreFile, "")
	if err != nil {
		if githubclt.IsNotFound(err) {
			return &doc, "", nil
		}

		return nil, "", fmt.Errorf("retrieving %s failed: %w", gitJSONStoreFile, err)
	}

	if file == nil {
		return nil, "", fmt.Errorf("%s is not a file", gitJSONStoreFile)
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, "", fmt.Errorf("decoding %s failed: %w", gitJSONStoreFile, err)
	}

	if len(bytes.TrimSpace([]byte(content))) > 0 {
		if err := json.Unmarshal([]byte(content), &doc); err != nil {
			return nil, "", fmt.Errorf("unmarshaling %s failed: %w", gitJSONStoreFile, err)
		}
	}

	if doc.Images == nil {
		doc.Images = map[string]string{}
	}

	return &doc, file.GetSHA(), nil
}

func (s *GitJSONStore) Update(ctx context.Context, image, tag string) error {
	doc, sha, err := s.read(ctx)
	if err != nil {
		return err
	}

	warnOnDowngrade(s.logger, image, doc.Images[image], tag)

	if doc.Images[image] == tag {
		s.logger.Debug(
			"store is up to date",
			logfields.Event("tag_store_unchanged"),
			logfields.Image(image),
			logfields.Tag(tag),
		)
		return nil
	}

	doc.Images[image] = tag

	content, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling store failed: %w", err)
	}

	opts := github.RepositoryContentFileOptions{
		Message: github.String(fmt.Sprintf("Update %s to %s", image, tag)),
		Content: append(content, '\n'),
	}

	if sha == "" {
		err = s.clt.CreateFile(ctx, s.owner, s.repo, gitJSONStoreFile, &opts)
	} else {
		opts.SHA = github.String(sha)
		err = s.clt.UpdateFile(ctx, s.owner, s.repo, gitJSONStoreFile, &opts)
	}
	if err != nil {
		return fmt.Errorf("committing %s failed: %w", gitJSONStoreFile, err)
	}

	s.logger.Info(
		"store updated",
		logfields.Event("tag_store_updated"),
		logfields.Image(image),
		logfields.Tag(tag),
	)

	return nil
}

// Content returns the entries sorted by image name.
func (s *GitJSONStore) Content(ctx context.Context) ([]*Entry, error) {
	doc, _, err := s.read(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*Entry, 0, len(doc.Images))
	for image, tag := range doc.Images {
		result = append(result, &Entry{Image: image, Tag: tag})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Image < result[j].Image
	})

	return result, nil
}
