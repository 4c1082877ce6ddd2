// Package content rewrites the image references in the files of a fork.
package content

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/go-github/v59/github"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/salesforce/dockerfile-image-update-sub000/internal/diuerr"
	"github.com/salesforce/dockerfile-image-update-sub000/internal/filescope"
	"github.com/salesforce/dockerfile-image-update-sub000/internal/githubclt"
	"github.com/salesforce/dockerfile-image-update-sub000/internal/imageline"
	"github.com/salesforce/dockerfile-image-update-sub000/internal/logfields"
	"github.com/salesforce/dockerfile-image-update-sub000/internal/retry"
)

const loggerName = "content_updater"

// GithubClient defines the methods of a GitHub client that are used to
// modify files in a fork.
type GithubClient interface {
	GetContents(ctx context.Context, owner, repo, path, ref string) (*github.RepositoryContent, []*github.RepositoryContent, error)
	UpdateFile(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentFileOptions) error
	BranchSHA(ctx context.Context, owner, repo, branch string) (string, error)
	CreateBranch(ctx context.Context, owner, repo, branch, sha string) error
}

// Target describes which image references are rewritten where.
type Target struct {
	Fork   *github.Repository
	Branch string
	Image  string
	Tag    string
}

func (t *Target) logFields() []zap.Field {
	return []zap.Field{
		logfields.Fork(t.Fork.GetFullName()),
		logfields.Branch(t.Branch),
		logfields.Image(t.Image),
		logfields.Tag(t.Tag),
	}
}

// Updater rewrites the docker image references of files in a branch.
type Updater struct {
	clt             GithubClient
	retryer         *retry.Retryer
	scope           filescope.Scope
	commitMsgSuffix string
	logger          *zap.Logger
}

// NewUpdater returns an Updater that modifies files in scope.
// commitMsgSuffix is appended to the commit message of every created commit.
// GitHub replicates the content of new forks asynchronously, not found
// errors are retried with retryer.
func NewUpdater(clt GithubClient, retryer *retry.Retryer, scope filescope.Scope, commitMsgSuffix string) *Updater {
	return &Updater{
		clt:             clt,
		retryer:         retryer,
		scope:           scope,
		commitMsgSuffix: commitMsgSuffix,
		logger:          zap.L().Named(loggerName),
	}
}

// retryNotFound runs fn with the retryer, not found errors are retried.
func (u *Updater) retryNotFound(ctx context.Context, fn func(context.Context) error, logF []zap.Field) error {
	return u.retryer.Run(ctx, func(ctx context.Context) error {
		err := fn(ctx)
		if githubclt.IsNotFound(err) {
			return diuerr.NewRetryableAnytimeError(err)
		}

		return err
	}, logF)
}

// EnsureBranch creates the branch in the fork if it does not exist.
// The branch is created from the head of the default branch of the fork.
func (u *Updater) EnsureBranch(ctx context.Context, fork *github.Repository, branch string) error {
	owner := fork.GetOwner().GetLogin()
	repo := fork.GetName()
	logF := []zap.Field{logfields.Fork(fork.GetFullName()), logfields.Branch(branch)}

	_, err := u.clt.BranchSHA(ctx, owner, repo, branch)
	if err == nil {
		u.logger.Debug("branch exists", append(logF, logfields.Event("branch_exists"))...)
		return nil
	}
	if !githubclt.IsNotFound(err) {
		return fmt.Errorf("retrieving branch %s failed: %w", branch, err)
	}

	defaultBranch := fork.GetDefaultBranch()
	if defaultBranch == "" {
		return fmt.Errorf("default branch of fork %s is unknown", fork.GetFullName())
	}

	var baseSHA string
	err = u.retryNotFound(ctx, func(ctx context.Context) error {
		var err error
		baseSHA, err = u.clt.BranchSHA(ctx, owner, repo, defaultBranch)
		return err
	}, append(logF, logfields.BaseBranch(defaultBranch)))
	if err != nil {
		return fmt.Errorf("retrieving head of default branch %s failed: %w", defaultBranch, err)
	}

	err = u.clt.CreateBranch(ctx, owner, repo, branch, baseSHA)
	if err != nil {
		if errors.Is(err, githubclt.ErrAlreadyExists) {
			return nil
		}

		return fmt.Errorf("creating branch %s failed: %w", branch, err)
	}

	u.logger.Info(
		"branch created",
		append(logF,
			logfields.Event("branch_created"),
			logfields.BaseBranch(defaultBranch),
			logfields.Commit(baseSHA),
		)...,
	)

	return nil
}

// Update walks the file tree of the target branch and rewrites the
// references to the target image in every file in scope.
// Every modified file is committed separately. Files that are not modified
// are not committed. The paths of the modified files are returned.
// Entries without a download url (submodules) are skipped.
func (u *Updater) Update(ctx context.Context, t *Target) ([]string, error) {
	var modified []string

	err := u.walk(ctx, t, "", &modified)
	if err != nil {
		return modified, err
	}

	if len(modified) == 0 {
		u.logger.Info(
			"no file references an outdated version of the image",
			append(t.logFields(), logfields.Event("content_unchanged"))...,
		)
	}

	return modified, nil
}

func (u *Updater) walk(ctx context.Context, t *Target, dir string, modified *[]string) error {
	var entries []*github.RepositoryContent

	err := u.retryNotFound(ctx, func(ctx context.Context) error {
		var err error
		_, entries, err = u.clt.GetContents(ctx, t.Fork.GetOwner().GetLogin(), t.Fork.GetName(), dir, t.Branch)
		return err
	}, append(t.logFields(), logfields.Path(dir)))
	if err != nil {
		return fmt.Errorf("listing directory /%s failed: %w", dir, err)
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		switch entry.GetType() {
		case "dir":
			if err := u.walk(ctx, t, entry.GetPath(), modified); err != nil {
				return err
			}

		case "file":
			if entry.GetDownloadURL() == "" {
				u.logger.Debug(
					"skipping entry without download url",
					append(t.logFields(),
						logfields.Event("submodule_skipped"),
						logfields.Path(entry.GetPath()),
					)...,
				)
				continue
			}

			if !u.scope.Matches(entry.GetPath()) {
				continue
			}

			changed, err := u.updateFile(ctx, t, entry.GetPath())
			if err != nil {
				return err
			}

			if changed {
				*modified = append(*modified, entry.GetPath())
			}
		}
	}

	return nil
}

func (u *Updater) updateFile(ctx context.Context, t *Target, p string) (bool, error) {
	logger := u.logger.With(append(t.logFields(), logfields.Path(p))...)

	var file *github.RepositoryContent

	err := u.retryNotFound(ctx, func(ctx context.Context) error {
		var err error
		file, _, err = u.clt.GetContents(ctx, t.Fork.GetOwner().GetLogin(), t.Fork.GetName(), p, t.Branch)
		return err
	}, append(t.logFields(), logfields.Path(p)))
	if err != nil {
		return false, fmt.Errorf("retrieving /%s failed: %w", p, err)
	}

	if file == nil {
		return false, fmt.Errorf("retrieving /%s failed: github returned no file content", p)
	}

	content, err := file.GetContent()
	if err != nil {
		logger.Warn(
			"skipping file, decoding its content failed",
			logfields.Event("file_content_undecodable"),
			zap.Error(err),
		)

		return false, nil
	}

	newContent, changed := Rewrite(content, t.Image, t.Tag)
	if !changed {
		logger.Debug("file is up to date", logfields.Event("file_unchanged"))
		return false, nil
	}

	// compose files that are not valid yaml before the rewrite (templates)
	// are rewritten anyway, only rewrites that break valid yaml are dropped
	if filescope.IsCompose(p) && validateYAML(content) == nil {
		if err := validateYAML(newContent); err != nil {
			logger.Warn(
				"skipping file, rewritten content is not valid yaml",
				logfields.Event("compose_file_rewrite_invalid"),
				zap.Error(err),
			)

			return false, nil
		}
	}

	err = u.clt.UpdateFile(ctx, t.Fork.GetOwner().GetLogin(), t.Fork.GetName(), p, &github.RepositoryContentFileOptions{
		Message: github.String(CommitMessage(p, u.commitMsgSuffix)),
		Content: []byte(newContent),
		SHA:     github.String(file.GetSHA()),
		Branch:  github.String(t.Branch),
	})
	if err != nil {
		return false, fmt.Errorf("committing /%s failed: %w", p, err)
	}

	logger.Info("file updated", logfields.Event("file_updated"))

	return true, nil
}

// Rewrite replaces the tag of every reference to image in content with tag.
// Lines that do not reference image or already reference tag are kept
// unmodified. changed is true if at least 1 line was rewritten.
func Rewrite(content, image, tag string) (result string, changed bool) {
	lines := strings.Split(content, "\n")

	for i, l := range lines {
		parsed, ok := imageline.Parse(l)
		if !ok {
			continue
		}

		if !parsed.HasBaseImage(image) || !parsed.HasDifferentTag(tag) {
			continue
		}

		lines[i] = parsed.WithNewTag(tag).String()
		changed = true
	}

	if !changed {
		return content, false
	}

	return strings.Join(lines, "\n"), true
}

// CommitMessage returns the message of the commit that modifies the file at
// p.
func CommitMessage(p, suffix string) string {
	msg := "Fix Docker base image in " + path.Join("/", p)
	if suffix = strings.TrimSpace(suffix); suffix != "" {
		msg += "\n\n" + suffix
	}

	return msg
}

func validateYAML(content string) error {
	var v any
	return yaml.Unmarshal([]byte(content), &v)
}
