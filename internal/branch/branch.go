// Package branch computes the deterministic names of the fork branches that
// contain image updates.
package branch

import (
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/salesforce/dockerfile-image-update-sub000/internal/filescope"
	"github.com/salesforce/dockerfile-image-update-sub000/internal/logfields"
)

const (
	dockerfileSuffix = "_dockerfile"
	composeSuffix    = "_dockercompose"
)

var ErrNoImageOrBranch = errors.New("branch name can not be derived, image and explicit branch are empty")

// GitForkBranch is the branch in a fork that updates an image to a tag.
// The name is a pure function of the image, tag, searched filenames and
// optional explicit branch name. Repeated runs therefore operate on the same
// branch.
type GitForkBranch struct {
	name           string
	imageName      string
	imageTag       string
	suffix         string
	isOverride     bool
	normalizedBase string
}

// New returns the GitForkBranch for image and tag.
// If explicitBranch is not blank, it is used verbatim as branch name.
// Otherwise the name is the lowercased image with colons replaced by dashes,
// followed by "-<tag>" and a suffix that depends on the kind of searched
// files: "_dockerfile" when only Dockerfiles, "_dockercompose" when only
// docker-compose files are searched.
func New(image, tag, explicitBranch, filenames string) (*GitForkBranch, error) {
	image = strings.TrimSpace(image)
	tag = strings.TrimSpace(tag)
	explicitBranch = strings.TrimSpace(explicitBranch)

	if explicitBranch != "" {
		return &GitForkBranch{
			name:       explicitBranch,
			imageName:  image,
			imageTag:   tag,
			isOverride: true,
		}, nil
	}

	if image == "" {
		return nil, ErrNoImageOrBranch
	}

	b := GitForkBranch{
		imageName:      image,
		imageTag:       tag,
		normalizedBase: strings.ReplaceAll(strings.ToLower(image), ":", "-"),
		suffix:         suffix(filescope.Parse(filenames)),
	}

	b.name = b.normalizedBase
	if tag != "" {
		b.name += "-" + tag
	}

	b.name += b.suffix

	return &b, nil
}

func suffix(scope filescope.Scope) string {
	switch {
	case scope.DockerfileOnly():
		return dockerfileSuffix
	case scope.ComposeOnly():
		return composeSuffix
	default:
		return ""
	}
}

// Name returns the branch name.
func (b *GitForkBranch) Name() string {
	return b.name
}

func (b *GitForkBranch) ImageName() string {
	return b.imageName
}

func (b *GitForkBranch) ImageTag() string {
	return b.imageTag
}

// UsesOverride returns true if the branch name was specified explicitly.
func (b *GitForkBranch) UsesOverride() bool {
	return b.isOverride
}

// MatchesExisting returns true if branchName represents the same update as
// b.
// When the name was specified explicitly or the tag is empty, the names
// must be equal. Otherwise branchName matches if it only differs in the
// tag, this allows reusing the branch of a previous run that updated the
// image to another tag.
func (b *GitForkBranch) MatchesExisting(branchName string) bool {
	branchName = strings.TrimSpace(branchName)

	if b.isOverride || b.imageTag == "" {
		return branchName == b.name
	}

	if b.suffix != "" {
		if !strings.HasSuffix(branchName, b.suffix) {
			return false
		}

		branchName = strings.TrimSuffix(branchName, b.suffix)
	}

	base, ok := withoutTag(branchName)
	return ok && base == b.normalizedBase
}

// withoutTag removes the last dash-separated element of branchName.
// If branchName does not contain a dash, false is returned.
func withoutTag(branchName string) (string, bool) {
	idx := strings.LastIndexByte(branchName, '-')
	if idx == -1 {
		return "", false
	}

	return branchName[:idx], true
}

func (b *GitForkBranch) String() string {
	return b.name
}

func (b *GitForkBranch) LogFields() []zap.Field {
	return []zap.Field{
		logfields.Branch(b.name),
		logfields.Image(b.imageName),
		logfields.Tag(b.imageTag),
	}
}
