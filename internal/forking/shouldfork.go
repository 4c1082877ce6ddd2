package forking

import (
	"context"

	"github.com/google/go-github/v59/github"
)

const (
	ReasonIsFork          = "repository is a fork"
	ReasonArchived        = "repository is archived"
	ReasonOwnedByUser     = "repository is owned by the authenticated user"
	ReasonIdentityUnknown = "authenticated user could not be determined"
)

// ShouldForkResult is the result of checking if a repository can be
// forked.
type ShouldForkResult struct {
	allowed bool
	reason  string
	err     error
}

func shouldFork() ShouldForkResult {
	return ShouldForkResult{allowed: true}
}

func shouldNotFork(reason string) ShouldForkResult {
	return ShouldForkResult{reason: reason}
}

// And returns r if it denies forking, otherwise the result of next.
func (r ShouldForkResult) And(next func() ShouldForkResult) ShouldForkResult {
	if !r.allowed {
		return r
	}

	return next()
}

func (r ShouldForkResult) Allowed() bool {
	return r.allowed
}

// Reason describes why forking is denied.
func (r ShouldForkResult) Reason() string {
	return r.reason
}

// Err is the error that prevented a decision, forking is then denied.
func (r ShouldForkResult) Err() error {
	return r.err
}

// Validator decides if a parent repository should be forked.
type Validator struct {
	identity *Identity
}

func NewValidator(identity *Identity) *Validator {
	return &Validator{identity: identity}
}

// ShouldFork checks in order that parent is not a fork, is not archived and
// is not owned by the authenticated user. The first failed check determines
// the result.
// If the authenticated user can not be determined, forking is denied.
func (v *Validator) ShouldFork(ctx context.Context, parent *github.Repository) ShouldForkResult {
	return isNotFork(parent).
		And(func() ShouldForkResult { return isNotArchived(parent) }).
		And(func() ShouldForkResult { return v.isNotOwnedByUser(ctx, parent) })
}

func isNotFork(parent *github.Repository) ShouldForkResult {
	if parent.GetFork() {
		return shouldNotFork(ReasonIsFork)
	}

	return shouldFork()
}

func isNotArchived(parent *github.Repository) ShouldForkResult {
	if parent.GetArchived() {
		return shouldNotFork(ReasonArchived)
	}

	return shouldFork()
}

func (v *Validator) isNotOwnedByUser(ctx context.Context, parent *github.Repository) ShouldForkResult {
	isOwner, err := v.identity.IsOwner(ctx, parent.GetOwner().GetLogin())
	if err != nil {
		return ShouldForkResult{reason: ReasonIdentityUnknown, err: err}
	}

	if isOwner {
		return shouldNotFork(ReasonOwnedByUser)
	}

	return shouldFork()
}
