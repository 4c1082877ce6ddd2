package logfields

import "go.uber.org/zap"

func PullRequest(val int) zap.Field {
	return zap.Int("github.pull_request", val)
}

// Repository is the full name (owner/name) of a GitHub repository.
func Repository(val string) zap.Field {
	return zap.String("git.repository", val)
}

func RepositoryOwner(val string) zap.Field {
	return zap.String("github.repository_owner", val)
}

// Fork is the full name of the fork of a parent repository.
func Fork(val string) zap.Field {
	return zap.String("github.fork", val)
}

func Branch(val string) zap.Field {
	return zap.String("git.branch", val)
}

func BaseBranch(val string) zap.Field {
	return zap.String("git.base_branch", val)
}

func Commit(val string) zap.Field {
	return zap.String("git.commit", val)
}

func Path(val string) zap.Field {
	return zap.String("git.path", val)
}
