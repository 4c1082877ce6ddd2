// Package filescope describes which kinds of docker files are searched and
// rewritten.
package filescope

import (
	"path"
	"strings"
)

// DefFilenames is the default comma separated list of searched filenames.
const DefFilenames = "Dockerfile,docker-compose"

// Scope is the set of file kinds that are searched.
type Scope struct {
	Dockerfile bool
	Compose    bool
	// Filenames are the filenames as they were passed to Parse, without
	// empty elements.
	Filenames []string
}

// Parse parses a comma-separated list of filenames.
// Elements containing "dockerfile" select Dockerfiles, elements containing
// "compose" select docker-compose files, the comparison is case-insensitive.
func Parse(filenames string) Scope {
	var result Scope

	for _, f := range strings.Split(filenames, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}

		result.Filenames = append(result.Filenames, f)

		lower := strings.ToLower(f)
		if strings.Contains(lower, "dockerfile") {
			result.Dockerfile = true
		}

		if strings.Contains(lower, "compose") {
			result.Compose = true
		}
	}

	return result
}

// DockerfileOnly returns true if only Dockerfiles are in scope.
func (s Scope) DockerfileOnly() bool {
	return s.Dockerfile && !s.Compose
}

// ComposeOnly returns true if only docker-compose files are in scope.
func (s Scope) ComposeOnly() bool {
	return s.Compose && !s.Dockerfile
}

// all returns true if the scope does not restrict the file kinds.
func (s Scope) all() bool {
	return s.Dockerfile == s.Compose
}

// IsDockerfile returns true if the base name of p looks like a Dockerfile.
func IsDockerfile(p string) bool {
	return strings.Contains(strings.ToLower(path.Base(p)), "dockerfile")
}

// IsCompose returns true if the base name of p looks like a docker-compose file.
func IsCompose(p string) bool {
	base := strings.ToLower(path.Base(p))
	ext := path.Ext(base)

	return strings.Contains(base, "compose") && (ext == ".yml" || ext == ".yaml")
}

// Matches returns true if the file at path p is in scope.
func (s Scope) Matches(p string) bool {
	if s.Dockerfile || s.all() {
		if IsDockerfile(p) {
			return true
		}
	}

	if s.Compose || s.all() {
		if IsCompose(p) {
			return true
		}
	}

	return false
}
