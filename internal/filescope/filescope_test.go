package filescope

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	s := Parse(DefFilenames)
	assert.True(t, s.Dockerfile)
	assert.True(t, s.Compose)
	assert.False(t, s.DockerfileOnly())
	assert.False(t, s.ComposeOnly())
	assert.Equal(t, []string{"Dockerfile", "docker-compose"}, s.Filenames)

	s = Parse(" Dockerfile ,")
	assert.True(t, s.DockerfileOnly())
	assert.Equal(t, []string{"Dockerfile"}, s.Filenames)

	s = Parse("docker-compose")
	assert.True(t, s.ComposeOnly())

	s = Parse("")
	assert.False(t, s.Dockerfile)
	assert.False(t, s.Compose)
	assert.Empty(t, s.Filenames)
}

func TestMatches(t *testing.T) {
	tcs := []struct {
		filenames string
		path      string
		expected  bool
	}{
		{DefFilenames, "Dockerfile", true},
		{DefFilenames, "build/Dockerfile.prod", true},
		{DefFilenames, "docker-compose.yml", true},
		{DefFilenames, "deploy/docker-compose.override.yaml", true},
		{DefFilenames, "README.md", false},
		{DefFilenames, "compose.txt", false},
		{"Dockerfile", "docker-compose.yml", false},
		{"Dockerfile", "app/dockerfile", true},
		{"docker-compose", "Dockerfile", false},
		{"docker-compose", "docker-compose.yaml", true},
		{"", "Dockerfile", true},
		{"", "docker-compose.yml", true},
	}

	for _, tc := range tcs {
		t.Run(tc.filenames+"/"+tc.path, func(t *testing.T) {
			assert.Equal(t, tc.expected, Parse(tc.filenames).Matches(tc.path))
		})
	}
}
