package searchterms

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerate(t *testing.T) {
	tcs := []struct {
		image     string
		filenames string
		expected  []string
	}{
		{"", "Dockerfile", []string{}},
		{"   ", "Dockerfile", []string{}},
		{"dockerimage", "Dockerfile", []string{"FROM dockerimage"}},
		{"dockerimage", "docker-compose", []string{"image: dockerimage"}},
		{"dockerimage", "Dockerfile,docker-compose", []string{"FROM dockerimage"}},
		{"gcr.io/the-dash/the-mash", "Dockerfile", []string{"FROM gcr.io", "the-dash", "/the-mash"}},
		{"gcr.io/the-dash/image", "Dockerfile", []string{"FROM gcr.io", "the-dash/image"}},
		{"docker.io/some/container", "Dockerfile", []string{"FROM docker.io/some/container"}},
		{
			"this-registry-has-dashes.some-company.io/path/image", "Dockerfile",
			[]string{"FROM this", "registry", "has", "dashes.some", "company.io/path/image"},
		},
		{
			"this-registry-has-dashes.some-company.io/path/image", "docker-compose",
			[]string{"image: this", "registry", "has", "dashes.some", "company.io/path/image"},
		},
		{"docker-image", "Dockerfile", []string{"FROM docker", "image"}},
	}

	for _, tc := range tcs {
		t.Run(tc.image+"/"+tc.filenames, func(t *testing.T) {
			assert.Equal(t, tc.expected, Generate(tc.image, tc.filenames))
		})
	}
}

func TestQuery(t *testing.T) {
	assert.Equal(t,
		`"FROM gcr.io" the-dash /the-mash filename:Dockerfile filename:docker-compose org:myorg`,
		Query("gcr.io/the-dash/the-mash", "Dockerfile,docker-compose", QueryOptions{Org: "myorg"}),
	)

	assert.Equal(t,
		`"image: base" filename:docker-compose repo:org/app`,
		Query("base", "docker-compose", QueryOptions{Repository: "org/app"}),
	)

	assert.Equal(t,
		`"FROM base" filename:Dockerfile user:someone`,
		Query("base", "Dockerfile", QueryOptions{User: "someone"}),
	)
}
