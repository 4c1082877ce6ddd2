package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateImage(t *testing.T) {
	for _, image := range []string{"base", "docker.io/library/base", "registry.example.com:5000/team/base"} {
		assert.NoError(t, validateImage(image), image)
	}

	for _, image := range []string{"", "base:1.0", "Base", "base@sha256:e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"} {
		assert.Error(t, validateImage(image), image)
	}
}

func TestValidateTag(t *testing.T) {
	for _, tag := range []string{"1.0", "latest", "v2.1.0-rc1_build"} {
		assert.NoError(t, validateTag(tag), tag)
	}

	for _, tag := range []string{"", "-1", "a/b", "1:0"} {
		assert.Error(t, validateTag(tag), tag)
	}
}

func TestValidateRepository(t *testing.T) {
	assert.NoError(t, validateRepository("org/app"))
	assert.Error(t, validateRepository("org"))
	assert.Error(t, validateRepository("org/app/x"))
}
