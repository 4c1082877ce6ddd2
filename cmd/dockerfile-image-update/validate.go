package main

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/distribution/reference"

	"github.com/salesforce/dockerfile-image-update-sub000/internal/githubclt"
)

var anchoredTagRegexp = regexp.MustCompile(`^` + reference.TagRegexp.String() + `$`)

// validateImage ensures that image is a valid docker image name without a
// tag or digest.
func validateImage(image string) error {
	named, err := reference.ParseNormalizedNamed(image)
	if err != nil {
		return fmt.Errorf("%q is not a valid image name: %w", image, err)
	}

	if _, isTagged := named.(reference.Tagged); isTagged {
		return fmt.Errorf("image %q must not contain a tag", image)
	}

	if _, isDigested := named.(reference.Digested); isDigested {
		return fmt.Errorf("image %q must not contain a digest", image)
	}

	return nil
}

func validateTag(tag string) error {
	if !anchoredTagRegexp.MatchString(tag) {
		return fmt.Errorf("%q is not a valid image tag", tag)
	}

	return nil
}

func validateRepository(fullName string) error {
	_, _, err := githubclt.SplitFullName(fullName)
	if err != nil {
		return errors.New("repository must be in the format <owner>/<name>")
	}

	return nil
}
