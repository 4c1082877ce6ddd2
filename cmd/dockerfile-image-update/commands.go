package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/pflag"

	"github.com/salesforce/dockerfile-image-update-sub000/internal/cfg"
	"github.com/salesforce/dockerfile-image-update-sub000/internal/filescope"
	"github.com/salesforce/dockerfile-image-update-sub000/internal/logfields"
	"github.com/salesforce/dockerfile-image-update-sub000/internal/metrics"
	"github.com/salesforce/dockerfile-image-update-sub000/internal/pipeline"
	"github.com/salesforce/dockerfile-image-update-sub000/internal/tagstore"
)

type arguments struct {
	Verbose            *bool
	ConfigFile         *string
	DryRun             *bool
	Timeout            *time.Duration
	Org                *string
	User               *string
	Branch             *string
	Title              *string
	Body               *string
	CommitMessage      *string
	Filenames          *string
	SearchLimit        *int
	EmptySearchRetries *uint
	Workers            *int
	Store              *string
	MetricsFile        *string
	RateLimit          *string
	NoRateLimit        *bool
	GithubAPIURL       *string
	SkipPRCreation     *bool
	Filter             *string

	flags *pflag.FlagSet
}

// applyTo overwrites the settings in config that were set via command line
// flags.
func (a *arguments) applyTo(config *cfg.Config) {
	changed := a.flags.Changed

	if changed("store") {
		config.Store = *a.Store
	}

	if changed("workers") {
		config.Workers = *a.Workers
	}

	if changed("metrics-file") {
		config.MetricsFile = *a.MetricsFile
	}

	if changed("github-api-url") {
		config.GithubAPIURL = *a.GithubAPIURL
	}

	if changed("rate-limit") {
		config.RateLimit.Enabled = true
		config.RateLimit.PRCreations = *a.RateLimit
	}

	if changed("no-rate-limit") && *a.NoRateLimit {
		config.RateLimit.Enabled = false
	}

	if changed("title") {
		config.PullRequest.Title = *a.Title
	}

	if changed("body") {
		config.PullRequest.Body = *a.Body
	}

	if changed("commit-message") {
		config.PullRequest.CommitMessage = *a.CommitMessage
	}
}

func registerFlags(flags *pflag.FlagSet, cmd *command) *arguments {
	args := arguments{
		flags: flags,
		Verbose: flags.BoolP(
			"verbose",
			"v",
			false,
			"enable verbose logging",
		),
		ConfigFile: flags.StringP(
			"cfg-file",
			"c",
			"",
			"path to an optional configuration file",
		),
		DryRun: flags.Bool(
			"dry-run",
			false,
			"simulate all changes on github",
		),
		Timeout: flags.Duration(
			"timeout",
			0,
			"abort the run after the duration, 0 disables the timeout",
		),
		Org: flags.StringP(
			"org",
			"o",
			"",
			"only search in repositories of the organization",
		),
		User: flags.String(
			"user",
			"",
			"only search in repositories of the user",
		),
		Branch: flags.StringP(
			"branch",
			"b",
			"",
			"name of the branch in the forks, derived from the image and tag when empty",
		),
		Title: flags.String(
			"title",
			"",
			"text/template of the pull request title",
		),
		Body: flags.String(
			"body",
			"",
			"text/template of the pull request body",
		),
		CommitMessage: flags.StringP(
			"commit-message",
			"m",
			"",
			"text that is appended to the commit messages",
		),
		Filenames: flags.StringP(
			"filenames",
			"f",
			filescope.DefFilenames,
			"comma separated list of searched filenames",
		),
		SearchLimit: flags.Int(
			"search-limit",
			pipeline.DefSearchLimit,
			"maximum number of code search results",
		),
		EmptySearchRetries: flags.Uint(
			"empty-search-retries",
			pipeline.DefEmptySearchRetries,
			"how often the code search is retried when it returns no results",
		),
		Workers: flags.Int(
			"workers",
			pipeline.DefWorkers,
			"number of repositories that are processed concurrently",
		),
		Store: flags.StringP(
			"store",
			"s",
			"",
			"image tag store, s3://<bucket> or <owner>/<repository>",
		),
		MetricsFile: flags.String(
			"metrics-file",
			"",
			"write prometheus metrics to the file",
		),
		RateLimit: flags.String(
			"rate-limit",
			"",
			"maximum pull request creations, e.g. 30-per-1h",
		),
		NoRateLimit: flags.Bool(
			"no-rate-limit",
			false,
			"disable rate limiting of pull request creations",
		),
		GithubAPIURL: flags.String(
			"github-api-url",
			"",
			"url of the github enterprise api, e.g. https://github.example.com/api/v3/",
		),
	}

	switch cmd.name {
	case "all":
		args.Filter = flags.String(
			"filter",
			"",
			`jq expression selecting store entries, e.g. '.image | startswith("registry.example.com/")'`,
		)
	case "parent", "child":
		args.SkipPRCreation = flags.Bool(
			"skip-pr-creation",
			false,
			"only update the store, do not create pull requests",
		)
	}

	return &args
}

type runEnv struct {
	config    *cfg.Config
	args      *arguments
	clt       pipeline.GithubClient
	collector *metrics.Collector
	pipeline  *pipeline.Pipeline
}

func (e *runEnv) mustInitPipeline() *pipeline.Pipeline {
	e.pipeline = mustNewPipeline(e.config, e.args, e.clt, e.collector)
	return e.pipeline
}

type command struct {
	name        string
	usage       string
	description string
	minArgs     int
	maxArgs     int
	run         func(ctx context.Context, env *runEnv, args []string) error
}

var commands = map[string]*command{
	"all": {
		name:        "all",
		usage:       "[STORE]",
		description: "update all images of the tag store in all repositories referencing them",
		minArgs:     0,
		maxArgs:     1,
		run:         runAll,
	},
	"parent": {
		name:        "parent",
		usage:       "IMAGE TAG [STORE]",
		description: "update IMAGE to TAG in all repositories referencing it and record the tag in the store",
		minArgs:     2,
		maxArgs:     3,
		run:         runParent,
	},
	"child": {
		name:        "child",
		usage:       "REPOSITORY IMAGE TAG",
		description: "update IMAGE to TAG in the repository REPOSITORY (owner/name)",
		minArgs:     3,
		maxArgs:     3,
		run:         runChild,
	},
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s COMMAND [OPTION]... [ARG]...\n", appName)
	fmt.Fprintf(os.Stderr, "Update docker base image references via pull requests to GitHub repositories.\n")
	fmt.Fprintf(os.Stderr, "\nCommands:\n")

	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %-8s %s\n", name, commands[name].description)
	}

	fmt.Fprintf(os.Stderr, "\nRun '%s COMMAND --help' for the options of a command.\n", appName)
}

func printCommandUsage(cmd *command, flags *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, "Usage: %s %s [OPTION]... %s\n", appName, cmd.name, cmd.usage)
	fmt.Fprintf(os.Stderr, "%s.\n", cmd.description)
	fmt.Fprintf(os.Stderr, "\nOptions:\n")
	flags.PrintDefaults()
}

var errStoreMissing = errors.New("no tag store configured")

func mustStore(ctx context.Context, env *runEnv, storeArg string) tagstore.Store {
	if storeArg != "" {
		env.config.Store = storeArg
	}

	store, err := newStore(ctx, env.config, env.clt)
	exitOnErr("could not initialize tag store", err)

	return store
}

func runAll(ctx context.Context, env *runEnv, args []string) error {
	var storeArg string
	if len(args) > 0 {
		storeArg = args[0]
	}

	store := mustStore(ctx, env, storeArg)
	if store == nil {
		return errStoreMissing
	}

	var filter *tagstore.Filter
	if *env.args.Filter != "" {
		var err error

		filter, err = tagstore.NewFilter(*env.args.Filter)
		exitOnErr("invalid filter", err)
	}

	return env.mustInitPipeline().RunStore(ctx, store, filter)
}

func runParent(ctx context.Context, env *runEnv, args []string) error {
	image, tag := args[0], args[1]
	exitOnErr("invalid image", validateImage(image))
	exitOnErr("invalid tag", validateTag(tag))

	var storeArg string
	if len(args) > 2 {
		storeArg = args[2]
	}

	store := mustStore(ctx, env, storeArg)
	if store != nil {
		if err := store.Update(ctx, image, tag); err != nil {
			return fmt.Errorf("updating store failed: %w", err)
		}
	} else {
		logger.Info("no tag store configured, store is not updated", logfields.Event("store_update_skipped"))
	}

	if *env.args.SkipPRCreation {
		logger.Info(
			"skipping pull request creation",
			logfields.Event("pull_request_creation_skipped"),
			logfields.Image(image),
			logfields.Tag(tag),
		)
		return nil
	}

	return env.mustInitPipeline().Run(ctx, image, tag)
}

func runChild(ctx context.Context, env *runEnv, args []string) error {
	repo, image, tag := args[0], args[1], args[2]
	exitOnErr("invalid repository", validateRepository(repo))
	exitOnErr("invalid image", validateImage(image))
	exitOnErr("invalid tag", validateTag(tag))

	store := mustStore(ctx, env, "")
	if store != nil {
		if err := store.Update(ctx, image, tag); err != nil {
			return fmt.Errorf("updating store failed: %w", err)
		}
	}

	if *env.args.SkipPRCreation {
		logger.Info(
			"skipping pull request creation",
			logfields.Event("pull_request_creation_skipped"),
			logfields.Repository(repo),
			logfields.Image(image),
		)
		return nil
	}

	return env.mustInitPipeline().RunForRepository(ctx, repo, image, tag)
}
