package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"
	zaplogfmt "github.com/sykesm/zap-logfmt"
	"github.com/thecodeteam/goodbye"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/salesforce/dockerfile-image-update-sub000/internal/cfg"
	"github.com/salesforce/dockerfile-image-update-sub000/internal/githubclt"
	"github.com/salesforce/dockerfile-image-update-sub000/internal/logfields"
	"github.com/salesforce/dockerfile-image-update-sub000/internal/metrics"
	"github.com/salesforce/dockerfile-image-update-sub000/internal/pipeline"
	"github.com/salesforce/dockerfile-image-update-sub000/internal/pullrequest"
	"github.com/salesforce/dockerfile-image-update-sub000/internal/tagstore"
)

const appName = "dockerfile-image-update"

var logger *zap.Logger

// Version is set via a ldflag on compilation
var Version = "unknown"

func exitOnErr(msg string, err error) {
	if err == nil {
		return
	}

	fmt.Fprintln(os.Stderr, "ERROR:", msg+", error:", err.Error())
	os.Exit(1)
}

func panicHandler() {
	if r := recover(); r != nil {
		logger.Info(
			"panic caught , terminating gracefully",
			zap.String("panic", fmt.Sprintf("%v", r)),
			zap.StackSkip("stacktrace", 1),
		)

		ctx, cancelFn := context.WithTimeout(context.Background(), time.Minute)
		defer cancelFn()

		goodbye.Exit(ctx, 1)
	}
}

func mustLoadCfg(args *arguments) *cfg.Config {
	// we use exitOnErr in this function instead of logger.Fatal() because
	// the logger is not initialized yet

	config, err := cfg.LoadFile(*args.ConfigFile)
	if err != nil {
		exitOnErr(fmt.Sprintf("could not load configuration file: %s", *args.ConfigFile), err)
	}

	args.applyTo(config)

	return config
}

func initLogFmtLogger(config *cfg.Config, logLevel zapcore.Level) *zap.Logger {
	cfg := zapEncoderConfig(config)

	logger := zap.New(zapcore.NewCore(
		zaplogfmt.NewEncoder(cfg),
		os.Stdout,
		logLevel),
	)

	return logger
}

func zapEncoderConfig(config *cfg.Config) zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()

	cfg.LevelKey = "loglevel"
	cfg.TimeKey = config.LogTimeKey
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeDuration = zapcore.StringDurationEncoder

	return cfg
}

func mustInitZapFormatLogger(config *cfg.Config, logLevel zapcore.Level) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Sampling = nil
	cfg.EncoderConfig = zapEncoderConfig(config)
	cfg.OutputPaths = []string{"stdout"}
	cfg.Encoding = config.LogFormat
	cfg.Level = zap.NewAtomicLevelAt(logLevel)

	logger, err := cfg.Build()
	exitOnErr("could not initialize logger", err)

	return logger
}

func mustInitLogger(config *cfg.Config, verbose bool) {
	var logLevel zapcore.Level
	if verbose {
		logLevel = zapcore.DebugLevel
	} else {
		if err := (&logLevel).Set(config.LogLevel); err != nil {
			fmt.Fprintf(os.Stderr, "can not set log level to %q: %s \n", config.LogLevel, err)
			os.Exit(2)
		}
	}

	switch config.LogFormat {
	case "logfmt":
		logger = initLogFmtLogger(config, logLevel)
	case "console", "json":
		logger = mustInitZapFormatLogger(config, logLevel)
	default:
		fmt.Fprintf(os.Stderr, "unsupported log-format argument: %q\n", config.LogFormat)
		os.Exit(2)
	}

	logger = logger.Named("main")
	zap.ReplaceGlobals(logger)

	goodbye.Register(func(context.Context, os.Signal) {
		if err := logger.Sync(); err != nil {
			fmt.Fprintf(os.Stderr, "flushing logs failed: %s\n", err)
		}
	})
}

func hide(in string) string {
	if in == "" {
		return in
	}

	return "**hidden**"
}

func mustNewGithubClient(config *cfg.Config, dryRun bool) pipeline.GithubClient {
	if config.GithubAPIToken == "" {
		fmt.Fprintf(os.Stderr, "ERROR: github api token is missing, set it in the config file or via the %s environment variable\n", cfg.TokenEnvVar)
		os.Exit(2)
	}

	var clt pipeline.GithubClient

	if config.GithubAPIURL == "" {
		clt = githubclt.New(config.GithubAPIToken)
	} else {
		enterpriseClt, err := githubclt.NewEnterprise(config.GithubAPIToken, config.GithubAPIURL)
		exitOnErr("could not create github enterprise client", err)
		clt = enterpriseClt
	}

	if dryRun {
		return pipeline.NewDryGithubClient(clt, logger)
	}

	return clt
}

func mustNewPipeline(config *cfg.Config, args *arguments, clt pipeline.GithubClient, collector *metrics.Collector) *pipeline.Pipeline {
	limiter, err := config.RateLimiter()
	exitOnErr("invalid rate limit configuration", err)

	contentRetryer, prRetryer, err := config.Retryers()
	exitOnErr("invalid retry configuration", err)

	retryDelay, err := config.RetryDelay()
	exitOnErr("invalid retry configuration", err)

	templates, err := pullrequest.NewTemplates(config.PullRequest.Title, config.PullRequest.Body)
	exitOnErr("invalid pull request template", err)

	p, err := pipeline.New(clt, pipeline.Config{
		Filenames:          *args.Filenames,
		Branch:             *args.Branch,
		Org:                *args.Org,
		User:               *args.User,
		SearchLimit:        *args.SearchLimit,
		EmptySearchRetries: *args.EmptySearchRetries,
		SearchRetryDelay:   retryDelay,
		CommitMessage:      config.PullRequest.CommitMessage,
		Workers:            config.Workers,
		ContentRetryer:     contentRetryer,
		PRRetryer:          prRetryer,
		RateLimiter:        limiter,
		Templates:          templates,
		Metrics:            collector,
	})
	exitOnErr("could not initialize pipeline", err)

	return p
}

// newStore returns the store that is configured or nil if none is
// configured.
func newStore(ctx context.Context, config *cfg.Config, clt pipeline.GithubClient) (tagstore.Store, error) {
	if config.Store == "" {
		return nil, nil
	}

	return tagstore.NewFromURI(ctx, config.Store, clt)
}

func main() {
	defer panicHandler()

	defer goodbye.Exit(context.Background(), 1)
	goodbye.Notify(context.Background())

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "--version", "version":
		fmt.Printf("%s %s\n", appName, Version)
		os.Exit(0) // nolint:gocritic // defer functions won't run
	case "-h", "--help", "help":
		printUsage()
		os.Exit(0)
	}

	cmd, exists := commands[os.Args[1]]
	if !exists {
		fmt.Fprintf(os.Stderr, "ERROR: unknown command: %q\n\n", os.Args[1])
		printUsage()
		os.Exit(2)
	}

	flags := pflag.NewFlagSet(cmd.name, pflag.ContinueOnError)
	args := registerFlags(flags, cmd)
	flags.Usage = func() { printCommandUsage(cmd, flags) }

	if err := flags.Parse(os.Args[2:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	if nArgs := flags.NArg(); nArgs < cmd.minArgs || nArgs > cmd.maxArgs {
		fmt.Fprintf(os.Stderr, "ERROR: %s: unexpected number of arguments: %d\n\n", cmd.name, nArgs)
		printCommandUsage(cmd, flags)
		os.Exit(2)
	}

	config := mustLoadCfg(args)

	mustInitLogger(config, *args.Verbose)

	logger.Info(
		"loaded configuration",
		logfields.Event("cfg_loaded"),
		zap.String("command", cmd.name),
		zap.String("cfg_file", *args.ConfigFile),
		zap.String("github_api_token", hide(config.GithubAPIToken)),
		zap.String("github_api_url", config.GithubAPIURL),
		zap.String("store", config.Store),
		zap.Int("workers", config.Workers),
		zap.Bool("rate_limit_enabled", config.RateLimit.Enabled),
		zap.String("rate_limit_pr_creations", config.RateLimit.PRCreations),
		zap.Bool("dry_run", *args.DryRun),
		zap.String("log_format", config.LogFormat),
		zap.String("log_level", config.LogLevel),
	)

	ctx, cancelFn := context.WithCancel(context.Background())
	defer cancelFn()

	goodbye.Register(func(_ context.Context, sig os.Signal) {
		if sig != nil {
			logger.Info(fmt.Sprintf("terminating, received signal %s", sig.String()))
		}
		cancelFn()
	})

	if *args.Timeout > 0 {
		var timeoutCancelFn context.CancelFunc
		ctx, timeoutCancelFn = context.WithTimeout(ctx, *args.Timeout)
		defer timeoutCancelFn()
	}

	clt := mustNewGithubClient(config, *args.DryRun)
	collector := metrics.New()

	env := runEnv{
		config:    config,
		args:      args,
		clt:       clt,
		collector: collector,
	}

	runErr := cmd.run(ctx, &env, flags.Args())

	if env.pipeline != nil {
		summary := env.pipeline.Summary()
		summary.Log(logger)
		fmt.Println(summary.String())

		runErr = multierr.Append(runErr, summary.Err())
	}

	if config.MetricsFile != "" {
		if err := collector.WriteToTextfile(config.MetricsFile); err != nil {
			logger.Warn("writing metrics failed", logfields.Event("metrics_write_failed"), zap.Error(err))
		}
	}

	if runErr != nil {
		logger.Error("run failed", logfields.Event("run_failed"), zap.Error(runErr))
		goodbye.Exit(context.Background(), 1)
	}

	goodbye.Exit(context.Background(), 0)
}
