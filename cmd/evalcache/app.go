package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/urfave/cli/v3"

	"github.com/jonwraymond/evalcache/cache"
	"github.com/jonwraymond/evalcache/config"
	"github.com/jonwraymond/evalcache/observe"
	"github.com/jonwraymond/evalcache/runner"
)

var errNoCommand = errors.New("no command given; pass it after --")

// app holds process-wide streams so commands can be driven from tests.
type app struct {
	stdin     io.Reader
	stdout    io.Writer
	stderr    io.Writer
	lookupEnv func(string) (string, bool)

	// exitCode is the status the process should exit with after Run.
	exitCode int
}

func newApp(stdin io.Reader, stdout, stderr io.Writer, lookupEnv func(string) (string, bool)) *app {
	return &app{stdin: stdin, stdout: stdout, stderr: stderr, lookupEnv: lookupEnv}
}

func (a *app) command() *cli.Command {
	return &cli.Command{
		Name:      "evalcache",
		Usage:     "cache Nix evaluation results keyed on the files they read",
		Reader:    a.stdin,
		Writer:    a.stdout,
		ErrWriter: a.stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "configuration file",
				Sources: cli.NewValueSourceChain(cli.EnvVar("EVALCACHE_CONFIG")),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "debug|info|warn|error",
				Sources: cli.NewValueSourceChain(cli.EnvVar("EVALCACHE_LOG")),
			},
		},
		Commands: []*cli.Command{
			a.runCommand(),
			a.statusCommand(),
			a.forgetCommand(),
			a.parseCommand(),
			a.doctorCommand(),
		},
	}
}

// session is everything a cache-backed command needs.
type session struct {
	cfg    config.Config
	cache  *cache.Cache
	runner *runner.Runner
	close  func(ctx context.Context) error
}

func (a *app) loadConfig(cmd *cli.Command) (config.Config, error) {
	path := cmd.String("config")
	if path == "" {
		found, err := config.Find(a.lookupEnv)
		switch {
		case errors.Is(err, config.ErrNotFound):
			cfg := config.Default()
			return cfg, a.applyFlags(cmd, &cfg)
		case err != nil:
			return config.Config{}, err
		}
		path = found
	}

	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	return cfg, a.applyFlags(cmd, &cfg)
}

func (a *app) applyFlags(cmd *cli.Command, cfg *config.Config) error {
	if level := cmd.String("log-level"); level != "" {
		cfg.Observe.Logging.Enabled = true
		cfg.Observe.Logging.Level = level
	}
	cfg.Observe.Logging.Writer = a.stderr
	return cfg.Validate()
}

func (a *app) open(ctx context.Context, cmd *cli.Command) (*session, error) {
	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	obs, err := observe.NewObserver(ctx, cfg.Observe)
	if err != nil {
		return nil, err
	}
	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		return nil, errors.Join(err, obs.Shutdown(ctx))
	}

	store, err := cfg.Store.OpenStore()
	if err != nil {
		return nil, errors.Join(err, obs.Shutdown(ctx))
	}
	c, err := cache.New(store, cache.WithFingerprinter(cfg.Fingerprinter()))
	if err != nil {
		return nil, errors.Join(err, store.Close(), obs.Shutdown(ctx))
	}
	r, err := runner.New(c, runner.WithMiddleware(mw))
	if err != nil {
		return nil, errors.Join(err, c.Close(), obs.Shutdown(ctx))
	}

	return &session{
		cfg:    cfg,
		cache:  c,
		runner: r,
		close: func(ctx context.Context) error {
			return errors.Join(c.Close(), obs.Shutdown(context.WithoutCancel(ctx)))
		},
	}, nil
}

// commandSpec builds the wrapped command from the positional arguments.
func commandSpec(cmd *cli.Command) (runner.CommandSpec, error) {
	args := cmd.Args().Slice()
	if len(args) == 0 {
		return runner.CommandSpec{}, errNoCommand
	}
	return runner.CommandSpec{
		Program: args[0],
		Args:    args[1:],
		Dir:     cmd.String("dir"),
	}, nil
}

func dirFlag() cli.Flag {
	return &cli.StringFlag{
		Name:  "dir",
		Usage: "working directory of the command",
	}
}

func envAllowFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:  "env",
		Usage: "environment variable that is part of the cache key (repeatable)",
	}
}

// runOptions merges command flags over configured options.
func runOptions(cmd *cli.Command, cfg config.Config) runner.Options {
	opts := cfg.RunOptions()
	opts.EnvAllowlist = append(opts.EnvAllowlist, cmd.StringSlice("env")...)
	return opts
}

func withSession(a *app, fn func(ctx context.Context, cmd *cli.Command, s *session) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) (err error) {
		s, err := a.open(ctx, cmd)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := s.close(ctx); cerr != nil {
				err = errors.Join(err, fmt.Errorf("closing: %w", cerr))
			}
		}()
		return fn(ctx, cmd, s)
	}
}
