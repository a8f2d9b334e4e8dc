package main

import (
	"context"

	"github.com/urfave/cli/v3"
)

func (a *app) runCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "run a command, replaying its output when nothing it read has changed",
		ArgsUsage: "-- program [args...]",
		Flags: []cli.Flag{
			dirFlag(),
			envAllowFlag(),
			&cli.BoolFlag{
				Name:  "force",
				Usage: "ignore any cached result and refresh it",
			},
			&cli.BoolFlag{
				Name:  "cache-failures",
				Usage: "also cache runs that exit non-zero",
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "limit a single execution",
			},
			&cli.StringSliceFlag{
				Name:  "watch",
				Usage: "extra path whose changes invalidate the result (repeatable)",
			},
		},
		Action: withSession(a, a.run),
	}
}

func (a *app) run(ctx context.Context, cmd *cli.Command, s *session) error {
	spec, err := commandSpec(cmd)
	if err != nil {
		return err
	}

	opts := runOptions(cmd, s.cfg)
	opts.ForceRefresh = cmd.Bool("force")
	if cmd.Bool("cache-failures") {
		opts.CacheFailures = true
	}
	if d := cmd.Duration("timeout"); d > 0 {
		opts.Timeout = d
	}
	opts.ExtraWatchPaths = append(opts.ExtraWatchPaths, cmd.StringSlice("watch")...)

	res, err := s.runner.Run(ctx, spec, opts)
	if res == nil {
		return err
	}
	// A non-nil err here means only storing the result failed. The runner's
	// middleware has already logged it at warn.

	if _, err := a.stdout.Write(res.Stdout); err != nil {
		return err
	}
	if _, err := a.stderr.Write(res.Stderr); err != nil {
		return err
	}
	a.exitCode = exitStatus(res.ExitCode)
	return nil
}

// exitStatus maps a signal-terminated child (-1) to a generic failure.
func exitStatus(code int) int {
	if code < 0 {
		return 1
	}
	return code
}
