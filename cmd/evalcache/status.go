package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/jonwraymond/evalcache/cache"
)

func (a *app) statusCommand() *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "show the identity, freshness and dependencies of a cached command",
		ArgsUsage: "-- program [args...]",
		Flags:     []cli.Flag{dirFlag(), envAllowFlag()},
		Action:    withSession(a, a.status),
	}
}

func (a *app) status(ctx context.Context, cmd *cli.Command, s *session) error {
	spec, err := commandSpec(cmd)
	if err != nil {
		return err
	}
	id, err := s.runner.Identity(spec, runOptions(cmd, s.cfg))
	if err != nil {
		return err
	}

	entry, st, err := s.cache.LookupAndValidate(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "identity: %s\nstatus: %s\n", id, st)
	// A stale entry is not returned; it will be replaced on the next run.
	if entry == nil || st != cache.StatusFresh {
		return nil
	}
	fmt.Fprintf(a.stdout, "exit code: %d\ncreated: %s\ndependencies:\n", entry.ExitCode, entry.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
	for _, dep := range entry.Dependencies {
		fmt.Fprintf(a.stdout, "  %s %s %s\n", dep.Kind, dep.Path, dep.Fingerprint)
	}
	return nil
}

func (a *app) forgetCommand() *cli.Command {
	return &cli.Command{
		Name:      "forget",
		Usage:     "drop the cached result of a command",
		ArgsUsage: "-- program [args...]",
		Flags:     []cli.Flag{dirFlag(), envAllowFlag()},
		Action:    withSession(a, a.forget),
	}
}

func (a *app) forget(ctx context.Context, cmd *cli.Command, s *session) error {
	spec, err := commandSpec(cmd)
	if err != nil {
		return err
	}
	id, err := s.runner.Identity(spec, runOptions(cmd, s.cfg))
	if err != nil {
		return err
	}
	if err := s.cache.Forget(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, id)
	return nil
}
