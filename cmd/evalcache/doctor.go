package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/jonwraymond/evalcache/doctor"
)

func (a *app) doctorCommand() *cli.Command {
	return &cli.Command{
		Name:  "doctor",
		Usage: "check that the store is usable and the wrapped program resolves",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "program",
				Usage: "program to look up on PATH",
				Value: "nix",
			},
		},
		Action: a.doctor,
	}
}

func (a *app) doctor(ctx context.Context, cmd *cli.Command) error {
	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := cfg.Store.OpenStore()
	if err != nil {
		return err
	}
	defer store.Close()

	d := doctor.New(0,
		doctor.NewStoreChecker(store),
		doctor.NewProgramChecker(cmd.String("program")),
	)
	reports := d.Run(ctx)
	for _, r := range reports {
		line := fmt.Sprintf("%-12s %-9s %s", r.Name, r.Result.Status, r.Result.Message)
		if r.Result.Err != nil {
			line += ": " + r.Result.Err.Error()
		}
		fmt.Fprintln(a.stdout, line)
	}
	if doctor.Overall(reports) == doctor.StatusUnhealthy {
		a.exitCode = 1
	}
	return nil
}
