package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/jonwraymond/evalcache/fsop"
	"github.com/jonwraymond/evalcache/nixlog"
)

func (a *app) parseCommand() *cli.Command {
	return &cli.Command{
		Name:      "parse",
		Usage:     "print the filesystem dependencies found in a Nix internal-json log",
		ArgsUsage: "[file]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print one JSON object per dependency",
			},
		},
		Action: a.parse,
	}
}

type opJSON struct {
	Kind   fsop.Kind `json:"kind"`
	Source string    `json:"source"`
	Target string    `json:"target,omitempty"`
}

func (a *app) parse(_ context.Context, cmd *cli.Command) error {
	in := a.stdin
	if path := cmd.Args().First(); path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	ops, malformed, err := collectOps(in)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(a.stdout)
	for _, op := range ops {
		if cmd.Bool("json") {
			if err := enc.Encode(opJSON{Kind: op.Kind, Source: op.Source, Target: op.Target}); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintln(a.stdout, op)
	}
	if malformed > 0 {
		fmt.Fprintf(a.stderr, "skipped %d malformed records\n", malformed)
	}
	return nil
}

func collectOps(r io.Reader) ([]fsop.Op, int, error) {
	collector := fsop.NewCollector(fsop.NewClassifier(fsop.OSPathKind{}))
	dec := nixlog.NewDecoder(r)
	for dec.Scan() {
		if rec, ok := dec.Record(); ok {
			collector.Add(rec)
		}
	}
	if err := dec.Err(); err != nil {
		return nil, dec.Malformed(), fmt.Errorf("reading log: %w", err)
	}
	return collector.Ops(), dec.Malformed(), nil
}
