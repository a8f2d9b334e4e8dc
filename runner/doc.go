// Package runner executes Nix commands through the dependency-aware cache.
//
// A run derives the command identity, looks it up, and returns the stored
// output when every recorded dependency is unchanged. Otherwise it spawns the
// command with structured logging enabled, collects the filesystem paths the
// evaluator reports while it runs, and stores a fresh entry.
//
//	r, _ := runner.New(c)
//	res, err := r.Run(ctx, runner.CommandSpec{
//		Program: "nix",
//		Args:    []string{"eval", "--raw", ".#devShell.name"},
//	}, runner.Options{})
package runner
