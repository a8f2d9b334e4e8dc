// Command evalcache runs Nix commands through a dependency-aware result cache.
//
// Usage:
//
//	evalcache run -- nix eval --raw .#devShell.name
//	evalcache status -- nix eval --raw .#devShell.name
//	evalcache forget -- nix eval --raw .#devShell.name
//	evalcache doctor
//	nix eval --log-format internal-json -v .#x 2>&1 >/dev/null | evalcache parse
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := newApp(os.Stdin, os.Stdout, os.Stderr, os.LookupEnv)
	if err := a.command().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "evalcache: %v\n", err)
		return 1
	}
	return a.exitCode
}
