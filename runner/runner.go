package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/evalcache/cache"
	"github.com/jonwraymond/evalcache/fingerprint"
	"github.com/jonwraymond/evalcache/fsop"
	"github.com/jonwraymond/evalcache/nixlog"
	"github.com/jonwraymond/evalcache/observe"
)

// DefaultLogArgs makes Nix emit internal-json records at talkative verbosity,
// which is where "evaluating file" messages appear.
var DefaultLogArgs = []string{"--log-format", "internal-json", "-v"}

// CommandSpec is the command a caller wants run.
type CommandSpec struct {
	// Program is the executable name or path.
	Program string

	// Args are passed to the program in order.
	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env sets or overrides variables on top of the inherited environment.
	Env map[string]string
}

// Options controls caching for a single run.
type Options struct {
	// EnvAllowlist names the environment variables that are part of the
	// command identity. Nothing else from the environment is.
	EnvAllowlist []string

	// CacheFailures permits storing results with a non-zero exit status.
	CacheFailures bool

	// LogArgs are appended to the program arguments to request the
	// structured log stream. Nil means DefaultLogArgs; an empty non-nil
	// slice appends nothing.
	LogArgs []string

	// ExtraWatchPaths are tracked in addition to what the log reports.
	ExtraWatchPaths []string

	// IgnorePrefixes drops dependencies whose path starts with any prefix.
	IgnorePrefixes []string

	// ForceRefresh skips the lookup and always executes.
	ForceRefresh bool

	// Timeout bounds a single execution. Zero means no limit.
	Timeout time.Duration
}

func (o Options) logArgs() []string {
	if o.LogArgs == nil {
		return DefaultLogArgs
	}
	return o.LogArgs
}

// Result is the outcome of a run.
type Result struct {
	Identity fingerprint.Identity
	Stdout   []byte
	Stderr   []byte
	ExitCode int

	// FromCache is true when no process was spawned.
	FromCache bool

	// Status is what the lookup found before deciding to execute.
	Status cache.Status

	// Stored is true when this run wrote a fresh entry.
	Stored bool

	Dependencies []cache.Dependency
}

// Runner runs commands through the dependency-aware cache.
//
// Contract:
//   - Concurrency: safe for concurrent use. Runs of the same identity are
//     serialized; different identities run in parallel.
//   - Errors: lookup failures degrade to a miss. Store failures are returned
//     together with a complete Result.
type Runner struct {
	cache      *cache.Cache
	executor   Executor
	keyer      fingerprint.Keyer
	classifier *fsop.Classifier
	mw         *observe.Middleware
	locks      *keyedLocks
	lookupEnv  func(string) (string, bool)
	getwd      func() (string, error)
}

// Option configures a Runner.
type Option func(*Runner)

// WithExecutor sets the process executor.
func WithExecutor(e Executor) Option {
	return func(r *Runner) {
		if e != nil {
			r.executor = e
		}
	}
}

// WithKeyer sets the identity keyer.
func WithKeyer(k fingerprint.Keyer) Option {
	return func(r *Runner) {
		if k != nil {
			r.keyer = k
		}
	}
}

// WithMiddleware sets the observability middleware.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(r *Runner) {
		if mw != nil {
			r.mw = mw
		}
	}
}

// WithPathKind sets how the classifier tells directories from files.
func WithPathKind(pk fsop.PathKind) Option {
	return func(r *Runner) {
		if pk != nil {
			r.classifier = fsop.NewClassifier(pk)
		}
	}
}

// New creates a Runner over c.
func New(c *cache.Cache, opts ...Option) (*Runner, error) {
	if c == nil {
		return nil, ErrNilCache
	}
	r := &Runner{
		cache:      c,
		executor:   NewOSExecutor(),
		keyer:      fingerprint.NewDefaultKeyer(),
		classifier: fsop.NewClassifier(fsop.OSPathKind{}),
		mw:         observe.NopMiddleware(),
		locks:      newKeyedLocks(),
		lookupEnv:  os.LookupEnv,
		getwd:      os.Getwd,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Identity derives the cache identity of spec under opts without running it.
func (r *Runner) Identity(spec CommandSpec, opts Options) (fingerprint.Identity, error) {
	dir, err := r.resolveDir(spec.Dir)
	if err != nil {
		return "", err
	}
	lookup := func(name string) (string, bool) {
		if v, ok := spec.Env[name]; ok {
			return v, true
		}
		return r.lookupEnv(name)
	}
	return r.keyer.Key(fingerprint.Invocation{
		Program: spec.Program,
		Args:    spec.Args,
		Dir:     dir,
		Env:     fingerprint.SelectEnv(opts.EnvAllowlist, lookup),
	})
}

func (r *Runner) resolveDir(dir string) (string, error) {
	if dir == "" {
		wd, err := r.getwd()
		if err != nil {
			return "", fmt.Errorf("runner: resolving working directory: %w", err)
		}
		return wd, nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("runner: resolving working directory: %w", err)
	}
	return abs, nil
}

// Run returns the output of spec, from the cache when every recorded
// dependency is unchanged and by executing the command otherwise.
//
// A non-nil error with a non-nil Result means the command ran but its
// result could not be stored; the error wraps cache.ErrStore.
func (r *Runner) Run(ctx context.Context, spec CommandSpec, opts Options) (*Result, error) {
	id, err := r.Identity(spec, opts)
	if err != nil {
		return nil, err
	}

	meta := observe.CommandMeta{
		Identity: id.String(),
		Program:  spec.Program,
		Args:     spec.Args,
		Dir:      spec.Dir,
	}

	var res *Result
	run := r.mw.Wrap(func(ctx context.Context, meta observe.CommandMeta) (observe.RunReport, error) {
		var err error
		res, err = r.run(ctx, id, meta, spec, opts)
		return report(res, err), err
	})
	_, err = run(ctx, meta)
	return res, err
}

func report(res *Result, err error) observe.RunReport {
	if res == nil {
		return observe.RunReport{}
	}
	rep := observe.RunReport{
		Outcome:      observe.OutcomeMiss,
		ExitCode:     res.ExitCode,
		Dependencies: len(res.Dependencies),
		StoreFailed:  errors.Is(err, cache.ErrStore),
	}
	switch {
	case res.FromCache:
		rep.Outcome = observe.OutcomeHit
	case res.Status == cache.StatusStale:
		rep.Outcome = observe.OutcomeStale
	}
	return rep
}

func canceled(err error) error {
	return fmt.Errorf("%w: %w", ErrCanceled, err)
}

func (r *Runner) run(ctx context.Context, id fingerprint.Identity, meta observe.CommandMeta, spec CommandSpec, opts Options) (*Result, error) {
	logger := r.mw.Logger().WithCommand(meta)

	unlock, err := r.locks.lock(ctx, id)
	if err != nil {
		return nil, canceled(err)
	}
	defer unlock()

	status := cache.StatusAbsent
	if !opts.ForceRefresh {
		entry, st, err := r.cache.LookupAndValidate(ctx, id)
		switch {
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, canceled(ctxErr)
			}
			logger.Warn(ctx, "cache lookup failed, executing", observe.Field{Key: "error", Value: err.Error()})
		case st == cache.StatusFresh:
			return &Result{
				Identity:     id,
				Stdout:       entry.Stdout,
				Stderr:       entry.Stderr,
				ExitCode:     entry.ExitCode,
				FromCache:    true,
				Status:       st,
				Dependencies: entry.Dependencies,
			}, nil
		default:
			status = st
		}
	}
	logger.Debug(ctx, "executing", observe.Field{Key: "status", Value: status.String()})

	execCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	out, err := r.execute(execCtx, spec, opts)
	if err != nil {
		return nil, err
	}
	if out.malformed > 0 {
		logger.Warn(ctx, "malformed log records", observe.Field{Key: "count", Value: out.malformed})
	}

	res := &Result{
		Identity: id,
		Stdout:   out.stdout,
		Stderr:   out.stderr,
		ExitCode: out.exitCode,
		Status:   status,
	}

	deps, err := r.cache.Dependencies(ctx, dependencyOps(out.ops, opts))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, canceled(ctxErr)
		}
		return res, fmt.Errorf("%w: fingerprinting dependencies: %w", cache.ErrStore, err)
	}
	res.Dependencies = deps

	policy := cache.Policy{CacheFailures: opts.CacheFailures}
	if !policy.ShouldStore(out.exitCode) {
		logger.Debug(ctx, "not storing failed run", observe.Field{Key: "exit_code", Value: out.exitCode})
		return res, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, canceled(ctxErr)
	}

	err = r.cache.Store(ctx, &cache.Entry{
		Identity:     id,
		Program:      spec.Program,
		Args:         spec.Args,
		Stdout:       out.stdout,
		Stderr:       out.stderr,
		ExitCode:     out.exitCode,
		Dependencies: deps,
	})
	if err != nil {
		logger.Warn(ctx, "storing result failed", observe.Field{Key: "error", Value: err.Error()})
		return res, err
	}
	res.Stored = true
	return res, nil
}

// dependencyOps merges extra watch paths into ops and drops ignored ones.
func dependencyOps(ops []fsop.Op, opts Options) []fsop.Op {
	seen := make(map[fsop.Op]struct{}, len(ops)+len(opts.ExtraWatchPaths))
	out := make([]fsop.Op, 0, len(ops)+len(opts.ExtraWatchPaths))
	add := func(op fsop.Op) {
		if ignored(op.Source, opts.IgnorePrefixes) {
			return
		}
		if _, dup := seen[op]; dup {
			return
		}
		seen[op] = struct{}{}
		out = append(out, op)
	}
	for _, op := range ops {
		add(op)
	}
	extra := append([]string(nil), opts.ExtraWatchPaths...)
	sort.Strings(extra)
	for _, path := range extra {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		add(fsop.NewTrackedPath(path))
	}
	return out
}

func ignored(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

type execution struct {
	stdout    []byte
	stderr    []byte
	exitCode  int
	ops       []fsop.Op
	malformed int
}

// execute starts the process and consumes both streams while it runs.
func (r *Runner) execute(ctx context.Context, spec CommandSpec, opts Options) (*execution, error) {
	args := make([]string, 0, len(spec.Args)+len(opts.logArgs()))
	args = append(args, spec.Args...)
	args = append(args, opts.logArgs()...)

	proc, err := r.executor.Start(ctx, Command{
		Program: spec.Program,
		Args:    args,
		Dir:     spec.Dir,
		Env:     envList(spec.Env),
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, canceled(ctxErr)
		}
		return nil, fmt.Errorf("%w: %w", ErrSpawn, err)
	}

	collector := fsop.NewCollector(r.classifier)
	var stdout, stderr bytes.Buffer
	var malformed int

	var g errgroup.Group
	g.Go(func() error {
		_, err := io.Copy(&stdout, proc.Stdout())
		return err
	})
	g.Go(func() error {
		dec := nixlog.NewDecoder(proc.Stderr())
		for dec.Scan() {
			if rec, ok := dec.Record(); ok {
				collector.Add(rec)
				if text, show := renderMessage(rec); show {
					stderr.WriteString(text)
					stderr.WriteByte('\n')
				}
				continue
			}
			stderr.Write(dec.Line())
			stderr.WriteByte('\n')
		}
		malformed = dec.Malformed()
		if err := dec.Err(); err != nil {
			// Keep the pipe drained so the child never blocks on a full buffer.
			_, _ = io.Copy(io.Discard, proc.Stderr())
			return err
		}
		return nil
	})
	drainErr := g.Wait()

	exitCode, waitErr := proc.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, canceled(ctxErr)
	}
	if waitErr != nil {
		if errors.Is(waitErr, context.Canceled) || errors.Is(waitErr, context.DeadlineExceeded) {
			return nil, canceled(waitErr)
		}
		return nil, fmt.Errorf("%w: %w", ErrSpawn, waitErr)
	}
	if drainErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrLogStream, drainErr)
	}

	return &execution{
		stdout:    stdout.Bytes(),
		stderr:    stderr.Bytes(),
		exitCode:  exitCode,
		ops:       collector.Ops(),
		malformed: malformed,
	}, nil
}

// renderMessage returns the text Nix would have printed at its default
// verbosity. Messages above LevelInfo only appear because of -v.
func renderMessage(rec nixlog.Record) (string, bool) {
	if !rec.IsMessage() || rec.Level > nixlog.LevelInfo {
		return "", false
	}
	return rec.Msg, true
}

func envList(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	names := make([]string, 0, len(env))
	for name := range env {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, name+"="+env[name])
	}
	return out
}
