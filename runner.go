package pandoc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aexvir/pandoc/internal/logging"
)

// DefaultWait is how long the runner waits for the process to finish before it
// starts draining its output.
const DefaultWait = time.Second

// Result is the outcome of running a process.
type Result struct {
	Success  bool
	ExitCode int
	Stdout   []string
	Stderr   []string
	// Err is set when the process couldn't be spawned, its output couldn't be
	// read or it was killed; a plain non-zero exit leaves it nil.
	Err error
}

// Runner holds the metadata for a specific command.
type Runner struct {
	Executable string
	Arguments  []string

	ctx     context.Context
	dir     string
	env     []string
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
	outfile string
	errfile string
	wait    time.Duration
	timeout time.Duration
	okmsg   string
	errmsg  string
	quiet   bool
}

// Cmd builds a command runner for a specific executable.
// Relative paths are resolved against the current directory and bare names
// are looked up in PATH, so the executable doesn't depend on [WithDir].
func Cmd(ctx context.Context, executable string, opts ...RunnerOpt) (*Runner, error) {
	r := Runner{
		Executable: resolve(executable),
		ctx:        ctx,
		wait:       DefaultWait,
	}

	for _, opt := range opts {
		if err := opt(&r); err != nil {
			return nil, err
		}
	}

	return &r, nil
}

func resolve(executable string) string {
	if strings.ContainsRune(executable, filepath.Separator) || strings.ContainsRune(executable, '/') {
		if abs, err := filepath.Abs(executable); err == nil {
			return abs
		}
		return executable
	}

	if path, err := exec.LookPath(executable); err == nil {
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
		return path
	}

	return executable
}

// Exec runs the command and never fails: every problem is reported through
// the returned [Result].
//
// The process gets up to the configured wait to finish, then its stdout is
// drained line by line into the stdout sink or the log. A zero exit code means
// success; otherwise the exit code followed by everything the process wrote to
// stderr goes to the error sink or the log.
func (r *Runner) Exec() (res Result) {
	start := time.Now()
	defer func() {
		if r.quiet {
			return
		}
		if res.Success {
			if r.okmsg != "" {
				logging.Info("%s", r.okmsg)
			} else {
				logging.Info("%s finished successfully", filepath.Base(r.Executable))
			}
			logging.Elapsed(start, nil)
			return
		}
		if r.errmsg != "" {
			logging.Error("%s", r.errmsg)
		}
		logging.Elapsed(start, fmt.Errorf("exit code %d", res.ExitCode))
	}()

	if !r.quiet {
		logging.Step(strings.TrimSpace(fmt.Sprint(r.Executable, " ", strings.Join(r.Arguments, " "))))
	}

	ctx := r.ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	res, err := r.run(ctx)
	if err != nil {
		res.Success = false
		res.Err = err
		if !r.quiet {
			logging.Error("failed to run %s: %s", filepath.Base(r.Executable), err)
		}
	}

	return res
}

func (r *Runner) run(ctx context.Context) (Result, error) {
	res := Result{ExitCode: -1}

	stdout, err := r.sink(r.stdout, r.outfile, os.O_APPEND)
	if err != nil {
		return res, err
	}
	if closer, ok := stdout.(io.Closer); ok && r.outfile != "" {
		defer closer.Close()
	}

	cmd := exec.CommandContext(ctx, r.Executable, r.Arguments...)
	cmd.Dir = r.dir
	cmd.Env = r.env
	cmd.Stdin = r.stdin

	outr, outw, err := os.Pipe()
	if err != nil {
		return res, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	defer outr.Close()

	errr, errw, err := os.Pipe()
	if err != nil {
		outw.Close()
		return res, fmt.Errorf("failed to create stderr pipe: %w", err)
	}
	defer errr.Close()

	cmd.Stdout = outw
	cmd.Stderr = errw

	err = cmd.Start()
	// the child owns the write ends now; closing ours lets reads reach EOF once it exits
	outw.Close()
	errw.Close()
	if err != nil {
		return res, fmt.Errorf("failed to start process: %w", err)
	}

	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	// descendants of a killed process can keep the pipes open
	stop := context.AfterFunc(ctx, func() {
		outr.Close()
		errr.Close()
	})
	defer stop()

	// stderr is consumed while stdout drains so a chatty process never blocks
	var (
		wg        sync.WaitGroup
		stderrerr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		stderrerr = readlines(errr, func(line string) {
			res.Stderr = append(res.Stderr, line)
		})
	}()

	var waiterr error
	done := false
	select {
	case waiterr = <-exited:
		done = true
	case <-time.After(r.wait):
	case <-ctx.Done():
	}

	stdouterr := readlines(outr, func(line string) {
		res.Stdout = append(res.Stdout, line)
		r.forward(stdout, line)
	})

	if !done {
		waiterr = <-exited
	}
	wg.Wait()

	if ctxerr := ctx.Err(); ctxerr != nil {
		return res, fmt.Errorf("process interrupted: %w", ctxerr)
	}

	var exiterr *exec.ExitError
	if waiterr != nil && !errors.As(waiterr, &exiterr) {
		return res, fmt.Errorf("failed to wait for process: %w", waiterr)
	}

	res.ExitCode = cmd.ProcessState.ExitCode()

	if err := errors.Join(stdouterr, stderrerr); err != nil {
		return res, fmt.Errorf("failed to read process output: %w", err)
	}

	if res.ExitCode == 0 {
		res.Success = true
		return res, nil
	}

	if !r.quiet {
		logging.Error("%s finished with exit code %d", filepath.Base(r.Executable), res.ExitCode)
	}

	stderr, err := r.sink(r.stderr, r.errfile, os.O_TRUNC)
	if err != nil {
		return res, err
	}
	if closer, ok := stderr.(io.Closer); ok && r.errfile != "" {
		defer closer.Close()
	}

	if stderr != nil {
		if _, err := fmt.Fprintf(stderr, "exit code: %d\n", res.ExitCode); err != nil {
			return res, fmt.Errorf("failed to write exit code: %w", err)
		}
	}
	for _, line := range res.Stderr {
		r.forward(stderr, line)
	}

	return res, nil
}

// sink returns the writer output is forwarded to: the file at path if set,
// opened with the given mode, or w otherwise.
func (r *Runner) sink(w io.Writer, path string, mode int) (io.Writer, error) {
	if path == "" {
		return w, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", filepath.Dir(path), err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|mode, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return file, nil
}

// forward writes line to the sink, or logs it when there is none.
func (r *Runner) forward(sink io.Writer, line string) {
	if sink != nil {
		fmt.Fprintln(sink, line)
		return
	}
	if !r.quiet {
		logging.Detail(line)
	}
}

func readlines(reader io.Reader, fn func(line string)) error {
	buffered := bufio.NewReader(reader)
	for {
		line, err := buffered.ReadString('\n')
		if line != "" {
			fn(strings.TrimRight(line, "\r\n"))
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Run is a helper function to build and execute argv, whose first element is
// the executable, in one go.
func Run(ctx context.Context, argv []string, opts ...RunnerOpt) Result {
	if len(argv) == 0 {
		return Result{ExitCode: -1, Err: errors.New("empty command line")}
	}

	rnr, err := Cmd(ctx, argv[0], append([]RunnerOpt{WithArgs(argv[1:]...)}, opts...)...)
	if err != nil {
		logging.Error("%s", err)
		return Result{ExitCode: -1, Err: err}
	}

	return rnr.Exec()
}

// Execute runs argv and reports whether it exited successfully.
func Execute(ctx context.Context, argv []string, opts ...RunnerOpt) bool {
	return Run(ctx, argv, opts...).Success
}

// RunnerOpt allows customizing the behavior of the command runner.
type RunnerOpt func(r *Runner) error

// WithEnv sets up environment variables for the command.
func WithEnv(vars ...string) RunnerOpt {
	return func(r *Runner) error {
		if r.env == nil {
			r.env = os.Environ()
		}
		for _, vrb := range vars {
			name, _, ok := strings.Cut(vrb, "=")
			if !ok || name == "" {
				return fmt.Errorf("invalid env format; %s doesn't match NAME=value expectation", vrb)
			}
			r.env = append(r.env, vrb)
		}
		return nil
	}
}

// WithArgs command arguments.
func WithArgs(args ...string) RunnerOpt {
	return func(r *Runner) error {
		r.Arguments = args
		return nil
	}
}

// WithOKMsg sets a message to be printed when the command finishes successfully.
func WithOKMsg(msg string) RunnerOpt {
	return func(r *Runner) error {
		r.okmsg = msg
		return nil
	}
}

// WithErrMsg sets a message to be printed when the command fails.
func WithErrMsg(msg string) RunnerOpt {
	return func(r *Runner) error {
		r.errmsg = msg
		return nil
	}
}

// WithDir sets the directory where the command should be run inside.
func WithDir(dir string) RunnerOpt {
	return func(r *Runner) error {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("invalid directory %s: %w", dir, err)
		}
		r.dir = abs
		return nil
	}
}

// WithoutNoise silences all output for the command; useful when handling that on the caller side.
// Output is still collected in the [Result].
func WithoutNoise() RunnerOpt {
	return func(r *Runner) error {
		r.quiet = true
		return nil
	}
}

// WithStdOut forwards every stdout line to w instead of the log.
func WithStdOut(w io.Writer) RunnerOpt {
	return func(r *Runner) error {
		r.stdout = w
		return nil
	}
}

// WithStdErr forwards the exit code and every stderr line to w when the command fails.
func WithStdErr(w io.Writer) RunnerOpt {
	return func(r *Runner) error {
		r.stderr = w
		return nil
	}
}

// WithOutputFile appends every stdout line to the file at path, created if missing.
func WithOutputFile(path string) RunnerOpt {
	return func(r *Runner) error {
		r.outfile = path
		return nil
	}
}

// WithErrorFile writes the exit code followed by every stderr line to the file
// at path when the command fails, replacing any previous content.
func WithErrorFile(path string) RunnerOpt {
	return func(r *Runner) error {
		r.errfile = path
		return nil
	}
}

// WithStdIn set up stdin reader.
func WithStdIn(read io.Reader) RunnerOpt {
	return func(r *Runner) error {
		r.stdin = read
		return nil
	}
}

// WithWait sets how long to wait for the process to finish before draining its output.
func WithWait(wait time.Duration) RunnerOpt {
	return func(r *Runner) error {
		if wait < 0 {
			return fmt.Errorf("invalid wait %s", wait)
		}
		r.wait = wait
		return nil
	}
}

// WithTimeout kills the process if it's still running after timeout.
// Zero means no limit besides the context.
func WithTimeout(timeout time.Duration) RunnerOpt {
	return func(r *Runner) error {
		if timeout < 0 {
			return fmt.Errorf("invalid timeout %s", timeout)
		}
		r.timeout = timeout
		return nil
	}
}
