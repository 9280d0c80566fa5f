// Package logging prints the colored status lines shared by every package
// of the module.
//
// Lines follow a small visual grammar:
//
//	• step          a new unit of work starts
//	  └ detail      progress or forwarded output belonging to the last step
//	! warning       something went wrong but work continues
//	✘ error         the current unit of work failed
//
// Lines go to stderr by default, keeping stdout free for the output of the
// processes being run.
package logging

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
)

var (
	mu  sync.Mutex
	out io.Writer = color.Error
)

// SetOutput redirects all log lines to w and returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	mu.Lock()
	defer mu.Unlock()

	prev := out
	out = w
	return prev
}

// Step logs the start of a unit of work.
func Step(text string) {
	emit(
		color.BlueString(" •"),
		color.New(color.FgHiBlack).Sprint(text),
	)
}

// Detail logs a line belonging to the current step.
func Detail(text string) {
	emit(
		color.New(color.FgHiBlack).Sprint("   └"),
		color.New(color.FgHiBlack).Sprint(text),
	)
}

func Info(format string, args ...any) {
	emit(color.GreenString(" ✔"), fmt.Sprintf(format, args...))
}

func Warn(format string, args ...any) {
	emit(color.YellowString(" !"), color.YellowString(format, args...))
}

func Error(format string, args ...any) {
	emit(color.RedString(" ✘"), color.RedString(format, args...))
}

// Elapsed prints the outcome of a step started at start, green if err is nil
// and red otherwise. Meant to be deferred.
func Elapsed(start time.Time, err error) {
	elapsed := time.Since(start).Round(time.Millisecond)
	if err != nil {
		emit(color.RedString("     ✘ %s", elapsed))
		return
	}
	emit(color.GreenString("     ✔ %s", elapsed))
}

func emit(parts ...any) {
	mu.Lock()
	defer mu.Unlock()

	fmt.Fprintln(out, parts...)
}
