package util

import (
	"fmt"
	"io"
	"time"

	"github.com/buger/goterm"
)

var spinnerChars = []string{"/", "-", "\\", "|"}

// ProgressPrinter shows a spinner after a message while a slow operation,
// such as waiting for a volume to be provisioned, is running.
type ProgressPrinter struct {
	out     io.Writer
	msg     string
	stop    chan struct{}
	stopped chan struct{}
}

func NewProgressPrinter(out io.Writer, msg string) ProgressPrinter {
	return ProgressPrinter{out, msg, make(chan struct{}), make(chan struct{})}
}

// Run prints until Stop is called.
func (pp ProgressPrinter) Run() {
	defer close(pp.stopped)
	poll := time.NewTicker(time.Second)
	defer poll.Stop()

	// The trailing space is overwritten by the spinner.
	fmt.Fprint(pp.out, pp.msg+"  ")
	for tick := 0; ; tick++ {
		select {
		case <-pp.stop:
			return
		case <-poll.C:
			goterm.MoveCursorBackward(1)
			goterm.Flush()
			fmt.Fprint(pp.out, spinnerChars[tick%len(spinnerChars)])
		}
	}
}

// Stop blocks until the spinner is cleared.
func (pp ProgressPrinter) Stop() {
	close(pp.stop)
	<-pp.stopped
	goterm.MoveCursorBackward(1)
	goterm.Flush()
	fmt.Fprintln(pp.out, " ")
}
