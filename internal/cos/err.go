// Package cos provides small common helpers shared across bananas-server
// packages: typed errors, a de-duplicating error collector, and a couple of
// startup helpers.
/*
 * Adapted from aistore's cmn/cos/err.go.
 */
package cos

import (
	"fmt"
	"os"
	"sync"

	"github.com/OpenTTD/bananas-server/internal/nlog"
)

// ErrNotFound is returned by the storage backends when a requested blob is
// simply absent (not an error worth a stack trace).
type ErrNotFound struct {
	what string
}

func NewErrNotFound(format string, a ...any) *ErrNotFound {
	return &ErrNotFound{fmt.Sprintf(format, a...)}
}

func (e *ErrNotFound) Error() string { return e.what + " does not exist" }

func IsErrNotFound(err error) bool {
	_, ok := err.(*ErrNotFound)
	return ok
}

// Errs collects up to maxErrs distinct errors, used by the reload pipeline
// to report multiple skipped YAML entries without aborting the whole load.
type Errs struct {
	mu   sync.Mutex
	errs []error
}

const maxErrs = 16

func (e *Errs) Add(err error) {
	if err == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, added := range e.errs {
		if added.Error() == err.Error() {
			return
		}
	}
	if len(e.errs) < maxErrs {
		e.errs = append(e.errs, err)
	}
}

func (e *Errs) Cnt() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.errs)
}

func (e *Errs) Error() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.errs) == 0 {
		return ""
	}
	if len(e.errs) == 1 {
		return e.errs[0].Error()
	}
	return fmt.Sprintf("%v (and %d more error(s))", e.errs[0], len(e.errs)-1)
}

// ExitLogf logs a fatal startup error to both stderr and the log file, then
// exits the process. Used only from cmd/bananasrv/main.go.
func ExitLogf(format string, a ...any) {
	nlog.Errorf(format, a...)
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	nlog.Flush()
	os.Exit(1)
}
