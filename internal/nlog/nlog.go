// Package nlog is bananas-server's logger: buffered, timestamped, leveled
// writing to a log file with an optional stderr mirror.
/*
 * Adapted from aistore's cmn/nlog.
 */
package nlog

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type severity int

const (
	sevInfo severity = iota
	sevWarn
	sevErr
)

func (s severity) String() string {
	switch s {
	case sevWarn:
		return "W"
	case sevErr:
		return "E"
	default:
		return "I"
	}
}

var (
	toStderr     bool
	alsoToStderr bool

	mu      sync.Mutex
	file    *os.File
	writer  *bufio.Writer
	logDir  string
	prefix  = "bananas"
	maxSize int64 = 64 * 1024 * 1024
	curSize int64
)

// SetPre fixes the log directory and the file-name prefix, opening the
// first log segment. Mirrors aistore's nlog.SetLogDirRole in spirit, scoped
// down to a single role (this is a single-process server, not a cluster node).
func SetPre(dir, namePrefix string) error {
	mu.Lock()
	defer mu.Unlock()

	logDir = dir
	prefix = namePrefix

	if toStderr {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return rotateLocked()
}

func rotateLocked() error {
	if file != nil {
		writer.Flush()
		file.Close()
	}
	name := filepath.Join(logDir, fmt.Sprintf("%s.%s.log", prefix, time.Now().Format("20060102-150405")))
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	file = f
	writer = bufio.NewWriterSize(f, 32*1024)
	curSize = 0
	return nil
}

// SetToStderr routes all output to stderr only, used by tests and -logtostderr.
func SetToStderr(v bool) { mu.Lock(); toStderr = v; mu.Unlock() }

func SetAlsoStderr(v bool) { mu.Lock(); alsoToStderr = v; mu.Unlock() }

func logf(sev severity, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	line := fmt.Sprintf("%s %s %s\n", time.Now().Format("2006-01-02 15:04:05.000"), sev, msg)

	mu.Lock()
	defer mu.Unlock()

	if toStderr || alsoToStderr || file == nil {
		fmt.Fprint(os.Stderr, line)
	}
	if toStderr || file == nil {
		return
	}

	n, _ := writer.WriteString(line)
	curSize += int64(n)
	if sev == sevErr {
		writer.Flush()
	}
	if curSize > maxSize {
		rotateLocked()
	}
}

func Infof(format string, args ...any)    { logf(sevInfo, format, args...) }
func Infoln(args ...any)                  { logf(sevInfo, "%s", fmt.Sprint(args...)) }
func Warningf(format string, args ...any) { logf(sevWarn, format, args...) }
func Warningln(args ...any)               { logf(sevWarn, "%s", fmt.Sprint(args...)) }
func Errorf(format string, args ...any)   { logf(sevErr, format, args...) }
func Errorln(args ...any)                 { logf(sevErr, "%s", fmt.Sprint(args...)) }

// Flush forces the buffered writer to disk. Call periodically from a
// background goroutine and once more on shutdown.
func Flush() {
	mu.Lock()
	defer mu.Unlock()
	if writer != nil {
		writer.Flush()
	}
}

// FlushLoop runs Flush on an interval until stop is closed; start this as
// a goroutine from main().
func FlushLoop(interval time.Duration, stop <-chan struct{}) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			Flush()
		case <-stop:
			Flush()
			return
		}
	}
}
