package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"

	"filingsync/internal/registry"
	"filingsync/internal/tracker"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
	ansiDim    = "\x1b[2m"
)

const (
	statusLabelWidth = 16
	statusIndent     = "  "
)

type statusStyle struct {
	label string
	color string
}

var statusStyles = map[statusKind]statusStyle{
	statusInfo:  {"INFO", ansiBlue},
	statusOK:    {"OK", ansiGreen},
	statusWarn:  {"WARN", ansiYellow},
	statusError: {"ERROR", ansiRed},
}

// renderStatusLine formats an indented "label: [KIND] message" row, padding
// labels so the brackets line up.
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	style, ok := statusStyles[kind]
	if !ok {
		style = statusStyles[statusInfo]
	}
	var b strings.Builder
	if colorize {
		b.WriteString(style.color)
	}
	fmt.Fprintf(&b, "%s%-*s [%s]", statusIndent, statusLabelWidth, label+":", style.label)
	if message != "" {
		b.WriteByte(' ')
		b.WriteString(message)
	}
	if colorize {
		b.WriteString(ansiReset)
	}
	return b.String()
}

func entityStatusColor(status tracker.Status) string {
	switch status {
	case tracker.StatusRunning:
		return ansiBlue
	case tracker.StatusDone:
		return ansiGreen
	case tracker.StatusFailed:
		return ansiRed
	default:
		return ansiDim
	}
}

// renderStatusTable draws the five-column view of a tracker snapshot.
func renderStatusTable(records []tracker.Record, colorize bool) string {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		status := string(rec.Status)
		if colorize {
			status = entityStatusColor(rec.Status) + status + ansiReset
		}
		worker := "-"
		if rec.HasWorker() {
			worker = strconv.Itoa(*rec.Worker)
		}
		rows = append(rows, []string{
			rec.Name,
			registry.FormatRUT(rec.ID),
			status,
			worker,
			strconv.Itoa(rec.FilesDownloaded),
		})
	}
	return renderTable(
		[]string{"Name", "RUT", "Status", "Worker", "Files"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight, alignRight},
	)
}

// liveStatus redraws the status table in place on a terminal.
type liveStatus struct {
	mu       sync.Mutex
	out      io.Writer
	trk      *tracker.Tracker
	colorize bool
	lines    int
}

func (l *liveStatus) draw() {
	l.mu.Lock()
	defer l.mu.Unlock()
	frame := renderStatusTable(l.trk.Snapshot(), l.colorize)
	if l.lines > 0 {
		fmt.Fprintf(l.out, "\x1b[%dA\x1b[J", l.lines)
	}
	fmt.Fprintln(l.out, frame)
	l.lines = strings.Count(frame, "\n") + 1
}

// startLiveStatus polls trk every interval until the returned stop function
// is called or ctx ends. stop draws one last frame.
func startLiveStatus(ctx context.Context, out io.Writer, trk *tracker.Tracker, interval time.Duration, colorize bool) func() {
	l := &liveStatus{out: out, trk: trk, colorize: colorize}
	l.draw()

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.draw()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			<-stopped
			l.draw()
		})
	}
}

// shouldColorize reports whether w is a terminal.
func shouldColorize(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
