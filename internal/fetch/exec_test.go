package fetch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"filingsync/internal/periods"
)

const template = "downloader --rut {rut} --period {period} --out {dest}"

func stubCommand(t *testing.T, mode string) *[]string {
	t.Helper()
	var captured []string
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		captured = append([]string{name}, args...)
		helperArgs := append([]string{"-test.run=TestHelperProcess", "--", name}, args...)
		cmd := exec.CommandContext(ctx, os.Args[0], helperArgs...)
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "FETCH_HELPER_MODE="+mode)
		return cmd
	}
	t.Cleanup(func() {
		commandContext = original
	})
	return &captured
}

func newRequest(t *testing.T) Request {
	return Request{
		RUT:    "91297000",
		Name:   "CAP SA",
		Period: periods.MustParse("2024Q4"),
		Dest:   filepath.Join(t.TempDir(), "91297000", "202412"),
	}
}

func TestNewExecValidatesTemplate(t *testing.T) {
	if _, err := NewExec("", time.Second); err == nil {
		t.Fatal("expected error for empty template")
	}
	if _, err := NewExec("downloader {rut} {period}", time.Second); err == nil {
		t.Fatal("expected error when {dest} is missing")
	}
}

func TestExpandSubstitutesPlaceholders(t *testing.T) {
	e, err := NewExec("dl --name={name} {rut} {year}-{month} {period} {dest}", 0)
	if err != nil {
		t.Fatalf("NewExec: %v", err)
	}
	got := e.Expand(Request{RUT: "91297000", Name: "CAP SA", Period: periods.MustParse("202409"), Dest: "/data/91297000/202409"})
	want := []string{"dl", "--name=CAP SA", "91297000", "2024-09", "202409", "/data/91297000/202409"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Expand = %q, want %q", got, want)
	}
}

func TestExecFetchWritesArtifactAndClearsMarker(t *testing.T) {
	captured := stubCommand(t, "success")
	e, err := NewExec(template, 10*time.Second)
	if err != nil {
		t.Fatalf("NewExec: %v", err)
	}
	req := newRequest(t)

	res, err := e.Fetch(context.Background(), req)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.Files != 1 {
		t.Fatalf("Files = %d, want 1", res.Files)
	}
	if _, err := os.Stat(filepath.Join(req.Dest, PendingMarker)); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected pending marker removed, stat err = %v", err)
	}
	if _, err := os.Stat(filepath.Join(req.Dest, "91297000_202412.xbrl")); err != nil {
		t.Fatalf("expected artifact written: %v", err)
	}
	want := []string{"downloader", "--rut", "91297000", "--period", "202412", "--out", req.Dest}
	if !reflect.DeepEqual(*captured, want) {
		t.Fatalf("command = %q, want %q", *captured, want)
	}
}

func TestExecFetchFailureKeepsMarker(t *testing.T) {
	stubCommand(t, "fail")
	e, err := NewExec(template, 10*time.Second)
	if err != nil {
		t.Fatalf("NewExec: %v", err)
	}
	req := newRequest(t)

	_, err = e.Fetch(context.Background(), req)
	var cmdErr *CommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("expected CommandError, got %v", err)
	}
	if !strings.Contains(err.Error(), "portal returned 503") {
		t.Fatalf("expected stderr tail in error, got %q", err.Error())
	}
	if _, err := os.Stat(filepath.Join(req.Dest, PendingMarker)); err != nil {
		t.Fatalf("expected pending marker to remain: %v", err)
	}
}

func TestExecFetchWithoutArtifacts(t *testing.T) {
	stubCommand(t, "empty")
	e, err := NewExec(template, 10*time.Second)
	if err != nil {
		t.Fatalf("NewExec: %v", err)
	}
	if _, err := e.Fetch(context.Background(), newRequest(t)); !errors.Is(err, ErrNoArtifacts) {
		t.Fatalf("expected ErrNoArtifacts, got %v", err)
	}
}

func TestExecFetchLongOutputLineDoesNotStall(t *testing.T) {
	stubCommand(t, "longline")
	e, err := NewExec(template, 20*time.Second)
	if err != nil {
		t.Fatalf("NewExec: %v", err)
	}
	req := newRequest(t)

	start := time.Now()
	res, err := e.Fetch(context.Background(), req)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.Files != 1 {
		t.Fatalf("Files = %d, want 1", res.Files)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("fetch took %s, expected it to finish well before the timeout", elapsed)
	}
	if _, err := os.Stat(filepath.Join(req.Dest, PendingMarker)); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected pending marker removed, stat err = %v", err)
	}
}

func TestExecFetchIgnoresLeftoverPartials(t *testing.T) {
	stubCommand(t, "empty")
	e, err := NewExec(template, 10*time.Second)
	if err != nil {
		t.Fatalf("NewExec: %v", err)
	}
	req := newRequest(t)
	if err := os.MkdirAll(req.Dest, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for name, data := range map[string]string{
		"91297000_202412.zip.part": "partial bytes",
		"filing.tmp":               "temp bytes",
		"~lock.xbrl":               "lock",
		"91297000_202412.xbrl":     "",
	} {
		if err := os.WriteFile(filepath.Join(req.Dest, name), []byte(data), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	if _, err := e.Fetch(context.Background(), req); !errors.Is(err, ErrNoArtifacts) {
		t.Fatalf("expected ErrNoArtifacts, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(req.Dest, PendingMarker)); err != nil {
		t.Fatalf("expected pending marker to remain: %v", err)
	}
}

func TestExecFetchTimeout(t *testing.T) {
	stubCommand(t, "hang")
	e, err := NewExec(template, 200*time.Millisecond)
	if err != nil {
		t.Fatalf("NewExec: %v", err)
	}
	if _, err := e.Fetch(context.Background(), newRequest(t)); !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestExecFetchCancelled(t *testing.T) {
	stubCommand(t, "hang")
	e, err := NewExec(template, 0)
	if err != nil {
		t.Fatalf("NewExec: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(100*time.Millisecond, cancel)
	if _, err := e.Fetch(ctx, newRequest(t)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPlanRecordsRequests(t *testing.T) {
	plan := NewPlan()
	req := newRequest(t)
	res, err := plan.Fetch(context.Background(), req)
	if err != nil || res.Files != 0 {
		t.Fatalf("Plan.Fetch = %+v, %v", res, err)
	}
	if _, err := os.Stat(req.Dest); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("dry run must not create the destination")
	}
	if got := plan.Requests(); len(got) != 1 || got[0].RUT != req.RUT {
		t.Fatalf("Requests = %+v", got)
	}
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for i, arg := range args {
		if arg == "--" {
			args = args[i+1:]
			break
		}
	}
	flag := func(name string) string {
		for i := 0; i < len(args)-1; i++ {
			if args[i] == name {
				return args[i+1]
			}
		}
		return ""
	}

	switch os.Getenv("FETCH_HELPER_MODE") {
	case "success":
		dest := flag("--out")
		name := fmt.Sprintf("%s_%s.xbrl", flag("--rut"), flag("--period"))
		fmt.Println("downloading", name)
		if err := os.WriteFile(filepath.Join(dest, name), []byte("<xbrl/>"), 0o644); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		os.Exit(0)
	case "longline":
		long := strings.Repeat("x", 4<<20)
		fmt.Fprintln(os.Stdout, long)
		fmt.Fprintln(os.Stderr, long)
		fmt.Println("after the long line")
		dest := flag("--out")
		name := fmt.Sprintf("%s_%s.xbrl", flag("--rut"), flag("--period"))
		if err := os.WriteFile(filepath.Join(dest, name), []byte("<xbrl/>"), 0o644); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		os.Exit(0)
	case "fail":
		fmt.Fprintln(os.Stderr, "portal returned 503")
		os.Exit(3)
	case "empty":
		os.Exit(0)
	case "hang":
		time.Sleep(30 * time.Second)
		os.Exit(0)
	default:
		os.Exit(2)
	}
}
