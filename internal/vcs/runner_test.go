package vcs

import (
	"context"
	"errors"
	"runtime"
	"testing"
	"time"
)

func TestExecRunner_CapturesStdout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix shell tools")
	}
	r := NewExecRunner(10 * time.Second)

	res, err := r.Run(context.Background(), Command{Binary: "echo", Args: []string{"hello"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !res.Ok() {
		t.Fatalf("expected exit 0, got %d", res.ExitCode)
	}
	if res.Stdout != "hello\n" {
		t.Errorf("stdout = %q", res.Stdout)
	}
}

func TestExecRunner_NonZeroExitIsNotAnError(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix shell tools")
	}
	r := NewExecRunner(10 * time.Second)

	res, err := r.Run(context.Background(), Command{Binary: "false"})
	if err != nil {
		t.Fatalf("non-zero exit should not be an error: %v", err)
	}
	if res.Ok() {
		t.Error("expected non-zero exit code")
	}
}

func TestExecRunner_MissingBinary(t *testing.T) {
	r := NewExecRunner(time.Second)

	_, err := r.Run(context.Background(), Command{Binary: "accord-no-such-binary-xyz"})
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
	if !errors.Is(err, ErrOperation) {
		t.Errorf("error should wrap ErrOperation, got %v", err)
	}
}

func TestExecRunner_Timeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix shell tools")
	}
	r := NewExecRunner(time.Second)

	_, err := r.Run(context.Background(), Command{
		Binary:  "sleep",
		Args:    []string{"5"},
		Timeout: 50 * time.Millisecond,
	})
	if !errors.Is(err, ErrOperation) {
		t.Errorf("expected ErrOperation on timeout, got %v", err)
	}
}

func TestExecRunner_Stdin(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix shell tools")
	}
	r := NewExecRunner(10 * time.Second)

	res, err := r.Run(context.Background(), Command{Binary: "cat", Stdin: "piped"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Stdout != "piped" {
		t.Errorf("stdout = %q", res.Stdout)
	}
}

func TestCommandString(t *testing.T) {
	c := Command{Binary: "git", Args: []string{"merge", "--abort"}}
	if got := c.String(); got != "git merge --abort" {
		t.Errorf("String() = %q", got)
	}
	if got := (Command{Binary: "git"}).String(); got != "git" {
		t.Errorf("String() = %q", got)
	}
}
