package main

import (
	"bytes"
	"context"
	"flag"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/subcommands"

	"spendmate/internal/config"
	"spendmate/internal/log"
)

func newTestApp(t *testing.T) (*app, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errw bytes.Buffer
	cfg := &config.Config{
		DataBackend:     config.BackendSQLite,
		SQLiteDBPath:    filepath.Join(t.TempDir(), "ledger.db"),
		Currency:        "USD",
		ProfileCacheTTL: time.Minute,
	}
	return &app{cfg: cfg, logger: log.Discard(), out: &out, errw: &errw}, &out, &errw
}

func execute(t *testing.T, a *app, cmd subcommands.Command, args ...string) subcommands.ExitStatus {
	t.Helper()
	f := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	cmd.SetFlags(f)
	if err := f.Parse(args); err != nil {
		t.Fatalf("parse %v: %v", args, err)
	}
	return cmd.Execute(context.Background(), f, a)
}

func TestAddViewEditRemove(t *testing.T) {
	a, out, errw := newTestApp(t)

	st := execute(t, a, &addCmd{}, "-user", "u1", "-name", "Groceries", "-amount", "12.5", "-category", "grocery", "-date", "2025-03-10")
	if st != subcommands.ExitSuccess {
		t.Fatalf("add failed: %s", errw)
	}
	id := strings.TrimSpace(out.String())
	if id == "" {
		t.Fatal("add printed no id")
	}

	out.Reset()
	if st := execute(t, a, &viewCmd{}, "-user", "u1"); st != subcommands.ExitSuccess {
		t.Fatalf("view failed: %s", errw)
	}
	for _, want := range []string{"Groceries", "Grocery", id, "SPENT"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("view output missing %q:\n%s", want, out)
		}
	}

	if st := execute(t, a, &editCmd{}, "-user", "u1", "-amount", "20", id); st != subcommands.ExitSuccess {
		t.Fatalf("edit failed: %s", errw)
	}
	out.Reset()
	execute(t, a, &viewCmd{}, "-user", "u1")
	if !strings.Contains(out.String(), "20.00") || !strings.Contains(out.String(), "Groceries") {
		t.Fatalf("edit not reflected:\n%s", out)
	}

	if st := execute(t, a, &rmCmd{}, "-user", "u1", id, "missing"); st != subcommands.ExitSuccess {
		t.Fatalf("rm failed: %s", errw)
	}
	out.Reset()
	execute(t, a, &viewCmd{}, "-user", "u1")
	if strings.Contains(out.String(), id) {
		t.Fatalf("transaction still listed after rm:\n%s", out)
	}
}

func TestCommandErrors(t *testing.T) {
	a, _, errw := newTestApp(t)

	tests := []struct {
		name string
		cmd  subcommands.Command
		args []string
		want subcommands.ExitStatus
	}{
		{"missing user", &addCmd{}, []string{"-name", "x", "-amount", "1", "-category", "Misc"}, subcommands.ExitFailure},
		{"invalid amount", &addCmd{}, []string{"-user", "u1", "-name", "x", "-amount", "-3", "-category", "Misc"}, subcommands.ExitFailure},
		{"edit without id", &editCmd{}, []string{"-user", "u1"}, subcommands.ExitUsageError},
		{"edit unknown id", &editCmd{}, []string{"-user", "u1", "-amount", "1", "nope"}, subcommands.ExitFailure},
		{"rm without ids", &rmCmd{}, []string{"-user", "u1"}, subcommands.ExitUsageError},
		{"bad period", &viewCmd{}, []string{"-user", "u1", "-period", "decade"}, subcommands.ExitUsageError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errw.Reset()
			if got := execute(t, a, tt.cmd, tt.args...); got != tt.want {
				t.Fatalf("exit status = %v, want %v (stderr %q)", got, tt.want, errw)
			}
		})
	}
}

func TestProfileCommand(t *testing.T) {
	a, out, errw := newTestApp(t)

	if st := execute(t, a, &profileCmd{}, "-user", "u1"); st != subcommands.ExitFailure {
		t.Fatalf("expected failure before a profile exists, got %v", st)
	}
	if st := execute(t, a, &profileCmd{}, "-user", "u1", "-first", "Ada", "-last", "Lovelace", "-email", "ada@example.com"); st != subcommands.ExitSuccess {
		t.Fatalf("update failed: %s", errw)
	}
	out.Reset()
	if st := execute(t, a, &profileCmd{}, "-user", "u1"); st != subcommands.ExitSuccess {
		t.Fatalf("show failed: %s", errw)
	}
	if got := strings.TrimSpace(out.String()); got != "Ada Lovelace <ada@example.com>" {
		t.Fatalf("profile output %q", got)
	}
}
