package tui

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/Paintersrp/portal/internal/config"
	"github.com/Paintersrp/portal/internal/docsmap"
	"github.com/Paintersrp/portal/internal/state"
)

func TestTuiRejectsUnknownScope(t *testing.T) {
	cfg := config.Default()
	cfg.DocsRoot = t.TempDir()
	s, err := state.New(context.Background(), cfg, state.Options{Quiet: true})
	if err != nil {
		t.Fatalf("failed to create state: %v", err)
	}
	defer s.Close()

	cmd := NewCmdTui(s)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SilenceUsage = true
	cmd.SetArgs([]string{"--scope", "secret"})
	if err := cmd.Execute(); !errors.Is(err, docsmap.ErrUnknownScope) {
		t.Fatalf("expected ErrUnknownScope, got %v", err)
	}
}

func TestTuiRejectsArguments(t *testing.T) {
	cmd := NewCmdTui(&state.State{})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SilenceUsage = true
	cmd.SetArgs([]string{"install"})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected an error for a positional argument")
	}
}
