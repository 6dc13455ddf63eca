package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/peterh/liner"
)

const historyFile = ".fastexpr_history"

// interactive runs the REPL until EOF or :quit.
func (s *session) interactive(ctx context.Context, w io.Writer) int {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)
	if f, err := os.Open(histPath); err == nil {
		ln.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			ln.WriteHistory(f)
			f.Close()
		}
	}()

	for {
		line, err := ln.Prompt("> ")
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(w)
			return 0
		}
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if err != nil {
			fmt.Fprintln(w, err)
			return 1
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ln.AppendHistory(line)
		if !s.command(ctx, line, w) {
			return 0
		}
	}
}

// command handles one line of REPL input. It returns false to quit.
func (s *session) command(ctx context.Context, line string, w io.Writer) bool {
	if strings.HasPrefix(line, ":") {
		switch strings.ToLower(line) {
		case ":quit", ":q":
			return false
		case ":vars":
			s.printVars(ctx, w)
		case ":clear":
			s.programs.Clear()
		default:
			fmt.Fprintln(w, "unknown command; try :vars, :clear, or :quit")
		}
		return true
	}
	if name, src, ok := assignment(line); ok {
		r, err := s.assign(ctx, name, src)
		if err != nil {
			fmt.Fprintln(w, describe(src, err))
			return true
		}
		fmt.Fprintf(w, "%s = "+s.o.verb+"\n", name, r)
		return true
	}
	s.evaluate(ctx, line, w)
	return true
}

// printVars lists every variable visible to expressions along with the value
// it resolves to.
func (s *session) printVars(ctx context.Context, w io.Writer) {
	vals := make(map[string]float64)
	if s.store != nil {
		m, err := s.store.Snapshot(ctx)
		if err != nil {
			fmt.Fprintln(w, err)
		}
		for k, v := range m {
			vals[k] = v
		}
	}
	for _, layer := range s.vars {
		for k, v := range layer {
			vals[k] = v
		}
	}
	names := make([]string, 0, len(vals))
	for k := range vals {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		fmt.Fprintf(w, "%s = "+s.o.verb+"\n", k, vals[k])
	}
}
