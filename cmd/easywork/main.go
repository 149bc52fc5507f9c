// Command easywork is a small CLI embedder over the graph engine: it wires
// a hard-coded sample graph (a bounded counter feeding a multiplier and a
// text formatter into a sink) using internal/graphapi and the nodes/
// sample library, then runs it to completion.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/vk/easywork/internal/ctxlog"
	"github.com/vk/easywork/internal/graphapi"
	"github.com/vk/easywork/internal/nodefactory"
	"github.com/vk/easywork/nodes"
)

func main() {
	if err := run(os.Stdout, os.Args[1:]); err != nil {
		if exitErr, ok := err.(*exitError); ok {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(outW io.Writer, args []string) error {
	cfg, shouldExit, err := parseArgs(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	logger := newLogger(cfg.logLevel, cfg.logFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)

	factory := nodefactory.New()
	if err := nodes.RegisterAll(factory); err != nil {
		return fmt.Errorf("registering node classes: %w", err)
	}

	g := graphapi.CreateGraph(factory)

	if _, err := g.CreateNode("counter", "source", nodefactory.Args{
		Keyword: map[string]any{"start": 1, "limit": cfg.limit},
	}); err != nil {
		return fmt.Errorf("creating source node: %w", err)
	}
	if _, err := g.CreateNode("multiply", "scaled", nodefactory.Args{
		Keyword: map[string]any{"factor": cfg.factor},
	}); err != nil {
		return fmt.Errorf("creating scaled node: %w", err)
	}
	if _, err := g.CreateNode("to_text", "rendered", nodefactory.Args{
		Keyword: map[string]any{"format": "value=%d"},
	}); err != nil {
		return fmt.Errorf("creating rendered node: %w", err)
	}
	sinkNode, err := g.CreateNode("sink", "drain", nodefactory.Args{})
	if err != nil {
		return fmt.Errorf("creating drain node: %w", err)
	}

	if _, err := g.AddUpstream("source", "scaled", ""); err != nil {
		return fmt.Errorf("wiring source->scaled: %w", err)
	}
	if _, err := g.AddUpstream("scaled", "rendered", ""); err != nil {
		return fmt.Errorf("wiring scaled->rendered: %w", err)
	}
	if _, err := g.AddUpstream("rendered", "drain", ""); err != nil {
		return fmt.Errorf("wiring rendered->drain: %w", err)
	}

	if err := g.Build(); err != nil {
		return fmt.Errorf("build: %w", err)
	}
	if err := g.Connect(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if err := g.Validate(); err != nil {
		return fmt.Errorf("validate: %w", err)
	}

	exec := graphapi.NewExecutor(cfg.workers)
	if err := exec.RunToCompletion(ctx, g); err != nil {
		return fmt.Errorf("run: %w", err)
	}

	sink := sinkNode.Impl().(*nodes.Sink)
	for _, v := range sink.Received {
		fmt.Fprintln(outW, v)
	}
	return nil
}
