package main

import (
	"bytes"
	"context"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/san-kum/dimreduce/internal/schedule"
	"github.com/san-kum/dimreduce/internal/viz"
)

type outcome struct {
	res *schedule.Result
	err error
}

func runLive(cmd *cobra.Command, args []string) error {
	// The terminal belongs to the UI until it exits; logs are replayed after.
	var logs bytes.Buffer
	logger := newLogger(&logs)
	defer io.Copy(cmd.ErrOrStderr(), &logs)

	p, err := preparePipeline(cmd, args, logger)
	if err != nil {
		return err
	}

	total := p.schedule.TotalIters(p.dims)
	feed := viz.NewFeed(max(total/200, 1), total)
	defer feed.Stop()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	ctrl := p.controller(schedule.WithMetrics(feed), schedule.WithObserver(feed.Observer()))
	done := make(chan outcome, 1)
	start := time.Now()
	go func() {
		res, err := ctrl.Run(ctx)
		done <- outcome{res, err}
		feed.Finish(res, err)
	}()

	m := viz.NewModel(p.source, feed.Messages(), cancel)
	prog := tea.NewProgram(m, tea.WithAltScreen(), tea.WithOutput(cmd.ErrOrStderr()))
	if _, err := prog.Run(); err != nil {
		cancel()
		feed.Stop()
		<-done
		return err
	}
	feed.Stop()

	out := <-done
	if out.err != nil {
		return out.err
	}
	return p.finish(out.res, time.Since(start), cmd.OutOrStdout())
}
