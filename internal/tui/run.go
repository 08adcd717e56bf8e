package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fyrsmithlabs/docctl/internal/poller"
)

// WatchJob polls the task while rendering the session. observer, when
// set, sees every snapshot as well. Quitting the view cancels the poll.
func WatchJob(ctx context.Context, src poller.JobSource, handle string, observer poller.JobObserver, opts poller.Options, progOpts ...tea.ProgramOption) (poller.Snapshot, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewModel(KindTask, handle, opts.MaxAttempts, cancel), withContext(ctx, progOpts)...)

	var final poller.Snapshot
	var pollErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		send := func(s poller.Snapshot) { p.Send(JobMsg(s)) }
		final, pollErr = poller.PollJob(ctx, src, handle, poller.JobObservers(observer, send), opts)
		p.Send(DoneMsg{Err: pollErr})
	}()

	err := finish(p, cancel, done, &pollErr)
	return final, err
}

// WatchFiles polls a document's file statuses while rendering the session.
func WatchFiles(ctx context.Context, src poller.FileSource, documentID string, observer poller.FileObserver, opts poller.Options, progOpts ...tea.ProgramOption) (poller.FileSnapshot, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewModel(KindFiles, documentID, opts.MaxAttempts, cancel), withContext(ctx, progOpts)...)

	var final poller.FileSnapshot
	var pollErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		send := func(fs poller.FileSnapshot) { p.Send(FilesMsg(fs)) }
		final, pollErr = poller.PollFileStatuses(ctx, src, documentID, poller.FileObservers(observer, send), opts)
		p.Send(DoneMsg{Err: pollErr})
	}()

	err := finish(p, cancel, done, &pollErr)
	return final, err
}

func withContext(ctx context.Context, opts []tea.ProgramOption) []tea.ProgramOption {
	return append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)
}

// finish runs the program, then stops and waits for the poll goroutine.
// The poll error wins over the program's own exit error.
func finish(p *tea.Program, cancel context.CancelFunc, done <-chan struct{}, pollErr *error) error {
	_, runErr := p.Run()
	cancel()
	<-done
	if *pollErr != nil {
		return *pollErr
	}
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		return fmt.Errorf("running view: %w", runErr)
	}
	return nil
}
