package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedFiles replays file-status rounds. A nil round returns err.
type scriptedFiles struct {
	mu     sync.Mutex
	rounds []FileSnapshot
	err    error
	calls  int
}

func (s *scriptedFiles) GetDocumentFilesStatus(context.Context, string) (FileSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	i := s.calls - 1
	if i >= len(s.rounds) {
		i = len(s.rounds) - 1
	}
	if s.rounds[i] == nil {
		return nil, s.err
	}
	return s.rounds[i], nil
}

func (s *scriptedFiles) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func rec(name string, state FileState) FileRecord {
	return FileRecord{OriginalFilename: name, ProcessingStatus: state}
}

func collectFiles() (*[]FileSnapshot, FileObserver) {
	var got []FileSnapshot
	return &got, func(fs FileSnapshot) { got = append(got, fs) }
}

func TestPollFileStatuses_StopsWhenLastFileTerminal(t *testing.T) {
	src := &scriptedFiles{rounds: []FileSnapshot{
		{rec("a.pdf", FileProcessing), rec("b.pdf", FileProcessing), rec("c.pdf", FileProcessing)},
		{rec("a.pdf", FileCompleted), rec("b.pdf", FileProcessing), rec("c.pdf", FileProcessing)},
		{rec("a.pdf", FileCompleted), rec("b.pdf", FileFailed), rec("c.pdf", FileProcessing)},
		{rec("a.pdf", FileCompleted), rec("b.pdf", FileFailed), rec("c.pdf", FileCompleted)},
		{rec("a.pdf", FileCompleted), rec("b.pdf", FileFailed), rec("c.pdf", FileCompleted)},
	}}
	got, observer := collectFiles()

	final, err := PollFileStatuses(context.Background(), src, "doc-1", observer, fastOpts())
	require.NoError(t, err)

	assert.Equal(t, 4, src.Calls(), "terminates on the cycle the last file finishes")
	assert.Len(t, *got, 4)
	assert.True(t, final.Done())
	assert.Equal(t, []FileState{FileCompleted, FileFailed, FileCompleted},
		[]FileState{final[0].State(), final[1].State(), final[2].State()})
}

func TestPollFileStatuses_AbsorbsTransientFailures(t *testing.T) {
	done := FileSnapshot{rec("a.pdf", FileCompleted)}
	src := &scriptedFiles{
		rounds: []FileSnapshot{nil, nil, done},
		err:    errors.New("connection reset by peer"),
	}
	got, observer := collectFiles()

	final, err := PollFileStatuses(context.Background(), src, "doc-2", observer, fastOpts())
	require.NoError(t, err)

	assert.Equal(t, 3, src.Calls())
	require.Len(t, *got, 1, "failures within the retry budget are not reported")
	_, isErr := final.QueryError()
	assert.False(t, isErr)
	assert.Equal(t, done, final)
}

func TestPollFileStatuses_SurfacesErrorAfterRetries(t *testing.T) {
	src := &scriptedFiles{
		rounds: []FileSnapshot{nil},
		err:    &apiErr{detail: "Document not found"},
	}
	got, observer := collectFiles()

	final, err := PollFileStatuses(context.Background(), src, "doc-3", observer, fastOpts())
	require.NoError(t, err, "the error is reported as data")

	assert.Equal(t, 4, src.Calls(), "initial query plus three retries")
	require.Len(t, *got, 1, "exactly one synthetic entry")
	msg, isErr := (*got)[0].QueryError()
	assert.True(t, isErr)
	assert.Equal(t, "Document not found", msg)
	assert.Equal(t, FileSnapshot{{Error: "Document not found"}}, final)
}

func TestPollFileStatuses_RetryCounterResetsOnSuccess(t *testing.T) {
	pending := FileSnapshot{rec("a.pdf", FileProcessing)}
	src := &scriptedFiles{
		rounds: []FileSnapshot{nil, nil, nil, pending, nil, nil, nil, FileSnapshot{rec("a.pdf", FileCompleted)}},
		err:    errors.New("timeout"),
	}
	got, observer := collectFiles()

	final, err := PollFileStatuses(context.Background(), src, "doc-4", observer, fastOpts())
	require.NoError(t, err)

	assert.Equal(t, 8, src.Calls())
	assert.Len(t, *got, 2)
	assert.True(t, final.Done())
}

func TestPollFileStatuses_FailuresDoNotUseAttempts(t *testing.T) {
	pending := FileSnapshot{rec("a.pdf", FileProcessing)}
	src := &scriptedFiles{
		rounds: []FileSnapshot{pending, nil, nil, pending},
		err:    errors.New("503"),
	}
	got, observer := collectFiles()

	opts := fastOpts()
	opts.MaxAttempts = 2
	final, err := PollFileStatuses(context.Background(), src, "doc-5", observer, opts)
	require.NoError(t, err)

	assert.Equal(t, 4, src.Calls())
	assert.Len(t, *got, 2)
	assert.False(t, final.Done(), "gave up with files still processing")
}

func TestPollFileStatuses_AttemptBudget(t *testing.T) {
	src := &scriptedFiles{rounds: []FileSnapshot{{rec("big.zip", FileProcessing)}}}

	opts := fastOpts()
	opts.MaxAttempts = 5
	final, err := PollFileStatuses(context.Background(), src, "doc-6", nil, opts)
	require.NoError(t, err)

	assert.Equal(t, 5, src.Calls())
	assert.Equal(t, FileProcessing, final[0].State())
}

func TestPollFileStatuses_QueryBound(t *testing.T) {
	tests := []struct {
		name        string
		maxAttempts int
		retries     int
	}{
		{name: "defaults", maxAttempts: 5, retries: 3},
		{name: "no retry headroom", maxAttempts: 4, retries: 1},
		{name: "single attempt", maxAttempts: 1, retries: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pending := FileSnapshot{rec("a.pdf", FileProcessing)}
			var rounds []FileSnapshot
			for range tt.maxAttempts + 1 {
				for range tt.retries {
					rounds = append(rounds, nil)
				}
				rounds = append(rounds, pending)
			}
			src := &scriptedFiles{rounds: rounds, err: errors.New("503")}

			opts := fastOpts()
			opts.MaxAttempts = tt.maxAttempts
			opts.TransportRetries = tt.retries
			final, err := PollFileStatuses(context.Background(), src, "doc-bound", nil, opts)
			require.NoError(t, err)

			assert.Equal(t, tt.maxAttempts*(tt.retries+1), src.Calls(),
				"failing just under the retry budget before every read reaches the bound")
			assert.False(t, final.Done())
		})
	}
}

func TestPollFileStatuses_EmptyCollectionIsDone(t *testing.T) {
	src := &scriptedFiles{rounds: []FileSnapshot{{}}}

	final, err := PollFileStatuses(context.Background(), src, "doc-7", nil, fastOpts())
	require.NoError(t, err)
	assert.Equal(t, 1, src.Calls())
	assert.Empty(t, final)
}

func TestPollFileStatuses_MissingStatusIsProcessing(t *testing.T) {
	src := &scriptedFiles{rounds: []FileSnapshot{
		{{OriginalFilename: "x.txt"}},
		{rec("x.txt", FileCompleted)},
	}}

	_, err := PollFileStatuses(context.Background(), src, "doc-8", nil, fastOpts())
	require.NoError(t, err)
	assert.Equal(t, 2, src.Calls())
}

func TestPollFileStatuses_Cancellation(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	src := &scriptedFiles{rounds: []FileSnapshot{{rec("a.pdf", FileProcessing)}}}
	got, observer := collectFiles()

	final, err := PollFileStatuses(ctx, src, "doc-9", observer, Options{Interval: time.Minute})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Len(t, *got, 1)
	assert.Equal(t, FileProcessing, final[0].State())
}

func TestPollFileStatuses_InvalidOptions(t *testing.T) {
	src := &scriptedFiles{rounds: []FileSnapshot{{}}}

	_, err := PollFileStatuses(context.Background(), src, "", nil, Options{})
	assert.ErrorIs(t, err, ErrInvalidOptions)

	_, err = PollFileStatuses(context.Background(), src, "doc", nil, Options{TransportRetries: -1})
	assert.ErrorIs(t, err, ErrInvalidOptions)

	assert.Zero(t, src.Calls())
}

func TestFileSnapshot_Counts(t *testing.T) {
	fs := FileSnapshot{
		rec("a", FileCompleted),
		rec("b", FileFailed),
		rec("c", FileProcessing),
		{OriginalFilename: "d"},
	}
	processing, completed, failed := fs.Counts()
	assert.Equal(t, 2, processing)
	assert.Equal(t, 1, completed)
	assert.Equal(t, 1, failed)
	assert.False(t, fs.Done())
}
