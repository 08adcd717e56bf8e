package poller

import "encoding/json"

// JobState is the whole-task status reported by the backend.
type JobState string

const (
	StatePending JobState = "PENDING"
	StateStarted JobState = "STARTED"
	StateSuccess JobState = "SUCCESS"
	StateFailure JobState = "FAILURE"
	StateRevoked JobState = "REVOKED"
	StateError   JobState = "ERROR" // client-side only, on query failure
)

// IsTerminal reports whether no further transition can follow.
func (s JobState) IsTerminal() bool {
	switch s {
	case StateSuccess, StateFailure, StateRevoked, StateError:
		return true
	}
	return false
}

// Snapshot is one observed state of a task.
type Snapshot struct {
	TaskID string          `json:"task_id"`
	Status JobState        `json:"status"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// FileState is the ingestion status of a single uploaded file.
type FileState string

const (
	FileProcessing FileState = "processing"
	FileCompleted  FileState = "completed"
	FileFailed     FileState = "failed"
)

// IsTerminal reports whether the file has finished, successfully or not.
func (s FileState) IsTerminal() bool {
	return s == FileCompleted || s == FileFailed
}

// FileRecord is the status of one file of a document. A record built from a
// query failure carries only Error.
type FileRecord struct {
	OriginalFilename string    `json:"original_filename,omitempty"`
	ProcessingStatus FileState `json:"processing_status,omitempty"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	FileSize         *int64    `json:"file_size,omitempty"`
	Error            string    `json:"error,omitempty"`
}

// State returns the processing status, treating a missing one as processing.
func (r FileRecord) State() FileState {
	if r.ProcessingStatus == "" {
		return FileProcessing
	}
	return r.ProcessingStatus
}

// FileSnapshot is the ordered file statuses of one document.
type FileSnapshot []FileRecord

// Done reports whether every file is terminal. An empty snapshot is done.
func (fs FileSnapshot) Done() bool {
	for _, r := range fs {
		if !r.State().IsTerminal() {
			return false
		}
	}
	return true
}

// Counts tallies records by state.
func (fs FileSnapshot) Counts() (processing, completed, failed int) {
	for _, r := range fs {
		switch r.State() {
		case FileCompleted:
			completed++
		case FileFailed:
			failed++
		default:
			processing++
		}
	}
	return processing, completed, failed
}

// QueryError reports whether the snapshot is the synthetic single entry
// produced after transport retries ran out.
func (fs FileSnapshot) QueryError() (string, bool) {
	if len(fs) == 1 && fs[0].Error != "" && fs[0].OriginalFilename == "" && fs[0].ProcessingStatus == "" {
		return fs[0].Error, true
	}
	return "", false
}
