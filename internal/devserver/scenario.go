package devserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/BurntSushi/toml"
	"github.com/fyrsmithlabs/docctl/internal/poller"
)

// ErrInvalidScenario is returned for scenario files that do not describe a
// playable script.
var ErrInvalidScenario = errors.New("invalid scenario")

// Scenario scripts the responses of the development backend.
//
//	require_auth = true
//
//	[[users]]
//	email = "admin@example.com"
//	password = "secret"
//	role = "admin"
//
//	[tasks.abc123]
//	steps = ["PENDING", "STARTED", "SUCCESS"]
//	result = '{"document_id": "42"}'
//	fail = [2]
//
//	[documents.42]
//	rounds = [
//	  [{ name = "a.pdf", status = "processing" }],
//	  [{ name = "a.pdf", status = "completed" }],
//	]
//	drop = [1]
//
//	[[uploads]]
//	document_id = "42"
//	task_id = "abc123"
//
// fail and drop list 1-based request numbers answered with HTTP 503 or a
// dropped connection instead of the next step.
type Scenario struct {
	RequireAuth bool                      `toml:"require_auth"`
	Users       []User                    `toml:"users"`
	Tasks       map[string]TaskScript     `toml:"tasks"`
	Documents   map[string]DocumentScript `toml:"documents"`
	Uploads     []Upload                  `toml:"uploads"`
}

// User is an account accepted by the login route.
type User struct {
	Email    string `toml:"email"`
	Password string `toml:"password"`
	Role     string `toml:"role"`
}

// TaskScript is the status sequence of one task handle.
type TaskScript struct {
	Name   string   `toml:"name"`
	Steps  []string `toml:"steps"`
	Result string   `toml:"result"`
	Error  string   `toml:"error"`
	Faults
}

// DocumentScript is the file-status rounds of one document.
type DocumentScript struct {
	Rounds [][]FileStep `toml:"rounds"`
	Faults
}

// FileStep is one file in a file-status round.
type FileStep struct {
	Name   string `toml:"name"`
	Status string `toml:"status"`
	Error  string `toml:"error"`
	Size   *int64 `toml:"size"`
}

// Faults injects transport failures by request number.
type Faults struct {
	Fail []int `toml:"fail"`
	Drop []int `toml:"drop"`
}

// Upload is the ids handed out by the n-th document upload.
type Upload struct {
	DocumentID string `toml:"document_id"`
	TaskID     string `toml:"task_id"`
}

type fault int

const (
	faultNone fault = iota
	faultFail
	faultDrop
)

func (f Faults) at(request int) fault {
	switch {
	case slices.Contains(f.Drop, request):
		return faultDrop
	case slices.Contains(f.Fail, request):
		return faultFail
	}
	return faultNone
}

// LoadScenario reads and validates a TOML scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	return ParseScenario(string(data))
}

// ParseScenario parses and validates a TOML scenario.
func ParseScenario(text string) (*Scenario, error) {
	var s Scenario
	if _, err := toml.Decode(text, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks statuses and results.
func (s *Scenario) Validate() error {
	for handle, t := range s.Tasks {
		if len(t.Steps) == 0 {
			return fmt.Errorf("%w: task %s has no steps", ErrInvalidScenario, handle)
		}
		for _, st := range t.Steps {
			if !knownJobState(poller.JobState(st)) {
				return fmt.Errorf("%w: task %s: unknown status %q", ErrInvalidScenario, handle, st)
			}
		}
		if t.Result != "" && !json.Valid([]byte(t.Result)) {
			return fmt.Errorf("%w: task %s: result is not JSON", ErrInvalidScenario, handle)
		}
	}
	for id, d := range s.Documents {
		for _, round := range d.Rounds {
			for _, f := range round {
				switch poller.FileState(f.Status) {
				case "", poller.FileProcessing, poller.FileCompleted, poller.FileFailed:
				default:
					return fmt.Errorf("%w: document %s: unknown file status %q", ErrInvalidScenario, id, f.Status)
				}
			}
		}
	}
	return nil
}

func knownJobState(s poller.JobState) bool {
	switch s {
	case poller.StatePending, poller.StateStarted, poller.StateSuccess,
		poller.StateFailure, poller.StateRevoked, poller.StateError:
		return true
	}
	return false
}
