package devserver

import (
	"encoding/json"
	"maps"
	"sort"
	"sync"

	"github.com/fyrsmithlabs/docctl/internal/apiclient"
	"github.com/fyrsmithlabs/docctl/internal/poller"
	"github.com/google/uuid"
)

// cursor tracks how far a handle's script has been played.
type cursor struct {
	requests int // every GET, faults included
	served   int // steps answered
}

// state is the mutable playback of a scenario. Reloading replaces the
// scripts and rewinds every cursor; issued tokens survive.
type state struct {
	mu        sync.Mutex
	scenario  *Scenario
	tasks     map[string]TaskScript
	documents map[string]DocumentScript
	taskPos   map[string]*cursor
	docPos    map[string]*cursor
	revoked   map[string]bool
	uploads   int
	tokens    map[string]string
}

func newState(s *Scenario) *state {
	st := &state{tokens: map[string]string{}}
	st.load(s)
	return st
}

func (st *state) load(s *Scenario) {
	if s == nil {
		s = &Scenario{}
	}
	st.scenario = s
	st.tasks = maps.Clone(s.Tasks)
	if st.tasks == nil {
		st.tasks = map[string]TaskScript{}
	}
	st.documents = maps.Clone(s.Documents)
	if st.documents == nil {
		st.documents = map[string]DocumentScript{}
	}
	st.taskPos = map[string]*cursor{}
	st.docPos = map[string]*cursor{}
	st.revoked = map[string]bool{}
	st.uploads = 0
}

func (st *state) reload(s *Scenario) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.load(s)
}

func pos(m map[string]*cursor, key string) *cursor {
	c, ok := m[key]
	if !ok {
		c = &cursor{}
		m[key] = c
	}
	return c
}

// nextTask advances the task's script by one request. Unknown handles
// report PENDING, as the task backend does.
func (st *state) nextTask(handle string) (poller.Snapshot, fault) {
	st.mu.Lock()
	defer st.mu.Unlock()

	script, ok := st.tasks[handle]
	c := pos(st.taskPos, handle)
	c.requests++
	if f := script.at(c.requests); f != faultNone {
		return poller.Snapshot{}, f
	}

	snap := poller.Snapshot{TaskID: handle, Status: poller.StatePending}
	switch {
	case st.revoked[handle]:
		snap.Status = poller.StateRevoked
	case ok:
		i := min(c.served, len(script.Steps)-1)
		snap.Status = poller.JobState(script.Steps[i])
		if snap.Status.IsTerminal() {
			if script.Result != "" {
				snap.Result = json.RawMessage(script.Result)
			}
			snap.Error = script.Error
		}
	}
	c.served++
	return snap, faultNone
}

// activeTasks lists scripted tasks that have not reached a terminal step.
func (st *state) activeTasks() []apiclient.Task {
	st.mu.Lock()
	defer st.mu.Unlock()

	out := []apiclient.Task{}
	for handle, script := range st.tasks {
		if st.revoked[handle] {
			continue
		}
		i := 0
		if c, ok := st.taskPos[handle]; ok && c.served > 0 {
			i = min(c.served-1, len(script.Steps)-1)
		}
		status := poller.JobState(script.Steps[i])
		if status.IsTerminal() {
			continue
		}
		out = append(out, apiclient.Task{TaskID: handle, Name: script.Name, Status: string(status)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TaskID < out[j].TaskID })
	return out
}

func (st *state) revoke(handle string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.revoked[handle] = true
}

// nextFiles advances the document's rounds by one request.
func (st *state) nextFiles(documentID string) (poller.FileSnapshot, bool, fault) {
	st.mu.Lock()
	defer st.mu.Unlock()

	script, ok := st.documents[documentID]
	if !ok {
		return nil, false, faultNone
	}
	c := pos(st.docPos, documentID)
	c.requests++
	if f := script.at(c.requests); f != faultNone {
		return nil, true, f
	}

	snap := poller.FileSnapshot{}
	if len(script.Rounds) > 0 {
		for _, f := range script.Rounds[min(c.served, len(script.Rounds)-1)] {
			snap = append(snap, poller.FileRecord{
				OriginalFilename: f.Name,
				ProcessingStatus: poller.FileState(f.Status),
				ErrorMessage:     f.Error,
				FileSize:         f.Size,
			})
		}
	}
	c.served++
	return snap, true, faultNone
}

// upload hands out the next scripted ids, or fresh ones with a default
// script built from the uploaded file names.
func (st *state) upload(fileNames []string) Upload {
	st.mu.Lock()
	defer st.mu.Unlock()

	var up Upload
	if st.uploads < len(st.scenario.Uploads) {
		up = st.scenario.Uploads[st.uploads]
	}
	st.uploads++
	if up.DocumentID == "" {
		up.DocumentID = uuid.NewString()
	}
	if up.TaskID == "" {
		up.TaskID = uuid.NewString()
	}

	if _, ok := st.tasks[up.TaskID]; !ok {
		result, _ := json.Marshal(map[string]string{"document_id": up.DocumentID})
		st.tasks[up.TaskID] = TaskScript{
			Name:   "process_document",
			Steps:  []string{string(poller.StatePending), string(poller.StateStarted), string(poller.StateSuccess)},
			Result: string(result),
		}
	}
	if _, ok := st.documents[up.DocumentID]; !ok {
		processing := make([]FileStep, len(fileNames))
		completed := make([]FileStep, len(fileNames))
		for i, name := range fileNames {
			processing[i] = FileStep{Name: name, Status: string(poller.FileProcessing)}
			completed[i] = FileStep{Name: name, Status: string(poller.FileCompleted)}
		}
		st.documents[up.DocumentID] = DocumentScript{Rounds: [][]FileStep{processing, completed}}
	}
	return up
}

// login checks credentials. With no users scripted any non-empty password
// is accepted.
func (st *state) login(email, password string) (User, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if len(st.scenario.Users) == 0 {
		return User{Email: email, Role: "user"}, password != ""
	}
	for _, u := range st.scenario.Users {
		if u.Email == email && u.Password == password {
			return u, true
		}
	}
	return User{}, false
}

func (st *state) issue(token, email string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.tokens[token] = email
}

func (st *state) authorize(token string) (string, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.scenario.RequireAuth {
		return st.tokens[token], true
	}
	email, ok := st.tokens[token]
	return email, ok
}
