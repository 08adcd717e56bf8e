package apiclient

import (
	"encoding/json"
	"time"
)

// Document approval states as stored by the backend.
const (
	StatusPendingApproval = "승인대기"
	StatusApproved        = "승인완료"
	StatusRejected        = "반려"
)

// Document view types accepted by the list endpoint.
const (
	ViewMy     = "my"
	ViewPublic = "public"
)

// Document is a document as returned by the list and detail endpoints.
// Fields the client does not interpret are kept in Extra.
type Document struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Summary       string     `json:"summary,omitempty"`
	StartDate     string     `json:"start_date,omitempty"`
	EndDate       string     `json:"end_date,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
	Status        string     `json:"status,omitempty"`
	IsPublic      bool       `json:"is_public"`
	Vectorized    bool       `json:"vectorized"`
	FileNames     []string   `json:"file_names,omitempty"`
	UserID        string     `json:"user_id,omitempty"`
	UploaderName  string     `json:"uploader_name,omitempty"`
	UploaderEmail string     `json:"uploader_email,omitempty"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// UnmarshalJSON accepts numeric or string ids and keeps unknown fields.
func (d *Document) UnmarshalJSON(b []byte) error {
	type plain Document
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if id, ok := raw["id"]; ok {
		raw["id"] = stringifyID(id)
	} else if id, ok := raw["_id"]; ok {
		raw["id"] = stringifyID(id)
	}
	if uid, ok := raw["user_id"]; ok {
		raw["user_id"] = stringifyID(uid)
	}
	normalized, err := json.Marshal(raw)
	if err != nil {
		return err
	}

	var p plain
	if err := json.Unmarshal(normalized, &p); err != nil {
		return err
	}
	for _, known := range documentFields {
		delete(raw, known)
	}
	delete(raw, "_id")
	if len(raw) > 0 {
		p.Extra = raw
	}
	*d = Document(p)
	return nil
}

var documentFields = []string{
	"id", "title", "summary", "start_date", "end_date", "tags", "status",
	"is_public", "vectorized", "file_names", "user_id", "uploader_name",
	"uploader_email", "created_at", "updated_at",
}

// stringifyID turns a JSON number id into a JSON string.
func stringifyID(raw json.RawMessage) json.RawMessage {
	if len(raw) > 0 && raw[0] != '"' && string(raw) != "null" {
		b, _ := json.Marshal(string(raw))
		return b
	}
	return raw
}

// DocumentList is one page of documents.
type DocumentList struct {
	Items []Document `json:"items"`
	Total int        `json:"total"`
}

// UnmarshalJSON accepts both a bare array and {items|documents, total}.
func (l *DocumentList) UnmarshalJSON(b []byte) error {
	var arr []Document
	if err := json.Unmarshal(b, &arr); err == nil {
		l.Items = arr
		l.Total = len(arr)
		return nil
	}
	var obj struct {
		Items     []Document `json:"items"`
		Documents []Document `json:"documents"`
		Total     *int       `json:"total"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	l.Items = obj.Items
	if l.Items == nil {
		l.Items = obj.Documents
	}
	l.Total = len(l.Items)
	if obj.Total != nil {
		l.Total = *obj.Total
	}
	return nil
}

// UploadResult is returned by document and file uploads.
type UploadResult struct {
	ID      string `json:"id"`
	TaskID  string `json:"task_id,omitempty"`
	Message string `json:"message,omitempty"`
}

func (r *UploadResult) UnmarshalJSON(b []byte) error {
	type plain UploadResult
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	for _, k := range []string{"id", "document_id", "task_id"} {
		if v, ok := raw[k]; ok {
			raw[k] = stringifyID(v)
		}
	}
	if _, ok := raw["id"]; !ok {
		if v, ok := raw["document_id"]; ok {
			raw["id"] = v
		}
	}
	normalized, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	var p plain
	if err := json.Unmarshal(normalized, &p); err != nil {
		return err
	}
	*r = UploadResult(p)
	return nil
}

// DownloadInfo describes the downloadable files of a document.
type DownloadInfo struct {
	Files []DownloadFile `json:"files"`
	URL   string         `json:"download_url,omitempty"`
}

// DownloadFile is one downloadable file.
type DownloadFile struct {
	Name     string `json:"name"`
	URL      string `json:"url,omitempty"`
	Size     int64  `json:"size,omitempty"`
	IsPublic bool   `json:"is_public"`
}

// Task is an entry of the active task list.
type Task struct {
	TaskID string          `json:"task_id"`
	Name   string          `json:"name,omitempty"`
	Status string          `json:"status,omitempty"`
	Worker string          `json:"worker,omitempty"`
	Args   json.RawMessage `json:"args,omitempty"`
}

// Tag is a system or personal tag.
type Tag struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Color       string     `json:"color,omitempty"`
	IsSystem    bool       `json:"is_system,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

func (t *Tag) UnmarshalJSON(b []byte) error {
	type plain Tag
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if v, ok := raw["id"]; ok {
		raw["id"] = stringifyID(v)
	}
	normalized, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	var p plain
	if err := json.Unmarshal(normalized, &p); err != nil {
		return err
	}
	*t = Tag(p)
	return nil
}

// TagInput creates or updates a tag.
type TagInput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty"`
}

// TagQuota is a user's personal tag allowance.
type TagQuota struct {
	MaxTags  int `json:"max_tags"`
	UsedTags int `json:"used_tags"`
}

// TagListParams filters tag listings.
type TagListParams struct {
	Search string
	Skip   int
	Limit  int
}

// User is an account as seen by administrators.
type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name,omitempty"`
	ContactEmail string     `json:"contact_email,omitempty"`
	Role         string     `json:"role,omitempty"`
	IsActive     bool       `json:"is_active"`
	IsApproved   bool       `json:"is_approved"`
	CreatedAt    *time.Time `json:"created_at,omitempty"`
}

func (u *User) UnmarshalJSON(b []byte) error {
	type plain User
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if v, ok := raw["id"]; ok {
		raw["id"] = stringifyID(v)
	}
	normalized, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	var p plain
	if err := json.Unmarshal(normalized, &p); err != nil {
		return err
	}
	*u = User(p)
	return nil
}

// Stats is the admin dashboard summary. The backend decides the keys.
type Stats map[string]any

// SearchResult is one keyword or similarity hit.
type SearchResult struct {
	Document   Document `json:"document"`
	Score      float64  `json:"score,omitempty"`
	Highlights []string `json:"highlights,omitempty"`
}

// SearchResponse is a page of search hits.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
	Total   int            `json:"total"`
	Page    int            `json:"page,omitempty"`
}

// Answer is the response of a question-answering search.
type Answer struct {
	Answer  string     `json:"answer"`
	Sources []Document `json:"sources,omitempty"`
}

// PopularTag is a tag with its usage count.
type PopularTag struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}
