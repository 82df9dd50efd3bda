package image

import (
	"encoding/json"
	"maps"
)

// DataSource says how InlineData.Data should be interpreted.
type DataSource string

const (
	// SourceBase64 is the default: Data holds base64 bytes. It is omitted on the wire.
	SourceBase64 DataSource = ""
	// SourceURL means Data is a fetchable URL, not image bytes.
	SourceURL DataSource = "url"
)

// InlineData is one image in canonical form.
type InlineData struct {
	MimeType string     `json:"mimeType"`
	Data     string     `json:"data"`
	Source   DataSource `json:"source,omitempty"`
}

// Part is either text or an inline image.
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

// IsImage reports whether the part carries usable image data.
func (p Part) IsImage() bool {
	return p.InlineData != nil && p.InlineData.Data != ""
}

type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

// Result is the canonical response every client receives, regardless of provider:
//
//	{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"image/png","data":"..."}}]}}]}
//
// When the upstream body was already candidate-shaped, the translated body is kept
// so fields outside the typed view survive serialization.
type Result struct {
	Candidates []Candidate `json:"candidates"`

	raw map[string]any
}

// MarshalJSON emits the preserved body when present, the typed view otherwise.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.raw != nil {
		return json.Marshal(r.raw)
	}
	type plain Result
	return json.Marshal(plain(r))
}

// Raw returns a shallow copy of the preserved body, or nil.
func (r *Result) Raw() map[string]any {
	if r.raw == nil {
		return nil
	}
	return maps.Clone(r.raw)
}

// FirstImage returns the first image part across all candidates.
func (r *Result) FirstImage() (*InlineData, bool) {
	for _, c := range r.Candidates {
		for _, p := range c.Content.Parts {
			if p.IsImage() {
				return p.InlineData, true
			}
		}
	}
	return nil, false
}

// Texts collects every text part, in order.
func (r *Result) Texts() []string {
	var out []string
	for _, c := range r.Candidates {
		for _, p := range c.Content.Parts {
			if p.Text != "" {
				out = append(out, p.Text)
			}
		}
	}
	return out
}

// NewImageResult builds a single-candidate result around one image.
func NewImageResult(mimeType, data string, source DataSource) *Result {
	return &Result{
		Candidates: []Candidate{{
			Content: Content{Parts: []Part{{
				InlineData: &InlineData{MimeType: mimeType, Data: data, Source: source},
			}}},
		}},
	}
}
