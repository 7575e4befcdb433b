package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type EntryKind string

const (
	KindCategory EntryKind = "category"
	KindFaq      EntryKind = "faq"
	KindNone     EntryKind = "none"
)

// FaqPrefix marks FAQ ids in match results and classifier labels.
const FaqPrefix = "faq_"

// ParseKind accepts the singular and plural spellings used by the API and the CLI.
func ParseKind(s string) (EntryKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "category", "categories":
		return KindCategory, nil
	case "faq", "faqs":
		return KindFaq, nil
	default:
		return KindNone, fmt.Errorf("unknown entry kind %q", s)
	}
}

type Examples struct {
	Questions  []string `json:"questions,omitempty"`
	Variations []string `json:"variations,omitempty"`
}

// Response is a canned reply. On disk it is either a plain string or an object.
type Response struct {
	Content string `json:"content"`
	Type    string `json:"type,omitempty"`
}

func (r *Response) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &r.Content)
	}
	type plain Response
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = Response(p)
	return nil
}

func (r Response) MarshalJSON() ([]byte, error) {
	if r.Type == "" {
		return json.Marshal(r.Content)
	}
	type plain Response
	return json.Marshal(plain(r))
}

// Entry is a category or a FAQ record. Both kinds share the same shape.
type Entry struct {
	ID        string     `json:"-"`
	Name      string     `json:"name,omitempty"`
	Title     string     `json:"title,omitempty"`
	Keywords  []string   `json:"keywords"`
	Examples  Examples   `json:"examples"`
	Responses []Response `json:"responses"`

	// legacy FAQ shape, folded into Examples/Responses by Upgrade
	Question string `json:"question,omitempty"`
	Answer   string `json:"answer,omitempty"`
}

// DisplayName returns the title, the name or the id, whichever is set first.
func (e *Entry) DisplayName() string {
	switch {
	case e.Title != "":
		return e.Title
	case e.Name != "":
		return e.Name
	default:
		return e.ID
	}
}

// Upgrade folds the legacy {question, answer} FAQ shape into the common shape.
func (e *Entry) Upgrade() {
	if e.Question != "" {
		if len(e.Examples.Questions) == 0 {
			e.Examples.Questions = []string{e.Question}
		}
		if e.Title == "" {
			e.Title = e.Question
		}
		e.Question = ""
	}
	if e.Answer != "" {
		if len(e.Responses) == 0 {
			e.Responses = []Response{{Content: e.Answer}}
		}
		e.Answer = ""
	}
}

func (e *Entry) Clone() *Entry {
	c := *e
	c.Keywords = append([]string(nil), e.Keywords...)
	c.Examples.Questions = append([]string(nil), e.Examples.Questions...)
	c.Examples.Variations = append([]string(nil), e.Examples.Variations...)
	c.Responses = append([]Response(nil), e.Responses...)
	return &c
}

// Contact uses the French JSON keys of the knowledge base documents.
type Contact struct {
	Email     string `json:"email,omitempty"`
	Telephone string `json:"telephone,omitempty"`
	Horaires  string `json:"horaires,omitempty"`
}

func (c Contact) IsZero() bool {
	return c.Email == "" && c.Telephone == "" && c.Horaires == ""
}

// KnowledgeBase is read-only while matching; writers clone it first.
type KnowledgeBase struct {
	Categories *EntrySet              `json:"categories"`
	Faq        *EntrySet              `json:"faq"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Contact    Contact                `json:"contact,omitempty"`
}

func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{
		Categories: NewEntrySet(),
		Faq:        NewEntrySet(),
		Metadata:   map[string]interface{}{},
	}
}

// Set returns the entry set for the given kind.
func (kb *KnowledgeBase) Set(kind EntryKind) *EntrySet {
	switch kind {
	case KindCategory:
		return kb.Categories
	case KindFaq:
		return kb.Faq
	default:
		return nil
	}
}

// Lookup resolves an id of the given kind. FAQ ids may carry FaqPrefix.
func (kb *KnowledgeBase) Lookup(kind EntryKind, id string) (*Entry, bool) {
	if kind == KindFaq {
		if e, ok := kb.Faq.Get(id); ok {
			return e, true
		}
		return kb.Faq.Get(strings.TrimPrefix(id, FaqPrefix))
	}
	set := kb.Set(kind)
	if set == nil {
		return nil, false
	}
	return set.Get(id)
}

func (kb *KnowledgeBase) Clone() *KnowledgeBase {
	c := &KnowledgeBase{
		Categories: kb.Categories.Clone(),
		Faq:        kb.Faq.Clone(),
		Metadata:   make(map[string]interface{}, len(kb.Metadata)),
		Contact:    kb.Contact,
	}
	for k, v := range kb.Metadata {
		c.Metadata[k] = v
	}
	return c
}

// Validate reports the first structural problem of the knowledge base.
func (kb *KnowledgeBase) Validate() error {
	if kb.Categories == nil || kb.Faq == nil {
		return fmt.Errorf("knowledge base must define categories and faq")
	}
	for _, set := range []*EntrySet{kb.Categories, kb.Faq} {
		for _, e := range set.Entries() {
			if strings.TrimSpace(e.ID) == "" {
				return fmt.Errorf("entry with empty id")
			}
		}
	}
	return nil
}

func (kb *KnowledgeBase) UnmarshalJSON(data []byte) error {
	type raw struct {
		Categories *EntrySet              `json:"categories"`
		Faq        *EntrySet              `json:"faq"`
		Metadata   map[string]interface{} `json:"metadata"`
		Contact    Contact                `json:"contact"`
	}
	var r raw
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	if r.Categories == nil {
		r.Categories = NewEntrySet()
	}
	if r.Faq == nil {
		r.Faq = NewEntrySet()
	}
	if r.Metadata == nil {
		r.Metadata = map[string]interface{}{}
	}
	for _, e := range r.Faq.Entries() {
		e.Upgrade()
	}
	for _, e := range r.Categories.Entries() {
		e.Upgrade()
	}
	*kb = KnowledgeBase(r)
	return nil
}
