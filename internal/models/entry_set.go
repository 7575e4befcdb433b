package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// EntrySet is an id → Entry mapping that remembers declaration order,
// so matching iterates entries the way the document lists them.
type EntrySet struct {
	order []string
	items map[string]*Entry
}

func NewEntrySet() *EntrySet {
	return &EntrySet{items: make(map[string]*Entry)}
}

func (s *EntrySet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

func (s *EntrySet) Get(id string) (*Entry, bool) {
	if s == nil {
		return nil, false
	}
	e, ok := s.items[id]
	return e, ok
}

// Put inserts or replaces an entry. New ids are appended at the end.
func (s *EntrySet) Put(e *Entry) {
	if _, ok := s.items[e.ID]; !ok {
		s.order = append(s.order, e.ID)
	}
	s.items[e.ID] = e
}

func (s *EntrySet) Delete(id string) bool {
	if _, ok := s.items[id]; !ok {
		return false
	}
	delete(s.items, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Entries returns the entries in declaration order.
func (s *EntrySet) Entries() []*Entry {
	if s == nil {
		return nil
	}
	out := make([]*Entry, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id])
	}
	return out
}

func (s *EntrySet) Clone() *EntrySet {
	c := NewEntrySet()
	for _, e := range s.Entries() {
		c.Put(e.Clone())
	}
	return c
}

func (s *EntrySet) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*s = *NewEntrySet()
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("entry set must be a JSON object")
	}

	set := NewEntrySet()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		id, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected key %v", keyTok)
		}
		var e Entry
		if err := dec.Decode(&e); err != nil {
			return fmt.Errorf("entry %q: %w", id, err)
		}
		if _, dup := set.items[id]; dup {
			return fmt.Errorf("duplicate entry id %q", id)
		}
		e.ID = id
		set.Put(&e)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*s = *set
	return nil
}

func (s *EntrySet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range s.Entries() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.ID)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
