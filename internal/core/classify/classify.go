// Package classify maps a presence event type and free-text state label onto the
// fixed reporting taxonomy. The mapping is an explicit versioned table; the embedded
// table.json is the default and an operator may supply a replacement file.
//
// For the label type, exact aliases (login, logoff, dnd) are tried first, then keyword
// substrings in table order; the earliest subtype whose keyword occurs anywhere in the
// normalized label wins. Labels nothing matches land in the table fallback, so a loaded
// Classifier never drops time.
package classify

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"slices"

	perr "agentpulse/internal/platform/errors"
)

//go:embed table.json
var embedded []byte

// Category is a top-level reporting bucket
type Category string

// Categories, in column order
const (
	Available     Category = "available"
	Login         Category = "login"
	Logoff        Category = "logoff"
	DND           Category = "dnd"
	Productive    Category = "productive"
	NonProductive Category = "non_productive"
)

// Categories lists every category; their durations sum to the bucket length
var Categories = []Category{Available, Login, Logoff, DND, Productive, NonProductive}

// subs per category; a table may only reference these
var subsOf = map[Category][]string{
	Available:     {"talk", "wrap_up", "idle", "hold"},
	Productive:    {"meeting", "training", "chat", "tickets", "outbound"},
	NonProductive: {"lunch", "tea", "bio", "short", "other"},
}

// Tag is one classification result; Sub is empty for login, logoff and dnd
type Tag struct {
	Category Category `json:"category"`
	Sub      string   `json:"sub,omitempty"`
}

func (t Tag) String() string {
	if t.Sub == "" {
		return string(t.Category)
	}
	return string(t.Category) + "/" + t.Sub
}

// GapError means no table entry covered an input; a loaded table makes this unreachable
type GapError struct {
	EventType string
	Label     string
}

func (e *GapError) Error() string {
	return fmt.Sprintf("classification gap: type=%q label=%q", e.EventType, e.Label)
}

// Unwrap exposes the coded form
func (e *GapError) Unwrap() error {
	return perr.Invariantf("no category for %s/%s", e.EventType, e.Label)
}

type rawSubtype struct {
	Category Category `json:"category"`
	Sub      string   `json:"sub"`
	Keywords []string `json:"keywords"`
}

type rawTable struct {
	Version   int                   `json:"version"`
	Meta      map[string]any        `json:"meta"`
	Available map[string]string     `json:"available"`
	DNDTypes  []string              `json:"dnd_types"`
	LabelType string                `json:"label_type"`
	Exact     map[Category][]string `json:"exact"`
	Subtypes  []rawSubtype          `json:"subtypes"`
	Fallback  *Tag                  `json:"fallback"`
}

// Classifier is immutable after load and safe for concurrent use
type Classifier struct {
	version   int
	labelType string
	available map[string]Tag
	dnd       map[string]struct{}
	exact     map[string]Tag
	subtypes  []Tag
	keywords  *automaton
	fallback  Tag
}

// Load compiles the embedded table
func Load() (*Classifier, error) { return Parse(embedded) }

// MustLoad is Load for package init and tests
func MustLoad() *Classifier {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

// FromFile compiles an operator-supplied table
func FromFile(path string) (*Classifier, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "read classifier table %s", path)
	}
	return Parse(b)
}

// Parse validates and compiles a table document
func Parse(doc []byte) (*Classifier, error) {
	var raw rawTable
	if err := json.Unmarshal(doc, &raw); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "decode classifier table")
	}
	if raw.Version <= 0 {
		return nil, perr.InvalidArgf("classifier table: version must be positive")
	}
	if raw.LabelType == "" {
		return nil, perr.InvalidArgf("classifier table: label_type is required")
	}
	if raw.Fallback == nil {
		return nil, perr.InvalidArgf("classifier table: fallback is required")
	}
	if err := checkTag(*raw.Fallback); err != nil || raw.Fallback.Sub == "" {
		return nil, perr.InvalidArgf("classifier table: fallback %s is not a break subtype", raw.Fallback)
	}

	c := &Classifier{
		version:   raw.Version,
		labelType: raw.LabelType,
		available: make(map[string]Tag, len(raw.Available)),
		dnd:       make(map[string]struct{}, len(raw.DNDTypes)),
		exact:     make(map[string]Tag),
		keywords:  newAutomaton(),
		fallback:  *raw.Fallback,
	}

	for typ, sub := range raw.Available {
		t := Tag{Category: Available, Sub: sub}
		if err := checkTag(t); err != nil {
			return nil, err
		}
		c.available[typ] = t
	}
	for _, typ := range raw.DNDTypes {
		c.dnd[typ] = struct{}{}
	}
	for cat, aliases := range raw.Exact {
		if cat != Login && cat != Logoff && cat != DND {
			return nil, perr.InvalidArgf("classifier table: exact category %q not allowed", cat)
		}
		for _, a := range aliases {
			c.exact[Normalize(a)] = Tag{Category: cat}
		}
	}
	for i, st := range raw.Subtypes {
		t := Tag{Category: st.Category, Sub: st.Sub}
		if t.Category != Productive && t.Category != NonProductive {
			return nil, perr.InvalidArgf("classifier table: subtype %s must be a break category", t)
		}
		if err := checkTag(t); err != nil {
			return nil, err
		}
		if len(st.Keywords) == 0 {
			return nil, perr.InvalidArgf("classifier table: subtype %s has no keywords", t)
		}
		c.subtypes = append(c.subtypes, t)
		for _, kw := range st.Keywords {
			c.keywords.add(Normalize(kw), i)
		}
	}
	c.keywords.build()
	return c, nil
}

func checkTag(t Tag) error {
	subs, ok := subsOf[t.Category]
	if !ok || !slices.Contains(subs, t.Sub) {
		return perr.InvalidArgf("classifier table: unknown tag %s", t)
	}
	return nil
}

// Version is stamped on every row the table produces
func (c *Classifier) Version() int {
	if c == nil {
		return 0
	}
	return c.version
}

// LabelType is the event type whose free-text label is classified
func (c *Classifier) LabelType() string {
	if c == nil {
		return ""
	}
	return c.labelType
}

// Classify resolves an event type and label to a tag. Unknown types and unmatched
// labels resolve to the fallback
func (c *Classifier) Classify(eventType, label string) (Tag, error) {
	if c == nil || c.fallback.Category == "" {
		return Tag{}, &GapError{EventType: eventType, Label: label}
	}
	if t, ok := c.available[eventType]; ok {
		return t, nil
	}
	if _, ok := c.dnd[eventType]; ok {
		return Tag{Category: DND}, nil
	}
	if eventType != c.labelType {
		return c.fallback, nil
	}

	n := Normalize(label)
	if t, ok := c.exact[n]; ok {
		return t, nil
	}
	if i := c.keywords.lowest(n); i >= 0 {
		return c.subtypes[i], nil
	}
	return c.fallback, nil
}
