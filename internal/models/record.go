// Package models defines the records, traits and annotations handed over by the
// trait extraction producer.
package models

import (
	"encoding/json"
	"sort"

	"github.com/hyperjump/traitview/internal/memo"
)

// Annotation is a half-open character range [Start, End) into one field's raw
// value, with the name of the annotator that produced it.
type Annotation struct {
	Start  int    `json:"start"`
	End    int    `json:"end"`
	Source string `json:"source,omitempty"`
}

// Trait is one parse result attached to a field.
type Trait struct {
	Value Literal `json:"value"`
	Units Literal `json:"units"`
	// Field names the raw field the trait was parsed from.
	Field string `json:"field,omitempty"`
	Start *int   `json:"start,omitempty"`
	End   *int   `json:"end,omitempty"`
	Flags Flags  `json:"flags,omitempty"`
}

// Span returns the trait's source span when both ends are known.
func (t Trait) Span() (Annotation, bool) {
	if t.Start == nil || t.End == nil {
		return Annotation{}, false
	}
	return Annotation{Start: *t.Start, End: *t.End}, true
}

// ParsedField groups the traits parsed for one trait column together with
// flags that apply to the column as a whole.
type ParsedField struct {
	Flags  Flags   `json:"flags,omitempty"`
	Traits []Trait `json:"parsed"`
}

// UnmarshalJSON accepts the object form and the older bare-list form.
func (p *ParsedField) UnmarshalJSON(data []byte) error {
	var list []Trait
	if err := json.Unmarshal(data, &list); err == nil {
		*p = ParsedField{Traits: list}
		return nil
	}
	type plain ParsedField
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = ParsedField(v)
	return nil
}

// Record is one row of the dataset. Raw values, traits and annotations are
// immutable once loaded; only the derived-output cache is written to.
type Record struct {
	Index       string                  `json:"index"`
	Raw         map[string]string       `json:"raw"`
	Parsed      map[string]*ParsedField `json:"parsed,omitempty"`
	Annotations map[string][]Annotation `json:"annotations,omitempty"`

	derived memo.Cache
}

// UnmarshalJSON accepts numeric or string indexes and non-string raw values.
func (r *Record) UnmarshalJSON(data []byte) error {
	var aux struct {
		Index       Literal                 `json:"index"`
		Raw         map[string]Literal      `json:"raw"`
		Parsed      map[string]*ParsedField `json:"parsed"`
		Annotations map[string][]Annotation `json:"annotations"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	raw := make(map[string]string, len(aux.Raw))
	for k, v := range aux.Raw {
		raw[k] = v.String()
	}
	*r = Record{
		Index:       aux.Index.String(),
		Raw:         raw,
		Parsed:      aux.Parsed,
		Annotations: aux.Annotations,
	}
	return nil
}

// Value returns the raw value of field, or "" when the row lacks it.
func (r *Record) Value(field string) string {
	return r.Raw[field]
}

// Field returns the parsed traits of a trait column, or nil.
func (r *Record) Field(name string) *ParsedField {
	return r.Parsed[name]
}

// AnnotationsFor returns every annotation that falls on field: the explicit
// ones first, then the source spans of traits parsed from field, grouped by
// trait name in sorted order.
func (r *Record) AnnotationsFor(field string) []Annotation {
	out := append([]Annotation(nil), r.Annotations[field]...)
	names := make([]string, 0, len(r.Parsed))
	for name := range r.Parsed {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		pf := r.Parsed[name]
		if pf == nil {
			continue
		}
		for _, t := range pf.Traits {
			if t.Field != field {
				continue
			}
			if span, ok := t.Span(); ok {
				span.Source = name
				out = append(out, span)
			}
		}
	}
	return out
}

// Derived returns the record's derived-output cache.
func (r *Record) Derived() *memo.Cache {
	return &r.derived
}
