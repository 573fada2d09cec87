// Package traits turns the parsed traits of a field into readable summary
// lines.
package traits

import (
	"strconv"
	"strings"

	"github.com/hyperjump/traitview/internal/models"
)

// Options select between the summary layouts the producer has used over time.
type Options struct {
	// VerbatimFlag marks a trait copied whole from its field. Its provenance
	// lines are suppressed and the flag itself is not listed.
	VerbatimFlag string
	// SuppressVerbatimProvenance enables VerbatimFlag handling. When false the
	// verbatim flag is listed like any other flag.
	SuppressVerbatimProvenance bool
	// FieldFlagsFirst emits field-level flags before any trait lines.
	FieldFlagsFirst bool
	// SeparatorBeforeFirst puts a separator before the first trait as well as
	// between traits.
	SeparatorBeforeFirst bool
	// UnitsLabel prefixes the original-units line.
	UnitsLabel string
	// FlagWordSeparator is shown as a space in flag names and values.
	FlagWordSeparator string
	// LineBreak joins lines in Format.
	LineBreak string
	// Separator is the line placed between traits.
	Separator string
}

// DefaultOptions returns the layout of the current producer schema.
func DefaultOptions() Options {
	return Options{
		VerbatimFlag:               "as_is",
		SuppressVerbatimProvenance: true,
		FieldFlagsFirst:            true,
		SeparatorBeforeFirst:       false,
		UnitsLabel:                 "original units",
		FlagWordSeparator:          "_",
		LineBreak:                  "<br/>",
		Separator:                  "<hr/>",
	}
}

// Formatter renders parsed fields. It is stateless and safe to share.
type Formatter struct {
	opts Options
}

// NewFormatter returns a formatter using opts.
func NewFormatter(opts Options) *Formatter {
	return &Formatter{opts: opts}
}

// Options returns the formatter's options.
func (f *Formatter) Options() Options {
	return f.opts
}

// Format returns the summary lines of pf joined by the line break.
func (f *Formatter) Format(pf *models.ParsedField) string {
	return strings.Join(f.Lines(pf), f.opts.LineBreak)
}

// Lines returns the summary lines of pf in display order. A nil field has no
// lines.
func (f *Formatter) Lines(pf *models.ParsedField) []string {
	if pf == nil {
		return nil
	}
	var lines []string
	if f.opts.FieldFlagsFirst {
		for _, flag := range pf.Flags {
			if line, ok := fieldFlagLine(flag); ok {
				lines = append(lines, line)
			}
		}
	}
	for i, t := range pf.Traits {
		if i > 0 || f.opts.SeparatorBeforeFirst {
			lines = append(lines, f.opts.Separator)
		}
		lines = f.appendTrait(lines, t)
	}
	return lines
}

func (f *Formatter) appendTrait(lines []string, t models.Trait) []string {
	verbatim := f.verbatim(t)

	if t.Value.Present() {
		lines = append(lines, "value: "+t.Value.String())
	}
	if t.Units.Present() {
		lines = append(lines, f.opts.UnitsLabel+": "+t.Units.String())
	}
	if !verbatim {
		if t.Field != "" {
			lines = append(lines, "field: "+t.Field)
		}
		if t.Start != nil {
			lines = append(lines, "start: "+strconv.Itoa(*t.Start))
		}
		if t.End != nil {
			lines = append(lines, "end: "+strconv.Itoa(*t.End))
		}
	}
	for _, flag := range t.Flags {
		if f.isVerbatimFlag(flag.Name) {
			continue
		}
		if line, ok := f.flagLine(flag); ok {
			lines = append(lines, line)
		}
	}
	return lines
}

func (f *Formatter) verbatim(t models.Trait) bool {
	return f.opts.SuppressVerbatimProvenance && f.opts.VerbatimFlag != "" && t.Flags.Has(f.opts.VerbatimFlag)
}

func (f *Formatter) isVerbatimFlag(name string) bool {
	return f.opts.SuppressVerbatimProvenance && f.opts.VerbatimFlag != "" && name == f.opts.VerbatimFlag
}

func (f *Formatter) flagLine(flag models.Flag) (string, bool) {
	switch flag.Kind {
	case models.StringFlag:
		return f.words(flag.Name) + ": " + f.words(flag.Text), true
	default:
		if !flag.Bool {
			return "", false
		}
		return f.words(flag.Name), true
	}
}

// fieldFlagLine renders a field-level flag verbatim: the qualifying text, or
// the name of a set boolean flag.
func fieldFlagLine(flag models.Flag) (string, bool) {
	if flag.Kind == models.StringFlag {
		return flag.Text, flag.Text != ""
	}
	return flag.Name, flag.Bool
}

func (f *Formatter) words(s string) string {
	if f.opts.FlagWordSeparator == "" {
		return s
	}
	return strings.ReplaceAll(s, f.opts.FlagWordSeparator, " ")
}
