package config

import (
	"github.com/hyperjump/traitview/internal/highlight"
	"github.com/hyperjump/traitview/internal/render"
	"github.com/hyperjump/traitview/internal/traits"
)

// FieldGroups returns the configured field groups.
func (c *Config) FieldGroups() render.FieldGroups {
	return render.FieldGroups{
		Extra:  c.Fields.Extra,
		Trait:  c.Fields.Trait,
		Search: c.Fields.Search,
		AsIs:   c.Fields.AsIs,
	}
}

// HighlightMarkers returns the HTML highlight markers.
func (c *Config) HighlightMarkers() highlight.Markers {
	return highlight.Markers{Open: c.Markup.HighlightOpen, Close: c.Markup.HighlightClose}
}

// TraitOptions returns the trait summary layout using the HTML line break and
// separator.
func (c *Config) TraitOptions() traits.Options {
	return traits.Options{
		VerbatimFlag:               c.Traits.VerbatimFlag,
		SuppressVerbatimProvenance: c.Traits.SuppressVerbatimOrDefault(),
		FieldFlagsFirst:            c.Traits.FieldFlagsFirstOrDefault(),
		SeparatorBeforeFirst:       c.Traits.SeparatorBeforeFirst,
		UnitsLabel:                 c.Traits.UnitsLabel,
		FlagWordSeparator:          c.Traits.FlagWordSeparator,
		LineBreak:                  c.Markup.LineBreak,
		Separator:                  c.Markup.Separator,
	}
}
