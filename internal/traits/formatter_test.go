package traits

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hyperjump/traitview/internal/models"
)

func intp(v int) *int { return &v }

func TestFormatter_SingleTrait(t *testing.T) {
	f := NewFormatter(DefaultOptions())
	pf := &models.ParsedField{Traits: []models.Trait{{
		Value: models.Text("10"),
		Units: models.Text("cm"),
		Flags: models.Flags{models.NewBoolFlag("approx", true)},
	}}}

	assert.Equal(t, []string{"value: 10", "original units: cm", "approx"}, f.Lines(pf))
	assert.Equal(t, "value: 10<br/>original units: cm<br/>approx", f.Format(pf))
}

func TestFormatter_ProvenanceAndFlags(t *testing.T) {
	f := NewFormatter(DefaultOptions())
	pf := &models.ParsedField{
		Flags: models.Flags{
			models.NewStringFlag("note", "check key"),
			models.NewBoolFlag("reviewed", true),
			models.NewBoolFlag("skipped", false),
		},
		Traits: []models.Trait{
			{
				Value: models.Text("120"),
				Field: "dynamicproperties",
				Start: intp(0),
				End:   intp(16),
				Flags: models.Flags{
					models.NewBoolFlag("units_inferred", true),
					models.NewStringFlag("ambiguous_key", "total_length_or_body"),
					models.NewBoolFlag("estimated_value", false),
				},
			},
			{
				Value: models.Text("adult"),
				Field: "lifestage",
				Start: intp(0),
				End:   intp(5),
				Flags: models.Flags{models.NewBoolFlag("as_is", true)},
			},
		},
	}

	want := []string{
		"check key",
		"reviewed",
		"value: 120",
		"field: dynamicproperties",
		"start: 0",
		"end: 16",
		"units inferred",
		"ambiguous key: total length or body",
		"<hr/>",
		"value: adult",
	}
	assert.Equal(t, want, f.Lines(pf))
}

func TestFormatter_VariantWithoutVerbatimHandling(t *testing.T) {
	opts := DefaultOptions()
	opts.SuppressVerbatimProvenance = false
	opts.FieldFlagsFirst = false
	opts.SeparatorBeforeFirst = true
	f := NewFormatter(opts)

	pf := &models.ParsedField{
		Flags: models.Flags{models.NewStringFlag("note", "ignored")},
		Traits: []models.Trait{{
			Value: models.Text("adult"),
			Field: "lifestage",
			Start: intp(0),
			End:   intp(5),
			Flags: models.Flags{models.NewBoolFlag("as_is", true)},
		}},
	}
	want := []string{
		"<hr/>",
		"value: adult",
		"field: lifestage",
		"start: 0",
		"end: 5",
		"as is",
	}
	assert.Equal(t, want, f.Lines(pf))
}

func TestFormatter_SkipsAbsentParts(t *testing.T) {
	f := NewFormatter(DefaultOptions())
	pf := &models.ParsedField{Traits: []models.Trait{{}, {Units: models.Text("mm")}}}
	assert.Equal(t, []string{"<hr/>", "original units: mm"}, f.Lines(pf))
}

func TestFormatter_NilAndEmpty(t *testing.T) {
	f := NewFormatter(DefaultOptions())
	assert.Nil(t, f.Lines(nil))
	assert.Equal(t, "", f.Format(nil))
	assert.Equal(t, "", f.Format(&models.ParsedField{}))
}

func TestFormatter_ReplacesEverySeparator(t *testing.T) {
	opts := DefaultOptions()
	opts.LineBreak = "\n"
	f := NewFormatter(opts)
	pf := &models.ParsedField{Traits: []models.Trait{{
		Flags: models.Flags{models.NewStringFlag("side_of_body", "left_and_right")},
	}}}
	assert.Equal(t, "side of body: left and right", f.Format(pf))
}

func TestFormatter_EmptyWordSeparatorKeepsNames(t *testing.T) {
	opts := DefaultOptions()
	opts.FlagWordSeparator = ""
	f := NewFormatter(opts)
	pf := &models.ParsedField{Traits: []models.Trait{{
		Flags: models.Flags{models.NewBoolFlag("units_inferred", true)},
	}}}
	assert.Equal(t, []string{"units_inferred"}, f.Lines(pf))
}
