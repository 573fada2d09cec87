package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Pager.PageSize <= 0 {
		cfg.Pager.PageSize = 100
	}
	if cfg.Fields.Search == nil {
		cfg.Fields.Search = []string{"dynamicproperties", "occurrenceremarks", "fieldnotes"}
	}
	if cfg.Traits.VerbatimFlag == "" {
		cfg.Traits.VerbatimFlag = "as_is"
	}
	if cfg.Traits.UnitsLabel == "" {
		cfg.Traits.UnitsLabel = "original units"
	}
	if cfg.Traits.FlagWordSeparator == "" {
		cfg.Traits.FlagWordSeparator = "_"
	}
	// Both switches default to true when unset (nil).
	if cfg.Traits.SuppressVerbatimProvenance == nil {
		t := true
		cfg.Traits.SuppressVerbatimProvenance = &t
	}
	if cfg.Traits.FieldFlagsFirst == nil {
		t := true
		cfg.Traits.FieldFlagsFirst = &t
	}
	if cfg.Markup.HighlightOpen == "" {
		cfg.Markup.HighlightOpen = `<span class="found">`
	}
	if cfg.Markup.HighlightClose == "" {
		cfg.Markup.HighlightClose = "</span>"
	}
	if cfg.Markup.LineBreak == "" {
		cfg.Markup.LineBreak = "<br/>"
	}
	if cfg.Markup.Separator == "" {
		cfg.Markup.Separator = "<hr/>"
	}
}
