package overrides

// Merge applies state to options. Forced ids take their forced value and
// carry the natural value in OriginalValue; everything else keeps its natural
// value.
func Merge(options []Option, state ForcedState) []EffectiveOption {
	out := make([]EffectiveOption, 0, len(options))
	for _, option := range options {
		effective := EffectiveOption{
			ID:          option.ID,
			Name:        option.Name,
			Description: option.Description,
			IsEnabled:   option.NaturalValue,
		}
		if value, forced := state.Lookup(option.ID); forced {
			effective.IsEnabled = value
			effective.IsForced = true
			effective.OriginalValue = boolPtr(option.NaturalValue)
		}
		out = append(out, effective)
	}
	return out
}

// Natural returns options as effective values with no overrides applied.
func Natural(options []Option) []EffectiveOption {
	return Merge(options, ForcedState{})
}

// ForcedOnly keeps the forced entries of effective.
func ForcedOnly(effective []EffectiveOption) []EffectiveOption {
	out := []EffectiveOption{}
	for _, option := range effective {
		if option.IsForced {
			out = append(out, option)
		}
	}
	return out
}
