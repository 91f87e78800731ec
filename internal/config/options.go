package config

import (
	"fmt"
	"os"

	overrides "github.com/goliatone/go-overrides"
	"gopkg.in/yaml.v3"
)

// OptionSet is the host's natural options, one list per domain, as read from
// an options file.
type OptionSet struct {
	FeatureFlags []overrides.Option `yaml:"feature_flags"`
	Permissions  []overrides.Option `yaml:"permissions"`
	AppFeatures  []overrides.Option `yaml:"app_features"`
	Languages    []overrides.Option `yaml:"languages"`
}

// LoadOptions reads an options file.
func LoadOptions(path string) (OptionSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return OptionSet{}, fmt.Errorf("config: read options %s: %w", path, err)
	}
	var set OptionSet
	if err := yaml.Unmarshal(data, &set); err != nil {
		return OptionSet{}, fmt.Errorf("config: parse options %s: %w", path, err)
	}
	return set, nil
}

// Register replaces every domain's options on toolbar. Nil lists leave a
// domain untouched.
func (s OptionSet) Register(toolbar *overrides.Toolbar) error {
	domains := []struct {
		domain  *overrides.Domain
		options []overrides.Option
	}{
		{toolbar.FeatureFlags(), s.FeatureFlags},
		{toolbar.Permissions(), s.Permissions},
		{toolbar.AppFeatures(), s.AppFeatures},
	}
	for _, entry := range domains {
		if entry.options == nil {
			continue
		}
		if err := entry.domain.SetAvailableOptions(entry.options); err != nil {
			return err
		}
	}
	if s.Languages != nil {
		return toolbar.Language().SetAvailableOptions(s.Languages)
	}
	return nil
}
