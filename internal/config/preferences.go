package config

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

const PreferencesFile = "taskboard"

// Preferences are user-editable defaults read from taskboard.yaml.
type Preferences struct {
	PageSize        int
	PageSizeOptions []int
	ExportPrefix    string
	GeneratorYear   int
	SequentialKeys  bool
}

func DefaultPreferences() Preferences {
	return Preferences{
		PageSize:        20,
		PageSizeOptions: []int{10, 20, 50, 100},
		ExportPrefix:    "jira-statistics",
		GeneratorYear:   2024,
		SequentialKeys:  false,
	}
}

// LoadPreferences reads taskboard.yaml from dir. A missing file yields the
// defaults.
func LoadPreferences(dir string) (Preferences, error) {
	p := DefaultPreferences()

	v := viper.New()
	v.SetConfigName(PreferencesFile)
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.SetDefault("view.page_size", p.PageSize)
	v.SetDefault("view.page_size_options", p.PageSizeOptions)
	v.SetDefault("export.prefix", p.ExportPrefix)
	v.SetDefault("generator.year", p.GeneratorYear)
	v.SetDefault("generator.sequential_keys", p.SequentialKeys)

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if errors.As(err, &nf) {
			return p, nil
		}
		return Preferences{}, fmt.Errorf("read %s.yaml: %w", PreferencesFile, err)
	}

	p.PageSize = v.GetInt("view.page_size")
	p.PageSizeOptions = v.GetIntSlice("view.page_size_options")
	p.ExportPrefix = v.GetString("export.prefix")
	p.GeneratorYear = v.GetInt("generator.year")
	p.SequentialKeys = v.GetBool("generator.sequential_keys")

	if err := p.Validate(); err != nil {
		return Preferences{}, err
	}
	return p, nil
}

func (p Preferences) Validate() error {
	if p.PageSize <= 0 {
		return fmt.Errorf("view.page_size must be positive, got %d", p.PageSize)
	}
	if len(p.PageSizeOptions) == 0 {
		return errors.New("view.page_size_options must not be empty")
	}
	for _, n := range p.PageSizeOptions {
		if n <= 0 {
			return fmt.Errorf("view.page_size_options must be positive, got %d", n)
		}
	}
	if p.ExportPrefix == "" {
		return errors.New("export.prefix must not be empty")
	}
	if p.GeneratorYear < 1970 || p.GeneratorYear > 9999 {
		return fmt.Errorf("generator.year out of range: %d", p.GeneratorYear)
	}
	return nil
}
