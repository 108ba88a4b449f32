package availability

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type templateFile struct {
	Windows []WindowTemplate `yaml:"windows"`
}

// LoadTemplateFile reads a window template from YAML:
//
//	windows:
//	  - name: "8-11"
//	    label: "morning, 8 to 11"
//	    capacity: 4
func LoadTemplateFile(path string) ([]WindowTemplate, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read window template: %w", err)
	}
	var f templateFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse window template: %w", err)
	}
	if err := ValidateTemplate(f.Windows); err != nil {
		return nil, err
	}
	return f.Windows, nil
}

func ValidateTemplate(tmpl []WindowTemplate) error {
	if len(tmpl) == 0 {
		return fmt.Errorf("window template is empty: %w", ErrInvalidArgument)
	}
	seen := map[string]bool{}
	for i, w := range tmpl {
		name := strings.TrimSpace(w.Name)
		if name == "" || strings.Contains(name, ",") {
			return fmt.Errorf("window %d has invalid name %q: %w", i, w.Name, ErrInvalidArgument)
		}
		if seen[name] {
			return fmt.Errorf("duplicate window %q: %w", name, ErrInvalidArgument)
		}
		seen[name] = true
		if w.Capacity < 0 {
			return fmt.Errorf("window %q has negative capacity: %w", name, ErrInvalidArgument)
		}
	}
	return nil
}
