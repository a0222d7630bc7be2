package config

import (
	"fmt"
	"strings"
)

func validate(c *Config) error {
	var problems []string
	switch strings.ToLower(c.App.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		problems = append(problems, fmt.Sprintf("app.log_level %q is not one of debug/info/warn/error", c.App.LogLevel))
	}
	if !strings.HasPrefix(c.App.HTTPAddr, ":") && !strings.Contains(c.App.HTTPAddr, ":") {
		problems = append(problems, fmt.Sprintf("app.http_addr %q is missing a port", c.App.HTTPAddr))
	}
	if c.Column.LengthCm < 0 {
		problems = append(problems, "column.length_cm cannot be negative")
	}
	seen := make(map[string]bool, len(c.Variables))
	for _, v := range c.Variables {
		if v.Name == "" {
			problems = append(problems, "variables entry with empty name")
			continue
		}
		if seen[v.Name] {
			problems = append(problems, fmt.Sprintf("duplicate variable %q", v.Name))
		}
		seen[v.Name] = true
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}
