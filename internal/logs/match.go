package logs

import "strings"

// RunMatcher keeps lines tagged with a run identifier starting with prefix.
func RunMatcher(prefix string) Matcher {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil
	}
	jsonNeedle := `"run_id":"` + prefix
	consoleNeedle := "run_id=" + prefix
	return func(line string) bool {
		return strings.Contains(line, jsonNeedle) || strings.Contains(line, consoleNeedle)
	}
}

// EntityMatcher keeps lines about the entity with the given canonical RUT.
func EntityMatcher(rut string) Matcher {
	rut = strings.TrimSpace(rut)
	if rut == "" {
		return nil
	}
	jsonNeedle := `"entity_id":"` + rut + `"`
	consoleNeedle := "RUT " + rut + ":"
	consoleMid := "RUT " + rut + " "
	return func(line string) bool {
		return strings.Contains(line, jsonNeedle) ||
			strings.Contains(line, consoleNeedle) ||
			strings.Contains(line, consoleMid)
	}
}

// All combines matchers; nil matchers are ignored.
func All(matchers ...Matcher) Matcher {
	var active []Matcher
	for _, m := range matchers {
		if m != nil {
			active = append(active, m)
		}
	}
	if len(active) == 0 {
		return nil
	}
	return func(line string) bool {
		for _, m := range active {
			if !m(line) {
				return false
			}
		}
		return true
	}
}
