package render

import "github.com/headlamp-run/headlamp/internal/model"

// StatusGlyph returns the single status glyph for a case, Unicode or
// ASCII depending on the terminal's advertised capability.
func StatusGlyph(status model.CaseStatus, unicode bool) string {
	if unicode {
		switch status {
		case model.CasePassed:
			return "✓"
		case model.CaseFailed:
			return "×"
		case model.CasePending:
			return "↓"
		case model.CaseTodo:
			return "☐"
		}
	}

	switch status {
	case model.CasePassed:
		return "+"
	case model.CaseFailed:
		return "x"
	case model.CasePending:
		return "-"
	case model.CaseTodo:
		return "o"
	}

	return "?"
}
