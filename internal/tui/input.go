package tui

import (
	"strings"
	"unicode/utf8"
)

// maxInputLen is the maximum number of runes allowed in form inputs.
const maxInputLen = 2000

// editRune processes a keystroke for inline text editing.
// Handles backspace (rune-aware) and single printable characters.
// Returns the text unchanged for non-printable keys (enter, esc, etc.).
// Input is clamped to maxInputLen runes.
func editRune(text string, key string) string {
	switch key {
	case "backspace":
		if len(text) > 0 {
			runes := []rune(text)
			return string(runes[:len(runes)-1])
		}
		return text
	default:
		if utf8.RuneCountInString(key) == 1 {
			if utf8.RuneCountInString(text) >= maxInputLen {
				return text
			}
			return text + key
		}
		return text
	}
}

// editNumber is editRune restricted to digits, plus one '.' when decimal.
func editNumber(text, key string, decimal bool) string {
	if key == "backspace" {
		return editRune(text, key)
	}
	if len(key) != 1 {
		return text
	}
	c := key[0]
	switch {
	case c >= '0' && c <= '9':
		return editRune(text, key)
	case c == '.' && decimal && !strings.Contains(text, "."):
		return editRune(text, key)
	}
	return text
}

// truncateToHeight limits output to maxLines newline-delimited lines.
// Returns the original string if it fits or maxLines is <= 0.
func truncateToHeight(s string, maxLines int) string {
	if maxLines <= 0 {
		return s
	}
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			n++
			if n >= maxLines {
				return s[:i+1]
			}
		}
	}
	return s
}

// renderField renders one labelled form input. errMsg, when set, goes on the
// line below.
func renderField(label, value string, focused, masked bool, errMsg string) string {
	cursor := " "
	style := metaStyle
	if focused {
		cursor = inputPromptStyle.Render(">")
		style = selectedStyle
	}
	shown := value
	if masked {
		shown = strings.Repeat("•", utf8.RuneCountInString(value))
	}
	if focused {
		shown += accentStyle.Render("█")
	} else if shown == "" {
		shown = inputPlaceholderStyle.Render("—")
	}
	line := " " + cursor + " " + style.Render(padRight(label, 14)) + " " + shown + "\n"
	if errMsg != "" {
		line += "   " + padRight("", 14) + " " + errorStyle.Render(errMsg) + "\n"
	}
	return line
}

// renderSelect renders a field whose value is cycled with h/l.
func renderSelect(label, value string, focused bool, errMsg string) string {
	if value == "" {
		value = "none"
	}
	if focused {
		value = accentStyle.Render("‹ ") + selectedStyle.Render(value) + accentStyle.Render(" ›")
	} else {
		value = normalStyle.Render(value)
	}
	cursor := " "
	style := metaStyle
	if focused {
		cursor = inputPromptStyle.Render(">")
		style = selectedStyle
	}
	line := " " + cursor + " " + style.Render(padRight(label, 14)) + " " + value + "\n"
	if errMsg != "" {
		line += "   " + padRight("", 14) + " " + errorStyle.Render(errMsg) + "\n"
	}
	return line
}

// renderSearch renders the search prompt shared by the list views.
func renderSearch(input string, editing bool) string {
	if editing {
		return " " + searchStyle.Render("/") + " " + input + accentStyle.Render("█") + "\n"
	}
	if input != "" {
		return " " + searchStyle.Render("/") + " " + dimStyle.Render(input) + "\n"
	}
	return ""
}

// cycle moves idx by delta within n entries, wrapping around.
func cycle(idx, delta, n int) int {
	if n <= 0 {
		return 0
	}
	return ((idx+delta)%n + n) % n
}
