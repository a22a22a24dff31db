package preview

import (
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"
)

// nameBounds locates the braced reference containing cursor, scanning input
// from the start the same way the template parser does so that escapes and
// earlier references are skipped. It returns the byte range of the name
// (between `@{` and the closing brace, or the cursor when there is none) and
// whether the reference is closed.
func nameBounds(input string, cursor int) (start, end int, closed, ok bool) {
	if cursor > len(input) {
		cursor = len(input)
	}

	open := -1

	for i := 0; i < cursor; {
		j := strings.IndexByte(input[i:cursor], '@')
		if j < 0 || i+j+1 >= cursor {
			break
		}

		j += i

		switch input[j+1] {
		case '@':
			i = j + 2

		case '{':
			k := strings.IndexByte(input[j+2:], '}')
			if k < 0 {
				open = j + 2
				i = j + 2

				continue
			}

			if k += j + 2; k >= cursor {
				return j + 2, k, true, true
			}

			i = k + 1

		default:
			_, size := utf8.DecodeRuneInString(input[j+1:])
			i = j + 1 + size
		}
	}

	if open < 0 {
		return 0, 0, false, false
	}

	return open, cursor, false, true
}

// computeMatches calculates the fuzzy match results for the name at the
// cursor, ranked best-first. Directly after `@{` every defined name matches.
func (m model) computeMatches() (matches fuzzy.Matches, start, end int, closed bool) {
	input := m.input.Value()

	start, end, closed, ok := nameBounds(input, byteOffset(input, m.input.Position()))
	if !ok || len(m.names) == 0 {
		return nil, start, end, closed
	}

	word := input[start:end]
	if word == "" {
		matches = make(fuzzy.Matches, len(m.names))
		for i, name := range m.names {
			matches[i] = fuzzy.Match{Str: name, Index: i}
		}

		return matches, start, end, closed
	}

	return fuzzy.Find(word, m.names), start, end, closed
}

// replaceName replaces the name being completed with name, closing the
// reference if needed, and moves the cursor past the closing brace.
func replaceName(m *model, name string) {
	input := m.input.Value()

	rest := input[m.nameEnd:]
	if !m.nameClosed {
		rest = "}" + rest
	}

	input = input[:m.nameStart] + name + rest

	m.input.SetValue(input)
	m.input.SetCursor(utf8.RuneCountInString(input[:m.nameStart+len(name)+1]))

	m.nameEnd = m.nameStart + len(name)
	m.nameClosed = true
}

// byteOffset converts the rune position used by the text input to a byte
// offset into s.
func byteOffset(s string, pos int) int {
	for i := range s {
		if pos == 0 {
			return i
		}

		pos--
	}

	return len(s)
}

// refreshMatches recomputes the completion candidates for the current input.
func refreshMatches(m *model) {
	m.matches, m.nameStart, m.nameEnd, m.nameClosed = m.computeMatches()

	if !m.tabActive {
		m.suggIdx = -1
	}
}

// renderCandidateBar builds the single-line completion bar, ellipsized to fit
// within width. The selected candidate is highlighted while tab-cycling.
func renderCandidateBar(
	matches fuzzy.Matches,
	suggIdx int,
	tabActive bool,
	width int,
) string {
	if len(matches) == 0 || width <= 0 {
		return ""
	}

	const sep = "  "

	sepWidth := lipgloss.Width(sep)
	ellipsis := hintStyle.Render("...")
	ellipsisWidth := lipgloss.Width(ellipsis)

	var b strings.Builder

	used := 0

	for i, match := range matches {
		rendered := renderCandidate(match, tabActive && i == suggIdx)

		entryWidth := lipgloss.Width(rendered)
		if i > 0 {
			entryWidth += sepWidth
		}

		if i > 0 && used+entryWidth+ellipsisWidth > width {
			b.WriteString(sep)
			b.WriteString(ellipsis)

			break
		}

		if i > 0 {
			b.WriteString(sep)
		}

		b.WriteString(rendered)

		used += entryWidth
	}

	return b.String()
}

// renderCandidate renders a single candidate with its matched characters
// highlighted.
func renderCandidate(match fuzzy.Match, selected bool) string {
	base, highlight := suggestionStyle, matchStyle
	if selected {
		base, highlight = selectedStyle, selectedMatchStyle
	}

	matched := make(map[int]bool, len(match.MatchedIndexes))
	for _, idx := range match.MatchedIndexes {
		matched[idx] = true
	}

	var b strings.Builder

	for i, r := range match.Str {
		if matched[i] {
			b.WriteString(highlight.Render(string(r)))
		} else {
			b.WriteString(base.Render(string(r)))
		}
	}

	return b.String()
}
