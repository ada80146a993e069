package router

import (
	"hash/fnv"
	"strings"
)

const slotMarker = `data-slot="`

// extractSlots collects the inner content of every element carrying a
// data-slot attribute in one forward pass. Content containing markup goes
// to htmlSlots, plain text to textSlots. Nested slots are reported both on
// their own and inside their parent.
func extractSlots(html string) (textSlots, htmlSlots map[string]string) {
	textSlots = make(map[string]string)
	htmlSlots = make(map[string]string)

	n := len(html)
	pos := 0
	for pos < n {
		idx := strings.Index(html[pos:], slotMarker)
		if idx == -1 {
			break
		}
		idStart := pos + idx + len(slotMarker)
		idLen := strings.IndexByte(html[idStart:], '"')
		if idLen == -1 {
			break
		}
		id := html[idStart : idStart+idLen]

		tagStart := pos + idx
		for tagStart > 0 && html[tagStart] != '<' {
			tagStart--
		}
		tagEnd := tagStart + 1
		for tagEnd < n && !isTagNameEnd(html[tagEnd]) {
			tagEnd++
		}
		tag := html[tagStart+1 : tagEnd]

		gt := strings.IndexByte(html[idStart+idLen:], '>')
		if gt == -1 {
			break
		}
		contentStart := idStart + idLen + gt + 1

		contentEnd := matchClose(html, contentStart, tag)
		if contentEnd == -1 {
			pos = contentStart
			continue
		}

		content := strings.TrimSpace(html[contentStart:contentEnd])
		if strings.ContainsAny(content, "<>") {
			htmlSlots[id] = content
		} else {
			textSlots[id] = content
		}
		// Continue inside the slot so nested slots are found too.
		pos = contentStart
	}
	return textSlots, htmlSlots
}

// matchClose returns the index of the close tag balancing an open tag whose
// content starts at from, or -1.
func matchClose(html string, from int, tag string) int {
	open := "<" + tag
	closing := "</" + tag
	depth := 1
	pos := from
	for pos < len(html) {
		nextClose := strings.Index(html[pos:], closing)
		if nextClose == -1 {
			return -1
		}
		nextClose += pos

		nextOpen := strings.Index(html[pos:nextClose], open)
		if nextOpen != -1 {
			nextOpen += pos
			after := nextOpen + len(open)
			if after < len(html) && isTagNameEnd(html[after]) {
				depth++
			}
			pos = after
			continue
		}

		depth--
		if depth == 0 {
			return nextClose
		}
		pos = nextClose + len(closing)
	}
	return -1
}

func isTagNameEnd(c byte) bool {
	return c == ' ' || c == '>' || c == '/' || c == '\t' || c == '\n' || c == '\r'
}

func hashSlot(content string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(content))
	return h.Sum64()
}
