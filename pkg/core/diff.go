package core

// DiffPayload is what the browser receives after an event. Slots replace
// the text of data-slot elements, HTMLSlots replace their inner HTML and
// Full replaces the whole live root when the slot layout itself changed.
type DiffPayload struct {
	Version   uint64            `json:"v"`
	Slots     map[string]string `json:"s,omitempty"`
	HTMLSlots map[string]string `json:"h,omitempty"`
	Full      string            `json:"f,omitempty"`
}

func (d *DiffPayload) IsEmpty() bool {
	return len(d.Slots) == 0 && len(d.HTMLSlots) == 0 && d.Full == ""
}

// Size counts content bytes, keys excluded.
func (d *DiffPayload) Size() int {
	n := len(d.Full)
	for _, group := range []map[string]string{d.Slots, d.HTMLSlots} {
		for _, content := range group {
			n += len(content)
		}
	}
	return n
}

// Wire returns the event payload: v always, s, h and f only when present.
func (d *DiffPayload) Wire() map[string]any {
	msg := map[string]any{"v": d.Version}
	if len(d.Slots) > 0 {
		msg["s"] = d.Slots
	}
	if len(d.HTMLSlots) > 0 {
		msg["h"] = d.HTMLSlots
	}
	if d.Full != "" {
		msg["f"] = d.Full
	}
	return msg
}
