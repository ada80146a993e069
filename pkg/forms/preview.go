package forms

// Entry is one line of a preview.
type Entry struct {
	Key   string
	Value string
}

// Preview lists the truthy values named in order. Falsy values are left
// out; this is a display filter and enforces nothing.
func Preview(values Values, order []string) []Entry {
	entries := make([]Entry, 0, len(order))
	for _, key := range order {
		if !values.Truthy(key) {
			continue
		}
		entries = append(entries, Entry{Key: key, Value: values.String(key)})
	}
	return entries
}
