package render

import "strings"

// Section is a "### " headed block of an assistant message.
type Section struct {
	Title string
	Body  string
}

// Sections splits text at "### " headings. Text before the first heading is
// dropped; a message without headings yields no sections.
func Sections(text string) []Section {
	var ret []Section
	var current *Section
	var body []string
	flush := func() {
		if current == nil {
			return
		}
		current.Body = strings.TrimSpace(strings.Join(body, "\n"))
		ret = append(ret, *current)
	}
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if strings.HasPrefix(line, "### ") {
			flush()
			current = &Section{Title: strings.TrimPrefix(line, "### ")}
			body = nil
			continue
		}
		if current == nil {
			continue
		}
		body = append(body, raw)
	}
	flush()
	return ret
}
