package synth

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/insightforge/company-intel/internal/model"
)

// headerForSection converts a section key to the header form the model is
// asked to emit: "value_proposition" -> "Value Proposition".
func headerForSection(name string) string {
	words := strings.Split(name, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// ParseSections extracts the declared sections from generated text. Lines of
// the form "Header: content" open a section; following lines and bullets
// accumulate into the open section. If no header matches at all, the whole
// text becomes the first declared section. Empty output is an error.
func ParseSections(text string, declared []string) ([]model.Section, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, eris.New("synth: empty generation result")
	}
	if len(declared) == 0 {
		return nil, eris.New("synth: no sections declared")
	}

	// Map of normalized header -> declared key.
	headers := make(map[string]string, len(declared))
	for _, name := range declared {
		headers[strings.ToLower(headerForSection(name))] = name
	}

	content := make(map[string]*strings.Builder, len(declared))
	var current string

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if key, rest, ok := matchHeader(line, headers); ok {
			current = key
			if content[key] == nil {
				content[key] = &strings.Builder{}
			}
			appendLine(content[key], rest)
			continue
		}

		if current != "" {
			appendLine(content[current], line)
		}
	}

	// No recognizable structure: attribute everything to the lead section.
	if len(content) == 0 {
		content[declared[0]] = &strings.Builder{}
		content[declared[0]].WriteString(text)
	}

	sections := make([]model.Section, 0, len(declared))
	nonEmpty := 0
	for _, name := range declared {
		var c string
		if b, ok := content[name]; ok {
			c = strings.TrimSpace(b.String())
		}
		if c != "" {
			nonEmpty++
		}
		sections = append(sections, model.Section{Name: name, Content: c})
	}
	if nonEmpty == 0 {
		return nil, eris.New("synth: generation result has no usable sections")
	}
	return sections, nil
}

// matchHeader checks whether a line opens a declared section. Markdown
// decoration around the header is tolerated.
func matchHeader(line string, headers map[string]string) (key, rest string, ok bool) {
	i := strings.IndexByte(line, ':')
	if i < 0 {
		return "", "", false
	}
	head := strings.ToLower(strings.Trim(line[:i], "#* \t"))
	key, ok = headers[head]
	if !ok {
		return "", "", false
	}
	return key, strings.TrimSpace(line[i+1:]), true
}

func appendLine(b *strings.Builder, line string) {
	if line == "" {
		return
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	b.WriteString(line)
}
