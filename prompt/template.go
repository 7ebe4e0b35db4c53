// Package prompt parses and renders brace-delimited prompt templates such as
// "Write a {kind} quote.\n{format_instructions}". Literal braces are written
// as "{{" and "}}"; a lone brace that does not open a placeholder is kept as is.
package prompt

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/ByLCY/inkpost/binding"
)

var (
	templateLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Escape", Pattern: `\{\{|\}\}`},
		{Name: "Placeholder", Pattern: `\{[A-Za-z_][A-Za-z0-9_.\[\]]*\}`},
		{Name: "Text", Pattern: `[^{}]+`},
		{Name: "Brace", Pattern: `[{}]`},
	})

	templateParser = participle.MustBuild[Template](
		participle.Lexer(templateLexer),
	)
)

// Template is the parsed form of a prompt template.
type Template struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Parts []*Part        `parser:"@@*"`
}

// Part is one lexical piece of a template.
type Part struct {
	Escape      *string `parser:"  @Escape"`
	Placeholder *string `parser:"| @Placeholder"`
	Text        *string `parser:"| @Text"`
	Brace       *string `parser:"| @Brace"`
}

// Name returns the placeholder path without braces, or "" for literal parts.
func (p *Part) Name() string {
	if p == nil || p.Placeholder == nil {
		return ""
	}
	return strings.TrimSuffix(strings.TrimPrefix(*p.Placeholder, "{"), "}")
}

// Parse parses a template from a string.
func Parse(src string) (*Template, error) {
	tpl, err := templateParser.ParseString("", src)
	if err != nil {
		return nil, fmt.Errorf("parse prompt template: %w", err)
	}
	return tpl, nil
}

// Render substitutes placeholders with values looked up in data.
// Placeholders that cannot be resolved are written back unchanged so the
// result can be formatted again later.
func (t *Template) Render(data any) string {
	if t == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range t.Parts {
		switch {
		case p.Escape != nil:
			b.WriteString((*p.Escape)[:1])
		case p.Placeholder != nil:
			if val, ok := binding.Lookup(data, p.Name()); ok {
				b.WriteString(fmt.Sprint(val))
			} else {
				b.WriteString(*p.Placeholder)
			}
		case p.Text != nil:
			b.WriteString(*p.Text)
		case p.Brace != nil:
			b.WriteString(*p.Brace)
		}
	}
	return b.String()
}

// Placeholders lists the distinct placeholder names in order of first use.
func (t *Template) Placeholders() []string {
	if t == nil {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	for _, p := range t.Parts {
		name := p.Name()
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// Format parses src and renders it in one step.
func Format(src string, data any) (string, error) {
	tpl, err := Parse(src)
	if err != nil {
		return "", err
	}
	return tpl.Render(data), nil
}
