// Package hub pulls chat prompt templates from a LangChain-compatible
// prompt registry and renders them into llm messages.
package hub

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/flowgraph/csagent/internal/llm"
)

var (
	ErrMissingVariable   = errors.New("prompt variable has no value")
	ErrUnbalancedBrace   = errors.New("unbalanced brace in template")
	ErrUnsupportedFormat = errors.New("unsupported template format")
	ErrUnsupportedPart   = errors.New("unsupported prompt message type")
)

// Kind of a prompt message
type Kind string

const (
	KindSystem      Kind = "system"
	KindHuman       Kind = "human"
	KindAI          Kind = "ai"
	KindPlaceholder Kind = "placeholder"
)

// PromptMessage is one templated turn, or a placeholder that is replaced
// by a list of messages at format time.
type PromptMessage struct {
	Kind     Kind
	Template string // f-string body; unused for placeholders
	Variable string // placeholder variable name
	Optional bool   // placeholder may be absent
}

// ChatPrompt is an ordered chat template
type ChatPrompt struct {
	Name           string
	Commit         string
	InputVariables []string
	Messages       []PromptMessage
}

// FormatMessages renders the prompt. vars fill template variables and
// placeholders supply message lists by variable name.
func (p *ChatPrompt) FormatMessages(vars map[string]string, placeholders map[string][]llm.Message) ([]llm.Message, error) {
	var out []llm.Message
	for i, m := range p.Messages {
		if m.Kind == KindPlaceholder {
			msgs, ok := placeholders[m.Variable]
			if !ok && !m.Optional {
				return nil, fmt.Errorf("message %d: %w: %s", i, ErrMissingVariable, m.Variable)
			}
			out = append(out, msgs...)
			continue
		}
		text, err := FormatFString(m.Template, vars)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		switch m.Kind {
		case KindSystem:
			out = append(out, llm.System(text))
		case KindHuman:
			out = append(out, llm.Human(text))
		case KindAI:
			out = append(out, llm.AI(text))
		default:
			return nil, fmt.Errorf("message %d: %w: %s", i, ErrUnsupportedPart, m.Kind)
		}
	}
	return out, nil
}

// PrettyPrint writes the template in the registry's console layout: a
// centred title bar per message followed by its template text.
func (p *ChatPrompt) PrettyPrint(w io.Writer) error {
	parts := make([]string, 0, len(p.Messages))
	for _, m := range p.Messages {
		var title, body string
		switch m.Kind {
		case KindSystem:
			title, body = "System Message", m.Template
		case KindHuman:
			title, body = "Human Message", m.Template
		case KindAI:
			title, body = "Ai Message", m.Template
		case KindPlaceholder:
			title, body = "Messages Placeholder", "{"+m.Variable+"}"
		default:
			title, body = string(m.Kind), m.Template
		}
		parts = append(parts, titleBar(title)+"\n\n"+body)
	}
	_, err := fmt.Fprintln(w, strings.Join(parts, "\n\n"))
	return err
}

func titleBar(title string) string {
	title = " " + title + " "
	n := (80 - len(title)) / 2
	if n < 0 {
		n = 0
	}
	sep := strings.Repeat("=", n)
	second := sep
	if len(title)%2 == 1 {
		second += "="
	}
	return sep + title + second
}

// FormatFString substitutes {name} fields from vars. Doubled braces are
// literal braces.
func FormatFString(template string, vars map[string]string) (string, error) {
	var b strings.Builder
	b.Grow(len(template))
	for i := 0; i < len(template); i++ {
		c := template[i]
		switch c {
		case '{':
			if i+1 < len(template) && template[i+1] == '{' {
				b.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(template[i+1:], '}')
			if end < 0 {
				return "", fmt.Errorf("%w at offset %d", ErrUnbalancedBrace, i)
			}
			name := strings.TrimSpace(template[i+1 : i+1+end])
			val, ok := vars[name]
			if !ok {
				return "", fmt.Errorf("%w: %s", ErrMissingVariable, name)
			}
			b.WriteString(val)
			i += end + 1
		case '}':
			if i+1 < len(template) && template[i+1] == '}' {
				b.WriteByte('}')
				i++
				continue
			}
			return "", fmt.Errorf("%w at offset %d", ErrUnbalancedBrace, i)
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

// Variables lists the {name} fields of an f-string template in order of
// first appearance.
func Variables(template string) []string {
	var out []string
	seen := map[string]bool{}
	for i := 0; i < len(template); i++ {
		if template[i] != '{' {
			continue
		}
		if i+1 < len(template) && template[i+1] == '{' {
			i++
			continue
		}
		end := strings.IndexByte(template[i+1:], '}')
		if end < 0 {
			break
		}
		name := strings.TrimSpace(template[i+1 : i+1+end])
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
		i += end + 1
	}
	return out
}
