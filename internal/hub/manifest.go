package hub

import (
	"encoding/json"
	"fmt"
	"strings"
)

// lcObject is the serialized constructor form used by the registry
type lcObject struct {
	LC     int             `json:"lc"`
	Type   string          `json:"type"`
	ID     []string        `json:"id"`
	Kwargs json.RawMessage `json:"kwargs"`
}

func (o lcObject) class() string {
	if len(o.ID) == 0 {
		return ""
	}
	return o.ID[len(o.ID)-1]
}

type chatPromptKwargs struct {
	InputVariables []string   `json:"input_variables"`
	Messages       []lcObject `json:"messages"`
}

type templateKwargs struct {
	Template       string   `json:"template"`
	TemplateFormat string   `json:"template_format"`
	InputVariables []string `json:"input_variables"`
}

type messageTemplateKwargs struct {
	Prompt lcObject `json:"prompt"`
}

type placeholderKwargs struct {
	VariableName string `json:"variable_name"`
	Optional     bool   `json:"optional"`
}

type literalKwargs struct {
	Content string `json:"content"`
}

// DecodeManifest turns a serialized ChatPromptTemplate (or a bare
// PromptTemplate, read as one human message) into a ChatPrompt.
func DecodeManifest(raw json.RawMessage) (*ChatPrompt, error) {
	var root lcObject
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedShape, err)
	}

	switch root.class() {
	case "ChatPromptTemplate":
		var kw chatPromptKwargs
		if err := json.Unmarshal(root.Kwargs, &kw); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedShape, err)
		}
		p := &ChatPrompt{InputVariables: kw.InputVariables}
		for i, m := range kw.Messages {
			pm, err := decodeMessage(m)
			if err != nil {
				return nil, fmt.Errorf("message %d: %w", i, err)
			}
			p.Messages = append(p.Messages, pm)
		}
		return p, nil
	case "PromptTemplate":
		tmpl, err := decodeTemplate(root)
		if err != nil {
			return nil, err
		}
		return &ChatPrompt{
			InputVariables: Variables(tmpl),
			Messages:       []PromptMessage{{Kind: KindHuman, Template: tmpl}},
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedShape, strings.Join(root.ID, "."))
	}
}

func decodeMessage(o lcObject) (PromptMessage, error) {
	switch o.class() {
	case "MessagesPlaceholder":
		var kw placeholderKwargs
		if err := json.Unmarshal(o.Kwargs, &kw); err != nil {
			return PromptMessage{}, err
		}
		return PromptMessage{Kind: KindPlaceholder, Variable: kw.VariableName, Optional: kw.Optional}, nil
	case "SystemMessagePromptTemplate", "HumanMessagePromptTemplate", "AIMessagePromptTemplate":
		var kw messageTemplateKwargs
		if err := json.Unmarshal(o.Kwargs, &kw); err != nil {
			return PromptMessage{}, err
		}
		tmpl, err := decodeTemplate(kw.Prompt)
		if err != nil {
			return PromptMessage{}, err
		}
		return PromptMessage{Kind: kindOf(o.class()), Template: tmpl}, nil
	case "SystemMessage", "HumanMessage", "AIMessage":
		var kw literalKwargs
		if err := json.Unmarshal(o.Kwargs, &kw); err != nil {
			return PromptMessage{}, err
		}
		return PromptMessage{Kind: kindOf(o.class()), Template: escapeBraces(kw.Content)}, nil
	default:
		return PromptMessage{}, fmt.Errorf("%w: %s", ErrUnsupportedPart, o.class())
	}
}

func decodeTemplate(o lcObject) (string, error) {
	if o.class() != "PromptTemplate" {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedPart, o.class())
	}
	var kw templateKwargs
	if err := json.Unmarshal(o.Kwargs, &kw); err != nil {
		return "", err
	}
	if kw.TemplateFormat != "" && kw.TemplateFormat != "f-string" {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, kw.TemplateFormat)
	}
	return kw.Template, nil
}

func kindOf(class string) Kind {
	switch {
	case strings.HasPrefix(class, "System"):
		return KindSystem
	case strings.HasPrefix(class, "AI"):
		return KindAI
	default:
		return KindHuman
	}
}

func escapeBraces(s string) string {
	return strings.NewReplacer("{", "{{", "}", "}}").Replace(s)
}
