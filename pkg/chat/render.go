package chat

import (
	"bytes"
	"html"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// Rendered is a message ready for the page. Bubble is the chat bubble the
// message belongs in ("user" or "assistant").
type Rendered struct {
	Bubble  Role          `json:"role"`
	Kind    Kind          `json:"kind"`
	Content string        `json:"content"`
	HTML    template.HTML `json:"html"`
}

type renderFunc func(r *Renderer, msg Message) (Rendered, bool)

// Renderer converts messages to HTML by kind. Kinds without a render func
// produce nothing.
type Renderer struct {
	md    goldmark.Markdown
	kinds map[Kind]renderFunc
}

// NewRenderer returns a renderer that shows user prompts as plain text and
// assistant text as GitHub flavored markdown with raw HTML left out.
func NewRenderer() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
		),
		kinds: map[Kind]renderFunc{
			KindUserPrompt: renderUserPrompt,
			KindText:       renderText,
		},
	}
}

// Render renders a single message. The boolean is false when the message has
// no visible output.
func (r *Renderer) Render(msg Message) (Rendered, bool) {
	fn, ok := r.kinds[msg.Kind]
	if !ok {
		return Rendered{}, false
	}
	return fn(r, msg)
}

// RenderAll renders msgs in order, skipping records with no visible output.
// It never modifies msgs.
func (r *Renderer) RenderAll(msgs []Message) []Rendered {
	out := make([]Rendered, 0, len(msgs))
	for _, msg := range msgs {
		if rendered, ok := r.Render(msg); ok {
			out = append(out, rendered)
		}
	}
	return out
}

// Markdown converts src to HTML. On a conversion failure the escaped source is
// returned so the text still shows up.
func (r *Renderer) Markdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return template.HTML("<p>" + html.EscapeString(src) + "</p>")
	}
	return template.HTML(buf.String())
}

func renderUserPrompt(_ *Renderer, msg Message) (Rendered, bool) {
	escaped := strings.ReplaceAll(html.EscapeString(msg.Content), "\n", "<br>\n")
	return Rendered{
		Bubble:  RoleUser,
		Kind:    msg.Kind,
		Content: msg.Content,
		HTML:    template.HTML("<p>" + escaped + "</p>"),
	}, true
}

func renderText(r *Renderer, msg Message) (Rendered, bool) {
	return Rendered{
		Bubble:  RoleAssistant,
		Kind:    msg.Kind,
		Content: msg.Content,
		HTML:    r.Markdown(msg.Content),
	}, true
}
