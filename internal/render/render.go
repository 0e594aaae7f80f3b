// Package render turns a conversation into a standalone HTML transcript.
// Message text is treated as Markdown, rendered with goldmark and sanitized
// with bluemonday before it reaches the page.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/youssefsiam38/agentscope/types"
)

var (
	markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))
	policy   = bluemonday.UGCPolicy()
)

func init() {
	policy.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).OnElements("code", "pre")
}

// Markdown renders md to sanitized HTML
func Markdown(md string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return template.HTML(policy.SanitizeBytes(buf.Bytes())), nil
}

// Transcript is the data of one rendered page
type Transcript struct {
	Title   string
	Summary string
	Msgs    []*types.Msg

	// Marks maps message ids to their marks, shown next to each message
	Marks map[string][]string
}

type blockView struct {
	Kind  string
	Label string
	Body  template.HTML
	Code  string
}

type msgView struct {
	ID        string
	Name      string
	Role      string
	Timestamp string
	Marks     []string
	Blocks    []blockView
}

type pageView struct {
	Title   string
	Summary template.HTML
	Msgs    []msgView
}

// Write renders t as an HTML document to w
func Write(w io.Writer, t Transcript) error {
	page := pageView{Title: t.Title}
	if page.Title == "" {
		page.Title = "Conversation"
	}
	if t.Summary != "" {
		html, err := Markdown(t.Summary)
		if err != nil {
			return err
		}
		page.Summary = html
	}

	for _, msg := range t.Msgs {
		view := msgView{
			ID:        msg.ID,
			Name:      msg.Name,
			Role:      string(msg.Role),
			Timestamp: msg.Timestamp,
			Marks:     t.Marks[msg.ID],
		}
		for _, b := range msg.Content.Blocks() {
			bv, err := renderBlock(b)
			if err != nil {
				return fmt.Errorf("message %s: %w", msg.ID, err)
			}
			view.Blocks = append(view.Blocks, bv)
		}
		page.Msgs = append(page.Msgs, view)
	}

	return pageTemplate.Execute(w, page)
}

func renderBlock(b types.Block) (blockView, error) {
	switch b.Type {
	case types.BlockText:
		body, err := Markdown(b.Text)
		return blockView{Kind: "text", Body: body}, err
	case types.BlockThinking:
		body, err := Markdown(b.Thinking)
		return blockView{Kind: "thinking", Label: "thinking", Body: body}, err
	case types.BlockToolUse:
		return blockView{Kind: "tool", Label: "call " + b.Name, Code: string(b.Input)}, nil
	case types.BlockToolResult:
		var out string
		if b.Output != nil {
			out = b.Output.JoinedText()
		}
		return blockView{Kind: "tool", Label: "result " + b.Name, Code: out}, nil
	default:
		var ref string
		if b.Source != nil {
			ref = b.Source.URL
			if ref == "" {
				ref = b.Source.MediaType
			}
		}
		return blockView{Kind: "media", Label: string(b.Type), Code: ref}, nil
	}
}

var pageTemplate = template.Must(template.New("transcript").Funcs(template.FuncMap{
	"join": strings.Join,
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: system-ui, sans-serif; max-width: 48rem; margin: 2rem auto; }
.msg { border-left: 3px solid #ccc; padding: 0.25rem 1rem; margin: 1rem 0; }
.msg.user { border-color: #2563eb; }
.msg.assistant { border-color: #16a34a; }
.meta { color: #666; font-size: 0.85rem; }
.summary { background: #f5f5f4; padding: 0.5rem 1rem; }
.thinking { color: #555; font-style: italic; }
pre { background: #f4f4f5; padding: 0.5rem; overflow-x: auto; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
{{if .Summary}}<section class="summary"><h2>Summary</h2>{{.Summary}}</section>{{end}}
{{range .Msgs}}<article class="msg {{.Role}}" id="msg-{{.ID}}">
<div class="meta">{{.Name}} ({{.Role}}) {{.Timestamp}}{{if .Marks}} [{{join .Marks ", "}}]{{end}}</div>
{{range .Blocks}}{{if eq .Kind "text"}}{{.Body}}{{else if eq .Kind "thinking"}}<div class="thinking">{{.Body}}</div>{{else}}<div class="{{.Kind}}"><strong>{{.Label}}</strong>{{if .Code}}<pre>{{.Code}}</pre>{{end}}</div>{{end}}
{{end}}</article>
{{end}}</body>
</html>
`))
