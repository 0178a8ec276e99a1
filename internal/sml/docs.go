// ABOUTME: Renders a registry snapshot as Markdown and HTML reference docs
// ABOUTME: HTML conversion uses goldmark with GitHub-flavored tables

package sml

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderDocs renders m as Markdown.
func RenderDocs(m Meta) string {
	var b strings.Builder

	b.WriteString("# Operations\n\n")
	if len(m.Domains) == 0 {
		b.WriteString("_No operations registered._\n\n")
	}
	for _, domain := range m.Domains {
		fmt.Fprintf(&b, "## %s\n\n", domain)
		for _, op := range collect(m.Tree[domain]) {
			writeOperation(&b, op, m.Visibility[op.Path])
		}
	}

	if len(m.Events) > 0 {
		b.WriteString("# Events\n\n")
		b.WriteString("| Event | Type | Description |\n|---|---|---|\n")
		for _, ev := range m.Events {
			fmt.Fprintf(&b, "| `%s` | %s | %s |\n", ev.Path, ev.Type, escapeCell(ev.Description))
		}
		b.WriteString("\n")
	}

	return b.String()
}

// RenderDocsHTML renders m as an HTML fragment.
func RenderDocsHTML(m Meta) ([]byte, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(RenderDocs(m)), &buf); err != nil {
		return nil, fmt.Errorf("converting docs markdown: %w", err)
	}
	return buf.Bytes(), nil
}

func writeOperation(b *strings.Builder, op *OperationMeta, vis Visibility) {
	fmt.Fprintf(b, "### `%s`\n\n", op.Path)
	if vis != "" {
		fmt.Fprintf(b, "Visibility: **%s**\n\n", vis)
	}
	if op.Description != "" {
		fmt.Fprintf(b, "%s\n\n", op.Description)
	}
	if len(op.Params) > 0 {
		b.WriteString("| Param | Type | Required | Description |\n|---|---|---|---|\n")
		for _, name := range slices.Sorted(maps.Keys(op.Params)) {
			p := op.Params[name]
			typ := string(p.Type)
			if len(p.Enum) > 0 {
				typ = fmt.Sprintf("%s (one of %v)", typ, p.Enum)
			}
			if p.Nullable {
				typ += ", nullable"
			}
			fmt.Fprintf(b, "| `%s` | %s | %t | %s |\n", name, escapeCell(typ), p.Required, escapeCell(p.Description))
		}
		b.WriteString("\n")
	}
	if op.Returns != "" {
		fmt.Fprintf(b, "Returns: `%s`\n\n", op.Returns)
	}
}

// collect returns the operations below node in path order.
func collect(node *Node) []*OperationMeta {
	if node == nil {
		return nil
	}
	var out []*OperationMeta
	if node.Operation != nil {
		out = append(out, node.Operation)
	}
	for _, key := range slices.Sorted(maps.Keys(node.Children)) {
		out = append(out, collect(node.Children[key])...)
	}
	return out
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
