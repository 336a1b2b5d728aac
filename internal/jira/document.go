package jira

import "strings"

// Document is an Atlassian Document Format rich-text body, decoded once
// at the API boundary instead of walked as loose maps at each call site.
// Only the node types this engine reads or writes are modeled.
type Document struct {
	Type    string `json:"type"`
	Version int    `json:"version,omitempty"`
	Content []Node `json:"content,omitempty"`
}

// Node is a tagged ADF node: a container ("paragraph", "bulletList", …)
// or a leaf text run ("text").
type Node struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	Content []Node `json:"content,omitempty"`
}

// PlainText flattens the document to plain text by concatenating all
// leaf text nodes, with paragraph breaks rendered as newlines.
func (d *Document) PlainText() string {
	if d == nil {
		return ""
	}
	var b strings.Builder
	for i, n := range d.Content {
		if i > 0 {
			b.WriteString("\n")
		}
		writeNodeText(&b, n)
	}
	return b.String()
}

func writeNodeText(b *strings.Builder, n Node) {
	if n.Type == "text" {
		b.WriteString(n.Text)
		return
	}
	for _, c := range n.Content {
		writeNodeText(b, c)
	}
}

// NewDocument wraps plain text in a single-paragraph ADF document, the
// shape the work-log create endpoint expects for comments.
func NewDocument(text string) *Document {
	return &Document{
		Type:    "doc",
		Version: 1,
		Content: []Node{
			{
				Type:    "paragraph",
				Content: []Node{{Type: "text", Text: text}},
			},
		},
	}
}
