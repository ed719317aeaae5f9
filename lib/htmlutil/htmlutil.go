package htmlutil

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

func collectStrings(node *html.Node, out *[]string) {
	if node == nil {
		return
	}
	switch node.Type {
	case html.TextNode:
		trimmed := strings.TrimSpace(node.Data)
		if trimmed != "" {
			*out = append(*out, trimmed)
		}
		return
	case html.ElementNode:
		if node.Data == "script" || node.Data == "style" {
			return
		}
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		collectStrings(child, out)
	}
}

// StrippedText joins every non-blank text node under the selection with a
// single space, each text node trimmed of surrounding whitespace.
func StrippedText(sel *goquery.Selection) string {
	var parts []string
	for _, n := range sel.Nodes {
		collectStrings(n, &parts)
	}
	return strings.Join(parts, " ")
}

// InputValue returns the value of the first <input> with the given name, or
// an empty string if there is no such input.
func InputValue(doc *goquery.Document, name string) string {
	selector := fmt.Sprintf(`input[name=%q]`, name)
	return doc.Find(selector).First().AttrOr("value", "")
}

// InputValues looks up several inputs at once, see InputValue.
func InputValues(doc *goquery.Document, names ...string) map[string]string {
	out := make(map[string]string, len(names))
	for _, name := range names {
		out[name] = InputValue(doc, name)
	}
	return out
}
