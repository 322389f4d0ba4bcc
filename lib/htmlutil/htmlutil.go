package htmlutil

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"chandir/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/net/html"
)

var tracer = otel.Tracer("chandir.lib.htmlutil")

func Parse(body string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// GetText concatenates every text node under node, separating nodes with a
// space so text from adjacent elements never runs together.
func GetText(node *html.Node) string {
	var buffer strings.Builder
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *strings.Builder) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		buffer.WriteByte(' ')
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) || unicode.IsSpace(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

const invisible = "script, style, noscript, template, svg"

// VisibleText returns the rendered text of the document: markup, scripts and
// styles removed, whitespace collapsed.
func VisibleText(ctx context.Context, doc *goquery.Document) string {
	_, span := tracer.Start(ctx, "VisibleText")
	defer span.End()

	root := doc.Selection.Clone()
	root.Find(invisible).Remove()

	var text strings.Builder
	for _, n := range root.Nodes {
		text.WriteString(GetText(n))
	}
	out := textutil.CollapseWhitespace(removeNonPrintable(text.String()))
	span.SetAttributes(attribute.Int("text_bytes", len(out)))
	return out
}

// MetaContent returns the content of the first <meta> whose property or name
// attribute is key.
func MetaContent(doc *goquery.Document, key string) string {
	selector := fmt.Sprintf(`meta[property=%q], meta[name=%q], meta[itemprop=%q]`, key, key, key)
	content, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(content)
}

// LinkHref returns the href of the first <link> with the given rel.
func LinkHref(doc *goquery.Document, rel string) string {
	href, _ := doc.Find(fmt.Sprintf(`link[rel=%q]`, rel)).First().Attr("href")
	return strings.TrimSpace(href)
}
