package probe

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

// ExtractName pulls the venue name out of a booking page: og:title when
// present, the <title> element otherwise. Platform chrome after "|" or "-"
// separators ("Carbone - New York, NY | Resy") is left in; normalization
// strips it during verification. Returns "" when neither is found or the
// body is not parseable HTML.
func ExtractName(body io.Reader) string {
	doc, err := html.Parse(body)
	if err != nil {
		return ""
	}

	var title string
	var ogTitle string

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "meta":
				var property, content string
				for _, attr := range n.Attr {
					switch attr.Key {
					case "property":
						property = attr.Val
					case "content":
						content = attr.Val
					}
				}
				if property == "og:title" && content != "" {
					ogTitle = content
				}
			case "title":
				if n.FirstChild != nil && n.FirstChild.Type == html.TextNode && title == "" {
					title = n.FirstChild.Data
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if ogTitle != "" {
				return
			}
			walk(c)
		}
	}
	walk(doc)

	name := ogTitle
	if name == "" {
		name = title
	}
	name = strings.TrimSpace(name)

	// cut platform chrome: "Carbone | Resy" -> "Carbone"
	if idx := strings.Index(name, "|"); idx >= 0 {
		name = strings.TrimSpace(name[:idx])
	}
	return name
}
