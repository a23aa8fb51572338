// Package dashboard fills the labs list of a dashboard page from the labs
// endpoint.
package dashboard

import (
	"bytes"
	"context"
	"strings"

	"lab-booking/internal/domain"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	DashboardID = "dashboard"
	LabsListID  = "labsList"
)

// Skeleton is the smallest document Populate will act on.
const Skeleton = `<!DOCTYPE html>
<html><head><title>Dashboard</title></head>
<body><main id="dashboard"><h1>Available labs</h1><ul id="labsList"></ul></main></body></html>`

type Populator struct {
	fetcher Fetcher
	logger  zerolog.Logger
}

func NewPopulator(fetcher Fetcher, logger zerolog.Logger) *Populator {
	return &Populator{fetcher: fetcher, logger: logger}
}

// Populate appends one <li> per lab to the labsList element, in the order the
// fetcher returns them. It only acts when the document has a dashboard
// element. Fetch failures are logged and leave the document untouched; they
// are never returned. The result is the number of items appended.
func (p *Populator) Populate(ctx context.Context, doc *html.Node) int {
	if FindByID(doc, DashboardID) == nil {
		return 0
	}

	labs, err := p.fetcher.FetchLabs(ctx)
	if err != nil {
		p.logger.Error().Err(err).Msg("Error fetching labs")
		return 0
	}

	list := FindByID(doc, LabsListID)
	if list == nil {
		p.logger.Error().Str("id", LabsListID).Msg("Error fetching labs: list element missing")
		return 0
	}

	for _, lab := range labs {
		list.AppendChild(listItem(lab.Name))
	}
	return len(labs)
}

func listItem(text string) *html.Node {
	li := &html.Node{Type: html.ElementNode, Data: "li", DataAtom: atom.Li}
	li.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return li
}

// FindByID walks the tree depth-first and returns the first element whose id
// attribute equals id.
func FindByID(n *html.Node, id string) *html.Node {
	if n == nil {
		return nil
	}
	if n.Type == html.ElementNode {
		for _, a := range n.Attr {
			if a.Key == "id" && a.Val == id {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := FindByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

// ListItems returns the text of each <li> directly under the element with id.
func ListItems(doc *html.Node, id string) []string {
	list := FindByID(doc, id)
	if list == nil {
		return nil
	}
	var items []string
	for c := list.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Li {
			items = append(items, textContent(c))
		}
	}
	return items
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func Parse(doc string) (*html.Node, error) {
	return html.Parse(strings.NewReader(doc))
}

func Render(doc *html.Node) (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderList formats labs as a plain text list, one name per line.
func RenderList(labs []domain.LabSummary) string {
	var sb strings.Builder
	for _, lab := range labs {
		sb.WriteString("- ")
		sb.WriteString(lab.Name)
		sb.WriteByte('\n')
	}
	return sb.String()
}
