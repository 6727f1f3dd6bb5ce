// Package opml handles importing and exporting subscription lists as OPML.
package opml

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"
)

// OPML represents the root of an OPML document.
type OPML struct {
	XMLName xml.Name `xml:"opml"`
	Version string   `xml:"version,attr"`
	Head    Head     `xml:"head"`
	Body    Body     `xml:"body"`
}

// Head contains OPML metadata.
type Head struct {
	Title       string `xml:"title,omitempty"`
	DateCreated string `xml:"dateCreated,omitempty"`
}

// Body contains the outlines.
type Body struct {
	Outlines []Outline `xml:"outline"`
}

// Outline represents a single outline element (folder or feed).
type Outline struct {
	Text     string    `xml:"text,attr"`
	Title    string    `xml:"title,attr,omitempty"`
	Type     string    `xml:"type,attr,omitempty"`
	XMLURL   string    `xml:"xmlUrl,attr,omitempty"`
	HTMLURL  string    `xml:"htmlUrl,attr,omitempty"`
	Outlines []Outline `xml:"outline,omitempty"`
}

// Entry is a single feed of an OPML document. Folders are flattened.
type Entry struct {
	Title   string
	FeedURL string
	HTMLURL string
}

// Parse reads an OPML document and returns its feeds in document order.
// Feeds listed more than once are returned once.
func Parse(r io.Reader) ([]Entry, error) {
	var doc OPML
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode opml: %w", err)
	}

	var entries []Entry
	seen := make(map[string]bool)
	var walk func(outlines []Outline)
	walk = func(outlines []Outline) {
		for _, o := range outlines {
			if u := strings.TrimSpace(o.XMLURL); u != "" {
				if seen[u] {
					continue
				}
				seen[u] = true
				title := o.Title
				if title == "" {
					title = o.Text
				}
				entries = append(entries, Entry{Title: strings.TrimSpace(title), FeedURL: u, HTMLURL: o.HTMLURL})
				continue
			}
			walk(o.Outlines)
		}
	}
	walk(doc.Body.Outlines)
	return entries, nil
}

// Export generates an OPML document listing entries at the top level.
func Export(title string, entries []Entry, created time.Time) ([]byte, error) {
	doc := OPML{
		Version: "2.0",
		Head: Head{
			Title:       title,
			DateCreated: created.UTC().Format(time.RFC1123Z),
		},
	}
	for _, e := range entries {
		doc.Body.Outlines = append(doc.Body.Outlines, Outline{
			Text:    e.Title,
			Title:   e.Title,
			Type:    "rss",
			XMLURL:  e.FeedURL,
			HTMLURL: e.HTMLURL,
		})
	}

	output, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode opml: %w", err)
	}
	return append([]byte(xml.Header), output...), nil
}
