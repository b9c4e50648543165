// Package opml decodes and encodes OPML subscription lists. Category
// nesting round-trips: outlines without an xmlUrl are treated as category
// nodes, outlines with one as feed subscriptions.
package opml

import (
	"encoding/xml"
	"errors"
	"fmt"
)

type FeedEntry struct {
	Title   string
	XMLURL  string
	HTMLURL string
}

// Node is a category in the subscription tree.
type Node struct {
	Name     string
	Children []*Node
	Feeds    []*FeedEntry
}

// Tree is a decoded subscription list: root-level categories plus feeds
// that sit outside any category.
type Tree struct {
	Categories []*Node
	Feeds      []*FeedEntry
}

type opmlDocument struct {
	XMLName xml.Name `xml:"opml"`
	Version string   `xml:"version,attr"`
	Head    opmlHead `xml:"head"`
	Body    opmlBody `xml:"body"`
}

type opmlHead struct {
	Title string `xml:"title,omitempty"`
}

type opmlBody struct {
	Outlines []opmlOutline `xml:"outline"`
}

type opmlOutline struct {
	Text     string        `xml:"text,attr"`
	Title    string        `xml:"title,attr,omitempty"`
	Type     string        `xml:"type,attr,omitempty"`
	XMLURL   string        `xml:"xmlUrl,attr,omitempty"`
	HTMLURL  string        `xml:"htmlUrl,attr,omitempty"`
	Children []opmlOutline `xml:"outline"`
}

func Decode(data []byte) (*Tree, error) {
	var doc opmlDocument
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing OPML: %w", err)
	}

	tree := &Tree{}
	for _, outline := range doc.Body.Outlines {
		collectOutline(tree, nil, outline)
	}
	if len(tree.Feeds) == 0 && len(tree.Categories) == 0 {
		return nil, errors.New("no feeds found in OPML")
	}
	return tree, nil
}

func collectOutline(tree *Tree, parent *Node, outline opmlOutline) {
	if outline.XMLURL != "" {
		entry := &FeedEntry{
			Title:   firstNonEmpty(outline.Title, outline.Text, outline.XMLURL),
			XMLURL:  outline.XMLURL,
			HTMLURL: outline.HTMLURL,
		}
		if parent != nil {
			parent.Feeds = append(parent.Feeds, entry)
		} else {
			tree.Feeds = append(tree.Feeds, entry)
		}
		// Feeds with child outlines are malformed OPML; children are still
		// collected under the same parent rather than dropped.
		for _, child := range outline.Children {
			collectOutline(tree, parent, child)
		}
		return
	}

	node := &Node{Name: firstNonEmpty(outline.Title, outline.Text, "Untitled")}
	if parent != nil {
		parent.Children = append(parent.Children, node)
	} else {
		tree.Categories = append(tree.Categories, node)
	}
	for _, child := range outline.Children {
		collectOutline(tree, node, child)
	}
}

func Encode(tree *Tree) ([]byte, error) {
	doc := opmlDocument{
		Version: "2.0",
		Head:    opmlHead{Title: "skim subscriptions"},
	}
	for _, cat := range tree.Categories {
		doc.Body.Outlines = append(doc.Body.Outlines, encodeNode(cat))
	}
	for _, feed := range tree.Feeds {
		doc.Body.Outlines = append(doc.Body.Outlines, encodeFeed(feed))
	}

	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding OPML: %w", err)
	}
	return append([]byte(xml.Header), data...), nil
}

func encodeNode(node *Node) opmlOutline {
	outline := opmlOutline{Text: node.Name, Title: node.Name}
	for _, child := range node.Children {
		outline.Children = append(outline.Children, encodeNode(child))
	}
	for _, feed := range node.Feeds {
		outline.Children = append(outline.Children, encodeFeed(feed))
	}
	return outline
}

func encodeFeed(feed *FeedEntry) opmlOutline {
	return opmlOutline{
		Text:    feed.Title,
		Title:   feed.Title,
		Type:    "rss",
		XMLURL:  feed.XMLURL,
		HTMLURL: feed.HTMLURL,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
