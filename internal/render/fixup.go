// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package render

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// CenterFixDeclaration returns the inline style appended to items-center
// elements. Headless capture renders flex-centered text slightly high;
// nudging it down by offset pixels matches the on-screen preview.
func CenterFixDeclaration(offset int) string {
	return fmt.Sprintf("position: relative; top: %dpx", offset)
}

// FixCentering rewrites every element whose class list contains
// "items-center" so its inline style carries the centering nudge.
// Running it on its own output changes nothing.
func FixCentering(fragment string, offset int) (string, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), ctx)
	if err != nil {
		return "", fmt.Errorf("parse html fragment: %w", err)
	}

	decl := CenterFixDeclaration(offset)
	var b strings.Builder
	for _, n := range nodes {
		applyCenterFix(n, decl)
		if err := html.Render(&b, n); err != nil {
			return "", fmt.Errorf("render html fragment: %w", err)
		}
	}
	return b.String(), nil
}

func applyCenterFix(n *html.Node, decl string) {
	if n.Type == html.ElementNode && hasClass(n, "items-center") {
		setStyle(n, decl)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		applyCenterFix(c, decl)
	}
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, f := range strings.Fields(a.Val) {
			if f == class {
				return true
			}
		}
	}
	return false
}

func setStyle(n *html.Node, decl string) {
	for i, a := range n.Attr {
		if a.Key != "style" {
			continue
		}
		if strings.Contains(a.Val, decl) {
			return
		}
		existing := strings.TrimRight(strings.TrimSpace(a.Val), ";")
		if existing == "" {
			n.Attr[i].Val = decl
		} else {
			n.Attr[i].Val = existing + "; " + decl
		}
		return
	}
	n.Attr = append(n.Attr, html.Attribute{Key: "style", Val: decl})
}
