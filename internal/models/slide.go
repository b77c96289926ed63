// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

// Slide is one model-generated slide. Title, HTML and CSS are untrusted.
type Slide struct {
	Title string `json:"title"`
	HTML  string `json:"html"`
	CSS   string `json:"css"`
}

// Style is a named visual preset for content slides.
type Style string

const (
	StyleShockwave Style = "shockwave"
	StyleDiffuse   Style = "diffuse"
	StyleSticker   Style = "sticker"
	StyleJournal   Style = "journal"
	StyleCinema    Style = "cinema"
	StyleTech      Style = "tech"
	StyleMinimal   Style = "minimal"
	StyleMemo      Style = "memo"
	StyleGeek      Style = "geek"
)

// Styles lists every preset in display order.
var Styles = []Style{
	StyleShockwave, StyleDiffuse, StyleSticker, StyleJournal, StyleCinema,
	StyleTech, StyleMinimal, StyleMemo, StyleGeek,
}

// Valid reports whether s is a known preset.
func (s Style) Valid() bool {
	for _, v := range Styles {
		if v == s {
			return true
		}
	}
	return false
}

// EditorSettings controls how a slide deck is staged.
type EditorSettings struct {
	Style          Style  `json:"style"`
	FontFamily     string `json:"fontFamily"`
	TitleSize      int    `json:"titleSize"`
	ContentSize    int    `json:"contentSize"`
	BgColor        string `json:"bgColor"`
	TextColor      string `json:"textColor"`
	OverlayOpacity int    `json:"overlayOpacity"`
}

// DefaultEditorSettings returns the settings a new deck starts with.
func DefaultEditorSettings() EditorSettings {
	return EditorSettings{
		Style:          StyleMinimal,
		FontFamily:     "sans-serif",
		TitleSize:      32,
		ContentSize:    16,
		BgColor:        "#ffffff",
		TextColor:      "#000000",
		OverlayOpacity: 50,
	}
}

// EditorContent is the user's source text for a slide deck.
type EditorContent struct {
	MainTitle string `json:"mainTitle"`
	DateStr   string `json:"dateStr"`
	Author    string `json:"author"`
	BodyText  string `json:"bodyText"`
}

// Prompt flattens the content and style into the text sent to the model.
func (c EditorContent) Prompt(style Style) string {
	return "Title: " + c.MainTitle +
		"\nContext: " + c.DateStr +
		"\nAuthor: " + c.Author +
		"\nBody: " + c.BodyText +
		"\nStyle: " + string(style)
}
