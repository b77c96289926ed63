// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package markdown

import (
	"strings"
	"testing"
)

func TestToHTML(t *testing.T) {
	out, err := ToHTML("# 标题\n\nHello **world**\n\n| a | b |\n|---|---|\n| 1 | 2 |\n")
	if err != nil {
		t.Fatalf("ToHTML: %v", err)
	}
	for _, want := range []string{"<h1", "<strong>world</strong>", "<table>"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestToHTMLDropsRawHTML(t *testing.T) {
	out, err := ToHTML("hi\n\n<script>alert(1)</script>\n")
	if err != nil {
		t.Fatalf("ToHTML: %v", err)
	}
	if strings.Contains(out, "<script>") {
		t.Errorf("raw script passed through: %s", out)
	}
}

func TestStripFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"markdown fence", "```markdown\n# Title\n\nBody\n```", "# Title\n\nBody"},
		{"bare fence", "```\nBody\n```", "Body"},
		{"no fence", "# Title", "# Title"},
		{"code fence kept", "```go\nfmt.Println()\n```", "```go\nfmt.Println()\n```"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripFence(tt.in); got != tt.want {
				t.Errorf("StripFence() = %q, want %q", got, tt.want)
			}
		})
	}
}
