package sanitize

import (
	"strings"
	"testing"
)

func TestTextStripsMarkup(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "hello", want: "hello"},
		{name: "empty", input: "", want: ""},
		{name: "script body dropped", input: "<script>alert(1)</script>hi", want: "hi"},
		{name: "style body dropped", input: "<style>body{color:red}</style>ok", want: "ok"},
		{name: "inline tags", input: "<b>bold</b> and <i>italic</i>", want: "bold and italic"},
		{name: "attributes", input: `<a href="javascript:alert(1)" onclick="x()">link</a>`, want: "link"},
		{name: "image", input: `<img src=x onerror=alert(1)>caption`, want: "caption"},
		{name: "unclosed tag", input: "<div>open", want: "open"},
		{name: "quotes kept", input: `it's "quoted"`, want: `it's "quoted"`},
		{name: "quotes beside markup", input: `Bob's "day" & <b>x</b>`, want: `Bob's "day" &amp; x`},
		{name: "quote entities decoded", input: "&#39;single&#34;", want: `'single"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Text(tt.input); got != tt.want {
				t.Errorf("Text(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTextLeavesNoTags(t *testing.T) {
	inputs := []string{
		"<script>alert(1)</script>hi",
		"<<script>>x",
		"<svg><g onload=alert(1)></g></svg>",
		"<p>para<br/>line</p>",
	}
	for _, in := range inputs {
		out := Text(in)
		if strings.Contains(out, "<") || strings.Contains(out, ">") {
			t.Errorf("Text(%q) = %q still contains angle brackets", in, out)
		}
	}
}

func TestTextIdempotent(t *testing.T) {
	inputs := []string{
		"hello",
		"<script>alert(1)</script>hi",
		"fish & chips",
		"a < b > c",
		"&lt;b&gt;not a tag&lt;/b&gt;",
		"<<b>>nested",
		`it's "quoted"`,
		"&#39;&#34;&amp;#39;",
		"<div><span>deep</span></div>",
		"emoji 🎉 <i>ok</i>",
	}

	for _, in := range inputs {
		once := Text(in)
		twice := Text(once)
		if once != twice {
			t.Errorf("not idempotent for %q: once=%q twice=%q", in, once, twice)
		}
	}
}
