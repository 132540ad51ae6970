package cleaning

import "testing"

func TestBasicClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"html and url",
			"I <b>love</b> this! https://example.com",
			"i love this!",
		},
		{
			"entities",
			"cats &amp; dogs",
			"cats & dogs",
		},
		{
			"www url",
			"visit www.example.com now",
			"visit now",
		},
		{
			"space before punctuation",
			"hello , world !",
			"hello, world!",
		},
		{
			"whitespace collapse",
			"  a\t\tb\n\nc  ",
			"a b c",
		},
		{
			"lowercasing",
			"YOU ARE Nice",
			"you are nice",
		},
		{
			"fullwidth folded",
			"ｈｅｌｌｏ",
			"hello",
		},
		{"empty", "", ""},
		{"only url", "http://a.b/c", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BasicClean(tt.in); got != tt.want {
				t.Errorf("BasicClean(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestBasicCleanDeterministic(t *testing.T) {
	in := "Some <i>mixed</i> TEXT https://x.y !"
	first := BasicClean(in)
	for i := 0; i < 5; i++ {
		if got := BasicClean(in); got != first {
			t.Fatalf("BasicClean not deterministic: %q vs %q", got, first)
		}
	}
}

func TestStripHTML(t *testing.T) {
	if got := StripHTML("<p>hi</p>"); got != " hi " {
		t.Errorf("StripHTML = %q, want %q", got, " hi ")
	}
}
