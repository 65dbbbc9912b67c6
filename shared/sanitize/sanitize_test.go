package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Empty", "", ""},
		{"Plain", "just text", "just text"},
		{"Line breaks", "first<br>second<BR/>third<br />fourth", "first\nsecond\nthird\nfourth"},
		{"Strips tags", `<b>bold</b> and <a href="https://youtube.com/watch?v=x&amp;t=1">link</a>`, "bold and link"},
		{"Named entities", "&quot;hi&quot; &amp; it&#39;s &lt;3", `"hi" & it's <3`},
		{"Hex entities", "a&#x27;b&#x2F;c&#x60;d&#x3D;e", "a'b/c`d=e"},
		{"Non-breaking space", "a&nbsp;&nbsp;b", "a b"},
		{"Unknown entity passes through", "&zzz; stays", "&zzz; stays"},
		{"Collapses spaces and tabs", "a  \t  b", "a b"},
		{"Collapses blank lines", "a<br><br><br><br>b", "a\n\nb"},
		{"Trims around newlines", "a   <br>   b", "a\nb"},
		{"Trims edges", "  <br> padded <br>  ", "padded"},
		{"Decoded markup removed", "&lt;script&gt;alert(1)&lt;/script&gt;", "alert(1)"},
		{"Decoded link removed", `&lt;a href="https://x.test"&gt;site&lt;/a&gt;`, "site"},
		{"Escaped angle text kept", "if a &lt;b and c&gt; d then", "if a <b and c> d then"},
		{"Comparison kept", "5 &lt; 6 &gt; 4", "5 < 6 > 4"},
		{"Heart kept", "i &lt;3 this", "i <3 this"},
		{"Unknown entity with known prefix", "&notanentity; stays", "&notanentity; stays"},
		{"Legacy entity without semicolon", "&copy2024 stays", "&copy2024 stays"},
		{"Semicolon entity", "a&semi;b&#59;c", "a;b;c"},
		{"Double escaped decodes once", "&amp;lt;", "&lt;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Text(tt.input))
		})
	}
}

func TestTextRemovesMarkup(t *testing.T) {
	inputs := []string{
		"<div><p>nested <i>tags</i></p></div>",
		"&lt;b&gt;escaped bold&lt;/b&gt;",
		"<span class=\"x\">&amp;amp;</span>",
		"<br/><br/>&quot;quoted&quot;<hr>",
	}
	for _, in := range inputs {
		out := Text(in)
		assert.NotRegexp(t, `</?[A-Za-z][^<>]*>`, out, "input %q", in)
		for _, entity := range []string{"&quot;", "&#39;", "&lt;", "&gt;", "&nbsp;", "&#x27;", "&#x2F;"} {
			assert.False(t, strings.Contains(out, entity), "input %q left %s", in, entity)
		}
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "exactly10!", Truncate("exactly10!", 10))
	assert.Equal(t, "abc...", Truncate("abcdef", 3))
	assert.Equal(t, "héé...", Truncate("hééllo", 3))
}
