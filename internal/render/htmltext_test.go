package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTMLToText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "just text", "just text"},
		{"breaks", "one<br>two<br />three", "one\ntwo\nthree"},
		{"paragraphs", "<p>first</p><p>second</p>", "first\n\nsecond"},
		{"divs", "<div>a</div><div>b</div>", "a\nb"},
		{"anchor keeps target", `see <a href="https://example.com">the docs</a>`, "see the docs (https://example.com)"},
		{"entities", "a &amp; b &lt;c&gt;", "a & b <c>"},
		{"entities beside markup", "<p>x &lt;tag&gt;</p>", "x <tag>"},
		{"strips unknown tags", "<span style=\"x\">hi</span> <strong>there</strong>", "hi there"},
		{"collapses blank runs", "<p>a</p><br><br><br><p>b</p>", "a\n\nb"},
		{"trims line whitespace", "<div>  padded  </div>", "padded"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTMLToText(tc.in))
		})
	}
}
