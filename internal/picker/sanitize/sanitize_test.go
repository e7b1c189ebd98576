package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/priceping/priceping/internal/monitoring/checkerr"
)

const base = "https://shop.example.com/products/widget"

func run(t *testing.T, in string) *Result {
	t.Helper()
	res, err := Sanitize(in, Options{BaseURL: base})
	require.NoError(t, err)
	return res
}

func TestSanitize_RemovesActiveElements(t *testing.T) {
	in := `<html><head><script src="/x.js"></script><base href="https://evil.example/"></head>
<body>
  <iframe src="https://evil.example"></iframe>
  <object data="x.swf"></object>
  <form action="/steal"><input name="q"><button>go</button></form>
  <noscript>fallback</noscript>
  <p>keep me</p>
</body></html>`
	out := run(t, in).HTML
	for _, gone := range []string{"<script", "<iframe", "<object", "<form", "<input", "<button", "<noscript"} {
		assert.NotContains(t, out, gone)
	}
	assert.NotContains(t, out, "evil.example")
	assert.Contains(t, out, "keep me")
}

func TestSanitize_StripsEventHandlers(t *testing.T) {
	out := run(t, `<div onclick="steal()" onmouseover="x()" data-keep="1">hi</div>`).HTML
	assert.NotContains(t, out, "onclick")
	assert.NotContains(t, out, "onmouseover")
	assert.Contains(t, out, `data-keep="1"`)
}

func TestSanitize_DropsScriptURIs(t *testing.T) {
	out := run(t, `<a href="javascript:alert(1)">x</a><img src="data:text/html,<script>1</script>">`).HTML
	assert.NotContains(t, out, "javascript:")
	assert.NotContains(t, out, "data:text/html")
}

func TestSanitize_RewritesRelativeURLs(t *testing.T) {
	out := run(t, `<img src="/img/a.png"><a href="../other">x</a>`).HTML
	assert.Contains(t, out, `src="https://shop.example.com/img/a.png"`)
	// anchors are later pinned to "#", so only the img rewrite is observable
	assert.NotContains(t, out, `src="/img/a.png"`)
}

func TestSanitize_RewritesSrcset(t *testing.T) {
	out := run(t, `<img srcset="/a.png 1x, /b.png 2x">`).HTML
	assert.Contains(t, out, "https://shop.example.com/a.png 1x")
	assert.Contains(t, out, "https://shop.example.com/b.png 2x")
}

func TestSanitize_RemovesImportingStyle(t *testing.T) {
	in := `<style>@import url("https://evil.example/x.css");</style><style>.p { color: red }</style>`
	out := run(t, in).HTML
	assert.NotContains(t, out, "@import")
	assert.Contains(t, out, "color: red")
}

func TestSanitize_NeutralizesInlineStyleURLs(t *testing.T) {
	out := run(t, `<div style="background: url('https://evil.example/t.gif'); color: blue">x</div>`).HTML
	assert.NotContains(t, out, "evil.example")
	assert.Contains(t, out, "background: none")
	assert.Contains(t, out, "color: blue")
}

func TestSanitize_DisablesAnchors(t *testing.T) {
	out := run(t, `<a href="https://elsewhere.example/page" target="_blank">go</a>`).HTML
	assert.Contains(t, out, `href="#"`)
	assert.Contains(t, out, `target="_self"`)
	assert.NotContains(t, out, "elsewhere.example")
}

func TestSanitize_InjectsBase(t *testing.T) {
	out := run(t, `<html><head></head><body></body></html>`).HTML
	assert.Contains(t, out, `<base href="`+base+`"`)
}

func TestSanitize_SizeGate(t *testing.T) {
	big := strings.Repeat("a", DefaultMaxSize+1)
	_, err := Sanitize(big, Options{BaseURL: base})
	require.Error(t, err)
	assert.Equal(t, checkerr.KindSizeExceeded, checkerr.KindOf(err))

	_, err = Sanitize("<p>x</p>", Options{BaseURL: base, MaxSize: 4})
	assert.Equal(t, checkerr.KindSizeExceeded, checkerr.KindOf(err))
}

func TestSanitize_BadBaseURL(t *testing.T) {
	_, err := Sanitize("<p>x</p>", Options{BaseURL: "://bad"})
	require.Error(t, err)
	assert.Equal(t, checkerr.KindInvalidURL, checkerr.KindOf(err))
}

func TestSanitize_DiagnosticsDoNotAbort(t *testing.T) {
	res := run(t, `<img src="http://%zz invalid"><p>still here</p>`)
	assert.Contains(t, res.HTML, "still here")
	assert.NotEmpty(t, res.Diagnostics)
}
