// Package markdown renders post bodies from Markdown to sanitized HTML.
package markdown

import (
	"bytes"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	md       goldmark.Markdown
	policy   *bluemonday.Policy
	initOnce sync.Once
)

func initPipeline() {
	initOnce.Do(func() {
		md = goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		)

		// UGC policy permits standard formatting while stripping scripts,
		// event handlers, and javascript: URLs.
		policy = bluemonday.UGCPolicy()
		policy.RequireNoFollowOnLinks(true)
	})
}

// Render converts Markdown source to HTML and sanitizes the result.
// Output is safe to store and serve without further escaping.
func Render(src string) (string, error) {
	initPipeline()

	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return policy.Sanitize(buf.String()), nil
}
