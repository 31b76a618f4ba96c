package crawler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractLinks(t *testing.T) {
	html := `<html><body>
		<a href="/about">About</a>
		<a href="https://a.test/blog/">Blog</a>
		<a href="">empty</a>
		<a>no href</a>
		<div style="display:none"><a href="/hidden">Hidden</a></div>
		<a href="#top">Same page</a>
		<a href="mailto:hi@a.test">Mail</a>
	</body></html>`

	links := ExtractLinks(html)
	require.Equal(t, []string{
		"/about",
		"https://a.test/blog/",
		"/hidden",
		"#top",
		"mailto:hi@a.test",
	}, links)
}

func TestExtractLinks_Duplicates(t *testing.T) {
	// Deduplication is the frontier's job; extraction reports every anchor.
	html := `<a href="/x">one</a><a href="/x">two</a>`
	require.Equal(t, []string{"/x", "/x"}, ExtractLinks(html))
}

func TestExtractLinks_NoAnchors(t *testing.T) {
	require.Empty(t, ExtractLinks("<html><body><p>nothing here</p></body></html>"))
}
