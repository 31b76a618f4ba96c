package crawler

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPathPatternClassifier(t *testing.T) {
	c, err := NewPathPatternClassifier([]string{"/blog*", "/collections*"})
	require.NoError(t, err)

	cases := []struct {
		path string
		want Class
	}{
		{"/blog", ClassListing},
		{"/blogs", ClassListing},
		{"/blog/post1", ClassListing},
		{"/collections/shoes", ClassListing},
		{"/about", ClassStandard},
		{"/", ClassStandard},
		{"", ClassStandard},
	}
	for _, tc := range cases {
		u := &url.URL{Scheme: "https", Host: "a.test", Path: tc.path}
		require.Equal(t, tc.want, c.Classify(u), "path %q", tc.path)
	}
}

func TestPathPatternClassifier_BadPattern(t *testing.T) {
	_, err := NewPathPatternClassifier([]string{"[/bad"})
	require.Error(t, err)
}

func TestPathPatternClassifier_NoPatterns(t *testing.T) {
	c, err := NewPathPatternClassifier(nil)
	require.NoError(t, err)
	u := &url.URL{Scheme: "https", Host: "a.test", Path: "/blog"}
	require.Equal(t, ClassStandard, c.Classify(u))
}
