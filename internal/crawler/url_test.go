package crawler

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"plain https", "https://a.test/about", "https://a.test/about"},
		{"http collapses to https", "http://a.test/about", "https://a.test/about"},
		{"host lowercased", "https://A.Test/About", "https://a.test/About"},
		{"default http port stripped", "http://a.test:80/x", "https://a.test/x"},
		{"default https port stripped", "https://a.test:443/x", "https://a.test/x"},
		{"fragment dropped", "https://a.test/page#section", "https://a.test/page"},
		{"trailing slash stripped", "https://a.test/blog/", "https://a.test/blog"},
		{"root slash kept", "https://a.test/", "https://a.test/"},
		{"empty path becomes root", "https://a.test", "https://a.test/"},
		{"query dropped by default", "https://a.test/p?utm=x&b=1", "https://a.test/p"},
		{"surrounding whitespace trimmed", "  https://a.test/x  ", "https://a.test/x"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize(tc.raw, nil, false)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"http://A.Test:80/Blog/Post/?q=1#frag",
		"https://a.test",
		"https://a.test/about/team/",
	}
	for _, raw := range inputs {
		once, err := Normalize(raw, nil, false)
		require.NoError(t, err)
		twice, err := Normalize(once, nil, false)
		require.NoError(t, err)
		require.Equal(t, once, twice, "normalizing %q twice diverged", raw)
	}
}

func TestNormalize_KeepQuery(t *testing.T) {
	got, err := Normalize("https://a.test/p?b=2&a=1", nil, true)
	require.NoError(t, err)
	// Query keys are re-encoded in sorted order so equivalent URLs collapse.
	require.Equal(t, "https://a.test/p?a=1&b=2", got)
}

func TestNormalize_RelativeAgainstBase(t *testing.T) {
	base, err := url.Parse("https://a.test/blog/post1")
	require.NoError(t, err)

	got, err := Normalize("../about", base, false)
	require.NoError(t, err)
	require.Equal(t, "https://a.test/about", got)

	got, err = Normalize("/contact", base, false)
	require.NoError(t, err)
	require.Equal(t, "https://a.test/contact", got)
}

func TestNormalize_Errors(t *testing.T) {
	t.Run("unsupported scheme", func(t *testing.T) {
		_, err := Normalize("mailto:hi@a.test", nil, false)
		require.ErrorIs(t, err, ErrUnsupportedScheme)

		_, err = Normalize("javascript:void(0)", nil, false)
		require.ErrorIs(t, err, ErrUnsupportedScheme)
	})
	t.Run("relative without base", func(t *testing.T) {
		_, err := Normalize("/about", nil, false)
		require.ErrorIs(t, err, ErrUnsupportedScheme)
	})
	t.Run("malformed", func(t *testing.T) {
		_, err := Normalize("https://a.test/%zz", nil, false)
		require.Error(t, err)
	})
}

func TestKey(t *testing.T) {
	key, err := Key("https://a.test/")
	require.NoError(t, err)
	require.Equal(t, "a.test/", key)

	key, err = Key("https://a.test/about/team")
	require.NoError(t, err)
	require.Equal(t, "a.test/about/team", key)
}

func TestInDomain(t *testing.T) {
	require.True(t, InDomain("a.test", "a.test", nil))
	require.False(t, InDomain("b.test", "a.test", nil))
	require.True(t, InDomain("cdn.a.test", "a.test", []string{"CDN.a.test"}))
}

func TestIsAssetPath(t *testing.T) {
	require.True(t, IsAssetPath("/img/logo.PNG"))
	require.True(t, IsAssetPath("/static/app.js"))
	require.False(t, IsAssetPath("/blog/post1"))
	require.False(t, IsAssetPath("/"))
}

func TestPathSegments(t *testing.T) {
	require.Nil(t, PathSegments("/"))
	require.Equal(t, []string{"blog", "post1"}, PathSegments("/blog/post1"))
}
