package crawler

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func page(u string, depth int, origin string, class Class) DiscoveredPage {
	return DiscoveredPage{URL: u, Depth: depth, Origin: origin, Class: class}
}

func TestBuildTree_NestsByPathPrefix(t *testing.T) {
	pages := []DiscoveredPage{
		page("https://a.test/", 0, "", ClassStandard),
		page("https://a.test/about", 1, "https://a.test/", ClassStandard),
		page("https://a.test/about/team", 2, "https://a.test/about", ClassStandard),
		page("https://a.test/blog", 1, "https://a.test/", ClassListing),
		page("https://a.test/blog/post1", 2, "https://a.test/blog", ClassListing),
		page("https://a.test/blog/post2", 2, "https://a.test/blog", ClassListing),
	}

	tree := BuildTree(pages)

	data, err := json.Marshal(tree)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"a.test/": {
			"a.test/about": {
				"a.test/about/team": []
			},
			"a.test/blog": {
				"a.test/blog/post1": [],
				"a.test/blog/post2": []
			}
		}
	}`, string(data))
}

func TestBuildTree_EveryPageAppearsExactlyOnce(t *testing.T) {
	pages := []DiscoveredPage{
		page("https://a.test/", 0, "", ClassStandard),
		page("https://a.test/a", 1, "https://a.test/", ClassStandard),
		page("https://a.test/a/b", 2, "https://a.test/a", ClassStandard),
		page("https://a.test/a/b/c", 3, "https://a.test/a/b", ClassStandard),
		page("https://a.test/orphan/deep", 1, "https://a.test/", ClassStandard),
	}

	tree := BuildTree(pages)
	keys := tree.Keys()
	require.ElementsMatch(t, []string{
		"a.test/", "a.test/a", "a.test/a/b", "a.test/a/b/c", "a.test/orphan/deep",
	}, keys)
}

func TestBuildTree_SkipsMissingIntermediate(t *testing.T) {
	// /a/b/c was discovered but /a/b never was; the closest discovered
	// ancestor /a takes it.
	pages := []DiscoveredPage{
		page("https://a.test/", 0, "", ClassStandard),
		page("https://a.test/a", 1, "https://a.test/", ClassStandard),
		page("https://a.test/a/b/c", 2, "https://a.test/a", ClassStandard),
	}

	tree := BuildTree(pages)
	root := tree["a.test/"]
	require.NotNil(t, root)
	a := root.Children()["a.test/a"]
	require.NotNil(t, a)
	require.Contains(t, a.Children(), "a.test/a/b/c")
}

func TestBuildTree_NoAncestorBecomesRootLevel(t *testing.T) {
	pages := []DiscoveredPage{
		page("https://a.test/x/y", 1, "", ClassStandard),
		page("https://b.test/z", 1, "", ClassStandard),
	}

	tree := BuildTree(pages)
	require.Contains(t, tree, "a.test/x/y")
	require.Contains(t, tree, "b.test/z")
}

func TestBuildTree_ListingDescendantsFlatten(t *testing.T) {
	// Deep blog posts flatten directly under the blog section root
	// instead of mirroring their raw path nesting.
	pages := []DiscoveredPage{
		page("https://a.test/", 0, "", ClassStandard),
		page("https://a.test/blog", 1, "https://a.test/", ClassListing),
		page("https://a.test/blog/2024", 2, "https://a.test/blog", ClassListing),
		page("https://a.test/blog/2024/post1", 3, "https://a.test/blog/2024", ClassListing),
	}

	tree := BuildTree(pages)
	blog := tree["a.test/"].Children()["a.test/blog"]
	require.NotNil(t, blog)
	require.Contains(t, blog.Children(), "a.test/blog/2024")
	require.Contains(t, blog.Children(), "a.test/blog/2024/post1")
}

func TestBuildTree_Deterministic(t *testing.T) {
	pages := []DiscoveredPage{
		page("https://a.test/", 0, "", ClassStandard),
		page("https://a.test/a", 1, "https://a.test/", ClassStandard),
		page("https://a.test/b", 1, "https://a.test/", ClassStandard),
	}

	first, err := json.Marshal(BuildTree(pages))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := json.Marshal(BuildTree(pages))
		require.NoError(t, err)
		require.Equal(t, string(first), string(again))
	}
}

func TestTreeNode_LeafMarshalsAsArray(t *testing.T) {
	pages := []DiscoveredPage{
		page("https://a.test/", 0, "", ClassStandard),
		page("https://a.test/leaf", 1, "https://a.test/", ClassStandard),
	}
	data, err := json.Marshal(BuildTree(pages))
	require.NoError(t, err)
	require.JSONEq(t, `{"a.test/": {"a.test/leaf": []}}`, string(data))
}
