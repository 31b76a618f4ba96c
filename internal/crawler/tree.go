package crawler

import (
	"bytes"
	"encoding/json"
	"net/url"
)

// SiteTree is the nested parent/child view of a discovered URL set, keyed
// by host+path. It is derived once, after crawling, and never mutated.
type SiteTree map[string]*TreeNode

// TreeNode is one page in the SiteTree. A node with no children marshals
// as an empty JSON array and a node with children as an object; downstream
// consumers rely on that discriminator to tell leaves from internal nodes.
type TreeNode struct {
	children map[string]*TreeNode
}

// Children exposes the child map, which may be empty for leaves.
func (n *TreeNode) Children() map[string]*TreeNode {
	if n == nil {
		return nil
	}
	return n.children
}

// MarshalJSON emits [] for leaves and a key-sorted object for internal
// nodes.
func (n *TreeNode) MarshalJSON() ([]byte, error) {
	if n == nil || len(n.children) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(n.children)
}

// UnmarshalJSON accepts both encodings: an array means a leaf and an
// object holds the children.
func (n *TreeNode) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		n.children = nil
		return nil
	}
	return json.Unmarshal(data, &n.children)
}

// Keys returns every key present in the tree at any nesting level.
func (t SiteTree) Keys() []string {
	var keys []string
	var walk func(m map[string]*TreeNode)
	walk = func(m map[string]*TreeNode) {
		for k, n := range m {
			keys = append(keys, k)
			walk(n.Children())
		}
	}
	walk(t)
	return keys
}

type treePage struct {
	key   string
	host  string
	segs  []string
	depth int
	class Class
}

// BuildTree infers the parent/child tree from the final discovered set.
// A page B nests under the discovered page A whose path is the longest
// strict, segment-aligned prefix of B's path; ties go to the ancestor
// discovered at a shallower crawl depth, then to the earliest-discovered
// one. Pages below a listing-class section attach directly beneath the
// section root regardless of raw path depth, so paginated items group
// under their section. Pages with no qualifying ancestor become
// root-level entries.
//
// BuildTree is a pure function of its input: it re-fetches nothing and is
// deterministic for a given discovered set.
func BuildTree(pages []DiscoveredPage) SiteTree {
	infos := make([]treePage, 0, len(pages))
	for _, p := range pages {
		u, err := url.Parse(p.URL)
		if err != nil {
			continue
		}
		key, err := Key(p.URL)
		if err != nil {
			continue
		}
		infos = append(infos, treePage{
			key:   key,
			host:  u.Host,
			segs:  PathSegments(u.Path),
			depth: p.Depth,
			class: p.Class,
		})
	}

	nodes := make(map[string]*TreeNode, len(infos))
	for _, in := range infos {
		nodes[in.key] = &TreeNode{children: make(map[string]*TreeNode)}
	}

	tree := make(SiteTree)
	for i, in := range infos {
		parent := closestAncestor(infos, i)
		if parent < 0 {
			tree[in.key] = nodes[in.key]
			continue
		}
		nodes[infos[parent].key].children[in.key] = nodes[in.key]
	}
	return tree
}

// closestAncestor returns the index of the page infos[i] should nest
// under, or -1 for a root-level entry.
func closestAncestor(infos []treePage, i int) int {
	page := infos[i]
	best := -1
	listing := -1
	for j, cand := range infos {
		if j == i || cand.host != page.host {
			continue
		}
		if !isSegmentPrefix(cand.segs, page.segs) {
			continue
		}
		if cand.class == ClassListing {
			// Outermost listing ancestor is the section root.
			if listing < 0 || len(cand.segs) < len(infos[listing].segs) {
				listing = j
			}
		}
		if better(cand, j, infos, best) {
			best = j
		}
	}
	if listing >= 0 {
		return listing
	}
	return best
}

// isSegmentPrefix reports whether a is a strict, segment-aligned prefix
// of b.
func isSegmentPrefix(a, b []string) bool {
	if len(a) >= len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// better reports whether candidate j beats the current best ancestor:
// longest path first, then shallower discovery depth, then earliest
// discovery order.
func better(cand treePage, j int, infos []treePage, best int) bool {
	if best < 0 {
		return true
	}
	cur := infos[best]
	if len(cand.segs) != len(cur.segs) {
		return len(cand.segs) > len(cur.segs)
	}
	if cand.depth != cur.depth {
		return cand.depth < cur.depth
	}
	return j < best
}
