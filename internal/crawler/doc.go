// Package crawler implements the hierarchical site crawler: URL
// normalization, the breadth-first frontier, link extraction, the crawl
// orchestrator, and the parent/child SiteTree builder.
package crawler
