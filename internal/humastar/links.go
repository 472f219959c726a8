package humastar

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"
)

// Links holds RFC 8288 Link headers generated from the OpenAPI spec, keyed
// by operation path. Create it before the API so its Transformer can be
// installed in the huma config, then call Build once every route exists.
type Links struct {
	mu sync.RWMutex
	m  map[string][]string
	// skip excludes operations tagged with it (the SSE endpoints).
	skip string
}

// NewLinks returns an empty link set ignoring operations tagged skipTag.
func NewLinks(skipTag string) *Links {
	return &Links{m: map[string][]string{}, skip: skipTag}
}

// Build walks the OpenAPI spec and generates the hypermedia links.
func (l *Links) Build(api huma.API) {
	oapi := api.OpenAPI()
	m := map[string][]string{}
	add := func(from, to, rel string) {
		val := fmt.Sprintf(`<%s>; rel="%s"`, to, rel)
		for _, existing := range m[from] {
			if existing == val {
				return
			}
		}
		m[from] = append(m[from], val)
	}

	// Collection paths have no {param}; item paths do.
	var collections, items []string
	for p, pi := range oapi.Paths {
		if hasTag(primaryTags(pi), l.skip) {
			continue
		}
		if strings.Contains(p, "{") {
			items = append(items, p)
		} else {
			collections = append(collections, p)
		}
	}
	sort.Strings(collections)
	sort.Strings(items)

	// Item → collection
	for _, item := range items {
		parent := path.Dir(item)
		if _, ok := oapi.Paths[parent]; ok {
			add(item, parent, "collection")
			add(item, parent, "up")
		}
	}

	// Collection → item template, and up to the entry point
	for _, coll := range collections {
		for _, item := range items {
			if path.Dir(item) == coll {
				add(coll, item, "item")
			}
		}
		if coll != "/health" {
			add(coll, "/health", "up")
		}
	}

	// Entry point → every collection and the API description
	for _, coll := range collections {
		if coll != "/health" {
			add("/health", coll, lastSegment(coll))
		}
	}
	add("/health", "/openapi.json", "describedby")
	add("/health", "/openapi.json", "service-desc")
	add("/health", "/docs", "service-doc")
	if _, ok := oapi.Paths["/api/v1/query"]; ok {
		add("/health", "/api/v1/query", "search")
	}

	// Document the same relations in the OpenAPI document.
	for p, pi := range oapi.Paths {
		headers, ok := m[p]
		if !ok {
			continue
		}
		for _, op := range operationsOf(pi) {
			if op != nil {
				injectResponseLinks(op, headers)
			}
		}
	}

	l.mu.Lock()
	l.m = m
	l.mu.Unlock()
}

// For returns the Link headers generated for an operation path.
func (l *Links) For(opPath string) []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.m[opPath]
}

// Root returns the entry point links, for use by non-Huma handlers.
func (l *Links) Root() []string { return l.For("/health") }

// Transformer returns a Huma Transformer that injects the generated Link
// headers at runtime.
func (l *Links) Transformer() huma.Transformer {
	return func(ctx huma.Context, status string, v any) (any, error) {
		op := ctx.Operation()
		if op == nil {
			return v, nil
		}

		for _, link := range l.For(op.Path) {
			ctx.AppendHeader("Link", link)
		}

		// Item endpoints get a self link with the resolved URL.
		if strings.Contains(op.Path, "{") {
			ctx.AppendHeader("Link", fmt.Sprintf(`<%s>; rel="self"`, ctx.URL().Path))
		}

		if p, ok := v.(Pager); ok {
			for _, link := range p.PaginationLinks(ctx.URL().Path) {
				ctx.AppendHeader("Link", link)
			}
		}

		if a, ok := v.(Actor); ok {
			for _, action := range a.Actions() {
				ctx.AppendHeader("Link", action.LinkHeader())
			}
		}

		return v, nil
	}
}

// --- helpers ---

func primaryTags(pi *huma.PathItem) []string {
	for _, op := range operationsOf(pi) {
		if op != nil && len(op.Tags) > 0 {
			return op.Tags
		}
	}
	return nil
}

func operationsOf(pi *huma.PathItem) []*huma.Operation {
	return []*huma.Operation{pi.Get, pi.Post, pi.Put, pi.Patch, pi.Delete}
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func lastSegment(p string) string {
	parts := strings.Split(strings.TrimRight(p, "/"), "/")
	return parts[len(parts)-1]
}

// injectResponseLinks adds OpenAPI Link objects to the operation's success
// response.
func injectResponseLinks(op *huma.Operation, headers []string) {
	if op.Responses == nil {
		return
	}
	var resp *huma.Response
	for code, r := range op.Responses {
		if strings.HasPrefix(code, "2") {
			resp = r
			break
		}
	}
	if resp == nil {
		return
	}
	if resp.Links == nil {
		resp.Links = map[string]*huma.Link{}
	}
	for _, h := range headers {
		rel, href := parseLinkHeader(h)
		if rel == "" {
			continue
		}
		resp.Links[rel] = &huma.Link{
			OperationRef: href,
			Description:  fmt.Sprintf("Related: %s", rel),
		}
	}
}

func parseLinkHeader(h string) (rel, href string) {
	// `<url>; rel="name"`
	parts := strings.SplitN(h, ";", 2)
	if len(parts) < 2 {
		return "", ""
	}
	href = strings.Trim(strings.TrimSpace(parts[0]), "<>")
	relPart := strings.TrimSpace(parts[1])
	if strings.HasPrefix(relPart, `rel="`) {
		rel = strings.Trim(relPart[4:], `"`)
	}
	return rel, href
}
