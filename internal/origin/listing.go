package origin

import (
	"html"
	"path"
	"sort"
	"strings"
)

// listEntry is one immediate child of a listed directory.
type listEntry struct {
	Name  string
	IsDir bool
}

// renderListing synthesizes the directory index HTML for a mount directory.
// The heading shows the canonical display path (mount URL path joined with
// the relative path, trailing slash enforced). A parent link is emitted when
// relativePath is non-empty; a mount rooted at "/" always parents to "/".
func renderListing(m Mount, relativePath string, entries []listEntry) string {
	display := path.Join(m.URLPath, relativePath)
	if !strings.HasSuffix(display, "/") {
		display += "/"
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head><title>Index of ")
	b.WriteString(html.EscapeString(display))
	b.WriteString("</title></head>\n<body>\n<h1>Index of ")
	b.WriteString(html.EscapeString(display))
	b.WriteString("</h1>\n<ul>\n")

	if relativePath != "" {
		parent := path.Dir(relativePath)
		if parent == "." || parent == "/" {
			parent = ""
		}
		href := path.Join(m.URLPath, parent)
		b.WriteString(`<li><a href="`)
		b.WriteString(html.EscapeString(href))
		b.WriteString(`">..</a></li>` + "\n")
	}

	for _, e := range entries {
		label := e.Name
		href := display + e.Name
		if e.IsDir {
			label += "/"
			href += "/"
		}
		b.WriteString(`<li><a href="`)
		b.WriteString(html.EscapeString(href))
		b.WriteString(`">`)
		b.WriteString(html.EscapeString(label))
		b.WriteString("</a></li>\n")
	}

	b.WriteString("</ul>\n</body>\n</html>\n")
	return b.String()
}
