package util

import (
	"net/url"
	"path"
	"strings"
)

func MakeUrl(parts ...string) string {
	res := ""
	for i, p := range parts {
		if p == "" {
			continue
		}
		if p[len(p)-1:] == "/" {
			p = p[:len(p)-1]
		}
		if p[0] != '/' && i > 0 {
			res += "/" + p
		} else {
			res += p
		}
	}
	return res
}

// UrlBaseName returns the last path segment of a URL, unescaped. Query strings
// and fragments are ignored.
func UrlBaseName(rawUrl string) string {
	u, err := url.Parse(rawUrl)
	p := rawUrl
	if err == nil {
		p = u.Path
	}
	p = strings.TrimRight(p, "/")
	if p == "" {
		return ""
	}
	base := path.Base(p)
	if base == "." || base == "/" {
		return ""
	}
	return base
}
