package languages

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"go.lsp.dev/uri"

	"github.com/gossip-lsp/weblsp/protocol"
)

var extensions = map[string]Language{
	".html": HTML,
	".htm":  HTML,
	".css":  CSS,
	".json": JSON,
}

// LanguageForExtension maps a lower-case extension such as ".htm" to its
// language, whether or not that language is enabled.
func LanguageForExtension(ext string) (Language, bool) {
	l, ok := extensions[ext]
	return l, ok
}

// Extension returns the lower-cased extension of the file a URI names, or
// "" if it has none. A leading dot alone does not make an extension.
func Extension(u protocol.DocumentURI) string {
	base := path.Base(uriPath(string(u)))
	ext := path.Ext(base)
	if ext == base {
		return ""
	}
	return strings.ToLower(ext)
}

func uriPath(raw string) string {
	if strings.HasPrefix(raw, uri.FileScheme+"://") {
		if parsed, err := uri.Parse(raw); err == nil {
			return filepath.ToSlash(parsed.Filename())
		}
	}
	if parsed, err := url.Parse(raw); err == nil && parsed.Path != "" {
		return parsed.Path
	}
	return raw
}

// Router selects a handler by file extension. It is safe for concurrent use.
type Router struct {
	mu       sync.RWMutex
	enabled  LanguageSet
	handlers map[string]Handler
}

// NewRouter registers the extensions of every enabled language.
func NewRouter(enabled LanguageSet) *Router {
	r := &Router{}
	r.Reconfigure(enabled)
	return r
}

// Reconfigure replaces the enabled languages.
func (r *Router) Reconfigure(enabled LanguageSet) {
	handlers := make(map[string]Handler, len(extensions))
	copied := make(LanguageSet, len(enabled))
	for ext, l := range extensions {
		if enabled.Has(l) {
			handlers[ext] = HandlerFor(l)
			copied[l] = true
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.enabled = copied
	r.handlers = handlers
}

// Enabled returns a copy of the enabled languages.
func (r *Router) Enabled() LanguageSet {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(LanguageSet, len(r.enabled))
	for l, on := range r.enabled {
		out[l] = on
	}
	return out
}

// Lookup returns the handler for the document at u, or nil.
func (r *Router) Lookup(u protocol.DocumentURI) Handler {
	ext := Extension(u)
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.handlers[ext]
}
