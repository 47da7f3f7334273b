package web

import (
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
)

// Ctx is the request context handlers receive.
type Ctx = *gin.Context
type Handler = gin.HandlerFunc
type Router = gin.IRouter

// Route is one handler a module serves. Path is relative to the module's
// mount point, e.g. "/report" for a module "reporting" is served at
// /modules/reporting/report.
type Route struct {
	Method  string
	Path    string
	Handler Handler
}

func (r Route) key() string {
	return strings.ToUpper(r.Method) + " " + r.Path
}

var knownMethods = []string{
	http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
	http.MethodPatch, http.MethodDelete, http.MethodOptions,
}

func validateRoutes(routes []Route) error {
	seen := make(map[string]bool, len(routes))
	for _, r := range routes {
		if !slices.Contains(knownMethods, strings.ToUpper(r.Method)) {
			return fmt.Errorf("route %q: unsupported method", r.key())
		}
		if !strings.HasPrefix(r.Path, "/") {
			return fmt.Errorf("route %q: path must start with /", r.key())
		}
		if r.Handler == nil {
			return fmt.Errorf("route %q: nil handler", r.key())
		}
		if seen[r.key()] {
			return fmt.Errorf("route %q: declared twice", r.key())
		}
		seen[r.key()] = true
	}
	return nil
}

// signature identifies a handler set by its methods and paths.
func signature(routes []Route) string {
	keys := make([]string, len(routes))
	for i, r := range routes {
		keys[i] = r.key()
	}
	slices.Sort(keys)
	return strings.Join(keys, "\n")
}
