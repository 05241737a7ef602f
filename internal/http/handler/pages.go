package handler

import (
	"html/template"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"feedgate/internal/http/middleware"
)

// Renderer turns a template name and render data into HTML. Rendering
// itself is a collaborator concern; the gateway only decides which page
// may render and with what identity values.
type Renderer interface {
	Render(w io.Writer, name string, data map[string]any) error
}

// HTMLRenderer parses templates from disk on every request, so template
// edits show up without a restart.
type HTMLRenderer struct {
	dir string
}

func NewHTMLRenderer(dir string) *HTMLRenderer {
	return &HTMLRenderer{dir: dir}
}

func (r *HTMLRenderer) Render(w io.Writer, name string, data map[string]any) error {
	tmpl, err := template.New(filepath.Base(name)).ParseFiles(filepath.Join(r.dir, name))
	if err != nil {
		return err
	}
	return tmpl.Execute(w, data)
}

// PagesHandler serves the .hbs template routes. Private pages run behind
// the session gate and receive userLogin/accessToken in their render
// data; public pages render with empty identity values.
type PagesHandler struct {
	renderer Renderer
}

func NewPagesHandler(renderer Renderer) *PagesHandler {
	return &PagesHandler{renderer: renderer}
}

// ServePrivate renders /private/*.hbs with the session identity injected
// so the page can greet the user and make API calls with the token.
func (h *PagesHandler) ServePrivate(w http.ResponseWriter, r *http.Request) {
	identity, _ := middleware.IdentityFromContext(r.Context())
	h.render(w, r, map[string]any{
		"userLogin":   identity.Login,
		"accessToken": identity.AccessToken,
	})
}

// ServePublic renders any other .hbs path without identity.
func (h *PagesHandler) ServePublic(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, map[string]any{
		"userLogin":   "",
		"accessToken": "",
	})
}

func (h *PagesHandler) render(w http.ResponseWriter, r *http.Request, data map[string]any) {
	name := templateName(r.URL.Path)
	if name == "" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.renderer.Render(w, name, data); err != nil {
		http.Error(w, "page unavailable", http.StatusInternalServerError)
	}
}

// templateName maps a URL path to a template file, rejecting anything
// that is not a .hbs page or tries to escape the template root.
func templateName(path string) string {
	if !strings.HasSuffix(path, ".hbs") {
		return ""
	}
	clean := filepath.Clean(strings.TrimPrefix(path, "/"))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return ""
	}
	return clean
}
