package handlers

import (
	"bytes"
	"context"
	"html/template"
	"net/http"
	"path/filepath"

	"github.com/HammerMeetNail/plantcare/internal/flow"
	"github.com/HammerMeetNail/plantcare/internal/logging"
	"github.com/HammerMeetNail/plantcare/internal/models"
	"github.com/HammerMeetNail/plantcare/internal/render"
)

// GuideFlow is the per-session view state the pages are rendered from.
type GuideFlow interface {
	Submit(ctx context.Context, sessionID string, input models.FormInput) (flow.Snapshot, error)
	Reset(ctx context.Context, sessionID string) error
	Snapshot(ctx context.Context, sessionID string) (flow.Snapshot, error)
}

type AssetSource interface {
	Page() render.Assets
}

type PageHandler struct {
	templates *template.Template
	flow      GuideFlow
	assets    AssetSource
}

func NewPageHandler(templatesDir string, guides GuideFlow, assets AssetSource) (*PageHandler, error) {
	templates, err := template.New("pages").Funcs(render.FuncMap()).ParseGlob(filepath.Join(templatesDir, "*.html"))
	if err != nil {
		return nil, err
	}

	return &PageHandler{templates: templates, flow: guides, assets: assets}, nil
}

func (h *PageHandler) pageAssets() render.Assets {
	if h.assets == nil {
		return render.Assets{
			CSS:        "/static/css/styles.css",
			BackdropJS: "/static/js/backdrop.js",
			GuideJS:    "/static/js/guide.js",
		}
	}
	return h.assets.Page()
}

// Index renders the page for the session's current state.
func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	sessionID := GetSessionIDFromContext(r.Context())
	if sessionID == "" {
		h.InternalError(w, r)
		return
	}

	snap, err := h.flow.Snapshot(r.Context(), sessionID)
	if err != nil {
		logging.FromContext(r.Context()).Error("Failed to load session state", map[string]interface{}{
			"error": err.Error(),
		})
		h.InternalError(w, r)
		return
	}

	h.renderGuidePage(w, r, http.StatusOK, snap, render.Form(models.NewFormInput(), false))
}

func (h *PageHandler) renderGuidePage(w http.ResponseWriter, r *http.Request, status int, snap flow.Snapshot, form render.FormView) {
	view := render.Page(snap, form)
	view.Assets = h.pageAssets()
	view.CSRFToken = GetCSRFTokenFromContext(r.Context())

	// Render to a buffer so a template error can still become a 500 page.
	var buf bytes.Buffer
	if err := h.templates.ExecuteTemplate(&buf, "index.html", view); err != nil {
		logging.FromContext(r.Context()).Error("Template error", map[string]interface{}{
			"error": err.Error(),
		})
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// NotFound renders the 404 error page.
func (h *PageHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	if err := h.templates.ExecuteTemplate(w, "404.html", nil); err != nil {
		http.Error(w, "Page not found", http.StatusNotFound)
	}
}

// InternalError renders the 500 error page.
func (h *PageHandler) InternalError(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	if err := h.templates.ExecuteTemplate(w, "500.html", nil); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
