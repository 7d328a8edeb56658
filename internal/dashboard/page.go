package dashboard

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pageTmpl = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

type pageData struct {
	Title    string
	Species  string
	YearFrom int
	MinYear  int
	MaxYear  int
	PageSize int
	HexRes   int
}

// Index renders the dashboard shell. Everything else is fetched by the page.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	err := pageTmpl.ExecuteTemplate(&buf, "index.html", pageData{
		Title:    "UK Amphibian & Reptile Explorer",
		Species:  DefaultSpecies,
		YearFrom: h.defaults.YearFrom,
		MinYear:  MinYear,
		MaxYear:  MaxYear,
		PageSize: h.defaults.PageSize,
		HexRes:   h.defaults.HexRes,
	})
	if err != nil {
		h.log.ErrorContext(r.Context(), "render index", "err", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
