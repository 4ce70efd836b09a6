package api

import (
	"log"
	"net/http"

	"github.com/tmuhq/tmusync/internal/sitemap"
)

func (s *Server) handleSitemapIndex(w http.ResponseWriter, r *http.Request) {
	body, err := s.sitemap.Index()
	if err != nil {
		log.Printf("API: sitemap index: %v", err)
		http.Error(w, "sitemap unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.Write(body)
}

func (s *Server) handleSitemapPage(w http.ResponseWriter, r *http.Request) {
	kind, page, err := sitemap.ParsePageFile(r.PathValue("file"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	body, err := s.sitemap.Page(kind, page)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.Write(body)
}

func (s *Server) handleRobots(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write(s.sitemap.Robots())
}
