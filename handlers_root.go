package main

import (
	"net/http"

	"github.com/KU-Stacks/ku-ring-backend-web/scrape"
)

// handleCategories lists the category reference set clients can subscribe to.
func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	categories, err := s.store.AllCategories(r.Context())
	if err != nil {
		s.logger.Error("Failed to load categories", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, c.Name)
	}
	writeJSON(w, http.StatusOK, map[string][]string{"categories": names}, s.logger)
}

// handleStaff returns the current staff snapshot for one department.
func (s *Server) handleStaff(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	dept := r.URL.Query().Get("dept")
	if dept == "" {
		http.Error(w, "dept query parameter is required", http.StatusBadRequest)
		return
	}
	known := false
	for _, d := range scrape.Depts {
		if d.Name == dept {
			known = true
			break
		}
	}
	if !known {
		http.Error(w, "Unknown department", http.StatusNotFound)
		return
	}

	records, err := s.store.StaffByDept(r.Context(), dept)
	if err != nil {
		s.logger.Error("Failed to load staff snapshot", "dept", dept, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"dept": dept, "staff": records}, s.logger)
}
