package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/KU-Stacks/ku-ring-backend-web/apperror"
)

type subscriptionRequest struct {
	Token      string   `json:"token"`
	Categories []string `json:"categories"`
}

type subscriptionResponse struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
}

// handleSubscriptions replaces a device token's subscribed category set.
// The request carries the full desired set; the server computes and applies
// the delta against what is persisted.
func (s *Server) handleSubscriptions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut && r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Rate limiting by IP
	ip := getClientIP(r)
	if !subscribeRateLimiter.allow(ip) {
		s.logger.Warn("Rate limit exceeded", "ip", ip)
		http.Error(w, "Too many subscription requests. Please try again later.", http.StatusTooManyRequests)
		return
	}

	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	req.Token = strings.TrimSpace(req.Token)
	if req.Token == "" {
		http.Error(w, "token is required", http.StatusBadRequest)
		return
	}

	if err := s.pusher.VerifyToken(r.Context(), req.Token); err != nil {
		s.logger.Warn("Token verification failed", "ip", ip, "error", err)
		http.Error(w, "Invalid device token", http.StatusBadRequest)
		return
	}

	ledger, err := s.reconciler.Update(r.Context(), req.Token, req.Categories)
	if err != nil {
		if errors.Is(err, apperror.ErrUnknownCategory) {
			http.Error(w, "Unknown category name", http.StatusBadRequest)
			return
		}
		s.logger.Error("Subscription update failed", "ip", ip, "error", err)
		http.Error(w, "Failed to update subscriptions", http.StatusInternalServerError)
		return
	}

	s.logger.Info("Subscriptions updated",
		"ip", ip,
		"added", len(ledger.Plan.ToAdd),
		"removed", len(ledger.Plan.ToRemove))

	resp := subscriptionResponse{
		Added:   ledger.Plan.ToAdd,
		Removed: ledger.Plan.ToRemove,
	}
	if resp.Added == nil {
		resp.Added = []string{}
	}
	if resp.Removed == nil {
		resp.Removed = []string{}
	}
	writeJSON(w, http.StatusOK, resp, s.logger)
}
