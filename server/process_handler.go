package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/lubembemichael/mail-agent/internal/apperrors"
)

type processResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	Count      int    `json:"count"`
	TotalFound int    `json:"total_found"`
}

// ProcessEmailsHandler runs the fetch/generate/draft pipeline for the
// caller's session.
func (s *Server) ProcessEmailsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionToken, ok := s.sessionFromRequest(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, processResponse{
				Success: false,
				Message: "Not authenticated",
			})
			return
		}

		result, err := s.processor.ProcessUnread(r.Context(), sessionToken)
		if err != nil {
			if errors.Is(err, apperrors.ErrUnauthenticated) || errors.Is(err, apperrors.ErrSessionNotFound) {
				writeJSON(w, http.StatusUnauthorized, processResponse{
					Success: false,
					Message: "Not authenticated",
				})
				return
			}
			log.Error().Err(err).Msg("pipeline run failed")
			writeJSON(w, http.StatusInternalServerError, processResponse{
				Success: false,
				Message: "Failed to process emails",
			})
			return
		}

		message := "No unread emails found."
		if result.TotalFound > 0 {
			message = fmt.Sprintf("Successfully created %d draft(s). Please check your Gmail inbox!", result.DraftsCreated)
		}

		writeJSON(w, http.StatusOK, processResponse{
			Success:    true,
			Message:    message,
			Count:      result.DraftsCreated,
			TotalFound: result.TotalFound,
		})
	}
}
