package devserver

import (
	"encoding/json"
	"net/http"
	"os"

	"github.com/rs/zerolog/log"
)

// ProtocolVersion lets external tooling detect the dev server and what it
// supports.
const ProtocolVersion = 2

type Status struct {
	Path    string `json:"path"`
	Version int    `json:"version"`
}

func statusHandler(version int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cwd, err := os.Getwd()
		if err != nil {
			log.Error().Err(err).Msg("Failed to determine working directory")
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if err := json.NewEncoder(w).Encode(Status{Path: cwd, Version: version}); err != nil {
			log.Error().Err(err).Msg("Failed to write status")
		}
	}
}
