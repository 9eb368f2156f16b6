package odatacore

import (
	"encoding/json"
	"net/http"
)

type healthResponse struct {
	Status           string `json:"status"`
	EntitySets       int    `json:"entity_sets"`
	MetadataLoadedAt int64  `json:"metadata_loaded_at"`
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	snap := s.current()
	resp := healthResponse{
		Status:           "ok",
		EntitySets:       len(snap.model.EntitySetInfos()),
		MetadataLoadedAt: snap.loadedAt.Unix(),
	}
	_ = json.NewEncoder(w).Encode(resp)
}
