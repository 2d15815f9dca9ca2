package daemon

import (
	"net/http"
	"time"

	"briefings/internal/logging"
)

func (s *apiServer) handleNightlyTrailers(w http.ResponseWriter, r *http.Request) {
	result, err := s.daemon.workflow.NightlyTrailers(r.Context(), queryFlag(r, "force"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if result.Skipped {
		s.writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"skipped": true,
			"reason":  result.Reason,
			"job_ids": result.JobIDs,
		})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"queued":       result.Queued,
		"job_ids":      result.JobIDs,
		"triggered_at": result.TriggeredAt,
	})
}

func (s *apiServer) handleNightlyStatus(w http.ResponseWriter, r *http.Request) {
	run, ok := s.daemon.workflow.NightlyStatus(r.Context())
	if !ok {
		s.writeJSON(w, http.StatusOK, map[string]any{"run": nil})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"run": run})
}

func (s *apiServer) handleCronAutoqueue(w http.ResponseWriter, r *http.Request) {
	job, ok, err := s.daemon.workflow.Autoqueue(r.Context(), "", "")
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if !ok {
		s.writeJSON(w, http.StatusInternalServerError, map[string]any{"success": false, "error": "Autoqueue failed"})
		return
	}
	s.logger.Info("cron autoqueue queued job", logging.String(logging.FieldJobID, job.ID))
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"job_id":       job.ID,
		"triggered_at": time.Now().UTC(),
	})
}

func (s *apiServer) handleMorningPrep(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.workflow.MorningPrep(r.Context(), queryFlag(r, "force")))
}
