package server

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/perchsec/roost/fleet"
	"github.com/perchsec/roost/record"
)

// handleRegister accepts arbitrary endpoint metadata, stamps the identity
// and liveness fields the coordinator owns, and returns the generated id.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	info, err := decodeBody(r)
	if err != nil || len(info) == 0 {
		http.Error(w, "missing parameters", http.StatusBadRequest)
		return
	}

	now := record.Timestamp()
	info["ip_address"] = remoteIP(r)
	info["registered_at"] = now
	info["last_seen"] = now

	id := s.coord.GenerateID()
	if err := s.coord.Register(id, info); err != nil {
		if errors.Is(err, fleet.ErrDuplicateIdentity) {
			http.Error(w, "failed to register endpoint. probably a duplicate?", http.StatusBadRequest)
			return
		}
		s.fail(w, err)
		return
	}

	writeJSON(w, map[string]string{"agent_id": id}, http.StatusOK)
}

// handleCheckin updates endpoint liveness and delivers pending tasks.
// 204 means checked in fine, nothing to do.
func (s *Server) handleCheckin(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("agentid")
	if id == "" {
		http.Error(w, "agentid query parameter required", http.StatusBadRequest)
		return
	}

	tasks, err := s.coord.Checkin(id)
	if err != nil {
		s.fail(w, err)
		return
	}
	if len(tasks) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, tasks, http.StatusOK)
}

// handlePostResult merges a reported result into the matching task. The
// result may be nested under "result" or, for old agents, flattened into
// the body itself.
func (s *Server) handlePostResult(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(r)
	if err != nil {
		http.Error(w, "missing parameters", http.StatusBadRequest)
		return
	}

	id, _ := body["agentid"].(string)
	if id == "" {
		http.Error(w, "agentid required", http.StatusBadRequest)
		return
	}

	var result any
	if nested, ok := body["result"]; ok {
		result = nested
	} else {
		delete(body, "agentid")
		result = body
	}

	if err := s.coord.PostResult(id, result); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "result posted"}, http.StatusOK)
}

// handlePostTask queues a task for an endpoint.
func (s *Server) handlePostTask(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(r)
	if err != nil {
		http.Error(w, "missing parameters", http.StatusBadRequest)
		return
	}

	id, _ := body["agentid"].(string)
	task, hasTask := body["task"]
	if id == "" || !hasTask {
		http.Error(w, "agentid and task required", http.StatusBadRequest)
		return
	}

	if err := s.coord.AddTask(id, task); err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "task queued"}, http.StatusOK)
}

// handleListEndpoints returns fleet summaries for operators.
func (s *Server) handleListEndpoints(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.coord.List()
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, summaries, http.StatusOK)
}

// handleListTasks returns an endpoint's full task list, responded included.
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("agentid")
	if id == "" {
		http.Error(w, "agentid query parameter required", http.StatusBadRequest)
		return
	}

	tasks, err := s.coord.Tasks(id)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, tasks, http.StatusOK)
}

// fail maps coordinator errors onto the status contract.
func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, fleet.ErrUnknownEndpoint):
		http.Error(w, "unknown agentid", http.StatusNotFound)
	case errors.Is(err, fleet.ErrUnknownTask),
		errors.Is(err, record.ErrNotMap),
		errors.Is(err, record.ErrMissingTaskID):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		s.logger.Error().Err(err).Msg("request failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// decodeBody parses a JSON object body. JSON nulls are stripped: the record
// format has no null (absent means default), and the TOML store cannot
// encode one.
func decodeBody(r *http.Request) (map[string]any, error) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, err
	}
	stripNulls(body)
	return body, nil
}

func stripNulls(m map[string]any) {
	for k, v := range m {
		switch val := v.(type) {
		case nil:
			delete(m, k)
		case map[string]any:
			stripNulls(val)
		case []any:
			for _, e := range val {
				if nested, ok := e.(map[string]any); ok {
					stripNulls(nested)
				}
			}
		}
	}
}

// remoteIP extracts the peer address without the port.
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, v any, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
