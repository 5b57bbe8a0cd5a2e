package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/draft-bot/internal/dispatch"
	"github.com/DoyleJ11/draft-bot/internal/engine"
	"github.com/DoyleJ11/draft-bot/internal/export"
	"github.com/DoyleJ11/draft-bot/internal/hub"
	"github.com/DoyleJ11/draft-bot/internal/lobby"
	"github.com/DoyleJ11/draft-bot/internal/types"
	pkgtypes "github.com/DoyleJ11/draft-bot/pkg/types"
)

type scopeView struct {
	SessionID      string            `json:"session_id"`
	Scope          string            `json:"scope"`
	State          engine.Lifecycle  `json:"state"`
	Turn           int               `json:"turn"`
	TimerActive    bool              `json:"timer_active"`
	TimerRemaining float64           `json:"timer_remaining_sec,omitempty"`
	Snapshot       pkgtypes.Snapshot `json:"snapshot"`
}

// PostMessage is the chat webhook: a bridge posts every message it sees in
// a channel and relays the reply, if any. The bridge is trusted to set
// is_owner and is_admin.
func PostMessage(d *dispatch.Dispatcher, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var env dispatch.Envelope
		if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		env.Scope = chi.URLParam(r, "scope")
		if env.SenderID == "" {
			http.Error(w, "missing sender_id", http.StatusBadRequest)
			return
		}

		resp, err := d.Dispatch(r.Context(), env)
		if err != nil {
			log.Error("dispatch failed", zap.String("scope", env.Scope), zap.Error(err))
			http.Error(w, "draft service unavailable", http.StatusServiceUnavailable)
			return
		}
		msg, ok := types.FromResponse(resp)
		if !ok {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, msg)
	}
}

func GetScope(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, ok := lookup(w, r, h)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, scopeView{
			SessionID:      view.SessionID,
			Scope:          view.Scope,
			State:          view.State,
			Turn:           view.Turn,
			TimerActive:    view.TimerActive,
			TimerRemaining: view.TimerRemaining.Round(time.Millisecond).Seconds(),
			Snapshot:       view.Snapshot,
		})
	}
}

// Export serves the scope's current or last draft as a file download.
func Export(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := export.ParseFormat(r.URL.Query().Get("format"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		view, ok := lookup(w, r, h)
		if !ok {
			return
		}
		body, err := export.Encode(view.Snapshot, f)
		if err != nil {
			http.Error(w, "failed to encode snapshot", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", f.ContentType())
		w.Header().Set("Content-Disposition", `attachment; filename="`+view.SessionID+"."+f.Ext()+`"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}
}

func Healthz(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := h.Stats(r.Context())
		if err != nil {
			http.Error(w, "hub unavailable", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Active   int `json:"active"`
			Finished int `json:"finished"`
		}{s.Active, s.Finished})
	}
}

func lookup(w http.ResponseWriter, r *http.Request, h *hub.Hub) (view lobby.View, ok bool) {
	scope := chi.URLParam(r, "scope")
	lb, err := h.Get(r.Context(), scope)
	if err != nil {
		if errors.Is(err, engine.ErrNoSession) {
			http.Error(w, "no draft in this scope", http.StatusNotFound)
			return view, false
		}
		http.Error(w, "hub unavailable", http.StatusServiceUnavailable)
		return view, false
	}
	view, err = lb.State(r.Context())
	if err != nil {
		http.Error(w, "draft unavailable", http.StatusServiceUnavailable)
		return view, false
	}
	return view, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
