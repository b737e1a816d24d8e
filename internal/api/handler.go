// Package api exposes the combat engine over HTTP: start, stop, flee,
// player-invoked skills and combatant status.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/udisondev/qimud/internal/game/combat"
	"github.com/udisondev/qimud/internal/game/skill"
	"github.com/udisondev/qimud/internal/model"
)

// Engine is the part of combat.Engine the API drives.
type Engine interface {
	Start(a, b *model.Combatant) bool
	Stop(c *model.Combatant) bool
	Flee(c *model.Combatant) bool
	UseSkill(ctx context.Context, actor, target *model.Combatant, skillID string) (*skill.Outcome, error)
	SessionOf(c *model.Combatant) *combat.Session
}

// Handler serves the combat API.
type Handler struct {
	engine Engine
	roster *Roster
	mux    *http.ServeMux
}

// NewHandler creates the API handler.
func NewHandler(engine Engine, roster *Roster) *Handler {
	h := &Handler{engine: engine, roster: roster, mux: http.NewServeMux()}
	h.mux.HandleFunc("POST /combat/start", h.start)
	h.mux.HandleFunc("POST /combat/{id}/stop", h.stop)
	h.mux.HandleFunc("POST /combat/{id}/flee", h.flee)
	h.mux.HandleFunc("POST /combat/{id}/skill", h.useSkill)
	h.mux.HandleFunc("GET /combatants/{id}", h.status)
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

type startRequest struct {
	A FighterSpec `json:"a"`
	B FighterSpec `json:"b"`
}

type startResponse struct {
	SessionID string `json:"session_id"`
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	a, err := h.roster.Upsert(req.A)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	b, err := h.roster.Upsert(req.B)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !h.engine.Start(a, b) {
		writeError(w, http.StatusConflict, "a combatant is already in combat")
		return
	}
	s := h.engine.SessionOf(a)
	if s == nil {
		// ended before we could look it up
		writeError(w, http.StatusConflict, "combat already ended")
		return
	}
	writeJSON(w, http.StatusCreated, startResponse{SessionID: s.ID()})
}

func (h *Handler) stop(w http.ResponseWriter, r *http.Request) {
	c := h.fighter(w, r)
	if c == nil {
		return
	}
	if !h.engine.Stop(c) {
		writeError(w, http.StatusNotFound, "not in combat")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type fleeResponse struct {
	Escaped bool `json:"escaped"`
}

func (h *Handler) flee(w http.ResponseWriter, r *http.Request) {
	c := h.fighter(w, r)
	if c == nil {
		return
	}
	if h.engine.SessionOf(c) == nil {
		writeError(w, http.StatusNotFound, "not in combat")
		return
	}
	writeJSON(w, http.StatusOK, fleeResponse{Escaped: h.engine.Flee(c)})
}

type skillRequest struct {
	Skill  string `json:"skill"`
	Target string `json:"target,omitempty"`
}

type skillResponse struct {
	Skill     string `json:"skill"`
	Hit       bool   `json:"hit"`
	Crit      bool   `json:"crit"`
	Countered bool   `json:"countered"`
	Damage    int32  `json:"damage"`
	Heal      int32  `json:"heal"`
}

func (h *Handler) useSkill(w http.ResponseWriter, r *http.Request) {
	actor := h.fighter(w, r)
	if actor == nil {
		return
	}
	var req skillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}

	var target *model.Combatant
	if req.Target != "" {
		if target = h.roster.Get(req.Target); target == nil {
			writeError(w, http.StatusNotFound, "unknown target")
			return
		}
	}

	out, err := h.engine.UseSkill(r.Context(), actor, target, req.Skill)
	switch {
	case err == nil:
	case skill.IsUsageError(err), errors.Is(err, combat.ErrNotInCombat):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	default:
		slog.Warn("skill request failed", "actor", actor.ID(), "skill", req.Skill, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, skillResponse{
		Skill:     out.SkillID,
		Hit:       out.Hit,
		Crit:      out.Crit,
		Countered: out.Countered,
		Damage:    out.Damage,
		Heal:      out.Heal,
	})
}

type statusResponse struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	HP        int32    `json:"hp"`
	MaxHP     int32    `json:"max_hp"`
	Qi        int32    `json:"qi"`
	MaxQi     int32    `json:"max_qi"`
	InCombat  bool     `json:"in_combat"`
	SessionID string   `json:"session_id,omitempty"`
	Round     int32    `json:"round"`
	Buffs     []string `json:"buffs"`
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	c := h.fighter(w, r)
	if c == nil {
		return
	}
	resp := statusResponse{
		ID:       c.ID(),
		Name:     c.Name(),
		HP:       c.CurrentHP(),
		MaxHP:    c.MaxHP(),
		Qi:       c.CurrentQi(),
		MaxQi:    c.MaxQi(),
		InCombat: c.InCombat(),
		Round:    c.Round(),
		Buffs:    []string{},
	}
	if s := h.engine.SessionOf(c); s != nil {
		resp.SessionID = s.ID()
	}
	for _, b := range c.Buffs() {
		resp.Buffs = append(resp.Buffs, b.Name)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) fighter(w http.ResponseWriter, r *http.Request) *model.Combatant {
	c := h.roster.Get(r.PathValue("id"))
	if c == nil {
		writeError(w, http.StatusNotFound, "unknown combatant")
	}
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("writing response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
