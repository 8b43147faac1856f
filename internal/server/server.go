// Package server exposes live cost recalculation over a websocket.
package server

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/napolitain/upgrade-planner/internal/cost"
	"github.com/napolitain/upgrade-planner/internal/efficiency"
	"github.com/napolitain/upgrade-planner/internal/models"
	"github.com/napolitain/upgrade-planner/internal/plan"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Selection is the player's choice for one buff
type Selection struct {
	BuffID int64 `json:"buff_id"`
	Level  int   `json:"level"`
	Active bool  `json:"active"`
}

type request struct {
	Inputs         []Selection `json:"inputs"`
	SyndicateLevel int         `json:"syndicate_level,omitempty"`

	// Drydock switches the selected drydock; 0 keeps the current one
	Drydock int64 `json:"drydock,omitempty"`
}

type response struct {
	Summary *cost.Summary                        `json:"summary,omitempty"`
	Bonuses map[models.ModifierCode]models.Bonus `json:"bonuses,omitempty"`
	Inputs  []efficiency.Input                   `json:"inputs,omitempty"`
	Drydock int64                                `json:"drydock,omitempty"`
	Error   string                               `json:"error,omitempty"`
}

// Server recalculates one plan for every message it receives
type Server struct {
	planner *plan.Planner
	plan    *plan.Plan
	logger  *log.Logger

	// mu serializes recalculation; the engine's bonuses and the plan's
	// nodes are shared by every connection
	mu sync.Mutex
}

func New(planner *plan.Planner, pl *plan.Plan, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{planner: planner, plan: pl, logger: logger}
}

// Handler routes /ws to the websocket endpoint
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	return mux
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("server: websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	if err := conn.WriteJSON(s.recalculate(request{})); err != nil {
		s.logger.Printf("server: send failed: %v", err)
		return
	}

	for {
		var req request
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Printf("server: read failed: %v", err)
			}
			return
		}
		if err := conn.WriteJSON(s.recalculate(req)); err != nil {
			s.logger.Printf("server: send failed: %v", err)
			return
		}
	}
}

func (s *Server) recalculate(req request) response {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.Drydock != 0 {
		if err := s.planner.SelectDrydock(s.plan, req.Drydock); err != nil {
			return response{Error: err.Error()}
		}
	}

	inputs := s.planner.Inputs(s.plan)
	byID := make(map[int64]Selection, len(req.Inputs))
	for _, sel := range req.Inputs {
		byID[sel.BuffID] = sel
	}
	for i := range inputs {
		sel, ok := byID[inputs[i].Ref.ID]
		if !ok {
			continue
		}
		inputs[i].Select(sel.Level)
		// drydock inputs follow the selected drydock
		if !inputs[i].Drydock {
			inputs[i].Active = sel.Active
		}
	}
	if req.SyndicateLevel > 0 {
		efficiency.LimitSyndicate(inputs, req.SyndicateLevel)
	}

	summary, err := s.planner.Recalculate(s.plan, inputs)
	if err != nil {
		return response{Error: err.Error()}
	}
	return response{Summary: summary, Bonuses: s.planner.Bonuses(s.plan), Inputs: inputs, Drydock: s.plan.Drydock}
}
