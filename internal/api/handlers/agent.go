package handlers

import (
	"net/http"

	"github.com/lorios22/twitter-news-classifier/internal/agent"
)

type AgentHandler struct {
	plan *agent.Plan
}

func NewAgentHandler(plan *agent.Plan) *AgentHandler {
	return &AgentHandler{plan: plan}
}

type listAgentsResponse struct {
	Agents      []agent.TaskInfo `json:"agents"`
	Independent int              `json:"independent"`
	Dependent   int              `json:"dependent"`
}

// List returns the execution plan in execution order with normalized weights.
func (h *AgentHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, listAgentsResponse{
		Agents:      h.plan.Describe(),
		Independent: len(h.plan.Independent),
		Dependent:   len(h.plan.Dependent),
	})
}
