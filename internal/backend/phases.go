package backend

import (
	"strings"

	"github.com/mvickers/papercut/internal/models"
)

// phaseInfo classifies one pipeline phase. An explicit table replaces the
// original client's name-suffix guesswork; the suffix check survives only as
// a fallback for phases this build has never heard of.
type phaseInfo struct {
	completion bool // a stage finished; no agent is working
	terminal   bool // the run as a whole is over
	agent      string
	activity   string
}

var phaseTable = map[models.PipelinePhase]phaseInfo{
	models.PhaseIdle:             {completion: true},
	models.PhaseIngesting:        {agent: "ingestor", activity: "Ingesting and indexing footage"},
	models.PhaseIndexed:          {completion: true},
	models.PhaseScripting:        {agent: "scriptwriter", activity: "Drafting the paper edit"},
	models.PhaseScripted:         {completion: true},
	models.PhaseAwaitingApproval: {completion: true},
	models.PhaseApproved:         {completion: true},
	models.PhaseSynthesizing:     {agent: "synthesizer", activity: "Sourcing and generating b-roll"},
	models.PhaseSynthesized:      {completion: true},
	models.PhaseRendering:        {agent: "renderer", activity: "Rendering the sequence"},
	models.PhaseRendered:         {completion: true},
	models.PhaseMastering:        {agent: "audio-engineer", activity: "Mastering the soundtrack"},
	models.PhaseMastered:         {completion: true},
	models.PhaseExporting:        {agent: "exporter", activity: "Packaging final deliverables"},
	models.PhaseComplete:         {completion: true, terminal: true},
	models.PhaseError:            {completion: true, terminal: true},
}

// ClearsActivity reports whether the agent-activity indicator should be
// cleared when this phase arrives.
func ClearsActivity(p models.PipelinePhase) bool {
	if info, ok := phaseTable[p]; ok {
		return info.completion
	}
	// Unknown phase from a newer backend: fall back to the naming convention
	// (completed stages end in "-ed").
	return strings.HasSuffix(string(p), "ed")
}

// IsTerminal reports whether the run is over in this phase.
func IsTerminal(p models.PipelinePhase) bool {
	if info, ok := phaseTable[p]; ok {
		return info.terminal
	}
	return false
}

// ActivityFor returns the agent indicator for an in-progress phase, or nil
// when the phase denotes completion.
func ActivityFor(p models.PipelinePhase) *models.AgentActivity {
	info, ok := phaseTable[p]
	if !ok {
		if ClearsActivity(p) {
			return nil
		}
		return &models.AgentActivity{Agent: string(p), Description: "Working"}
	}
	if info.completion || info.agent == "" {
		return nil
	}
	return &models.AgentActivity{Agent: info.agent, Description: info.activity}
}
