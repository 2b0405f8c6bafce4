package backend

import (
	"testing"

	"github.com/mvickers/papercut/internal/models"
)

func TestClearsActivity(t *testing.T) {
	tests := []struct {
		phase models.PipelinePhase
		want  bool
	}{
		{models.PhaseIdle, true},
		{models.PhaseIngesting, false},
		{models.PhaseIndexed, true},
		{models.PhaseScripting, false},
		{models.PhaseAwaitingApproval, true},
		{models.PhaseRendering, false},
		{models.PhaseRendered, true},
		{models.PhaseExporting, false},
		{models.PhaseComplete, true},
		{models.PhaseError, true},
		// Unknown phases fall back to the "-ed" naming convention.
		{models.PipelinePhase("color-grading"), false},
		{models.PipelinePhase("color-graded"), true},
	}
	for _, tt := range tests {
		if got := ClearsActivity(tt.phase); got != tt.want {
			t.Errorf("ClearsActivity(%s) = %v, want %v", tt.phase, got, tt.want)
		}
	}
}

func TestIsTerminal(t *testing.T) {
	for phase, want := range map[models.PipelinePhase]bool{
		models.PhaseComplete:  true,
		models.PhaseError:     true,
		models.PhaseRendering: false,
		models.PhaseIdle:      false,
		models.PipelinePhase("color-graded"): false,
	} {
		if got := IsTerminal(phase); got != want {
			t.Errorf("IsTerminal(%s) = %v, want %v", phase, got, want)
		}
	}
}

func TestActivityFor(t *testing.T) {
	act := ActivityFor(models.PhaseMastering)
	if act == nil || act.Agent != "audio-engineer" {
		t.Fatalf("ActivityFor(mastering) = %+v", act)
	}
	if ActivityFor(models.PhaseMastered) != nil {
		t.Error("completion phase must carry no activity")
	}
	unknown := ActivityFor(models.PipelinePhase("color-grading"))
	if unknown == nil || unknown.Agent != "color-grading" {
		t.Errorf("unknown in-progress phase should synthesize an indicator, got %+v", unknown)
	}
}
