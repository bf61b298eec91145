// Package insight turns attendance data and free text into completion-service requests
// and degrades to fixed strings when the service is unavailable.
package insight

import (
	"context"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/and161185/rollbook/internal/model"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// User-visible results that replace a completion.
const (
	NoDataMessage    = "No attendance records available to analyze."
	AnalysisFallback = "Sorry, I couldn't analyze the attendance data at this moment."
	AnalysisEmpty    = "Could not generate analysis."
)

const (
	analysisMaxTokens   = 500
	analysisTemperature = 0.4
	refineTemperature   = 0.3
)

// GenerationConfig bounds a single completion. A nil MaxOutputTokens means unbounded.
type GenerationConfig struct {
	MaxOutputTokens *int
	Temperature     float32
}

// Request is a single-shot completion request.
type Request struct {
	Model  string
	Prompt string
	Config GenerationConfig
}

// Response carries the generated text. Empty Text means no text was produced.
type Response struct {
	Text string
}

// Completer is a text-generation backend.
type Completer interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// Generator builds prompts and applies fallback policies. It never returns errors.
type Generator struct {
	c        Completer
	model    string
	log      *zap.Logger
	outcomes *prometheus.CounterVec
}

// NewGenerator wires a generator. reg may be nil to keep the outcome counter unregistered.
func NewGenerator(c Completer, model string, log *zap.Logger, reg prometheus.Registerer) *Generator {
	if model == "" {
		model = DefaultModel
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{c: c, model: model, log: log, outcomes: newOutcomeCounter(reg)}
}

// AnalyzeAttendance asks for a summary report of records.
func (g *Generator) AnalyzeAttendance(ctx context.Context, records []model.AttendanceRecord) string {
	if len(records) == 0 {
		g.record(opAnalyze, OutcomeNoData)
		return NoDataMessage
	}
	limit := analysisMaxTokens
	resp, err := g.c.Complete(ctx, Request{
		Model:  g.model,
		Prompt: BuildAnalysisPrompt(records),
		Config: GenerationConfig{MaxOutputTokens: &limit, Temperature: analysisTemperature},
	})
	if err != nil {
		g.log.Error("attendance analysis failed", zap.Int("records", len(records)), zap.Error(err))
		g.record(opAnalyze, OutcomeFallback)
		return AnalysisFallback
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		g.record(opAnalyze, OutcomeEmptyReply)
		return AnalysisEmpty
	}
	g.record(opAnalyze, OutcomeOK)
	return text
}

// RefineMessage asks for a more professional rewrite of text. Failures return text unchanged.
func (g *Generator) RefineMessage(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		g.record(opRefine, OutcomeEmptyInput)
		return ""
	}
	resp, err := g.c.Complete(ctx, Request{
		Model:  g.model,
		Prompt: BuildRefinePrompt(text),
		Config: GenerationConfig{Temperature: refineTemperature},
	})
	if err != nil {
		g.log.Error("message refinement failed", zap.Error(err))
		g.record(opRefine, OutcomeFallback)
		return text
	}
	out := strings.TrimSpace(resp.Text)
	if out == "" {
		g.record(opRefine, OutcomeEmptyReply)
		return text
	}
	g.record(opRefine, OutcomeOK)
	return out
}

func (g *Generator) record(op, outcome string) {
	g.outcomes.WithLabelValues(op, outcome).Inc()
}
