// Package app wires the parsing, normalization, oracle and storage layers
// into the analyzer the HTTP surface exposes.
package app

import (
	"context"
	"fmt"

	"socanalyzer/core"
	"socanalyzer/internal/logger"
	"socanalyzer/normalize"
	"socanalyzer/oracle"
	"socanalyzer/parsers"
	"socanalyzer/store"
)

// Analyzer composes the analysis pipeline. It is safe for concurrent use:
// the only state is the connection pool held by the store and the oracle
// HTTP client.
type Analyzer struct {
	Store  *store.Store
	Oracle *oracle.Client
}

// NewAnalyzer opens the database and builds the pipeline from config.
func NewAnalyzer(cfg *Config) (*Analyzer, error) {
	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return &Analyzer{
		Store:  st,
		Oracle: oracle.New(cfg.Oracle),
	}, nil
}

// Close releases the store.
func (a *Analyzer) Close() error {
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}

// LocalAnalysis is the result of the oracle-free pipeline: parse,
// normalize, template report.
type LocalAnalysis struct {
	Parsed     core.ParsedFields      `json:"parsed"`
	Summary    map[string]interface{} `json:"summary"`
	Normalized core.NormalizedFields  `json:"normalized"`
	Report     string                 `json:"soc_report"`
}

// AnalyzeLocal runs the local pipeline over a raw payload. It cannot fail:
// the tokenizer accepts anything and the report falls back to N/A fields.
func (a *Analyzer) AnalyzeLocal(raw string) LocalAnalysis {
	parsed := parsers.ParsePayload(raw)
	normalized := normalize.MapFields(parsed)
	return LocalAnalysis{
		Parsed:     parsed,
		Summary:    parsers.ExtractCriticalFields(parsed),
		Normalized: normalized,
		Report:     normalize.GenerateReport(normalized),
	}
}

// OracleRequest carries the per-request inputs of an oracle-backed
// analysis.
type OracleRequest struct {
	Payload      string
	CustomPrompt string
	Tags         string
	// Status is the explicit analyst judgment; empty means infer from the
	// oracle narrative.
	Status string
	// User, when set, supplies ownership and a personal API key override.
	User      *core.User
	ClientIP  string
	UserAgent string
	// Contexts are similar past analyses supplied by the retriever.
	Contexts []string
}

// OracleAnalysis is the persisted outcome of an oracle-backed run.
type OracleAnalysis struct {
	AnalysisID    int64  `json:"analysis_id"`
	PatternID     int64  `json:"pattern_id"`
	PatternName   string `json:"pattern_name"`
	Summary       string `json:"summary"`
	Facts         string `json:"facts"`
	Technical     string `json:"technical"`
	Result        string `json:"result"`
	Justification string `json:"justification"`
	Status        string `json:"status"`
	Report        string `json:"report"`
	Degraded      bool   `json:"degraded"`
	PromptVersion string `json:"prompt_version"`
}

// AnalyzeWithOracle sends the payload to the risk-assessment oracle,
// extracts the labeled fields from its narrative and persists the result.
// An oracle outage degrades to the heuristic classifier; only a
// persistence failure is returned as an error.
func (a *Analyzer) AnalyzeWithOracle(ctx context.Context, req OracleRequest) (OracleAnalysis, error) {
	opts := oracle.AssessOptions{
		CustomPrompt: req.CustomPrompt,
		Contexts:     req.Contexts,
	}
	var userID int64
	if req.User != nil {
		userID = req.User.ID
		opts.APIKey = req.User.APIKey
	}

	assessment := a.Oracle.Assess(ctx, req.Payload, opts)
	extracted := oracle.ExtractFields(assessment.Narrative)

	// A narrative with no usable pattern label still gets a stable,
	// low-confidence name so the upsert has a key.
	if extracted.PatternName == "" {
		extracted.PatternName, _ = oracle.ClassifyFallback(req.Payload)
	}

	// Explicit analyst intent wins over keyword inference.
	status := extracted.Status
	if req.Status != "" {
		status = core.NormalizeStatus(req.Status)
	}

	analysisID, patternID, err := a.Store.StoreAnalysis(ctx, store.StoreRequest{
		Payload:       req.Payload,
		Report:        assessment.Narrative,
		PatternName:   extracted.PatternName,
		Summary:       extracted.Summary,
		Facts:         extracted.Facts,
		Technical:     extracted.Technical,
		Result:        extracted.Result,
		Justification: extracted.Justification,
		Status:        status,
		Tags:          req.Tags,
		UserID:        userID,
		ClientIP:      req.ClientIP,
		UserAgent:     req.UserAgent,
	})
	if err != nil {
		return OracleAnalysis{}, fmt.Errorf("failed to persist analysis: %w", err)
	}

	if assessment.Degraded {
		logger.Info("persisted degraded analysis %d (pattern %q)", analysisID, extracted.PatternName)
	}

	return OracleAnalysis{
		AnalysisID:    analysisID,
		PatternID:     patternID,
		PatternName:   extracted.PatternName,
		Summary:       extracted.Summary,
		Facts:         extracted.Facts,
		Technical:     extracted.Technical,
		Result:        extracted.Result,
		Justification: extracted.Justification,
		Status:        core.NormalizeStatus(status),
		Report:        assessment.Narrative,
		Degraded:      assessment.Degraded,
		PromptVersion: assessment.PromptVersion,
	}, nil
}
