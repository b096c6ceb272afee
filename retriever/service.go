package retriever

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"socanalyzer/internal/logger"
	"socanalyzer/oracle"
	"socanalyzer/store"
)

// Service is the retriever microservice: similarity context in front of
// the oracle.
type Service struct {
	store   *store.Store
	oracle  *oracle.Client
	index   Index
	topK    int
	started time.Time
}

// NewService builds the service around a store, an oracle client and a
// similarity index.
func NewService(st *store.Store, oc *oracle.Client, index Index, topK int) *Service {
	if topK <= 0 {
		topK = 3
	}
	return &Service{
		store:   st,
		oracle:  oc,
		index:   index,
		topK:    topK,
		started: time.Now(),
	}
}

// SeedFromStore loads every stored analysis into the similarity index.
// Called once at startup. Documents are keyed by payload hash, the same
// identity the analyze path uses, so a re-analyzed payload replaces its
// seeded entry instead of duplicating it.
func (s *Service) SeedFromStore(ctx context.Context) error {
	analyses, err := s.store.ListAnalyses(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to seed index: %w", err)
	}
	for _, a := range analyses {
		s.index.Add(Document{
			ID:          payloadID(a.Payload),
			Text:        a.Payload,
			PatternName: a.PatternName,
			Status:      a.Status,
			Summary:     a.Summary,
		})
	}
	logger.Info("similarity index seeded with %d analyses", len(analyses))
	return nil
}

// payloadID derives the index identity of a payload from its sha256,
// shifted into the non-negative int64 range. One entry per distinct
// payload text, wherever it entered the index.
func payloadID(payload string) int64 {
	sum := sha256.Sum256([]byte(payload))
	return int64(binary.BigEndian.Uint64(sum[:8]) >> 1)
}

// Handler returns the service router.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/analyze", s.handleAnalyze)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/stats", s.handleStats)
	return mux
}

type analyzeRequest struct {
	Payload string `json:"payload"`
}

type analyzeResponse struct {
	Analysis        string  `json:"analysis"`
	ContextCount    int     `json:"context_count"`
	PayloadHash     string  `json:"payload_hash"`
	SimilarAnalyses []Match `json:"similar_analyses"`
	Degraded        bool    `json:"degraded,omitempty"`
}

// handleAnalyze queries the index for similar past analyses, assesses the
// payload with that context and folds the result back into the index.
func (s *Service) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Payload == "" {
		http.Error(w, "payload is required", http.StatusBadRequest)
		return
	}

	hash := sha256.Sum256([]byte(req.Payload))
	hashHex := hex.EncodeToString(hash[:])

	matches := s.index.Query(req.Payload, s.topK)
	contexts := make([]string, 0, len(matches))
	for _, m := range matches {
		contexts = append(contexts, fmt.Sprintf("Pattern : %s\nStatut : %s\nRésumé : %s",
			m.PatternName, m.Status, m.Summary))
	}

	assessment := s.oracle.Assess(r.Context(), req.Payload, oracle.AssessOptions{
		Contexts: contexts,
	})
	extracted := oracle.ExtractFields(assessment.Narrative)

	// Fold the fresh analysis into the index so the next query sees it.
	// The hash-derived ID keeps one entry per distinct payload.
	s.index.Add(Document{
		ID:          payloadID(req.Payload),
		Text:        req.Payload,
		PatternName: extracted.PatternName,
		Status:      extracted.Status,
		Summary:     extracted.Summary,
	})

	writeJSON(w, http.StatusOK, analyzeResponse{
		Analysis:        assessment.Narrative,
		ContextCount:    len(contexts),
		PayloadHash:     hashHex,
		SimilarAnalyses: matches,
		Degraded:        assessment.Degraded,
	})
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Service) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"indexed_count":  s.index.Count(),
		"uptime_seconds": int(time.Since(s.started).Seconds()),
		"prompt_version": oracle.PromptVersion,
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode response: %v", err)
	}
}
