package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAssessTGI(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("Failed to decode request body: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"generated_text": "Pattern du payload : Test\nStatut : Faux positif\n",
		})
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL, Kind: KindTGI, MaxTokens: 500})
	got := client.Assess(context.Background(), "src=10.0.0.1", AssessOptions{})

	if got.Degraded {
		t.Fatalf("unexpected degradation: %s", got.TransportErr)
	}
	if !strings.Contains(got.Narrative, "Pattern du payload : Test") {
		t.Errorf("Narrative = %q", got.Narrative)
	}
	if got.PromptVersion != PromptVersion {
		t.Errorf("PromptVersion = %q", got.PromptVersion)
	}

	if _, ok := gotBody["prompt"]; !ok {
		t.Error("TGI request body missing the prompt field")
	}
	if gotBody["max_new_tokens"] != float64(500) {
		t.Errorf("max_new_tokens = %v", gotBody["max_new_tokens"])
	}
	prompt, _ := gotBody["prompt"].(string)
	if !strings.Contains(prompt, "src=10.0.0.1") {
		t.Error("payload not embedded in the prompt")
	}
}

func TestAssessOpenAI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer user-key" {
			t.Errorf("Authorization = %q", auth)
		}
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		if body["model"] != "gpt-4o-mini" {
			t.Errorf("model = %v", body["model"])
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "Statut : Vrai positif"}},
			},
		})
	}))
	defer server.Close()

	client := New(Config{
		BaseURL: server.URL,
		Kind:    KindOpenAI,
		Model:   "gpt-4o-mini",
		APIKey:  "default-key",
	})
	// The per-user key overrides the configured one.
	got := client.Assess(context.Background(), "payload", AssessOptions{APIKey: "user-key"})

	if got.Degraded {
		t.Fatalf("unexpected degradation: %s", got.TransportErr)
	}
	if got.Narrative != "Statut : Vrai positif" {
		t.Errorf("Narrative = %q", got.Narrative)
	}
}

func TestAssessCustomPrompt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		if body["prompt"] != "analyse ceci" {
			t.Errorf("prompt = %v, want the custom prompt verbatim", body["prompt"])
		}
		json.NewEncoder(w).Encode(map[string]string{"text": "ok"})
	}))
	defer server.Close()

	client := New(Config{BaseURL: server.URL})
	got := client.Assess(context.Background(), "ignored", AssessOptions{CustomPrompt: "analyse ceci"})
	if got.Narrative != "ok" {
		t.Errorf("Narrative = %q", got.Narrative)
	}
}

func TestAssessDegradesOnOutage(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string // returns base URL
	}{
		{
			name: "unreachable endpoint",
			setup: func(t *testing.T) string {
				return "http://127.0.0.1:1" // nothing listens here
			},
		},
		{
			name: "http 500",
			setup: func(t *testing.T) string {
				server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					http.Error(w, "boom", http.StatusInternalServerError)
				}))
				t.Cleanup(server.Close)
				return server.URL
			},
		},
		{
			name: "empty generation",
			setup: func(t *testing.T) string {
				server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					json.NewEncoder(w).Encode(map[string]string{"generated_text": ""})
				}))
				t.Cleanup(server.Close)
				return server.URL
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := New(Config{BaseURL: tt.setup(t), TimeoutSec: 2})
			got := client.Assess(context.Background(), "Operation=SoftDelete", AssessOptions{})

			if !got.Degraded {
				t.Fatal("expected a degraded assessment")
			}
			if got.TransportErr == "" {
				t.Error("degraded assessment must carry the transport error")
			}
			if !strings.Contains(got.Narrative, "Analyse dégradée") {
				t.Errorf("Narrative = %q, want the fallback narrative", got.Narrative)
			}
			// The fallback narrative stays machine-extractable.
			if ex := ExtractFields(got.Narrative); ex.PatternName == "" {
				t.Error("fallback narrative must carry an extractable pattern name")
			}
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("src=1.2.3.4", []string{"Pattern : X\nStatut : Faux positif"})

	if !strings.Contains(prompt, "src=1.2.3.4") {
		t.Error("prompt missing the payload")
	}
	if !strings.Contains(prompt, "Analyses similaires déjà validées par le SOC") {
		t.Error("prompt missing the context block header")
	}
	if !strings.Contains(prompt, "--- Contexte 1 ---") {
		t.Error("prompt missing the numbered context")
	}

	// Oversized payloads are truncated, not rejected.
	long := strings.Repeat("A", maxPayloadChars+100)
	truncated := BuildPrompt(long, nil)
	if !strings.Contains(truncated, "payload tronqué") {
		t.Error("oversized payload should be marked truncated")
	}
}
