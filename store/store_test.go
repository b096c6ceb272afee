package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socanalyzer/core"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestStoreAnalysisCreatesPattern(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	analysisID, patternID, err := st.StoreAnalysis(ctx, StoreRequest{
		Payload:     "Operation=SoftDelete UserId=a@x.com",
		Report:      "narrative",
		PatternName: "Suppression d'élément",
		Summary:     "résumé",
		Status:      core.StatusFalsePositive,
		Tags:        "m365",
	})
	require.NoError(t, err)
	assert.NotZero(t, analysisID)
	assert.NotZero(t, patternID)

	pattern, err := st.GetPatternByName(ctx, "Suppression d'élément")
	require.NoError(t, err)
	assert.Equal(t, patternID, pattern.ID)
	assert.Equal(t, "résumé", pattern.Summary)
	assert.Equal(t, core.StatusFalsePositive, pattern.Status)
}

func TestStoreAnalysisUpsertLastWriteWins(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	_, firstPatternID, err := st.StoreAnalysis(ctx, StoreRequest{
		Payload:     "payload-1",
		PatternName: "Trafic bloqué",
		Summary:     "ancien résumé",
		Status:      core.StatusUndetermined,
	})
	require.NoError(t, err)

	_, secondPatternID, err := st.StoreAnalysis(ctx, StoreRequest{
		Payload:     "payload-2",
		PatternName: "Trafic bloqué",
		Summary:     "nouveau résumé",
		Status:      core.StatusFalsePositive,
	})
	require.NoError(t, err)

	// Same name, same pattern row.
	assert.Equal(t, firstPatternID, secondPatternID)

	patterns, err := st.ListPatterns(ctx)
	require.NoError(t, err)
	require.Len(t, patterns, 1)
	assert.Equal(t, "nouveau résumé", patterns[0].Summary)
	assert.Equal(t, core.StatusFalsePositive, patterns[0].Status)

	// Both analysis rows survive with their original denormalized copies.
	analyses, err := st.ListAnalyses(ctx, 0)
	require.NoError(t, err)
	require.Len(t, analyses, 2)
	summaries := []string{analyses[0].Summary, analyses[1].Summary}
	assert.Contains(t, summaries, "ancien résumé")
	assert.Contains(t, summaries, "nouveau résumé")
}

func TestStoreAnalysisNormalizesStatus(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	_, _, err := st.StoreAnalysis(ctx, StoreRequest{
		Payload:     "p",
		PatternName: "Inconnu",
		Status:      "garbage status",
	})
	require.NoError(t, err)

	pattern, err := st.GetPatternByName(ctx, "Inconnu")
	require.NoError(t, err)
	assert.Equal(t, core.StatusUndetermined, pattern.Status)
}

func TestStoreAnalysisWritesAudit(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	_, _, err := st.StoreAnalysis(ctx, StoreRequest{
		Payload:     "p",
		PatternName: "X",
		ClientIP:    "1.2.3.4",
		UserAgent:   "curl/8",
	})
	require.NoError(t, err)

	entries, err := st.ListAudit(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "store_analysis", entries[0].Action)
	assert.Equal(t, "1.2.3.4", entries[0].IPAddress)
	assert.Equal(t, "curl/8", entries[0].UserAgent)
}

func TestSaveAndUpdatePattern(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	id, err := st.SavePattern(ctx, core.Pattern{
		Name:     "Connexion suspecte",
		Summary:  "s1",
		Status:   core.StatusUndetermined,
		Feedback: "à revoir",
	})
	require.NoError(t, err)

	// Saving again under the same name updates in place.
	id2, err := st.SavePattern(ctx, core.Pattern{
		Name:    "Connexion suspecte",
		Summary: "s2",
		Status:  core.StatusTruePositive,
	})
	require.NoError(t, err)
	assert.Equal(t, id, id2)

	require.NoError(t, st.UpdatePattern(ctx, id, "s3", "desc", core.StatusFalsePositive, "validé", "vpn"))

	pattern, err := st.GetPatternByName(ctx, "Connexion suspecte")
	require.NoError(t, err)
	assert.Equal(t, "s3", pattern.Summary)
	assert.Equal(t, core.StatusFalsePositive, pattern.Status)
	assert.Equal(t, "validé", pattern.Feedback)
}

func TestDeletePatternKeepsAnalyses(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	_, patternID, err := st.StoreAnalysis(ctx, StoreRequest{
		Payload:     "p",
		PatternName: "Éphémère",
		Summary:     "s",
	})
	require.NoError(t, err)

	require.NoError(t, st.DeletePattern(ctx, patternID))

	_, err = st.GetPatternByName(ctx, "Éphémère")
	assert.ErrorIs(t, err, ErrNotFound)

	// The analysis row survives with its denormalized name.
	analyses, err := st.ListAnalyses(ctx, 0)
	require.NoError(t, err)
	require.Len(t, analyses, 1)
	assert.Equal(t, "Éphémère", analyses[0].PatternName)
	assert.Zero(t, analyses[0].PatternID)
}

func TestClearHistory(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := st.StoreAnalysis(ctx, StoreRequest{Payload: "p", PatternName: "X"})
		require.NoError(t, err)
	}

	n, err := st.ClearHistory(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	analyses, err := st.ListAnalyses(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, analyses)
}

func TestUsers(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	user, err := st.CreateUser(ctx, "alice", "s3cret", "alice@x.com", "admin")
	require.NoError(t, err)
	assert.True(t, user.IsAdmin())
	assert.NotEqual(t, "s3cret", user.PasswordHash)

	got, err := st.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "alice@x.com", got.Email)

	// Duplicate usernames are rejected by the unique constraint.
	_, err = st.CreateUser(ctx, "alice", "other", "", "user")
	assert.Error(t, err)

	require.NoError(t, st.UpdateProfile(ctx, user.ID, "new@x.com", "sk-personal", "photo.png"))
	got, err = st.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "new@x.com", got.Email)
	assert.Equal(t, "sk-personal", got.APIKey)

	_, err = st.GetUserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAudit(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, st.AppendAudit(ctx, core.AuditEntry{
			Action:  "test_action",
			Details: "d",
		}))
	}

	entries, err := st.ListAudit(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	n, err := st.ClearAudit(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)
}
