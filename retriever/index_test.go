package retriever

import (
	"testing"
)

func TestLexicalIndexQuery(t *testing.T) {
	ix := NewLexicalIndex()
	ix.Add(Document{ID: 1, Text: "Operation=SoftDelete UserId=a@x.com ClientIP=1.2.3.4", PatternName: "Suppression"})
	ix.Add(Document{ID: 2, Text: "action=deny src=10.0.0.1 dst=8.8.8.8 dpt=445", PatternName: "Pare-feu"})
	ix.Add(Document{ID: 3, Text: "EventID=4625 Username=svc-backup", PatternName: "Échec"})

	matches := ix.Query("Operation=SoftDelete UserId=b@y.com ClientIP=1.2.3.4", 2)
	if len(matches) == 0 {
		t.Fatal("expected at least one match")
	}
	if matches[0].ID != 1 {
		t.Errorf("best match = %d, want the near-duplicate payload", matches[0].ID)
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].Score > matches[i-1].Score {
			t.Error("matches not sorted by descending score")
		}
	}
}

func TestLexicalIndexNoFalseMatches(t *testing.T) {
	ix := NewLexicalIndex()
	ix.Add(Document{ID: 1, Text: "alpha beta gamma"})

	if got := ix.Query("omega psi chi", 5); len(got) != 0 {
		t.Errorf("disjoint payload matched: %v", got)
	}
	if got := ix.Query("", 5); got != nil {
		t.Errorf("empty query returned %v", got)
	}
	if got := ix.Query("alpha", 0); got != nil {
		t.Errorf("k=0 returned %v", got)
	}
}

func TestLexicalIndexTruncatesToK(t *testing.T) {
	ix := NewLexicalIndex()
	for i := int64(1); i <= 10; i++ {
		ix.Add(Document{ID: i, Text: "src=10.0.0.1 shared terms"})
	}

	matches := ix.Query("src=10.0.0.1 shared terms", 3)
	if len(matches) != 3 {
		t.Fatalf("got %d matches, want 3", len(matches))
	}
	// Equal scores break ties by descending ID for a stable order.
	if matches[0].ID != 10 || matches[1].ID != 9 || matches[2].ID != 8 {
		t.Errorf("tie-break order = %d,%d,%d", matches[0].ID, matches[1].ID, matches[2].ID)
	}
}

func TestLexicalIndexReplaceByID(t *testing.T) {
	ix := NewLexicalIndex()
	ix.Add(Document{ID: 1, Text: "first version"})
	ix.Add(Document{ID: 1, Text: "second version", PatternName: "updated"})

	if ix.Count() != 1 {
		t.Fatalf("Count = %d, want 1", ix.Count())
	}
	matches := ix.Query("second version", 1)
	if len(matches) != 1 || matches[0].PatternName != "updated" {
		t.Errorf("re-added document not replaced: %v", matches)
	}
}
