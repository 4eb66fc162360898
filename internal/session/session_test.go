package session

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smart-trendz/trendz/models"
)

func TestAlternationEnforced(t *testing.T) {
	st := NewStore(time.Minute)
	sess, err := st.Ensure("")
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}

	if err := sess.AppendAssistant("hi"); !errors.Is(err, ErrOutOfTurn) {
		t.Fatalf("assistant cannot open a session, got %v", err)
	}
	if err := sess.AppendUser("question"); err != nil {
		t.Fatalf("AppendUser: %v", err)
	}
	if err := sess.AppendUser("another question"); !errors.Is(err, ErrOutOfTurn) {
		t.Fatalf("double user turn must fail, got %v", err)
	}
	if err := sess.AppendAssistant("answer"); err != nil {
		t.Fatalf("AppendAssistant: %v", err)
	}

	// N exchanges leave exactly 2N turns in strict alternation.
	for i := 0; i < 4; i++ {
		if err := sess.AppendUser("q"); err != nil {
			t.Fatalf("AppendUser %d: %v", i, err)
		}
		if err := sess.AppendAssistant("a"); err != nil {
			t.Fatalf("AppendAssistant %d: %v", i, err)
		}
	}
	turns := sess.Turns()
	if len(turns) != 10 {
		t.Fatalf("expected 10 turns, got %d", len(turns))
	}
	for i, turn := range turns {
		want := models.RoleUser
		if i%2 == 1 {
			want = models.RoleAssistant
		}
		if turn.Role != want {
			t.Fatalf("turn %d role = %s, want %s", i, turn.Role, want)
		}
	}
}

func TestDropLastUserRestoresAlternation(t *testing.T) {
	st := NewStore(time.Minute)
	sess, _ := st.Ensure("")

	if err := sess.AppendUser("q"); err != nil {
		t.Fatalf("AppendUser: %v", err)
	}
	sess.DropLastUser()
	if len(sess.Turns()) != 0 {
		t.Fatalf("expected empty history after drop")
	}
	if err := sess.AppendUser("q again"); err != nil {
		t.Fatalf("AppendUser after drop: %v", err)
	}
}

func TestCloseDiscardsHistory(t *testing.T) {
	st := NewStore(time.Minute)
	sess, _ := st.Ensure("")
	_ = sess.AppendUser("q")
	_ = sess.AppendAssistant("a")

	st.Close(sess.ID())
	if _, err := st.Get(sess.ID()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("closed session should be gone, got %v", err)
	}

	fresh, err := st.Ensure(sess.ID())
	if err != nil {
		t.Fatalf("Ensure after close: %v", err)
	}
	if fresh.ID() == sess.ID() {
		t.Fatal("reopening a closed id must mint a new session")
	}
	if len(fresh.Turns()) != 0 {
		t.Fatal("new session must start empty")
	}
}

func TestCloseUnknownIsNoop(t *testing.T) {
	st := NewStore(time.Minute)
	st.Close("missing")
}

func TestGroundFindsRelevantArticles(t *testing.T) {
	st := NewStore(time.Minute)
	sess, _ := st.Ensure("")

	articles := []models.ArticleRecord{
		{SourceID: "newsletter", Title: "GPT-5 benchmark results", URL: "https://e.com/gpt5", Excerpt: "evaluation scores"},
		{SourceID: "arxiv", Title: "Protein folding advances", URL: "https://e.com/fold", Excerpt: "biology models"},
	}
	if err := sess.IndexArticles(articles); err != nil {
		t.Fatalf("IndexArticles: %v", err)
	}

	hits, err := sess.Ground("benchmark", 5)
	if err != nil {
		t.Fatalf("Ground: %v", err)
	}
	if len(hits) != 1 || hits[0].URL != "https://e.com/gpt5" {
		t.Fatalf("unexpected hits %+v", hits)
	}
}

func TestConcurrentEnsureAndGet(t *testing.T) {
	st := NewStore(time.Minute)
	sess, err := st.Ensure("")
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	id := sess.ID()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if _, err := st.Ensure(id); err != nil {
					t.Errorf("Ensure: %v", err)
					return
				}
				if _, err := st.Get(id); err != nil {
					t.Errorf("Get: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
}
