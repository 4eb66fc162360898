package artifact

import (
	"errors"
	"os"
	"strings"
	"testing"
)

func TestPutGetRoundTrip(t *testing.T) {
	st, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	if err := st.Put("dana_report_20251002.json", []byte(`{"ok":true}`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	data, err := st.Get("dana_report_20251002.json")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(data) != `{"ok":true}` {
		t.Fatalf("unexpected content %q", data)
	}
	if !st.Exists("dana_report_20251002.json") {
		t.Fatal("Exists should report published artifact")
	}
}

func TestNoPartialArtifactVisible(t *testing.T) {
	dir := t.TempDir()
	st, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := st.Put("leaderboard.html", []byte("<html>done</html>")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// The directory must contain only complete artifacts, no temp leftovers.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Fatalf("temp file leaked: %s", e.Name())
		}
	}
	if len(entries) != 1 {
		t.Fatalf("expected exactly the published artifact, got %d entries", len(entries))
	}
}

func TestGetMissing(t *testing.T) {
	st, _ := NewStore(t.TempDir())
	if _, err := st.Get("missing.json"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNameValidation(t *testing.T) {
	st, _ := NewStore(t.TempDir())
	for _, bad := range []string{"", "../escape.html", "a/b.html", `a\b.html`} {
		if err := st.Put(bad, []byte("x")); err == nil {
			t.Fatalf("Put(%q) should fail", bad)
		}
		if st.Exists(bad) {
			t.Fatalf("Exists(%q) should be false", bad)
		}
	}
}

func TestLatestPicksNewestTimestamp(t *testing.T) {
	st, _ := NewStore(t.TempDir())
	_ = st.Put("dana_report_20250101_090000.json", []byte("old"))
	_ = st.Put("dana_report_20251002_090000.json", []byte("new"))
	_ = st.Put("omar_report_20259999_000000.json", []byte("other user"))

	name, err := st.Latest("dana_report_")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if name != "dana_report_20251002_090000.json" {
		t.Fatalf("unexpected latest %q", name)
	}

	if _, err := st.Latest("nobody_"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing prefix, got %v", err)
	}
}
