package pricing

import (
	"os"
	"testing"

	"github.com/pigstyle/records/backend/src/logger"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

func TestParseCondition(t *testing.T) {
	tests := []struct {
		in   string
		want ConditionGrade
	}{
		{"M", Mint},
		{"mint", Mint},
		{"Mint (M)", Mint},
		{"NM", NearMint},
		{"m-", NearMint},
		{"Near Mint (NM or M-)", NearMint},
		{"VG+", VeryGoodPlus},
		{"vg plus", VeryGoodPlus},
		{"Very Good Plus", VeryGoodPlus},
		{"VG", VeryGood},
		{"g+", GoodPlus},
		{"Good", Good},
		{"F", Fair},
		{"poor", Poor},
	}
	for _, tt := range tests {
		got, err := ParseCondition(tt.in)
		if err != nil {
			t.Errorf("ParseCondition(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseCondition(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseConditionRejectsUnknown(t *testing.T) {
	for _, in := range []string{"", "shiny", "grade a"} {
		if _, err := ParseCondition(in); err == nil {
			t.Errorf("ParseCondition(%q) expected error", in)
		}
	}
}

// Every synonym in the table must match its own grade, and the canonical
// Discogs label must always match.
func TestSynonymTableExhaustive(t *testing.T) {
	for _, g := range AllGrades {
		if !g.MatchesText(g.DiscogsLabel()) {
			t.Errorf("%v does not match its own label %q", g, g.DiscogsLabel())
		}
		for _, syn := range g.Synonyms() {
			if !g.MatchesText("condition: " + syn) {
				t.Errorf("%v does not match synonym %q", g, syn)
			}
		}
	}
}

func TestMatchesTextBoundaries(t *testing.T) {
	tests := []struct {
		grade ConditionGrade
		text  string
		want  bool
	}{
		{VeryGoodPlus, "Record is VG+ sleeve VG", true},
		{VeryGoodPlus, "Very Good Plus (VG+)", true},
		{VeryGood, "grading: very good", true},
		{Good, "in good shape", true},
		// "g" must not fire inside other words.
		{Good, "gatefold original pressing", false},
		{Mint, "still sealed copy", true},
		{Mint, "condition statement missing", false},
		{NearMint, "NM or M- jacket", true},
		{Fair, "for fans of the genre", false},
		{Poor, "", false},
	}
	for _, tt := range tests {
		if got := tt.grade.MatchesText(tt.text); got != tt.want {
			t.Errorf("%v.MatchesText(%q) = %v, want %v", tt.grade, tt.text, got, tt.want)
		}
	}
}

func TestGradeOrdering(t *testing.T) {
	if Mint.QualityIndex() != 0 || Poor.QualityIndex() != 7 {
		t.Fatalf("quality index ordering broken: Mint=%d Poor=%d", Mint.QualityIndex(), Poor.QualityIndex())
	}
	for i := 1; i < len(AllGrades); i++ {
		if AllGrades[i].QualityIndex() <= AllGrades[i-1].QualityIndex() {
			t.Fatalf("AllGrades not ordered best to worst at index %d", i)
		}
	}
}

func TestGradesForRole(t *testing.T) {
	if len(GradesForRole("consignor")) != 4 {
		t.Errorf("consignors should see 4 grades, got %d", len(GradesForRole("consignor")))
	}
	if len(GradesForRole("employee")) != 8 {
		t.Errorf("employees should see all 8 grades, got %d", len(GradesForRole("employee")))
	}
}
