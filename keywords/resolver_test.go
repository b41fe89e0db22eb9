package keywords

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"linkedevents/models"
)

func fakeLookup(rows map[string]*models.Keyword) keywordLookup {
	return func(_ context.Context, id string) (*models.Keyword, error) {
		kw, ok := rows[id]
		if !ok {
			return nil, fmt.Errorf("keyword %s not found", id)
		}
		return kw, nil
	}
}

func TestSubstituteReplacements(t *testing.T) {
	replacements := map[string]string{
		"yso:p1": "",        // plain keyword
		"yso:p2": "yso:p20", // deprecated, replaced
		"yso:p3": "yso:p1",  // replacement collapses into an existing id
	}

	got, allFound := substituteReplacements([]string{"yso:p1", "yso:p2"}, replacements)
	if !allFound {
		t.Fatal("all ids were found")
	}
	if !reflect.DeepEqual(got, []string{"yso:p1", "yso:p20"}) {
		t.Fatalf("got %v", got)
	}

	// unknown id is kept but reported
	got, allFound = substituteReplacements([]string{"yso:p1", "nope"}, replacements)
	if allFound {
		t.Fatal("nope was not found")
	}
	if !reflect.DeepEqual(got, []string{"yso:p1", "nope"}) {
		t.Fatalf("got %v", got)
	}

	// replacement target deduplicates against a directly requested id
	got, allFound = substituteReplacements([]string{"yso:p3", "yso:p1"}, replacements)
	if !allFound {
		t.Fatal("all ids were found")
	}
	if !reflect.DeepEqual(got, []string{"yso:p1"}) {
		t.Fatalf("expected deduplication, got %v", got)
	}

	got, allFound = substituteReplacements(nil, replacements)
	if !allFound || len(got) != 0 {
		t.Fatalf("empty input: got %v allFound=%v", got, allFound)
	}
}

func TestTerminalReplacementMultiHop(t *testing.T) {
	rows := map[string]*models.Keyword{
		"yso:p2": {ID: "yso:p2", Deprecated: true, ReplacedBy: "yso:p3"},
		"yso:p3": {ID: "yso:p3"},
	}
	start := &models.Keyword{ID: "yso:p1", Deprecated: true, ReplacedBy: "yso:p2"}

	terminal, err := terminalReplacement(context.Background(), start, fakeLookup(rows))
	if err != nil {
		t.Fatal(err)
	}
	if terminal.ID != "yso:p3" {
		t.Fatalf("expected the chain to end at yso:p3, got %s", terminal.ID)
	}
}

func TestTerminalReplacementStopsAtNonDeprecated(t *testing.T) {
	// a non-deprecated keyword carrying a replaced_by pointer is terminal
	rows := map[string]*models.Keyword{
		"yso:p2": {ID: "yso:p2", ReplacedBy: "yso:p3"},
	}
	start := &models.Keyword{ID: "yso:p1", Deprecated: true, ReplacedBy: "yso:p2"}

	terminal, err := terminalReplacement(context.Background(), start, fakeLookup(rows))
	if err != nil {
		t.Fatal(err)
	}
	if terminal.ID != "yso:p2" {
		t.Fatalf("got %s", terminal.ID)
	}
}

func TestTerminalReplacementCycle(t *testing.T) {
	rows := map[string]*models.Keyword{
		"yso:p1": {ID: "yso:p1", Deprecated: true, ReplacedBy: "yso:p2"},
		"yso:p2": {ID: "yso:p2", Deprecated: true, ReplacedBy: "yso:p1"},
	}

	if _, err := terminalReplacement(context.Background(), rows["yso:p1"], fakeLookup(rows)); err == nil {
		t.Fatal("a replacement cycle must surface as an error, not loop")
	}

	self := &models.Keyword{ID: "yso:p9", Deprecated: true, ReplacedBy: "yso:p9"}
	if _, err := terminalReplacement(context.Background(), self, fakeLookup(nil)); err == nil {
		t.Fatal("a self-replacement must surface as an error")
	}
}

func TestTerminalReplacementMissingRow(t *testing.T) {
	start := &models.Keyword{ID: "yso:p1", Deprecated: true, ReplacedBy: "yso:gone"}
	if _, err := terminalReplacement(context.Background(), start, fakeLookup(nil)); err == nil {
		t.Fatal("a dangling replacement must surface as an error")
	}
}
