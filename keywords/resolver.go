package keywords

import (
	"context"
	"fmt"

	"linkedevents/db"
	"linkedevents/models"

	"go.mongodb.org/mongo-driver/bson"
)

// ResolveKeywordIDs looks up the requested keyword ids and substitutes the
// direct replacement for each deprecated one (keywords point straight at
// their replacement, so a single hop suffices). The returned ids are
// deduplicated in request order. allFound is false when any requested id has
// no keyword row; AND-style filters treat that as unsatisfiable while
// OR-style filters keep the unknown id, which then matches nothing on its
// own.
func ResolveKeywordIDs(ctx context.Context, ids []string) ([]string, bool, error) {
	if len(ids) == 0 {
		return nil, true, nil
	}

	cursor, err := db.KeywordsCollection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, false, fmt.Errorf("keyword lookup: %w", err)
	}
	defer cursor.Close(ctx)

	replacements := make(map[string]string, len(ids))
	for cursor.Next(ctx) {
		var kw models.Keyword
		if err := cursor.Decode(&kw); err != nil {
			return nil, false, err
		}
		replacements[kw.ID] = kw.ReplacedBy
	}
	if err := cursor.Err(); err != nil {
		return nil, false, err
	}

	resolved, allFound := substituteReplacements(ids, replacements)
	return resolved, allFound, nil
}

// substituteReplacements is the pure core of the resolver: replacements maps
// a found keyword id to its replacement id ("" when not replaced); ids absent
// from the map were not found.
func substituteReplacements(ids []string, replacements map[string]string) ([]string, bool) {
	allFound := true
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		replacement, found := replacements[id]
		if !found {
			allFound = false
		} else if replacement != "" {
			id = replacement
		}
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out, allFound
}

// keywordLookup fetches one keyword by id; injected so the chain walk stays
// testable without Mongo.
type keywordLookup func(ctx context.Context, id string) (*models.Keyword, error)

func keywordByID(ctx context.Context, id string) (*models.Keyword, error) {
	var kw models.Keyword
	if err := db.KeywordsCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&kw); err != nil {
		return nil, err
	}
	return &kw, nil
}

// TerminalReplacement follows the replacement chain from a deprecated
// keyword to its terminal, non-deprecated end. A visited set guards against
// data-level cycles, which report as an error rather than looping.
func TerminalReplacement(ctx context.Context, kw *models.Keyword) (*models.Keyword, error) {
	return terminalReplacement(ctx, kw, keywordByID)
}

func terminalReplacement(ctx context.Context, kw *models.Keyword, lookup keywordLookup) (*models.Keyword, error) {
	visited := map[string]bool{kw.ID: true}
	current := kw
	for current.Deprecated && current.ReplacedBy != "" {
		if visited[current.ReplacedBy] {
			return nil, fmt.Errorf("replacement cycle at keyword %s", current.ID)
		}
		visited[current.ReplacedBy] = true

		next, err := lookup(ctx, current.ReplacedBy)
		if err != nil {
			return nil, fmt.Errorf("replacement %s of keyword %s: %w", current.ReplacedBy, current.ID, err)
		}
		current = next
	}
	return current, nil
}

// ExpandKeywordSets maps keyword-set ids to the union of their member
// keyword ids, reporting ids with no matching set.
func ExpandKeywordSets(ctx context.Context, ids []string) ([]string, []string, error) {
	if len(ids) == 0 {
		return nil, nil, nil
	}
	cursor, err := db.KeywordSetsCollection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, nil, fmt.Errorf("keyword set lookup: %w", err)
	}
	defer cursor.Close(ctx)

	found := make(map[string]bool, len(ids))
	var members []string
	seen := map[string]bool{}
	for cursor.Next(ctx) {
		var set models.KeywordSet
		if err := cursor.Decode(&set); err != nil {
			return nil, nil, err
		}
		found[set.ID] = true
		for _, kw := range set.Keywords {
			if !seen[kw] {
				seen[kw] = true
				members = append(members, kw)
			}
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, nil, err
	}

	var missing []string
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	return members, missing, nil
}
