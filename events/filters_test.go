package events

import (
	"context"
	"errors"
	"net/url"
	"reflect"
	"testing"
	"time"

	"linkedevents/apierr"

	"go.mongodb.org/mongo-driver/bson"
)

type fakeOngoing struct {
	data map[string]map[string]string
}

// Get mirrors the HGETALL contract: a missing key is an empty map with a nil
// error, never redis.Nil.
func (f fakeOngoing) Get(_ context.Context, key string) (map[string]string, error) {
	m, ok := f.data[key]
	if !ok {
		return map[string]string{}, nil
	}
	return m, nil
}

type failingOngoing struct{}

func (failingOngoing) Get(_ context.Context, _ string) (map[string]string, error) {
	return nil, errors.New("connection refused")
}

func testDeps() FilterDeps {
	return FilterDeps{
		Now: func() time.Time {
			return time.Date(2024, 5, 14, 12, 0, 0, 0, time.UTC)
		},
		ResolveKeywords: func(_ context.Context, ids []string) ([]string, bool, error) {
			// "old" is replaced by "new"; "ghost" does not exist.
			out := make([]string, 0, len(ids))
			allFound := true
			for _, id := range ids {
				switch id {
				case "old":
					out = append(out, "new")
				case "ghost":
					out = append(out, id)
					allFound = false
				default:
					out = append(out, id)
				}
			}
			return out, allFound, nil
		},
		ExpandKeywordSets: func(_ context.Context, ids []string) ([]string, []string, error) {
			var members, missing []string
			for _, id := range ids {
				if id == "helsinki:topics" {
					members = append(members, "yso:p1235", "yso:p1947")
				} else {
					missing = append(missing, id)
				}
			}
			return members, missing, nil
		},
		ExpandPublishers: func(_ context.Context, ids []string) ([]string, error) {
			out := append([]string{}, ids...)
			for _, id := range ids {
				if id == "org:b" {
					out = append(out, "org:a") // a was replaced by b
				}
			}
			return out, nil
		},
		DescendantPublishers: func(_ context.Context, ids []string) ([]string, error) {
			out := append([]string{}, ids...)
			for _, id := range ids {
				if id == "org:root" {
					out = append(out, "org:child")
				}
			}
			return out, nil
		},
		PlacesInBBox: func(_ context.Context, w, s, e, n float64) ([]string, error) {
			return []string{"tprek:1"}, nil
		},
		PrivateDataSources: func(_ context.Context) ([]string, error) {
			return []string{"secretsource"}, nil
		},
		RecurringSuperIDs: func(_ context.Context) ([]string, error) {
			return []string{"super:1"}, nil
		},
		Ongoing: fakeOngoing{data: map[string]map[string]string{
			"local_ids": {
				"evt:1": "konsertti helsinki musiikkitalo",
				"evt:2": "jumppa liikuntakeskus",
			},
			"internet_ids": {
				"evt:3": "konsertti verkossa stream",
			},
		}},
	}
}

func build(t *testing.T, rawQuery string) bson.M {
	t.Helper()
	params, err := url.ParseQuery(rawQuery)
	if err != nil {
		t.Fatal(err)
	}
	filter, err := BuildEventFilter(context.Background(), params, testDeps())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return filter
}

func buildErr(t *testing.T, rawQuery string) error {
	t.Helper()
	params, err := url.ParseQuery(rawQuery)
	if err != nil {
		t.Fatal(err)
	}
	_, err = BuildEventFilter(context.Background(), params, testDeps())
	if err == nil {
		t.Fatalf("expected error for %q", rawQuery)
	}
	return err
}

func conds(t *testing.T, filter bson.M) []bson.M {
	t.Helper()
	and, ok := filter["$and"].([]bson.M)
	if !ok {
		t.Fatalf("expected $and filter, got %v", filter)
	}
	return and
}

func hasCond(list []bson.M, want bson.M) bool {
	for _, c := range list {
		if reflect.DeepEqual(c, want) {
			return true
		}
	}
	return false
}

func TestDefaultNarrowing(t *testing.T) {
	and := conds(t, build(t, ""))

	if !hasCond(and, bson.M{"deleted": bson.M{"$ne": true}}) {
		t.Error("deleted events must be excluded by default")
	}
	if !hasCond(and, bson.M{"type_id": "General"}) {
		t.Error("only General events by default")
	}
	if !hasCond(and, bson.M{"data_source": bson.M{"$nin": []string{"secretsource"}}}) {
		t.Error("private data sources must be hidden by default")
	}
}

func TestShowDeletedAndExplicitDataSource(t *testing.T) {
	and := conds(t, build(t, "show_deleted=true&data_source=secretsource"))

	if hasCond(and, bson.M{"deleted": bson.M{"$ne": true}}) {
		t.Error("show_deleted=true must lift the deleted exclusion")
	}
	if !hasCond(and, bson.M{"data_source": bson.M{"$in": []string{"secretsource"}}}) {
		t.Error("explicit data_source must filter by it")
	}
	if hasCond(and, bson.M{"data_source": bson.M{"$nin": []string{"secretsource"}}}) {
		t.Error("explicit data_source must lift the private exclusion")
	}
}

func TestEventTypeValidation(t *testing.T) {
	and := conds(t, build(t, "event_type=course,volunteering"))
	if !hasCond(and, bson.M{"type_id": bson.M{"$in": []string{"Course", "Volunteering"}}}) {
		t.Error("event_type list not applied")
	}

	err := buildErr(t, "event_type=party")
	var pe *apierr.ParamError
	if !errors.As(err, &pe) || pe.Param != "event_type" {
		t.Fatalf("expected ParamError on event_type, got %v", err)
	}
}

func TestDaysConflictsWithStartEnd(t *testing.T) {
	err := buildErr(t, "days=7&start=2024-05-01")
	var pe *apierr.ParamError
	if !errors.As(err, &pe) || pe.Param != "days" {
		t.Fatalf("expected ParamError on days, got %v", err)
	}
}

func TestStartAloneAdmitsPostponed(t *testing.T) {
	and := conds(t, build(t, "start=2024-05-01"))
	dt := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	want := bson.M{"$or": bson.A{
		bson.M{"end_time": bson.M{"$gt": dt}},
		bson.M{"start_time": bson.M{"$gte": dt}},
		bson.M{"event_status": "EventPostponed"},
	}}
	if !hasCond(and, want) {
		t.Fatalf("start-only window must include postponed events, got %v", and)
	}

	// with both bounds the postponed branch disappears
	and = conds(t, build(t, "start=2024-05-01&end=2024-05-03"))
	if hasCond(and, want) {
		t.Fatal("postponed branch must not appear when end is present")
	}
}

func TestKeywordORResolvesReplacements(t *testing.T) {
	and := conds(t, build(t, "keyword=old,yso:p1235"))
	want := bson.M{"$or": bson.A{
		bson.M{"keywords": bson.M{"$in": []string{"new", "yso:p1235"}}},
		bson.M{"audience": bson.M{"$in": []string{"new", "yso:p1235"}}},
	}}
	if !hasCond(and, want) {
		t.Fatalf("keyword OR must match keywords or audience after replacement, got %v", and)
	}
}

func TestKeywordANDFailsClosed(t *testing.T) {
	filter := build(t, "keyword_AND=yso:p1235,ghost")
	if !reflect.DeepEqual(filter, bson.M{"_id": bson.M{"$in": bson.A{}}}) {
		t.Fatalf("unresolvable AND keyword must produce the never-match filter, got %v", filter)
	}

	and := conds(t, build(t, "keyword_AND=old,yso:p1235"))
	for _, id := range []string{"new", "yso:p1235"} {
		want := bson.M{"$or": bson.A{
			bson.M{"keywords": id},
			bson.M{"audience": id},
		}}
		if !hasCond(and, want) {
			t.Fatalf("missing AND condition for %s", id)
		}
	}
}

func TestKeywordExclusion(t *testing.T) {
	and := conds(t, build(t, "keyword%21=old"))
	want := bson.M{
		"keywords": bson.M{"$nin": []string{"new"}},
		"audience": bson.M{"$nin": []string{"new"}},
	}
	if !hasCond(and, want) {
		t.Fatalf("keyword! must exclude across both relations, got %v", and)
	}
}

func TestKeywordSets(t *testing.T) {
	and := conds(t, build(t, "keyword_set_OR=helsinki:topics"))
	want := bson.M{"$or": bson.A{
		bson.M{"keywords": bson.M{"$in": []string{"yso:p1235", "yso:p1947"}}},
		bson.M{"audience": bson.M{"$in": []string{"yso:p1235", "yso:p1947"}}},
	}}
	if !hasCond(and, want) {
		t.Fatalf("keyword_set_OR must expand members, got %v", and)
	}

	err := buildErr(t, "keyword_set_AND=nosuchset")
	var pe *apierr.ParamError
	if !errors.As(err, &pe) || pe.Param != "keyword_set_AND" {
		t.Fatalf("expected ParamError for unknown set, got %v", err)
	}
}

func TestIsFreeAsymmetry(t *testing.T) {
	and := conds(t, build(t, "is_free=true"))
	if !hasCond(and, bson.M{"offers": bson.M{"$elemMatch": bson.M{"is_free": true}}}) {
		t.Error("is_free=true must require at least one free offer")
	}

	and = conds(t, build(t, "is_free=false"))
	if !hasCond(and, bson.M{"offers": bson.M{"$not": bson.M{"$elemMatch": bson.M{"is_free": true}}}}) {
		t.Error("is_free=false must exclude events having any free offer")
	}
}

func TestAudienceAgeAsymmetry(t *testing.T) {
	and := conds(t, build(t, "audience_min_age=7"))
	if !hasCond(and, bson.M{"audience_min_age": bson.M{"$lte": 7}}) {
		t.Error("audience_min_age compares with $lte")
	}
	and = conds(t, build(t, "audience_min_age_gt=7"))
	if !hasCond(and, bson.M{"audience_min_age": bson.M{"$gte": 7}}) {
		t.Error("audience_min_age_gt compares with $gte")
	}
	and = conds(t, build(t, "audience_max_age=12"))
	if !hasCond(and, bson.M{"audience_max_age": bson.M{"$gte": 12}}) {
		t.Error("audience_max_age compares with $gte")
	}
	and = conds(t, build(t, "audience_max_age_lt=12"))
	if !hasCond(and, bson.M{"audience_max_age": bson.M{"$lte": 12}}) {
		t.Error("audience_max_age_lt compares with $lte")
	}
}

func TestSuitableFor(t *testing.T) {
	and := conds(t, build(t, "suitable_for=12,7"))
	if !hasCond(and, bson.M{"$or": bson.A{
		bson.M{"audience_min_age": bson.M{"$ne": nil}},
		bson.M{"audience_max_age": bson.M{"$ne": nil}},
	}}) {
		t.Error("events with no declared age range must be excluded")
	}
	if !hasCond(and, bson.M{"$or": bson.A{
		bson.M{"audience_min_age": nil},
		bson.M{"audience_min_age": bson.M{"$lte": 7}},
	}}) {
		t.Error("lower bound must use the smaller requested age")
	}
	if !hasCond(and, bson.M{"$or": bson.A{
		bson.M{"audience_max_age": nil},
		bson.M{"audience_max_age": bson.M{"$gte": 12}},
	}}) {
		t.Error("upper bound must use the larger requested age")
	}

	buildErr(t, "suitable_for=1,2,3")
	buildErr(t, "suitable_for=abc")
}

func TestDurations(t *testing.T) {
	and := conds(t, build(t, "min_duration=1h&max_duration=1d"))
	if !hasCond(and, bson.M{"$expr": bson.M{"$gte": bson.A{
		bson.M{"$subtract": bson.A{"$end_time", "$start_time"}}, int64(3600000),
	}}}) {
		t.Error("min_duration condition missing")
	}
	if !hasCond(and, bson.M{"$expr": bson.M{"$lte": bson.A{
		bson.M{"$subtract": bson.A{"$end_time", "$start_time"}}, int64(86400000),
	}}}) {
		t.Error("max_duration condition missing")
	}

	buildErr(t, "max_duration=bogus")
}

func TestPublisherExpansion(t *testing.T) {
	and := conds(t, build(t, "publisher=org:b"))
	if !hasCond(and, bson.M{"publisher": bson.M{"$in": []string{"org:b", "org:a"}}}) {
		t.Fatalf("publisher filter must tolerate replacement, got %v", and)
	}

	and = conds(t, build(t, "publisher_ancestor=org:root"))
	if !hasCond(and, bson.M{"publisher": bson.M{"$in": []string{"org:root", "org:child"}}}) {
		t.Fatalf("publisher_ancestor must expand the subtree, got %v", and)
	}
}

func TestLanguageFilters(t *testing.T) {
	and := conds(t, build(t, "in_language=sv"))
	if !hasCond(and, bson.M{"in_language": "sv"}) {
		t.Error("in_language matches the relation only")
	}

	// unknown translation code can never be satisfied
	filter := build(t, "translation=tlh")
	if !reflect.DeepEqual(filter, bson.M{"_id": bson.M{"$in": bson.A{}}}) {
		t.Fatalf("unknown translation code must never match, got %v", filter)
	}
}

func TestOngoingFilters(t *testing.T) {
	// OR across local blobs
	and := conds(t, build(t, "local_ongoing_OR=konsertti"))
	var got []string
	for _, c := range and {
		if in, ok := c["_id"].(bson.M); ok {
			got = in["$in"].([]string)
		}
	}
	if len(got) != 1 || got[0] != "evt:1" {
		t.Fatalf("expected [evt:1], got %v", got)
	}

	// AND over terms: both must match the same blob
	and = conds(t, build(t, "local_ongoing_AND=konsertti,helsinki"))
	got = nil
	for _, c := range and {
		if in, ok := c["_id"].(bson.M); ok {
			got = in["$in"].([]string)
		}
	}
	if len(got) != 1 || got[0] != "evt:1" {
		t.Fatalf("expected [evt:1], got %v", got)
	}

	// all_ongoing unions both caches
	and = conds(t, build(t, "all_ongoing_OR=konsertti"))
	got = nil
	for _, c := range and {
		if in, ok := c["_id"].(bson.M); ok {
			got = in["$in"].([]string)
		}
	}
	if len(got) != 2 {
		t.Fatalf("expected two matches across caches, got %v", got)
	}
}

func TestOngoingCacheMissContributesNoConstraint(t *testing.T) {
	// An unpopulated cache key reads back as an empty hash, not an error.
	deps := testDeps()
	deps.Ongoing = fakeOngoing{data: map[string]map[string]string{}}

	params, _ := url.ParseQuery("local_ongoing_OR=konsertti")
	filter, err := BuildEventFilter(context.Background(), params, deps)
	if err != nil {
		t.Fatalf("cache miss must not fail the request: %v", err)
	}
	for _, c := range conds(t, filter) {
		if _, ok := c["_id"]; ok {
			t.Fatalf("cache miss must contribute no id constraint, got %v", c["_id"])
		}
	}
}

func TestOngoingCacheErrorContributesNoConstraint(t *testing.T) {
	deps := testDeps()
	deps.Ongoing = failingOngoing{}

	params, _ := url.ParseQuery("all_ongoing_AND=konsertti")
	filter, err := BuildEventFilter(context.Background(), params, deps)
	if err != nil {
		t.Fatalf("cache failure must not fail the request: %v", err)
	}
	for _, c := range conds(t, filter) {
		if _, ok := c["_id"]; ok {
			t.Fatal("cache failure must contribute no id constraint")
		}
	}
}

func TestBBox(t *testing.T) {
	and := conds(t, build(t, "bbox=24.93,60.17,24.97,60.19"))
	if !hasCond(and, bson.M{"location": bson.M{"$in": []string{"tprek:1"}}}) {
		t.Fatalf("bbox must narrow to places inside the box, got %v", and)
	}

	buildErr(t, "bbox=24.93,60.17")
	buildErr(t, "bbox=a,b,c,d")
}

func TestLastModifiedSinceUsesEndTime(t *testing.T) {
	and := conds(t, build(t, "last_modified_since=2024-05-01T00:00:00Z"))
	dt := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	if !hasCond(and, bson.M{"end_time": bson.M{"$gte": dt}}) {
		t.Fatalf("last_modified_since compares end_time, got %v", and)
	}
}
