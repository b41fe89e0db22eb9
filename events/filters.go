package events

import (
	"context"
	"log"
	"net/url"
	"strconv"
	"time"

	"linkedevents/apierr"
	"linkedevents/models"
	"linkedevents/parsers"
	"linkedevents/rdx"
	"linkedevents/utils"

	"go.mongodb.org/mongo-driver/bson"
)

// Languages with translated text fields.
var translatedLanguages = []string{"fi", "sv", "en", "ru", "zh_hans", "ar"}

// Translated text fields searched by the text/translation/language filters.
var translatedFields = []string{"name", "description", "short_description", "info_url"}

// FilterDeps carries the collaborators the filter builder needs. Everything
// is injectable so the builder stays testable without Mongo or Redis.
type FilterDeps struct {
	Now func() time.Time

	// ResolveKeywords substitutes replacements for deprecated keywords and
	// reports whether every requested id was found.
	ResolveKeywords func(ctx context.Context, ids []string) ([]string, bool, error)

	// ExpandKeywordSets maps keyword-set ids to their member keyword ids.
	// Unknown set ids are reported back so the caller can 400.
	ExpandKeywordSets func(ctx context.Context, ids []string) (members []string, missing []string, err error)

	// ExpandPublishers widens organization ids with their replacements in
	// both directions.
	ExpandPublishers func(ctx context.Context, ids []string) ([]string, error)

	// DescendantPublishers expands organization ids to their whole subtree,
	// including the ids themselves.
	DescendantPublishers func(ctx context.Context, ids []string) ([]string, error)

	// PlacesInBBox returns ids of places inside west,south,east,north.
	PlacesInBBox func(ctx context.Context, west, south, east, north float64) ([]string, error)

	// PrivateDataSources lists data sources hidden from default listings.
	PrivateDataSources func(ctx context.Context) ([]string, error)

	// RecurringSuperIDs lists ids of recurring super events.
	RecurringSuperIDs func(ctx context.Context) ([]string, error)

	Ongoing rdx.OngoingLookup
}

// neverMatch is the canonical unsatisfiable filter: an AND over keywords that
// cannot all resolve, or a translation in an unknown language, can never
// match any event.
func neverMatch() bson.M {
	return bson.M{"_id": bson.M{"$in": bson.A{}}}
}

func isTranslated(code string) bool {
	return utils.Contains(translatedLanguages, code)
}

// textPresentConds matches events carrying any translated text in the given
// language.
func textPresentConds(code string) []bson.M {
	conds := make([]bson.M, 0, len(translatedFields))
	for _, field := range translatedFields {
		conds = append(conds, bson.M{field + "." + code: bson.M{"$exists": true, "$ne": ""}})
	}
	return conds
}

// minutesOfDayCond compares the time of day of a timestamp field against
// HH:MM, inclusive on the boundary.
func minutesOfDayCond(field string, hour, minute int, after bool) bson.M {
	op := "$gte"
	if !after {
		op = "$lte"
	}
	minutes := bson.M{"$add": bson.A{
		bson.M{"$multiply": bson.A{bson.M{"$hour": "$" + field}, 60}},
		bson.M{"$minute": "$" + field},
	}}
	return bson.M{"$expr": bson.M{op: bson.A{minutes, hour*60 + minute}}}
}

func keywordOrAudience(op string, ids []string) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"keywords": bson.M{op: ids}},
		bson.M{"audience": bson.M{op: ids}},
	}}
}

// BuildEventFilter translates the recognized query parameters into one Mongo
// filter document. Absent parameters contribute nothing beyond the default
// narrowing (deleted excluded, General type only, private sources hidden).
// Every malformed value is an apierr.ParamError naming the parameter.
func BuildEventFilter(ctx context.Context, params url.Values, deps FilterDeps) (bson.M, error) {
	var conds []bson.M
	now := deps.Now()

	// show_deleted
	showDeleted := false
	if val := params.Get("show_deleted"); val != "" {
		b, err := parsers.ParseBool(val, "show_deleted")
		if err != nil {
			return nil, err
		}
		showDeleted = b
	}
	if !showDeleted {
		conds = append(conds, bson.M{"deleted": bson.M{"$ne": true}})
	}

	// event_type; defaults to General events only
	if val := params.Get("event_type"); val != "" {
		var types []string
		for _, t := range utils.SplitCommaList(val) {
			switch t {
			case "general":
				types = append(types, models.TypeGeneral)
			case "course":
				types = append(types, models.TypeCourse)
			case "volunteering":
				types = append(types, models.TypeVolunteering)
			default:
				return nil, apierr.Param("event_type", t, "expected general, course or volunteering")
			}
		}
		conds = append(conds, bson.M{"type_id": bson.M{"$in": types}})
	} else {
		conds = append(conds, bson.M{"type_id": models.TypeGeneral})
	}

	// data_source; private sources stay hidden unless explicitly requested
	if val := params.Get("data_source"); val != "" {
		conds = append(conds, bson.M{"data_source": bson.M{"$in": utils.SplitCommaList(val)}})
	} else {
		private, err := deps.PrivateDataSources(ctx)
		if err != nil {
			return nil, err
		}
		if len(private) > 0 {
			conds = append(conds, bson.M{"data_source": bson.M{"$nin": private}})
		}
	}

	// publication_status
	if val := params.Get("publication_status"); val != "" {
		if val != models.PublicationPublic && val != models.PublicationDraft {
			return nil, apierr.Param("publication_status", val, "expected public or draft")
		}
		conds = append(conds, bson.M{"publication_status": val})
	}

	// text: case-insensitive substring over all translated fields
	if val := params.Get("text"); val != "" {
		pattern := utils.RegexEscape(val)
		var or bson.A
		for _, field := range translatedFields {
			for _, lang := range translatedLanguages {
				or = append(or, bson.M{field + "." + lang: bson.M{"$regex": pattern, "$options": "i"}})
			}
		}
		conds = append(conds, bson.M{"$or": or})
	}

	// last_modified_since compares end_time, not last_modified_time; this is
	// long-standing behavior kept for compatibility.
	if val := params.Get("last_modified_since"); val != "" {
		dt, err := parsers.ParseTime(val, "last_modified_since", false, now)
		if err != nil {
			return nil, err
		}
		conds = append(conds, bson.M{"end_time": bson.M{"$gte": dt}})
	}

	// start / end / days
	startVal := params.Get("start")
	endVal := params.Get("end")
	if val := params.Get("days"); val != "" {
		if startVal != "" || endVal != "" {
			return nil, apierr.Param("days", val, "cannot be used with start or end")
		}
		days, err := parsers.ParseDigit(val, "days")
		if err != nil {
			return nil, err
		}
		if days < 1 {
			return nil, apierr.Param("days", val, "expected a positive integer")
		}
		start := now.UTC()
		end := start.AddDate(0, 0, days)
		conds = append(conds,
			bson.M{"$or": bson.A{
				bson.M{"end_time": bson.M{"$gt": start}},
				bson.M{"start_time": bson.M{"$gte": start}},
			}},
			bson.M{"$or": bson.A{
				bson.M{"end_time": bson.M{"$lt": end}},
				bson.M{"start_time": bson.M{"$lte": end}},
			}},
		)
	}
	if startVal != "" {
		dt, err := parsers.ParseTime(startVal, "start", true, now)
		if err != nil {
			return nil, err
		}
		or := bson.A{
			bson.M{"end_time": bson.M{"$gt": dt}},
			bson.M{"start_time": bson.M{"$gte": dt}},
		}
		if endVal == "" {
			// Postponed events have no fixed date; a pure lower bound always
			// admits them.
			or = append(or, bson.M{"event_status": models.EventPostponed})
		}
		conds = append(conds, bson.M{"$or": or})
	}
	if endVal != "" {
		dt, err := parsers.ParseTime(endVal, "end", false, now)
		if err != nil {
			return nil, err
		}
		conds = append(conds, bson.M{"$or": bson.A{
			bson.M{"end_time": bson.M{"$lt": dt}},
			bson.M{"start_time": bson.M{"$lte": dt}},
		}})
	}

	// time-of-day windows
	for _, p := range []struct {
		param string
		field string
		after bool
	}{
		{"starts_after", "start_time", true},
		{"starts_before", "start_time", false},
		{"ends_after", "end_time", true},
		{"ends_before", "end_time", false},
	} {
		if val := params.Get(p.param); val != "" {
			hour, minute, err := parsers.ParseHours(val, p.param)
			if err != nil {
				return nil, err
			}
			conds = append(conds, minutesOfDayCond(p.field, hour, minute, p.after))
		}
	}

	// keyword / keyword_OR: same OR semantics, resolved through replacements;
	// unresolvable ids are dropped to match nothing on their own.
	orKeywords := append(utils.SplitCommaList(params.Get("keyword")),
		utils.SplitCommaList(params.Get("keyword_OR"))...)
	if len(orKeywords) > 0 {
		resolved, _, err := deps.ResolveKeywords(ctx, orKeywords)
		if err != nil {
			return nil, err
		}
		conds = append(conds, keywordOrAudience("$in", resolved))
	}

	// keyword_AND fails closed: one unresolvable id makes the conjunction
	// impossible.
	if val := params.Get("keyword_AND"); val != "" {
		resolved, allFound, err := deps.ResolveKeywords(ctx, utils.SplitCommaList(val))
		if err != nil {
			return nil, err
		}
		if !allFound {
			return neverMatch(), nil
		}
		for _, id := range resolved {
			conds = append(conds, bson.M{"$or": bson.A{
				bson.M{"keywords": id},
				bson.M{"audience": id},
			}})
		}
	}

	// keyword! excludes across both relations
	if val := params.Get("keyword!"); val != "" {
		resolved, _, err := deps.ResolveKeywords(ctx, utils.SplitCommaList(val))
		if err != nil {
			return nil, err
		}
		conds = append(conds, bson.M{
			"keywords": bson.M{"$nin": resolved},
			"audience": bson.M{"$nin": resolved},
		})
	}

	// keyword sets expand to their members, then apply keyword semantics
	if val := params.Get("keyword_set_OR"); val != "" {
		members, missing, err := deps.ExpandKeywordSets(ctx, utils.SplitCommaList(val))
		if err != nil {
			return nil, err
		}
		if len(missing) > 0 {
			return nil, apierr.Param("keyword_set_OR", missing[0], "unknown keyword set")
		}
		resolved, _, err := deps.ResolveKeywords(ctx, members)
		if err != nil {
			return nil, err
		}
		conds = append(conds, keywordOrAudience("$in", resolved))
	}
	if val := params.Get("keyword_set_AND"); val != "" {
		members, missing, err := deps.ExpandKeywordSets(ctx, utils.SplitCommaList(val))
		if err != nil {
			return nil, err
		}
		if len(missing) > 0 {
			return nil, apierr.Param("keyword_set_AND", missing[0], "unknown keyword set")
		}
		resolved, allFound, err := deps.ResolveKeywords(ctx, members)
		if err != nil {
			return nil, err
		}
		if !allFound {
			return neverMatch(), nil
		}
		for _, id := range resolved {
			conds = append(conds, bson.M{"$or": bson.A{
				bson.M{"keywords": id},
				bson.M{"audience": id},
			}})
		}
	}

	// location: comma-separated place ids
	if val := params.Get("location"); val != "" {
		conds = append(conds, bson.M{"location": bson.M{"$in": utils.SplitCommaList(val)}})
	}

	// bbox: west,south,east,north -> places inside -> location filter
	if val := params.Get("bbox"); val != "" {
		parts := utils.SplitCommaList(val)
		if len(parts) != 4 {
			return nil, apierr.Param("bbox", val, "expected west,south,east,north")
		}
		coords := make([]float64, 4)
		for i, p := range parts {
			f, err := strconv.ParseFloat(p, 64)
			if err != nil {
				return nil, apierr.Param("bbox", p, "expected a coordinate number")
			}
			coords[i] = f
		}
		placeIDs, err := deps.PlacesInBBox(ctx, coords[0], coords[1], coords[2], coords[3])
		if err != nil {
			return nil, err
		}
		conds = append(conds, bson.M{"location": bson.M{"$in": placeIDs}})
	}

	// publisher: tolerant of organization replacement in both directions
	if val := params.Get("publisher"); val != "" {
		expanded, err := deps.ExpandPublishers(ctx, utils.SplitCommaList(val))
		if err != nil {
			return nil, err
		}
		conds = append(conds, bson.M{"publisher": bson.M{"$in": expanded}})
	}

	// publisher_ancestor: whole descendant subtree, then replacements
	if val := params.Get("publisher_ancestor"); val != "" {
		subtree, err := deps.DescendantPublishers(ctx, utils.SplitCommaList(val))
		if err != nil {
			return nil, err
		}
		expanded, err := deps.ExpandPublishers(ctx, subtree)
		if err != nil {
			return nil, err
		}
		conds = append(conds, bson.M{"publisher": bson.M{"$in": expanded}})
	}

	// suitable_for: declared age range must cover the requested one; events
	// with no declared range at all never match.
	if val := params.Get("suitable_for"); val != "" {
		parts := utils.SplitCommaList(val)
		if len(parts) == 0 || len(parts) > 2 {
			return nil, apierr.Param("suitable_for", val, "expected one or two ages")
		}
		ages := make([]int, len(parts))
		for i, p := range parts {
			n, err := parsers.ParseDigit(p, "suitable_for")
			if err != nil {
				return nil, err
			}
			ages[i] = n
		}
		lo, hi := ages[0], ages[0]
		if len(ages) == 2 {
			if ages[1] < lo {
				lo = ages[1]
			}
			if ages[1] > hi {
				hi = ages[1]
			}
		}
		conds = append(conds,
			bson.M{"$or": bson.A{
				bson.M{"audience_min_age": bson.M{"$ne": nil}},
				bson.M{"audience_max_age": bson.M{"$ne": nil}},
			}},
			bson.M{"$or": bson.A{
				bson.M{"audience_min_age": nil},
				bson.M{"audience_min_age": bson.M{"$lte": lo}},
			}},
			bson.M{"$or": bson.A{
				bson.M{"audience_max_age": nil},
				bson.M{"audience_max_age": bson.M{"$gte": hi}},
			}},
		)
	}

	// audience age bounds; the unsuffixed variants deliberately compare the
	// opposite way from the suffixed ones.
	for _, p := range []struct {
		param string
		field string
		op    string
	}{
		{"audience_min_age", "audience_min_age", "$lte"},
		{"audience_min_age_gt", "audience_min_age", "$gte"},
		{"audience_max_age", "audience_max_age", "$gte"},
		{"audience_max_age_lt", "audience_max_age", "$lte"},
	} {
		if val := params.Get(p.param); val != "" {
			n, err := parsers.ParseDigit(val, p.param)
			if err != nil {
				return nil, err
			}
			conds = append(conds, bson.M{p.field: bson.M{p.op: n}})
		}
	}

	// duration bounds on end_time - start_time (milliseconds)
	if val := params.Get("min_duration"); val != "" {
		secs, err := parsers.ParseDurationString(val, "min_duration")
		if err != nil {
			return nil, err
		}
		conds = append(conds, bson.M{"$expr": bson.M{"$gte": bson.A{
			bson.M{"$subtract": bson.A{"$end_time", "$start_time"}}, secs * 1000,
		}}})
	}
	if val := params.Get("max_duration"); val != "" {
		secs, err := parsers.ParseDurationString(val, "max_duration")
		if err != nil {
			return nil, err
		}
		conds = append(conds, bson.M{"$expr": bson.M{"$lte": bson.A{
			bson.M{"$subtract": bson.A{"$end_time", "$start_time"}}, secs * 1000,
		}}})
	}

	// is_free: true means at least one free offer; false means no free offer
	// at all, regardless of other offers.
	if val := params.Get("is_free"); val != "" {
		free, err := parsers.ParseBool(val, "is_free")
		if err != nil {
			return nil, err
		}
		if free {
			conds = append(conds, bson.M{"offers": bson.M{"$elemMatch": bson.M{"is_free": true}}})
		} else {
			conds = append(conds, bson.M{"offers": bson.M{"$not": bson.M{"$elemMatch": bson.M{"is_free": true}}}})
		}
	}

	// language / in_language / translation: three overlapping filters
	if val := params.Get("language"); val != "" {
		or := bson.A{bson.M{"in_language": val}}
		if isTranslated(val) {
			for _, c := range textPresentConds(val) {
				or = append(or, c)
			}
		}
		conds = append(conds, bson.M{"$or": or})
	}
	if val := params.Get("in_language"); val != "" {
		conds = append(conds, bson.M{"in_language": val})
	}
	if val := params.Get("translation"); val != "" {
		if !isTranslated(val) {
			return neverMatch(), nil
		}
		or := bson.A{}
		for _, c := range textPresentConds(val) {
			or = append(or, c)
		}
		conds = append(conds, bson.M{"$or": or})
	}

	// recurring grouping
	if val := params.Get("recurring"); val != "" {
		switch val {
		case "super":
			conds = append(conds, bson.M{"super_event_type": bson.M{"$exists": true, "$ne": ""}})
		case "sub":
			conds = append(conds, bson.M{"super_event": bson.M{"$exists": true, "$ne": ""}})
		default:
			return nil, apierr.Param("recurring", val, "expected super or sub")
		}
	}

	// super_event: ids or "none"
	if val := params.Get("super_event"); val != "" {
		var or bson.A
		var ids []string
		for _, v := range utils.SplitCommaList(val) {
			if v == "none" {
				or = append(or,
					bson.M{"super_event": ""},
					bson.M{"super_event": bson.M{"$exists": false}})
				continue
			}
			ids = append(ids, v)
		}
		if len(ids) > 0 {
			or = append(or, bson.M{"super_event": bson.M{"$in": ids}})
		}
		conds = append(conds, bson.M{"$or": or})
	}

	// hide_recurring_children drops occurrences of recurring supers
	if val := params.Get("hide_recurring_children"); val != "" {
		hide, err := parsers.ParseBool(val, "hide_recurring_children")
		if err != nil {
			return nil, err
		}
		if hide {
			supers, err := deps.RecurringSuperIDs(ctx)
			if err != nil {
				return nil, err
			}
			conds = append(conds, bson.M{"super_event": bson.M{"$nin": supers}})
		}
	}

	// registration presence
	if val := params.Get("registration"); val != "" {
		has, err := parsers.ParseBool(val, "registration")
		if err != nil {
			return nil, err
		}
		if has {
			conds = append(conds, bson.M{"registration": bson.M{"$exists": true, "$ne": ""}})
		} else {
			conds = append(conds, bson.M{"$or": bson.A{
				bson.M{"registration": ""},
				bson.M{"registration": bson.M{"$exists": false}},
			}})
		}
	}

	// ongoing-event fuzzy filters against the cached id->text blobs
	ongoingConds, err := buildOngoingConds(ctx, params, deps)
	if err != nil {
		return nil, err
	}
	conds = append(conds, ongoingConds...)

	if len(conds) == 0 {
		return bson.M{}, nil
	}
	return bson.M{"$and": conds}, nil
}

var ongoingParams = []struct {
	param string
	keys  []string
	all   bool // AND over terms
}{
	{"local_ongoing_OR", []string{rdx.OngoingLocalKey}, false},
	{"local_ongoing_AND", []string{rdx.OngoingLocalKey}, true},
	{"internet_ongoing_OR", []string{rdx.OngoingInternetKey}, false},
	{"internet_ongoing_AND", []string{rdx.OngoingInternetKey}, true},
	{"all_ongoing_OR", []string{rdx.OngoingLocalKey, rdx.OngoingInternetKey}, false},
	{"all_ongoing_AND", []string{rdx.OngoingLocalKey, rdx.OngoingInternetKey}, true},
}

func buildOngoingConds(ctx context.Context, params url.Values, deps FilterDeps) ([]bson.M, error) {
	var conds []bson.M
	for _, p := range ongoingParams {
		val := params.Get(p.param)
		if val == "" {
			continue
		}
		terms := utils.SplitCommaList(val)
		if len(terms) == 0 {
			continue
		}

		blobs := map[string]string{}
		available := false
		for _, key := range p.keys {
			entries, err := deps.Ongoing.Get(ctx, key)
			// HGETALL yields an empty map for a missing key, so a zero-entry
			// hash means the cache was never populated. Either way the
			// degradation is "no constraint"; the request still succeeds with
			// the remaining filters.
			if err != nil || len(entries) == 0 {
				log.Printf("ERROR: ongoing cache %q unavailable for %s: %v", key, p.param, err)
				continue
			}
			available = true
			for id, text := range entries {
				blobs[id] = text
			}
		}
		if !available {
			continue
		}

		ids, err := matchOngoing(blobs, terms, p.all)
		if err != nil {
			return nil, apierr.Param(p.param, val, "cannot compile search terms")
		}
		conds = append(conds, bson.M{"_id": bson.M{"$in": ids}})
	}
	return conds, nil
}

// matchOngoing returns the ids whose text blob matches the terms: any term
// for OR semantics, every term for AND.
func matchOngoing(blobs map[string]string, terms []string, all bool) ([]string, error) {
	ids := []string{}
	if all {
		matchers := make([]func(string) bool, 0, len(terms))
		for _, term := range terms {
			re, err := parsers.TermsToRegexp([]string{term})
			if err != nil {
				return nil, err
			}
			if re == nil {
				continue
			}
			matchers = append(matchers, re.MatchString)
		}
		for id, text := range blobs {
			ok := true
			for _, match := range matchers {
				if !match(text) {
					ok = false
					break
				}
			}
			if ok {
				ids = append(ids, id)
			}
		}
		return ids, nil
	}

	re, err := parsers.TermsToRegexp(terms)
	if err != nil {
		return nil, err
	}
	if re == nil {
		return ids, nil
	}
	for id, text := range blobs {
		if re.MatchString(text) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
