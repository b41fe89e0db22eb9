package keywords

import (
	"encoding/json"
	"net/http"
	"time"

	"linkedevents/apierr"
	"linkedevents/db"
	"linkedevents/models"
	"linkedevents/parsers"
	"linkedevents/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func decorate(r *http.Request, kw models.Keyword) map[string]any {
	return utils.DecorateLD(kw, utils.APIRoot(r), "keyword", kw.ID)
}

var keywordSorts = map[string]bson.D{
	"":          {{Key: "_id", Value: 1}},
	"name":      {{Key: "name.fi", Value: 1}},
	"-name":     {{Key: "name.fi", Value: -1}},
	"n_events":  {{Key: "n_events", Value: 1}},
	"-n_events": {{Key: "n_events", Value: -1}},
}

func GetKeywords(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := r.URL.Query()
	p, err := utils.ParsePagination(r)
	if err != nil {
		utils.RespondFilterError(w, err)
		return
	}

	var conds []bson.M
	if val := q.Get("show_deprecated"); val != "" {
		show, err := parsers.ParseBool(val, "show_deprecated")
		if err != nil {
			utils.RespondFilterError(w, err)
			return
		}
		if !show {
			conds = append(conds, bson.M{"deprecated": bson.M{"$ne": true}})
		}
	} else {
		conds = append(conds, bson.M{"deprecated": bson.M{"$ne": true}})
	}

	if val := q.Get("has_upcoming_events"); val != "" {
		upcoming, err := parsers.ParseBool(val, "has_upcoming_events")
		if err != nil {
			utils.RespondFilterError(w, err)
			return
		}
		conds = append(conds, bson.M{"has_upcoming_events": upcoming})
	}

	// text matches names only; free_text also scans alt labels
	if val := q.Get("text"); val != "" {
		pattern := utils.RegexEscape(val)
		var or bson.A
		for _, lang := range []string{"fi", "sv", "en"} {
			or = append(or, bson.M{"name." + lang: bson.M{"$regex": pattern, "$options": "i"}})
		}
		conds = append(conds, bson.M{"$or": or})
	}
	if val := q.Get("free_text"); val != "" {
		pattern := utils.RegexEscape(val)
		or := bson.A{bson.M{"alt_labels": bson.M{"$regex": pattern, "$options": "i"}}}
		for _, lang := range []string{"fi", "sv", "en"} {
			or = append(or, bson.M{"name." + lang: bson.M{"$regex": pattern, "$options": "i"}})
		}
		conds = append(conds, bson.M{"$or": or})
	}

	if val := q.Get("data_source"); val != "" {
		conds = append(conds, bson.M{"data_source": bson.M{"$in": utils.SplitCommaList(val)}})
	}

	sort, ok := keywordSorts[q.Get("sort")]
	if !ok {
		utils.RespondFilterError(w, apierr.Param("sort", q.Get("sort"), "unsupported sort key"))
		return
	}

	filter := bson.M{}
	if len(conds) > 0 {
		filter["$and"] = conds
	}

	count, err := db.KeywordsCollection.CountDocuments(r.Context(), filter)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to count keywords")
		return
	}
	opts := options.Find().SetSkip(p.Skip()).SetLimit(p.Limit()).SetSort(sort)
	cursor, err := db.KeywordsCollection.Find(r.Context(), filter, opts)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch keywords")
		return
	}
	defer cursor.Close(r.Context())

	var kws []models.Keyword
	if err := cursor.All(r.Context(), &kws); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to decode keywords")
		return
	}

	items := utils.DecorateAll(kws, func(k models.Keyword) map[string]any {
		return decorate(r, k)
	})
	utils.RespondWithJSON(w, http.StatusOK, utils.NewEnvelope(r, p, count, items))
}

func GetKeyword(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	var kw models.Keyword
	err := db.KeywordsCollection.FindOne(r.Context(), bson.M{"_id": id}).Decode(&kw)
	if err == mongo.ErrNoDocuments {
		utils.RespondWithError(w, http.StatusNotFound, "Keyword not found")
		return
	}
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch keyword")
		return
	}

	if kw.Deprecated {
		if kw.ReplacedBy == "" {
			utils.RespondWithError(w, http.StatusGone, "Keyword has been deprecated with no replacement")
			return
		}
		terminal, err := TerminalReplacement(r.Context(), &kw)
		if err != nil {
			utils.RespondWithError(w, http.StatusGone, "Keyword has been deprecated and its replacement is unavailable")
			return
		}
		w.Header().Set("Location", utils.ResourceURL(utils.APIRoot(r), "keyword", terminal.ID))
		w.WriteHeader(http.StatusMovedPermanently)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, decorate(r, kw))
}

func CreateKeyword(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var kw models.Keyword
	if err := json.NewDecoder(r.Body).Decode(&kw); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if kw.ID == "" || len(kw.Name) == 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "id and name are required")
		return
	}
	now := time.Now().UTC()
	kw.CreatedTime = now
	kw.LastModifiedTime = now
	kw.Deprecated = false
	kw.ReplacedBy = ""

	if _, err := db.KeywordsCollection.InsertOne(r.Context(), kw); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			utils.RespondWithError(w, http.StatusConflict, "Keyword already exists")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to create keyword")
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, decorate(r, kw))
}

func UpdateKeyword(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	var patch models.Keyword
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	update := bson.M{"last_modified_time": time.Now().UTC()}
	if len(patch.Name) > 0 {
		update["name"] = patch.Name
	}
	if patch.AltLabels != nil {
		update["alt_labels"] = patch.AltLabels
	}
	if patch.ReplacedBy != "" {
		update["replaced_by"] = patch.ReplacedBy
		update["deprecated"] = true
	}
	if patch.Parents != nil {
		update["parents"] = patch.Parents
	}
	if patch.Children != nil {
		update["children"] = patch.Children
	}

	res, err := db.KeywordsCollection.UpdateOne(r.Context(), bson.M{"_id": id}, bson.M{"$set": update})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update keyword")
		return
	}
	if res.MatchedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "Keyword not found")
		return
	}

	var kw models.Keyword
	if err := db.KeywordsCollection.FindOne(r.Context(), bson.M{"_id": id}).Decode(&kw); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to reload keyword")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, decorate(r, kw))
}

// DeleteKeyword deprecates; keyword rows are never removed because events
// keep referring to them.
func DeleteKeyword(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	res, err := db.KeywordsCollection.UpdateOne(r.Context(), bson.M{"_id": id}, bson.M{"$set": bson.M{
		"deprecated":         true,
		"last_modified_time": time.Now().UTC(),
	}})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to deprecate keyword")
		return
	}
	if res.MatchedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "Keyword not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
