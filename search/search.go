package search

import (
	"net/http"

	"linkedevents/apierr"
	"linkedevents/db"
	"linkedevents/models"
	"linkedevents/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var searchLanguages = []string{"fi", "sv", "en", "ru", "zh_hans", "ar"}

func textCond(fields []string, pattern string) bson.M {
	var or bson.A
	for _, field := range fields {
		for _, lang := range searchLanguages {
			or = append(or, bson.M{field + "." + lang: bson.M{"$regex": pattern, "$options": "i"}})
		}
	}
	return bson.M{"$or": or}
}

// Search runs a substring query over events and places in one request. The
// type parameter narrows the result to one resource kind.
func Search(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := r.URL.Query().Get("q")
	if q == "" {
		utils.RespondFilterError(w, apierr.Param("q", "", "a search term is required"))
		return
	}
	kinds := map[string]bool{"event": true, "place": true}
	if t := r.URL.Query().Get("type"); t != "" {
		kinds = map[string]bool{}
		for _, kind := range utils.SplitCommaList(t) {
			if kind != "event" && kind != "place" {
				utils.RespondFilterError(w, apierr.Param("type", kind, "expected event or place"))
				return
			}
			kinds[kind] = true
		}
	}

	p, err := utils.ParsePagination(r)
	if err != nil {
		utils.RespondFilterError(w, err)
		return
	}
	pattern := utils.RegexEscape(q)
	items := []any{}
	var total int64

	if kinds["event"] {
		filter := bson.M{"$and": []bson.M{
			{"deleted": bson.M{"$ne": true}},
			{"publication_status": models.PublicationPublic},
			textCond([]string{"name", "description", "short_description"}, pattern),
		}}
		count, err := db.EventsCollection.CountDocuments(r.Context(), filter)
		if err != nil {
			utils.RespondWithError(w, http.StatusInternalServerError, "Search failed")
			return
		}
		total += count
		opts := options.Find().SetSkip(p.Skip()).SetLimit(p.Limit()).
			SetSort(bson.D{{Key: "start_time", Value: 1}})
		cursor, err := db.EventsCollection.Find(r.Context(), filter, opts)
		if err != nil {
			utils.RespondWithError(w, http.StatusInternalServerError, "Search failed")
			return
		}
		var evts []models.Event
		err = cursor.All(r.Context(), &evts)
		if err != nil {
			utils.RespondWithError(w, http.StatusInternalServerError, "Search failed")
			return
		}
		for _, e := range evts {
			items = append(items, utils.DecorateLD(e, utils.APIRoot(r), "event", e.ID))
		}
	}

	if kinds["place"] {
		filter := bson.M{"$and": []bson.M{
			{"deleted": bson.M{"$ne": true}},
			textCond([]string{"name", "street_address", "address_locality"}, pattern),
		}}
		count, err := db.PlacesCollection.CountDocuments(r.Context(), filter)
		if err != nil {
			utils.RespondWithError(w, http.StatusInternalServerError, "Search failed")
			return
		}
		total += count
		opts := options.Find().SetSkip(p.Skip()).SetLimit(p.Limit()).
			SetSort(bson.D{{Key: "n_events", Value: -1}})
		cursor, err := db.PlacesCollection.Find(r.Context(), filter, opts)
		if err != nil {
			utils.RespondWithError(w, http.StatusInternalServerError, "Search failed")
			return
		}
		var pls []models.Place
		err = cursor.All(r.Context(), &pls)
		if err != nil {
			utils.RespondWithError(w, http.StatusInternalServerError, "Search failed")
			return
		}
		for _, pl := range pls {
			items = append(items, utils.DecorateLD(pl, utils.APIRoot(r), "place", pl.ID))
		}
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.NewEnvelope(r, p, total, items))
}
