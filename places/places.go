package places

import (
	"context"
	"encoding/json"
	"fmt"
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

func decorate(r *http.Request, place models.Place) map[string]any {
	return utils.DecorateLD(place, utils.APIRoot(r), "place", place.ID)
}

// PlacesInBBox returns the ids of places positioned inside the
// west,south,east,north rectangle. Used by the event filter builder.
func PlacesInBBox(ctx context.Context, west, south, east, north float64) ([]string, error) {
	filter := bson.M{"position": bson.M{"$geoWithin": bson.M{"$box": bson.A{
		bson.A{west, south},
		bson.A{east, north},
	}}}}
	cursor, err := db.PlacesCollection.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("bbox place lookup: %w", err)
	}
	defer cursor.Close(ctx)

	ids := []string{}
	for cursor.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		ids = append(ids, doc.ID)
	}
	return ids, cursor.Err()
}

var placeSorts = map[string]bson.D{
	"":          {{Key: "_id", Value: 1}},
	"name":      {{Key: "name.fi", Value: 1}},
	"-name":     {{Key: "name.fi", Value: -1}},
	"n_events":  {{Key: "n_events", Value: 1}},
	"-n_events": {{Key: "n_events", Value: -1}},
}

func GetPlaces(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := r.URL.Query()
	p, err := utils.ParsePagination(r)
	if err != nil {
		utils.RespondFilterError(w, err)
		return
	}

	var conds []bson.M
	showDeleted := false
	if val := q.Get("show_deleted"); val != "" {
		showDeleted, err = parsers.ParseBool(val, "show_deleted")
		if err != nil {
			utils.RespondFilterError(w, err)
			return
		}
	}
	if !showDeleted {
		conds = append(conds, bson.M{"deleted": bson.M{"$ne": true}})
	}
	// replaced places disappear from listings like deleted ones
	conds = append(conds, bson.M{"$or": bson.A{
		bson.M{"replaced_by": ""},
		bson.M{"replaced_by": bson.M{"$exists": false}},
	}})

	if val := q.Get("has_upcoming_events"); val != "" {
		upcoming, err := parsers.ParseBool(val, "has_upcoming_events")
		if err != nil {
			utils.RespondFilterError(w, err)
			return
		}
		conds = append(conds, bson.M{"has_upcoming_events": upcoming})
	}
	if val := q.Get("text"); val != "" {
		pattern := utils.RegexEscape(val)
		var or bson.A
		for _, field := range []string{"name", "street_address", "address_locality"} {
			for _, lang := range []string{"fi", "sv", "en"} {
				or = append(or, bson.M{field + "." + lang: bson.M{"$regex": pattern, "$options": "i"}})
			}
		}
		conds = append(conds, bson.M{"$or": or})
	}
	if val := q.Get("data_source"); val != "" {
		conds = append(conds, bson.M{"data_source": bson.M{"$in": utils.SplitCommaList(val)}})
	}

	sort, ok := placeSorts[q.Get("sort")]
	if !ok {
		utils.RespondFilterError(w, apierr.Param("sort", q.Get("sort"), "unsupported sort key"))
		return
	}

	filter := bson.M{"$and": conds}
	count, err := db.PlacesCollection.CountDocuments(r.Context(), filter)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to count places")
		return
	}
	opts := options.Find().SetSkip(p.Skip()).SetLimit(p.Limit()).SetSort(sort)
	cursor, err := db.PlacesCollection.Find(r.Context(), filter, opts)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch places")
		return
	}
	defer cursor.Close(r.Context())

	var places []models.Place
	if err := cursor.All(r.Context(), &places); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to decode places")
		return
	}

	items := utils.DecorateAll(places, func(pl models.Place) map[string]any {
		return decorate(r, pl)
	})
	utils.RespondWithJSON(w, http.StatusOK, utils.NewEnvelope(r, p, count, items))
}

func GetPlace(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	var place models.Place
	err := db.PlacesCollection.FindOne(r.Context(), bson.M{"_id": id}).Decode(&place)
	if err == mongo.ErrNoDocuments {
		utils.RespondWithError(w, http.StatusNotFound, "Place not found")
		return
	}
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch place")
		return
	}

	if place.ReplacedBy != "" {
		terminal, err := terminalPlace(r.Context(), &place)
		if err != nil {
			utils.RespondWithError(w, http.StatusGone, "Place has been replaced and its replacement is unavailable")
			return
		}
		w.Header().Set("Location", utils.ResourceURL(utils.APIRoot(r), "place", terminal.ID))
		w.WriteHeader(http.StatusMovedPermanently)
		return
	}
	if place.Deleted {
		utils.RespondWithError(w, http.StatusGone, "Place has been deleted")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, decorate(r, place))
}

func terminalPlace(ctx context.Context, place *models.Place) (*models.Place, error) {
	visited := map[string]bool{place.ID: true}
	current := place
	for current.ReplacedBy != "" {
		if visited[current.ReplacedBy] {
			return nil, fmt.Errorf("replacement cycle at place %s", current.ID)
		}
		visited[current.ReplacedBy] = true
		var next models.Place
		err := db.PlacesCollection.FindOne(ctx, bson.M{"_id": current.ReplacedBy}).Decode(&next)
		if err != nil {
			return nil, err
		}
		current = &next
	}
	return current, nil
}

func CreatePlace(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var place models.Place
	if err := json.NewDecoder(r.Body).Decode(&place); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if place.ID == "" || len(place.Name) == 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "id and name are required")
		return
	}
	if place.Position != nil && (place.Position.Type != "Point" || len(place.Position.Coordinates) != 2) {
		utils.RespondWithError(w, http.StatusBadRequest, "position must be a GeoJSON point")
		return
	}

	now := time.Now().UTC()
	place.CreatedTime = now
	place.LastModifiedTime = now
	place.Deleted = false
	place.ReplacedBy = ""
	place.CreatedBy = utils.GetUserIDFromRequest(r)

	if _, err := db.PlacesCollection.InsertOne(r.Context(), place); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			utils.RespondWithError(w, http.StatusConflict, "Place already exists")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to create place")
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, decorate(r, place))
}

func UpdatePlace(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	var patch models.Place
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	update := bson.M{
		"last_modified_time": time.Now().UTC(),
		"last_modified_by":   utils.GetUserIDFromRequest(r),
	}
	if len(patch.Name) > 0 {
		update["name"] = patch.Name
	}
	if len(patch.Description) > 0 {
		update["description"] = patch.Description
	}
	if len(patch.StreetAddress) > 0 {
		update["street_address"] = patch.StreetAddress
	}
	if len(patch.AddressLocality) > 0 {
		update["address_locality"] = patch.AddressLocality
	}
	if patch.PostalCode != "" {
		update["postal_code"] = patch.PostalCode
	}
	if patch.Position != nil {
		if patch.Position.Type != "Point" || len(patch.Position.Coordinates) != 2 {
			utils.RespondWithError(w, http.StatusBadRequest, "position must be a GeoJSON point")
			return
		}
		update["position"] = patch.Position
	}
	if patch.ReplacedBy != "" {
		update["replaced_by"] = patch.ReplacedBy
	}

	res, err := db.PlacesCollection.UpdateOne(r.Context(), bson.M{"_id": id}, bson.M{"$set": update})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update place")
		return
	}
	if res.MatchedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "Place not found")
		return
	}

	var place models.Place
	if err := db.PlacesCollection.FindOne(r.Context(), bson.M{"_id": id}).Decode(&place); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to reload place")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, decorate(r, place))
}

// DeletePlace is a soft delete; historical events keep their location.
func DeletePlace(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	res, err := db.PlacesCollection.UpdateOne(r.Context(), bson.M{"_id": ps.ByName("id")}, bson.M{"$set": bson.M{
		"deleted":            true,
		"last_modified_time": time.Now().UTC(),
		"last_modified_by":   utils.GetUserIDFromRequest(r),
	}})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to delete place")
		return
	}
	if res.MatchedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "Place not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
