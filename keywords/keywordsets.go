package keywords

import (
	"encoding/json"
	"net/http"

	"linkedevents/db"
	"linkedevents/models"
	"linkedevents/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func decorateSet(r *http.Request, set models.KeywordSet) map[string]any {
	return utils.DecorateLD(set, utils.APIRoot(r), "keyword_set", set.ID)
}

func GetKeywordSets(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	p, err := utils.ParsePagination(r)
	if err != nil {
		utils.RespondFilterError(w, err)
		return
	}

	filter := bson.M{}
	if usage := r.URL.Query().Get("usage"); usage != "" {
		filter["usage"] = usage
	}

	count, err := db.KeywordSetsCollection.CountDocuments(r.Context(), filter)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to count keyword sets")
		return
	}
	opts := options.Find().SetSkip(p.Skip()).SetLimit(p.Limit()).SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := db.KeywordSetsCollection.Find(r.Context(), filter, opts)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch keyword sets")
		return
	}
	defer cursor.Close(r.Context())

	var sets []models.KeywordSet
	if err := cursor.All(r.Context(), &sets); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to decode keyword sets")
		return
	}

	items := utils.DecorateAll(sets, func(s models.KeywordSet) map[string]any {
		return decorateSet(r, s)
	})
	utils.RespondWithJSON(w, http.StatusOK, utils.NewEnvelope(r, p, count, items))
}

func GetKeywordSet(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var set models.KeywordSet
	err := db.KeywordSetsCollection.FindOne(r.Context(), bson.M{"_id": ps.ByName("id")}).Decode(&set)
	if err == mongo.ErrNoDocuments {
		utils.RespondWithError(w, http.StatusNotFound, "Keyword set not found")
		return
	}
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch keyword set")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, decorateSet(r, set))
}

func CreateKeywordSet(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var set models.KeywordSet
	if err := json.NewDecoder(r.Body).Decode(&set); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if set.ID == "" || len(set.Keywords) == 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "id and keywords are required")
		return
	}
	if set.Usage == "" {
		set.Usage = models.KeywordSetKeyword
	}
	if set.Usage != models.KeywordSetKeyword && set.Usage != models.KeywordSetAudience {
		utils.RespondWithError(w, http.StatusBadRequest, "usage must be keyword or audience")
		return
	}

	if _, err := db.KeywordSetsCollection.InsertOne(r.Context(), set); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			utils.RespondWithError(w, http.StatusConflict, "Keyword set already exists")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to create keyword set")
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, decorateSet(r, set))
}

func DeleteKeywordSet(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	res, err := db.KeywordSetsCollection.DeleteOne(r.Context(), bson.M{"_id": ps.ByName("id")})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to delete keyword set")
		return
	}
	if res.DeletedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "Keyword set not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
