package languages

import (
	"net/http"

	"linkedevents/db"
	"linkedevents/models"
	"linkedevents/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func decorate(r *http.Request, lang models.Language) map[string]any {
	return utils.DecorateLD(lang, utils.APIRoot(r), "language", lang.ID)
}

func GetLanguages(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	p, err := utils.ParsePagination(r)
	if err != nil {
		utils.RespondFilterError(w, err)
		return
	}
	filter := bson.M{}
	if val := r.URL.Query().Get("service_language"); val == "true" {
		filter["service_language"] = true
	}

	count, err := db.LanguagesCollection.CountDocuments(r.Context(), filter)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to count languages")
		return
	}
	opts := options.Find().SetSkip(p.Skip()).SetLimit(p.Limit()).SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := db.LanguagesCollection.Find(r.Context(), filter, opts)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch languages")
		return
	}
	defer cursor.Close(r.Context())

	var langs []models.Language
	if err := cursor.All(r.Context(), &langs); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to decode languages")
		return
	}
	items := utils.DecorateAll(langs, func(l models.Language) map[string]any {
		return decorate(r, l)
	})
	utils.RespondWithJSON(w, http.StatusOK, utils.NewEnvelope(r, p, count, items))
}

func GetLanguage(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var lang models.Language
	err := db.LanguagesCollection.FindOne(r.Context(), bson.M{"_id": ps.ByName("id")}).Decode(&lang)
	if err == mongo.ErrNoDocuments {
		utils.RespondWithError(w, http.StatusNotFound, "Language not found")
		return
	}
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch language")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, decorate(r, lang))
}
