package events

import (
	"context"
	"net/http"

	"linkedevents/apierr"
	"linkedevents/db"
	"linkedevents/export"
	"linkedevents/models"
	"linkedevents/organizations"
	"linkedevents/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func decorate(r *http.Request, event models.Event) map[string]any {
	return utils.DecorateLD(event, utils.APIRoot(r), "event", event.ID)
}

var eventSorts = map[string]bson.D{
	"":                    {{Key: "start_time", Value: 1}},
	"start_time":          {{Key: "start_time", Value: 1}},
	"-start_time":         {{Key: "start_time", Value: -1}},
	"end_time":            {{Key: "end_time", Value: 1}},
	"-end_time":           {{Key: "end_time", Value: -1}},
	"last_modified_time":  {{Key: "last_modified_time", Value: 1}},
	"-last_modified_time": {{Key: "last_modified_time", Value: -1}},
	"name":                {{Key: "name.fi", Value: 1}},
	"-name":               {{Key: "name.fi", Value: -1}},
}

// visibilityCond restricts listings to public events plus the drafts the
// caller is entitled to see.
func visibilityCond(ctx context.Context, userID, dsActor string) (bson.M, error) {
	or := bson.A{bson.M{"publication_status": models.PublicationPublic}}
	if dsActor != "" {
		or = append(or, bson.M{"data_source": dsActor})
	}
	if userID != "" {
		editable, err := organizations.EditableOrgIDs(ctx, userID)
		if err != nil {
			return nil, err
		}
		if len(editable) > 0 {
			or = append(or, bson.M{"publisher": bson.M{"$in": editable}})
		}
	}
	return bson.M{"$or": or}, nil
}

func GetEvents(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := r.URL.Query()
	p, err := utils.ParsePagination(r)
	if err != nil {
		utils.RespondFilterError(w, err)
		return
	}

	filter, err := BuildEventFilter(r.Context(), q, DefaultFilterDeps())
	if err != nil {
		utils.RespondFilterError(w, err)
		return
	}

	userID := utils.GetUserIDFromRequest(r)
	dsActor := utils.GetDataSourceFromRequest(r)
	visible, err := visibilityCond(r.Context(), userID, dsActor)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to resolve permissions")
		return
	}
	if and, ok := filter["$and"].([]bson.M); ok {
		filter["$and"] = append(and, visible)
	} else {
		filter = bson.M{"$and": []bson.M{filter, visible}}
	}

	sort, ok := eventSorts[q.Get("sort")]
	if !ok {
		utils.RespondFilterError(w, apierr.Param("sort", q.Get("sort"), "unsupported sort key"))
		return
	}

	count, err := db.EventsCollection.CountDocuments(r.Context(), filter)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to count events")
		return
	}
	opts := options.Find().SetSkip(p.Skip()).SetLimit(p.Limit()).SetSort(sort)
	cursor, err := db.EventsCollection.Find(r.Context(), filter, opts)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch events")
		return
	}
	defer cursor.Close(r.Context())

	var evts []models.Event
	if err := cursor.All(r.Context(), &evts); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to decode events")
		return
	}

	switch q.Get("format") {
	case "ics":
		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="events.ics"`)
		if err := export.WriteICS(w, evts); err != nil {
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to render calendar")
		}
		return
	case "pdf":
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="events.pdf"`)
		if err := export.WritePDF(w, evts); err != nil {
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to render PDF")
		}
		return
	case "":
	default:
		utils.RespondFilterError(w, apierr.Param("format", q.Get("format"), "expected ics or pdf"))
		return
	}

	items := utils.DecorateAll(evts, func(e models.Event) map[string]any {
		return decorate(r, e)
	})
	utils.RespondWithJSON(w, http.StatusOK, utils.NewEnvelope(r, p, count, items))
}

func GetEvent(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var event models.Event
	err := db.EventsCollection.FindOne(r.Context(), bson.M{"_id": ps.ByName("id")}).Decode(&event)
	if err == mongo.ErrNoDocuments {
		utils.RespondWithError(w, http.StatusNotFound, "Event not found")
		return
	}
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch event")
		return
	}
	if event.Deleted {
		utils.RespondWithError(w, http.StatusGone, "Event has been deleted")
		return
	}
	if event.PublicationStatus == models.PublicationDraft {
		userID := utils.GetUserIDFromRequest(r)
		dsActor := utils.GetDataSourceFromRequest(r)
		ok, err := organizations.CanEdit(r.Context(), userID, dsActor, event.Publisher, event.DataSource)
		if err != nil || !ok {
			// drafts are invisible to outsiders, not forbidden
			utils.RespondWithError(w, http.StatusNotFound, "Event not found")
			return
		}
	}
	utils.RespondWithJSON(w, http.StatusOK, decorate(r, event))
}
