package events

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"linkedevents/db"
	"linkedevents/models"
	"linkedevents/organizations"
	"linkedevents/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func loadEditable(ctx context.Context, r *http.Request, id string) (*models.Event, int, string) {
	var event models.Event
	err := db.EventsCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&event)
	if err == mongo.ErrNoDocuments {
		return nil, http.StatusNotFound, "Event not found"
	}
	if err != nil {
		return nil, http.StatusInternalServerError, "Failed to fetch event"
	}
	ok, err := organizations.CanEdit(ctx,
		utils.GetUserIDFromRequest(r), utils.GetDataSourceFromRequest(r),
		event.Publisher, event.DataSource)
	if err != nil {
		return nil, http.StatusInternalServerError, "Failed to resolve permissions"
	}
	if !ok {
		return nil, http.StatusForbidden, "No editing rights for this event"
	}
	return &event, 0, ""
}

// applyEventPatch merges non-zero patch fields into the stored event. A
// rescheduled start on a postponed event flips its status back to a date.
func applyEventPatch(event *models.Event, patch *models.Event) {
	if len(patch.Name) > 0 {
		event.Name = patch.Name
	}
	if patch.Description != nil {
		event.Description = patch.Description
	}
	if patch.ShortDescription != nil {
		event.ShortDescription = patch.ShortDescription
	}
	if patch.InfoURL != nil {
		event.InfoURL = patch.InfoURL
	}
	if patch.Location != "" {
		event.Location = patch.Location
	}
	if patch.LocationExtraInfo != nil {
		event.LocationExtraInfo = patch.LocationExtraInfo
	}
	if patch.StartTime != nil {
		if event.EventStatus == models.EventPostponed {
			event.EventStatus = models.EventRescheduled
		}
		event.StartTime = patch.StartTime
		event.HasStartTime = true
	}
	if patch.EndTime != nil {
		event.EndTime = patch.EndTime
		event.HasEndTime = true
	}
	if patch.EventStatus != "" {
		event.EventStatus = patch.EventStatus
		if patch.EventStatus == models.EventPostponed {
			// a postponed event has no fixed date until rescheduled
			event.StartTime = nil
			event.EndTime = nil
			event.HasStartTime = false
			event.HasEndTime = false
		}
	}
	if patch.PublicationStatus != "" {
		event.PublicationStatus = patch.PublicationStatus
	}
	if patch.TypeID != "" {
		event.TypeID = patch.TypeID
	}
	if patch.Keywords != nil {
		event.Keywords = patch.Keywords
	}
	if patch.Audience != nil {
		event.Audience = patch.Audience
	}
	if patch.InLanguage != nil {
		event.InLanguage = patch.InLanguage
	}
	if patch.AudienceMinAge != nil {
		event.AudienceMinAge = patch.AudienceMinAge
	}
	if patch.AudienceMaxAge != nil {
		event.AudienceMaxAge = patch.AudienceMaxAge
	}
	if patch.Offers != nil {
		event.Offers = patch.Offers
	}
	if patch.ExternalLinks != nil {
		event.ExternalLinks = patch.ExternalLinks
	}
	if patch.Images != nil {
		event.Images = patch.Images
	}
	if patch.SuperEvent != "" {
		event.SuperEvent = patch.SuperEvent
	}
	if patch.SuperEventType != "" {
		event.SuperEventType = patch.SuperEventType
	}
	if patch.Registration != "" {
		event.Registration = patch.Registration
	}
}

func UpdateEvent(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	event, code, msg := loadEditable(r.Context(), r, ps.ByName("id"))
	if event == nil {
		utils.RespondWithError(w, code, msg)
		return
	}

	var patch models.Event
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	applyEventPatch(event, &patch)
	if msg := validateEventPayload(event); msg != "" {
		utils.RespondWithError(w, http.StatusBadRequest, msg)
		return
	}

	event.LastModifiedTime = time.Now().UTC()
	event.LastModifiedBy = utils.GetUserIDFromRequest(r)

	if _, err := db.EventsCollection.ReplaceOne(r.Context(), bson.M{"_id": event.ID}, event); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update event")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, decorate(r, *event))
}

// BulkUpdateEvents applies an array of patches in one request. The whole
// batch is validated before any write so a bad item rejects the lot.
func BulkUpdateEvents(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var patches []models.Event
	if err := json.NewDecoder(r.Body).Decode(&patches); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if len(patches) == 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "Expected a non-empty array of events")
		return
	}

	merged := make([]*models.Event, 0, len(patches))
	for i := range patches {
		if patches[i].ID == "" {
			utils.RespondWithError(w, http.StatusBadRequest, "Every event in a bulk update needs an id")
			return
		}
		event, code, msg := loadEditable(r.Context(), r, patches[i].ID)
		if event == nil {
			utils.RespondWithError(w, code, msg)
			return
		}
		applyEventPatch(event, &patches[i])
		if msg := validateEventPayload(event); msg != "" {
			utils.RespondWithError(w, http.StatusBadRequest, msg)
			return
		}
		merged = append(merged, event)
	}

	now := time.Now().UTC()
	userID := utils.GetUserIDFromRequest(r)
	results := make([]any, 0, len(merged))
	for _, event := range merged {
		event.LastModifiedTime = now
		event.LastModifiedBy = userID
		if _, err := db.EventsCollection.ReplaceOne(r.Context(), bson.M{"_id": event.ID}, event); err != nil {
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update event "+event.ID)
			return
		}
		results = append(results, decorate(r, *event))
	}
	utils.RespondWithJSON(w, http.StatusOK, results)
}

// DeleteEvent soft-deletes; a recurring super takes its occurrences with it.
func DeleteEvent(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	event, code, msg := loadEditable(r.Context(), r, ps.ByName("id"))
	if event == nil {
		utils.RespondWithError(w, code, msg)
		return
	}

	now := time.Now().UTC()
	userID := utils.GetUserIDFromRequest(r)
	set := bson.M{"$set": bson.M{
		"deleted":            true,
		"last_modified_time": now,
		"last_modified_by":   userID,
	}}
	if _, err := db.EventsCollection.UpdateOne(r.Context(), bson.M{"_id": event.ID}, set); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to delete event")
		return
	}
	if event.SuperEventType != "" {
		if _, err := db.EventsCollection.UpdateMany(r.Context(), bson.M{"super_event": event.ID}, set); err != nil {
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to delete sub-events")
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}
