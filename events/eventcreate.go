package events

import (
	"encoding/json"
	"net/http"
	"time"

	"linkedevents/db"
	"linkedevents/models"
	"linkedevents/organizations"
	"linkedevents/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/mongo"
)

// validateEventPayload enforces the invariants shared by create and update.
func validateEventPayload(event *models.Event) string {
	if len(event.Name) == 0 {
		return "name is required"
	}
	if event.Publisher == "" {
		return "publisher is required"
	}
	if event.StartTime != nil && event.EndTime != nil && event.EndTime.Before(*event.StartTime) {
		return "end_time must not precede start_time"
	}
	if event.PublicationStatus == models.PublicationPublic && event.StartTime == nil {
		return "a public event needs a start_time"
	}
	switch event.TypeID {
	case "", models.TypeGeneral, models.TypeCourse, models.TypeVolunteering:
	default:
		return "type_id must be General, Course or Volunteering"
	}
	switch event.SuperEventType {
	case "", models.SuperEventRecurring, models.SuperEventUmbrella:
	default:
		return "super_event_type must be recurring or umbrella"
	}
	return ""
}

func CreateEvent(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var event models.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	userID := utils.GetUserIDFromRequest(r)
	dsActor := utils.GetDataSourceFromRequest(r)
	if dsActor != "" {
		event.DataSource = dsActor
	} else if event.DataSource == "" {
		event.DataSource = "system"
	}
	if event.PublicationStatus == "" {
		event.PublicationStatus = models.PublicationPublic
	}
	if event.PublicationStatus != models.PublicationPublic && event.PublicationStatus != models.PublicationDraft {
		utils.RespondWithError(w, http.StatusBadRequest, "publication_status must be public or draft")
		return
	}
	if msg := validateEventPayload(&event); msg != "" {
		utils.RespondWithError(w, http.StatusBadRequest, msg)
		return
	}

	ok, err := organizations.CanEdit(r.Context(), userID, dsActor, event.Publisher, event.DataSource)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to resolve permissions")
		return
	}
	if !ok {
		utils.RespondWithError(w, http.StatusForbidden, "No publishing rights for this organization")
		return
	}

	if event.ID == "" {
		event.ID = event.DataSource + ":" + utils.GetUUID()
	}
	if event.EventStatus == "" {
		event.EventStatus = models.EventScheduled
	}
	if event.TypeID == "" {
		event.TypeID = models.TypeGeneral
	}
	if event.Keywords == nil {
		event.Keywords = []string{}
	}
	if event.Offers == nil {
		event.Offers = []models.Offer{}
	}
	event.HasStartTime = event.StartTime != nil
	event.HasEndTime = event.EndTime != nil

	now := time.Now().UTC()
	event.CreatedTime = now
	event.LastModifiedTime = now
	event.CreatedBy = userID
	event.LastModifiedBy = userID
	event.Deleted = false

	if _, err := db.EventsCollection.InsertOne(r.Context(), event); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			utils.RespondWithError(w, http.StatusConflict, "Event already exists")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to create event")
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, decorate(r, event))
}
