package events

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"linkedevents/db"
	"linkedevents/models"
	"linkedevents/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/teambition/rrule-go"
	"go.mongodb.org/mongo-driver/bson"
)

// Open-ended rules are capped so one request cannot materialize years of
// occurrences.
const maxOccurrences = 366

type recurrenceRequest struct {
	RRule string     `json:"rrule"`
	Until *time.Time `json:"until,omitempty"`
}

// CreateRecurrence expands an RFC 5545 recurrence rule into sub-events under
// the given event, which becomes a recurring super event. The first occurrence
// anchors on the super's start_time.
func CreateRecurrence(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	super, code, msg := loadEditable(r.Context(), r, ps.ByName("id"))
	if super == nil {
		utils.RespondWithError(w, code, msg)
		return
	}
	if super.StartTime == nil {
		utils.RespondWithError(w, http.StatusBadRequest, "A recurrence needs a start_time on the event")
		return
	}
	if super.SuperEvent != "" {
		utils.RespondWithError(w, http.StatusBadRequest, "A sub-event cannot become a recurring super")
		return
	}

	var req recurrenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RRule == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Expected an rrule string")
		return
	}
	rule, err := rrule.StrToRRule(req.RRule)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid recurrence rule: "+err.Error())
		return
	}
	rule.DTStart(super.StartTime.UTC())

	var duration time.Duration
	if super.EndTime != nil {
		duration = super.EndTime.Sub(*super.StartTime)
	}

	now := time.Now().UTC()
	userID := utils.GetUserIDFromRequest(r)
	next := rule.Iterator()
	var subs []models.Event
	for i := 0; i < maxOccurrences; i++ {
		occ, ok := next()
		if !ok {
			break
		}
		if req.Until != nil && occ.After(*req.Until) {
			break
		}
		sub := *super
		sub.ID = fmt.Sprintf("%s:%d", super.ID, i+1)
		start := occ
		sub.StartTime = &start
		if duration > 0 {
			end := occ.Add(duration)
			sub.EndTime = &end
			sub.HasEndTime = true
		}
		sub.SuperEvent = super.ID
		sub.SuperEventType = ""
		sub.CreatedTime = now
		sub.LastModifiedTime = now
		sub.CreatedBy = userID
		sub.LastModifiedBy = userID
		subs = append(subs, sub)
	}
	if len(subs) == 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "The rule yields no occurrences")
		return
	}

	docs := make([]any, 0, len(subs))
	for i := range subs {
		docs = append(docs, subs[i])
	}
	if _, err := db.EventsCollection.InsertMany(r.Context(), docs); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to create occurrences")
		return
	}

	if _, err := db.EventsCollection.UpdateOne(r.Context(), bson.M{"_id": super.ID}, bson.M{"$set": bson.M{
		"super_event_type":   models.SuperEventRecurring,
		"last_modified_time": now,
		"last_modified_by":   userID,
	}}); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to mark the super event")
		return
	}

	items := utils.DecorateAll(subs, func(e models.Event) map[string]any {
		return decorate(r, e)
	})
	utils.RespondWithJSON(w, http.StatusCreated, items)
}
