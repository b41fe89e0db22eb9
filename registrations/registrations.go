package registrations

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
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Holds expire on their own; fifteen minutes matches a checkout flow.
const reservationTTL = 15 * time.Minute

func decorate(r *http.Request, reg models.Registration) map[string]any {
	return utils.DecorateLD(reg, utils.APIRoot(r), "registration", reg.ID)
}

// canAdminister allows registration admins and plain admins of the event's
// publisher, plus the api-key actor owning the event's source.
func canAdminister(ctx context.Context, r *http.Request, reg *models.Registration) (bool, error) {
	var event models.Event
	if err := db.EventsCollection.FindOne(ctx, bson.M{"_id": reg.Event}).Decode(&event); err != nil {
		return false, err
	}
	if dsActor := utils.GetDataSourceFromRequest(r); dsActor != "" {
		return dsActor == event.DataSource, nil
	}
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		return false, nil
	}
	org, err := organizations.OrgByID(ctx, event.Publisher)
	if err != nil {
		return false, nil
	}
	return org.HasRegistrationAdmin(userID) || org.HasAdmin(userID), nil
}

func regByID(ctx context.Context, id string) (*models.Registration, error) {
	var reg models.Registration
	if err := db.RegistrationsCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

func GetRegistrations(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	p, err := utils.ParsePagination(r)
	if err != nil {
		utils.RespondFilterError(w, err)
		return
	}
	filter := bson.M{}
	if event := r.URL.Query().Get("event"); event != "" {
		filter["event"] = bson.M{"$in": utils.SplitCommaList(event)}
	}

	count, err := db.RegistrationsCollection.CountDocuments(r.Context(), filter)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to count registrations")
		return
	}
	opts := options.Find().SetSkip(p.Skip()).SetLimit(p.Limit()).SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := db.RegistrationsCollection.Find(r.Context(), filter, opts)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch registrations")
		return
	}
	defer cursor.Close(r.Context())

	var regs []models.Registration
	if err := cursor.All(r.Context(), &regs); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to decode registrations")
		return
	}
	items := utils.DecorateAll(regs, func(reg models.Registration) map[string]any {
		return decorate(r, reg)
	})
	utils.RespondWithJSON(w, http.StatusOK, utils.NewEnvelope(r, p, count, items))
}

func GetRegistration(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	reg, err := regByID(r.Context(), ps.ByName("id"))
	if err == mongo.ErrNoDocuments {
		utils.RespondWithError(w, http.StatusNotFound, "Registration not found")
		return
	}
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch registration")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, decorate(r, *reg))
}

func CreateRegistration(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var reg models.Registration
	if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if reg.Event == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "event is required")
		return
	}
	if reg.EnrolmentStartTime != nil && reg.EnrolmentEndTime != nil &&
		reg.EnrolmentEndTime.Before(*reg.EnrolmentStartTime) {
		utils.RespondWithError(w, http.StatusBadRequest, "enrolment_end_time must not precede enrolment_start_time")
		return
	}

	var event models.Event
	if err := db.EventsCollection.FindOne(r.Context(), bson.M{"_id": reg.Event}).Decode(&event); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Unknown event")
		return
	}
	if event.Registration != "" {
		utils.RespondWithError(w, http.StatusConflict, "Event already has a registration")
		return
	}

	ok, err := canAdminister(r.Context(), r, &reg)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to resolve permissions")
		return
	}
	if !ok {
		utils.RespondWithError(w, http.StatusForbidden, "Registration admin rights required")
		return
	}

	if reg.ID == "" {
		reg.ID = "registration:" + utils.GetUUID()
	}
	now := time.Now().UTC()
	reg.CreatedTime = now
	reg.LastModifiedTime = now
	reg.CreatedBy = utils.GetUserIDFromRequest(r)
	reg.CurrentAttendeeCount = 0
	reg.CurrentWaitingListCount = 0

	if _, err := db.RegistrationsCollection.InsertOne(r.Context(), reg); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			utils.RespondWithError(w, http.StatusConflict, "Registration already exists")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to create registration")
		return
	}
	if _, err := db.EventsCollection.UpdateOne(r.Context(), bson.M{"_id": reg.Event},
		bson.M{"$set": bson.M{"registration": reg.ID}}); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to link registration to the event")
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, decorate(r, reg))
}

func UpdateRegistration(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	reg, err := regByID(r.Context(), ps.ByName("id"))
	if err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "Registration not found")
		return
	}
	ok, err := canAdminister(r.Context(), r, reg)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to resolve permissions")
		return
	}
	if !ok {
		utils.RespondWithError(w, http.StatusForbidden, "Registration admin rights required")
		return
	}

	var patch models.Registration
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	update := bson.M{"last_modified_time": time.Now().UTC()}
	if patch.EnrolmentStartTime != nil {
		update["enrolment_start_time"] = patch.EnrolmentStartTime
	}
	if patch.EnrolmentEndTime != nil {
		update["enrolment_end_time"] = patch.EnrolmentEndTime
	}
	if patch.MinimumAttendeeCapacity != nil {
		update["minimum_attendee_capacity"] = patch.MinimumAttendeeCapacity
	}
	if patch.MaximumAttendeeCapacity != nil {
		update["maximum_attendee_capacity"] = patch.MaximumAttendeeCapacity
	}
	if patch.WaitingListCapacity != nil {
		update["waiting_list_capacity"] = patch.WaitingListCapacity
	}
	if patch.MaximumGroupSize != nil {
		update["maximum_group_size"] = patch.MaximumGroupSize
	}
	if patch.AudienceMinAge != nil {
		update["audience_min_age"] = patch.AudienceMinAge
	}
	if patch.AudienceMaxAge != nil {
		update["audience_max_age"] = patch.AudienceMaxAge
	}
	if len(patch.Instructions) > 0 {
		update["instructions"] = patch.Instructions
	}

	if _, err := db.RegistrationsCollection.UpdateOne(r.Context(), bson.M{"_id": reg.ID},
		bson.M{"$set": update}); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update registration")
		return
	}
	updated, err := regByID(r.Context(), reg.ID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to reload registration")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, decorate(r, *updated))
}

func DeleteRegistration(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	reg, err := regByID(r.Context(), ps.ByName("id"))
	if err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "Registration not found")
		return
	}
	ok, err := canAdminister(r.Context(), r, reg)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to resolve permissions")
		return
	}
	if !ok {
		utils.RespondWithError(w, http.StatusForbidden, "Registration admin rights required")
		return
	}

	if _, err := db.SignUpsCollection.DeleteMany(r.Context(), bson.M{"registration": reg.ID}); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to remove sign-ups")
		return
	}
	if _, err := db.RegistrationsCollection.DeleteOne(r.Context(), bson.M{"_id": reg.ID}); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to delete registration")
		return
	}
	if _, err := db.EventsCollection.UpdateOne(r.Context(), bson.M{"_id": reg.Event},
		bson.M{"$unset": bson.M{"registration": ""}}); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to unlink registration from the event")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reserveRequest struct {
	Seats int `json:"seats"`
}

type reserveResponse struct {
	Code      string    `json:"code"`
	Seats     int       `json:"seats"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ReserveSeats places a short-lived hold that a subsequent sign-up can claim.
// Held seats count against capacity until they expire.
func ReserveSeats(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	reg, err := regByID(r.Context(), ps.ByName("id"))
	if err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "Registration not found")
		return
	}

	var req reserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Seats < 1 {
		utils.RespondWithError(w, http.StatusBadRequest, "seats must be a positive integer")
		return
	}
	if reg.MaximumGroupSize != nil && req.Seats > *reg.MaximumGroupSize {
		utils.RespondWithError(w, http.StatusBadRequest, "seats exceeds the maximum group size")
		return
	}

	if reg.MaximumAttendeeCapacity != nil {
		held, err := seatHolds.Held(r.Context(), reg.ID)
		if err != nil {
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to check existing holds")
			return
		}
		if reg.CurrentAttendeeCount+held+req.Seats > *reg.MaximumAttendeeCapacity {
			utils.RespondWithError(w, http.StatusConflict, "Not enough seats left")
			return
		}
	}

	code := utils.GetUUID()
	if err := seatHolds.Hold(r.Context(), reg.ID, code, req.Seats, reservationTTL); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to hold seats")
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, reserveResponse{
		Code:      code,
		Seats:     req.Seats,
		ExpiresAt: time.Now().UTC().Add(reservationTTL),
	})
}

type messageRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// SendMessage records a message addressed to everyone signed up. Delivery is
// left to the mail pipeline reading the stored messages.
func SendMessage(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	reg, err := regByID(r.Context(), ps.ByName("id"))
	if err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "Registration not found")
		return
	}
	ok, err := canAdminister(r.Context(), r, reg)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to resolve permissions")
		return
	}
	if !ok {
		utils.RespondWithError(w, http.StatusForbidden, "Registration admin rights required")
		return
	}

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Subject == "" || req.Body == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "subject and body are required")
		return
	}

	cursor, err := db.SignUpsCollection.Find(r.Context(), bson.M{"registration": reg.ID},
		options.Find().SetProjection(bson.M{"email": 1}))
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to list recipients")
		return
	}
	defer cursor.Close(r.Context())

	recipients := []string{}
	for cursor.Next(r.Context()) {
		var doc struct {
			Email string `bson:"email"`
		}
		if err := cursor.Decode(&doc); err == nil && doc.Email != "" {
			recipients = append(recipients, doc.Email)
		}
	}

	msg := models.RegistrationMessage{
		ID:           "message:" + utils.GetUUID(),
		Registration: reg.ID,
		Subject:      req.Subject,
		Body:         req.Body,
		Recipients:   recipients,
		SentBy:       utils.GetUserIDFromRequest(r),
		CreatedTime:  time.Now().UTC(),
	}
	if _, err := db.MessagesCollection.InsertOne(r.Context(), msg); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to store the message")
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, msg)
}
