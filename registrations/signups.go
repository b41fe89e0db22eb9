package registrations

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"linkedevents/db"
	"linkedevents/models"
	"linkedevents/utils"

	"github.com/julienschmidt/httprouter"
	qrcode "github.com/skip2/go-qrcode"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var errRegistrationFull = errors.New("registration full")

// decideAttendeeStatus places a new sign-up. Claimed seats from a reservation
// hold bypass the hold accounting; everyone else competes with live holds for
// the remaining room. A nil capacity means unlimited.
func decideAttendeeStatus(reg *models.Registration, held, claimed int) (string, error) {
	if reg.MaximumAttendeeCapacity == nil {
		return models.AttendeeAttending, nil
	}
	occupied := reg.CurrentAttendeeCount + held - claimed
	if occupied < *reg.MaximumAttendeeCapacity {
		return models.AttendeeAttending, nil
	}
	if reg.WaitingListCapacity == nil || reg.CurrentWaitingListCount < *reg.WaitingListCapacity {
		return models.AttendeeWaitlisted, nil
	}
	return "", errRegistrationFull
}

func enrolmentOpen(reg *models.Registration, now time.Time) bool {
	if reg.EnrolmentStartTime != nil && now.Before(*reg.EnrolmentStartTime) {
		return false
	}
	if reg.EnrolmentEndTime != nil && now.After(*reg.EnrolmentEndTime) {
		return false
	}
	return true
}

type signUpRequest struct {
	Registration    string `json:"registration"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	PhoneNumber     string `json:"phone_number"`
	City            string `json:"city"`
	ReservationCode string `json:"reservation_code"`
}

func CreateSignUp(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if req.Registration == "" || req.FirstName == "" || req.LastName == "" || req.Email == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "registration, first_name, last_name and email are required")
		return
	}

	reg, err := regByID(r.Context(), req.Registration)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Unknown registration")
		return
	}
	if !enrolmentOpen(reg, time.Now().UTC()) {
		utils.RespondWithError(w, http.StatusConflict, "Enrolment is not open")
		return
	}

	claimed := 0
	if req.ReservationCode != "" {
		claimed, err = seatHolds.Claim(r.Context(), reg.ID, req.ReservationCode)
		if err != nil {
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to claim the reservation")
			return
		}
		if claimed == 0 {
			utils.RespondWithError(w, http.StatusConflict, "Reservation expired or unknown")
			return
		}
	}

	held, err := seatHolds.Held(r.Context(), reg.ID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to check seat holds")
		return
	}
	status, err := decideAttendeeStatus(reg, held, claimed)
	if err != nil {
		utils.RespondWithError(w, http.StatusConflict, "Registration and waiting list are full")
		return
	}

	signup := models.SignUp{
		ID:               "signup:" + utils.GetUUID(),
		Registration:     reg.ID,
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		Email:            req.Email,
		PhoneNumber:      req.PhoneNumber,
		City:             req.City,
		AttendeeStatus:   status,
		ConfirmationCode: utils.GetUUID(),
		CreatedTime:      time.Now().UTC(),
	}
	if _, err := db.SignUpsCollection.InsertOne(r.Context(), signup); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to create sign-up")
		return
	}

	counter := "current_attendee_count"
	if status == models.AttendeeWaitlisted {
		counter = "current_waiting_list_count"
	}
	if _, err := db.RegistrationsCollection.UpdateOne(r.Context(), bson.M{"_id": reg.ID},
		bson.M{"$inc": bson.M{counter: 1}}); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update attendee counts")
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, signup)
}

func GetSignUps(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
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

	p, err := utils.ParsePagination(r)
	if err != nil {
		utils.RespondFilterError(w, err)
		return
	}
	filter := bson.M{"registration": reg.ID}
	if status := r.URL.Query().Get("attendee_status"); status != "" {
		filter["attendee_status"] = status
	}

	count, err := db.SignUpsCollection.CountDocuments(r.Context(), filter)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to count sign-ups")
		return
	}
	opts := options.Find().SetSkip(p.Skip()).SetLimit(p.Limit()).
		SetSort(bson.D{{Key: "created_time", Value: 1}})
	cursor, err := db.SignUpsCollection.Find(r.Context(), filter, opts)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch sign-ups")
		return
	}
	defer cursor.Close(r.Context())

	var signups []models.SignUp
	if err := cursor.All(r.Context(), &signups); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to decode sign-ups")
		return
	}
	items := utils.DecorateAll(signups, func(s models.SignUp) map[string]any {
		return utils.DecorateLD(s, utils.APIRoot(r), "signup", s.ID)
	})
	utils.RespondWithJSON(w, http.StatusOK, utils.NewEnvelope(r, p, count, items))
}

func GetSignUp(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var signup models.SignUp
	err := db.SignUpsCollection.FindOne(r.Context(), bson.M{"_id": ps.ByName("id")}).Decode(&signup)
	if err == mongo.ErrNoDocuments {
		utils.RespondWithError(w, http.StatusNotFound, "Sign-up not found")
		return
	}
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch sign-up")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.DecorateLD(signup, utils.APIRoot(r), "signup", signup.ID))
}

// DeleteSignUp cancels a sign-up. When an attending seat frees up, the oldest
// waitlisted sign-up is promoted into it.
func DeleteSignUp(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var signup models.SignUp
	err := db.SignUpsCollection.FindOne(r.Context(), bson.M{"_id": ps.ByName("id")}).Decode(&signup)
	if err == mongo.ErrNoDocuments {
		utils.RespondWithError(w, http.StatusNotFound, "Sign-up not found")
		return
	}
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch sign-up")
		return
	}

	if _, err := db.SignUpsCollection.DeleteOne(r.Context(), bson.M{"_id": signup.ID}); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to delete sign-up")
		return
	}

	// The sign-up is already gone at this point, so counter failures are
	// logged rather than turned into an error response.
	if signup.AttendeeStatus == models.AttendeeWaitlisted {
		if _, err := db.RegistrationsCollection.UpdateOne(r.Context(), bson.M{"_id": signup.Registration},
			bson.M{"$inc": bson.M{"current_waiting_list_count": -1}}); err != nil {
			log.Printf("ERROR: waiting list counter for %s: %v", signup.Registration, err)
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	// promote the oldest waitlisted sign-up into the freed seat
	promoted := db.SignUpsCollection.FindOneAndUpdate(r.Context(),
		bson.M{"registration": signup.Registration, "attendee_status": models.AttendeeWaitlisted},
		bson.M{"$set": bson.M{"attendee_status": models.AttendeeAttending}},
		options.FindOneAndUpdate().SetSort(bson.D{{Key: "created_time", Value: 1}}))
	if promoted.Err() == nil {
		if _, err := db.RegistrationsCollection.UpdateOne(r.Context(), bson.M{"_id": signup.Registration},
			bson.M{"$inc": bson.M{"current_waiting_list_count": -1}}); err != nil {
			log.Printf("ERROR: waiting list counter for %s: %v", signup.Registration, err)
		}
	} else {
		if promoted.Err() != mongo.ErrNoDocuments {
			log.Printf("ERROR: waitlist promotion for %s: %v", signup.Registration, promoted.Err())
		}
		if _, err := db.RegistrationsCollection.UpdateOne(r.Context(), bson.M{"_id": signup.Registration},
			bson.M{"$inc": bson.M{"current_attendee_count": -1}}); err != nil {
			log.Printf("ERROR: attendee counter for %s: %v", signup.Registration, err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// SignUpQR renders the confirmation code as a PNG for door checks.
func SignUpQR(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var signup models.SignUp
	err := db.SignUpsCollection.FindOne(r.Context(), bson.M{"_id": ps.ByName("id")}).Decode(&signup)
	if err == mongo.ErrNoDocuments {
		utils.RespondWithError(w, http.StatusNotFound, "Sign-up not found")
		return
	}
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch sign-up")
		return
	}
	png, err := qrcode.Encode(signup.ConfirmationCode, qrcode.Medium, 256)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to render QR code")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
