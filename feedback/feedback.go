package feedback

import (
	"encoding/json"
	"net/http"
	"time"

	"linkedevents/db"
	"linkedevents/models"
	"linkedevents/utils"

	"github.com/julienschmidt/httprouter"
)

// PostFeedback stores API feedback. Open to anonymous callers; rate limiting
// keeps it from becoming a write amplifier.
func PostFeedback(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var fb models.Feedback
	if err := json.NewDecoder(r.Body).Decode(&fb); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if fb.Subject == "" || fb.Body == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "subject and body are required")
		return
	}

	fb.ID = "feedback:" + utils.GetUUID()
	fb.CreatedTime = time.Now().UTC()

	if _, err := db.FeedbackCollection.InsertOne(r.Context(), fb); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to store feedback")
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, fb)
}
