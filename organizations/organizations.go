package organizations

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"linkedevents/db"
	"linkedevents/models"
	"linkedevents/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func decorate(r *http.Request, org models.Organization) map[string]any {
	return utils.DecorateLD(org, utils.APIRoot(r), "organization", org.ID)
}

func GetOrganizations(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	p, err := utils.ParsePagination(r)
	if err != nil {
		utils.RespondFilterError(w, err)
		return
	}

	filter := bson.M{}
	if parent := r.URL.Query().Get("parent"); parent != "" {
		subtree, err := DescendantIDs(r.Context(), []string{parent})
		if err != nil {
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to expand organization tree")
			return
		}
		filter["_id"] = bson.M{"$in": subtree}
	}
	if text := r.URL.Query().Get("text"); text != "" {
		filter["name"] = bson.M{"$regex": utils.RegexEscape(text), "$options": "i"}
	}

	count, err := db.OrganizationsCollection.CountDocuments(r.Context(), filter)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to count organizations")
		return
	}

	opts := options.Find().SetSkip(p.Skip()).SetLimit(p.Limit()).SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := db.OrganizationsCollection.Find(r.Context(), filter, opts)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch organizations")
		return
	}
	defer cursor.Close(r.Context())

	var orgs []models.Organization
	if err := cursor.All(r.Context(), &orgs); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to decode organizations")
		return
	}

	items := utils.DecorateAll(orgs, func(o models.Organization) map[string]any {
		return decorate(r, o)
	})
	utils.RespondWithJSON(w, http.StatusOK, utils.NewEnvelope(r, p, count, items))
}

func GetOrganization(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	org, err := OrgByID(r.Context(), ps.ByName("id"))
	if err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "Organization not found")
		return
	}
	if org.ReplacedBy != "" {
		w.Header().Set("Location", utils.ResourceURL(utils.APIRoot(r), "organization", org.ReplacedBy))
		w.WriteHeader(http.StatusMovedPermanently)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, decorate(r, *org))
}

func CreateOrganization(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var org models.Organization
	if err := json.NewDecoder(r.Body).Decode(&org); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if org.ID == "" || org.Name == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "id and name are required")
		return
	}
	if org.Parent != "" {
		parent, err := OrgByID(r.Context(), org.Parent)
		if err != nil {
			utils.RespondWithError(w, http.StatusBadRequest, "Unknown parent organization")
			return
		}
		userID := utils.GetUserIDFromRequest(r)
		if userID != "" && !parent.HasAdmin(userID) {
			utils.RespondWithError(w, http.StatusForbidden, "Only admins of the parent organization may add children")
			return
		}
	}

	now := time.Now().UTC()
	org.CreatedTime = now
	org.LastModifiedTime = now
	if userID := utils.GetUserIDFromRequest(r); userID != "" && len(org.AdminUsers) == 0 {
		org.AdminUsers = []string{userID}
	}

	if _, err := db.OrganizationsCollection.InsertOne(r.Context(), org); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			utils.RespondWithError(w, http.StatusConflict, "Organization already exists")
			return
		}
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to create organization")
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, decorate(r, org))
}

func UpdateOrganization(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	org, err := OrgByID(r.Context(), id)
	if err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "Organization not found")
		return
	}
	userID := utils.GetUserIDFromRequest(r)
	if !org.HasAdmin(userID) {
		utils.RespondWithError(w, http.StatusForbidden, "Only organization admins may update it")
		return
	}

	var patch models.Organization
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	update := bson.M{"last_modified_time": time.Now().UTC()}
	if patch.Name != "" {
		update["name"] = patch.Name
	}
	if patch.Classification != "" {
		update["classification"] = patch.Classification
	}
	if patch.ReplacedBy != "" {
		update["replaced_by"] = patch.ReplacedBy
	}
	if patch.DissolutionDate != nil {
		update["dissolution_date"] = patch.DissolutionDate
	}
	if patch.AdminUsers != nil {
		update["admin_users"] = patch.AdminUsers
	}
	if patch.RegularUsers != nil {
		update["regular_users"] = patch.RegularUsers
	}
	if patch.RegistrationAdminUsers != nil {
		update["registration_admin_users"] = patch.RegistrationAdminUsers
	}
	if patch.FinancialAdminUsers != nil {
		update["financial_admin_users"] = patch.FinancialAdminUsers
	}

	if _, err := db.OrganizationsCollection.UpdateOne(r.Context(), bson.M{"_id": id}, bson.M{"$set": update}); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to update organization")
		return
	}
	updated, err := OrgByID(r.Context(), id)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to reload organization")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, decorate(r, *updated))
}

func DeleteOrganization(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	org, err := OrgByID(r.Context(), id)
	if err != nil {
		utils.RespondWithError(w, http.StatusNotFound, "Organization not found")
		return
	}
	userID := utils.GetUserIDFromRequest(r)
	if !org.HasAdmin(userID) {
		utils.RespondWithError(w, http.StatusForbidden, "Only organization admins may delete it")
		return
	}
	if _, err := db.OrganizationsCollection.DeleteOne(r.Context(), bson.M{"_id": id}); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to delete organization")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// financialSubresource serves the merchants/accounts custom actions, both
// restricted to financial admins of the organization or its ancestors.
func financialSubresource(pick func(*models.Organization) any) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		org, err := OrgByID(r.Context(), ps.ByName("id"))
		if err != nil {
			utils.RespondWithError(w, http.StatusNotFound, "Organization not found")
			return
		}
		userID := utils.GetUserIDFromRequest(r)
		allowed, err := hasFinancialAdminInTree(r.Context(), org, userID)
		if err != nil {
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to check permissions")
			return
		}
		if !allowed {
			utils.RespondWithError(w, http.StatusForbidden, "Financial admin rights required")
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, pick(org))
	}
}

func hasFinancialAdminInTree(ctx context.Context, org *models.Organization, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	current := org
	visited := map[string]bool{}
	for current != nil {
		if current.HasFinancialAdmin(userID) {
			return true, nil
		}
		if current.Parent == "" || visited[current.Parent] {
			return false, nil
		}
		visited[current.Parent] = true
		next, err := OrgByID(ctx, current.Parent)
		if err != nil {
			return false, nil
		}
		current = next
	}
	return false, nil
}

var GetMerchants = financialSubresource(func(o *models.Organization) any {
	if o.Merchants == nil {
		return []models.Merchant{}
	}
	return o.Merchants
})

var GetAccounts = financialSubresource(func(o *models.Organization) any {
	if o.Accounts == nil {
		return []models.Account{}
	}
	return o.Accounts
})
