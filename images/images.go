package images

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"linkedevents/db"
	"linkedevents/models"
	"linkedevents/utils"

	"github.com/disintegration/imaging"
	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	uploadDir     = "./static/eventimages"
	maxUploadSize = 10 << 20
	thumbWidth    = 300
)

func decorate(r *http.Request, img models.Image) map[string]any {
	return utils.DecorateLD(img, utils.APIRoot(r), "image", img.ID)
}

func ensureDirExists(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// saveImageFile decodes, re-encodes and thumbnails an upload. Re-encoding to
// JPEG strips anything that is not actually image data.
func saveImageFile(file *multipart.FileHeader, uniqueID string) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open image file: %w", err)
	}
	defer src.Close()

	img, err := imaging.Decode(src)
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	fileName := uniqueID + ".jpg"
	originalPath := filepath.Join(uploadDir, fileName)
	thumbDir := filepath.Join(uploadDir, "thumb")
	thumbnailPath := filepath.Join(thumbDir, fileName)

	if err := ensureDirExists(uploadDir); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}
	if err := ensureDirExists(thumbDir); err != nil {
		return "", fmt.Errorf("failed to create thumbnail directory: %w", err)
	}

	if err := imaging.Save(img, originalPath); err != nil {
		return "", fmt.Errorf("failed to save original image: %w", err)
	}
	thumbImg := imaging.Resize(img, thumbWidth, 0, imaging.Lanczos)
	if err := imaging.Save(thumbImg, thumbnailPath); err != nil {
		return "", fmt.Errorf("failed to save thumbnail: %w", err)
	}
	return "/eventimages/" + fileName, nil
}

func UploadImage(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	files := r.MultipartForm.File["image"]
	if len(files) == 0 {
		utils.RespondWithError(w, http.StatusBadRequest, "An image file is required")
		return
	}

	uniqueID := utils.GetUUID()
	url, err := saveImageFile(files[0], uniqueID)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Failed to process the image")
		return
	}

	dsActor := utils.GetDataSourceFromRequest(r)
	if dsActor == "" {
		dsActor = "system"
	}
	img := models.Image{
		ID:               "image:" + uniqueID,
		DataSource:       dsActor,
		Publisher:        r.FormValue("publisher"),
		Name:             r.FormValue("name"),
		URL:              url,
		PhotographerName: r.FormValue("photographer_name"),
		License:          r.FormValue("license"),
		CreatedTime:      time.Now().UTC(),
		CreatedBy:        utils.GetUserIDFromRequest(r),
	}
	if img.License == "" {
		img.License = "cc_by"
	}

	if _, err := db.ImagesCollection.InsertOne(r.Context(), img); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to store image metadata")
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, decorate(r, img))
}

func GetImages(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	p, err := utils.ParsePagination(r)
	if err != nil {
		utils.RespondFilterError(w, err)
		return
	}
	filter := bson.M{}
	if publisher := r.URL.Query().Get("publisher"); publisher != "" {
		filter["publisher"] = bson.M{"$in": utils.SplitCommaList(publisher)}
	}
	if ds := r.URL.Query().Get("data_source"); ds != "" {
		filter["data_source"] = bson.M{"$in": utils.SplitCommaList(ds)}
	}

	count, err := db.ImagesCollection.CountDocuments(r.Context(), filter)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to count images")
		return
	}
	opts := options.Find().SetSkip(p.Skip()).SetLimit(p.Limit()).
		SetSort(bson.D{{Key: "created_time", Value: -1}})
	cursor, err := db.ImagesCollection.Find(r.Context(), filter, opts)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch images")
		return
	}
	defer cursor.Close(r.Context())

	var imgs []models.Image
	if err := cursor.All(r.Context(), &imgs); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to decode images")
		return
	}
	items := utils.DecorateAll(imgs, func(img models.Image) map[string]any {
		return decorate(r, img)
	})
	utils.RespondWithJSON(w, http.StatusOK, utils.NewEnvelope(r, p, count, items))
}

func GetImage(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var img models.Image
	err := db.ImagesCollection.FindOne(r.Context(), bson.M{"_id": ps.ByName("id")}).Decode(&img)
	if err == mongo.ErrNoDocuments {
		utils.RespondWithError(w, http.StatusNotFound, "Image not found")
		return
	}
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch image")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, decorate(r, img))
}

func DeleteImage(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	res, err := db.ImagesCollection.DeleteOne(r.Context(), bson.M{"_id": ps.ByName("id")})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to delete image")
		return
	}
	if res.DeletedCount == 0 {
		utils.RespondWithError(w, http.StatusNotFound, "Image not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
