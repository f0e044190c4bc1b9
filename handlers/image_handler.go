package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"mealTrackAPI/services"
)

const (
	maxImageBytes = 10 << 20
	imageField    = "image"
)

type ImageHandler struct {
	recognitionService *services.RecognitionService
}

func NewImageHandler(recognitionService *services.RecognitionService) *ImageHandler {
	return &ImageHandler{recognitionService: recognitionService}
}

// POST /api/v1/image/recognize - multipart upload, field "image"
func (h *ImageHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes+(1<<20))
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, http.StatusRequestEntityTooLarge, "Image must be at most 10MB")
			return
		}
		respondWithError(w, http.StatusBadRequest, "Image file is required")
		return
	}

	file, header, err := r.FormFile(imageField)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Image file is required")
		return
	}
	defer file.Close()

	if header.Size > maxImageBytes {
		respondWithError(w, http.StatusRequestEntityTooLarge, "Image must be at most 10MB")
		return
	}

	image, err := io.ReadAll(file)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Could not read image")
		return
	}
	if len(image) == 0 {
		respondWithError(w, http.StatusBadRequest, "Image file is empty")
		return
	}

	respondWithJSON(w, http.StatusOK, h.recognitionService.RecognizeImage(ctx, image))
}
