package controller

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/tshirt-backend/internal/app/service"
	apperrors "github.com/ikkim/tshirt-backend/internal/errors"
	"github.com/ikkim/tshirt-backend/internal/middleware"
)

// maxDesignBodyBytes caps /save_design bodies. Decals reference uploaded
// files by URL, so a design is a few KB of JSON at most.
const maxDesignBodyBytes = 1 << 20

type DesignController struct {
	designService service.DesignService
	uploadService service.UploadService
}

func NewDesignController(designService service.DesignService, uploadService service.UploadService) *DesignController {
	return &DesignController{
		designService: designService,
		uploadService: uploadService,
	}
}

// SaveDesign stores the customizer's design: a new row for users, the
// session for anonymous visitors.
// POST /save_design
func (ctrl *DesignController) SaveDesign(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxDesignBodyBytes))
	if err != nil {
		log.Warn("Failed to read design body", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request")
		return
	}

	result, err := ctrl.designService.Save(c.Request.Context(), sessionActor(c), body)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidJSON):
			apperrors.BadRequest(c, apperrors.ValidationInvalidJSON, "Invalid JSON")
		case errors.Is(err, service.ErrInvalidProduct):
			apperrors.BadRequest(c, apperrors.DesignInvalidProduct, "Invalid product")
		case errors.Is(err, service.ErrInvalidColor):
			apperrors.BadRequest(c, apperrors.DesignInvalidColor, "Invalid color")
		case errors.Is(err, service.ErrSessionRequired):
			apperrors.BadRequest(c, apperrors.SessionRequired, "Cookies are required to save a design")
		default:
			log.Error("Failed to save design", err, nil)
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "save design")
		}
		return
	}

	if result.SessionSaved {
		c.JSON(http.StatusOK, gin.H{"status": "session_saved"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"design_id": result.DesignID,
	})
}

// LoadDesign returns the latest design. A missing design is a normal
// outcome for the customizer, so it is reported with 200.
// GET /load_design
func (ctrl *DesignController) LoadDesign(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)
	actor := currentActor(c)

	design, err := ctrl.designService.Load(c.Request.Context(), actor)
	if err != nil {
		if errors.Is(err, service.ErrNoDesign) {
			message := "No design in session"
			if actor.IsAuthenticated() {
				message = "No design found"
			}
			c.JSON(http.StatusOK, gin.H{
				"status": "no_design",
				"error":  message,
			})
			return
		}
		log.Error("Failed to load design", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "load design")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"design": design,
	})
}

// UploadDecal stores an image for use as a decal
// POST /upload_decal (multipart field "decalFile")
func (ctrl *DesignController) UploadDecal(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	file, err := c.FormFile("decalFile")
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		log.Warn("Invalid upload request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request")
		return
	}

	result, err := ctrl.uploadService.UploadDecal(c.Request.Context(), file)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoFile):
			apperrors.BadRequest(c, apperrors.UploadNoFile, "No file uploaded")
		case errors.Is(err, service.ErrInvalidFileType):
			apperrors.BadRequest(c, apperrors.UploadInvalidFileType, "Invalid file type")
		case errors.Is(err, service.ErrFileTooLarge):
			apperrors.BadRequest(c, apperrors.UploadFileTooLarge, "File is too large")
		default:
			log.Error("Failed to upload decal", err, nil)
			apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.UploadFailed, "Upload failed, please try again later")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"file_url": result.URL,
	})
}

// parseIDParam reads a positive integer path parameter
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
