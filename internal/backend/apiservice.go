package backend

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/jo-hoe/faceregistry/internal/backend/database"
	"github.com/jo-hoe/faceregistry/internal/backend/detector"
	"github.com/jo-hoe/faceregistry/internal/backend/session"
	"github.com/jo-hoe/faceregistry/internal/core"

	"github.com/labstack/echo/v4"
)

const maxUploadBytes = 32 << 20

type APIService struct {
	coreService *core.CoreService
}

// DetailsRequest is the body of a save request for a pending session.
// All fields are free text and may be empty.
type DetailsRequest struct {
	Name   string `json:"name" validate:"max=4096"`
	Age    string `json:"age" validate:"max=4096"`
	Number string `json:"number" validate:"max=4096"`
	Email  string `json:"email" validate:"max=4096"`
}

type RecognizeResponse struct {
	State     core.SessionState     `json:"state"`
	ImageName string                `json:"imageName"`
	Faces     []detector.Box        `json:"faces"`
	Details   *database.FaceDetails `json:"details,omitempty"`
	SessionID string                `json:"sessionId,omitempty"`
}

type SaveResponse struct {
	State      core.SessionState `json:"state"`
	ImageName  string            `json:"imageName"`
	Inserted   int               `json:"inserted"`
	Duplicates int               `json:"duplicates"`
	Failed     int               `json:"failed"`
}

type FaceResponse struct {
	ID        int64                `json:"id"`
	ImageName string               `json:"imageName"`
	Details   database.FaceDetails `json:"details"`
}

func NewAPIService(coreService *core.CoreService) *APIService {
	return &APIService{
		coreService: coreService,
	}
}

func (s *APIService) SetRoutes(e *echo.Echo) {
	e.GET("/probe", s.probeHandler)

	e.POST("/api/recognize", s.recognizeHandler)
	e.POST("/api/sessions/:id/details", s.saveDetailsHandler)
	e.DELETE("/api/sessions/:id", s.discardSessionHandler)
	e.GET("/api/faces", s.listFacesHandler)
	e.GET("/api/faces/:imageName", s.getFaceHandler)
}

func (s *APIService) probeHandler(ctx echo.Context) error {
	if !s.coreService.Healthy() {
		slog.Error("probeHandler: face store unreachable")
		return ctx.String(http.StatusServiceUnavailable, "Face store unreachable")
	}
	return ctx.String(http.StatusOK, "Face registry is running")
}

func (s *APIService) recognizeHandler(ctx echo.Context) error {
	file, err := ctx.FormFile("image")
	if err != nil {
		slog.Warn("recognizeHandler: missing image", "status", http.StatusBadRequest, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "form file 'image' is required")
	}

	src, err := file.Open()
	if err != nil {
		slog.Error("recognizeHandler: failed to open upload", "error", err, "image_name", file.Filename)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to open uploaded file")
	}
	defer func() {
		_ = src.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(src, maxUploadBytes))
	if err != nil {
		slog.Error("recognizeHandler: failed to read upload", "error", err, "image_name", file.Filename)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to read uploaded file")
	}

	result, err := s.coreService.Recognize(ctx.Request().Context(), file.Filename, data)
	switch {
	case errors.Is(err, core.ErrNoFaceDetected):
		return ctx.JSON(http.StatusUnprocessableEntity, map[string]string{
			"state": string(result.State),
			"error": err.Error(),
		})
	case errors.Is(err, core.ErrUnsupportedFileType), errors.Is(err, core.ErrEmptyImage):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case err != nil:
		slog.Error("recognizeHandler: recognition failed", "error", err, "image_name", file.Filename)
		return echo.NewHTTPError(http.StatusBadGateway, "face recognition failed")
	}

	return ctx.JSON(http.StatusOK, RecognizeResponse{
		State:     result.State,
		ImageName: result.ImageName,
		Faces:     result.Faces,
		Details:   result.Details,
		SessionID: result.SessionID,
	})
}

func (s *APIService) saveDetailsHandler(ctx echo.Context) error {
	var request DetailsRequest
	if err := ctx.Bind(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := ctx.Validate(&request); err != nil {
		return err
	}

	result, err := s.coreService.SaveDetails(ctx.Request().Context(), ctx.Param("id"), database.FaceDetails{
		Name:   request.Name,
		Age:    request.Age,
		Number: request.Number,
		Email:  request.Email,
	})
	if errors.Is(err, session.ErrSessionNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if err != nil {
		slog.Error("saveDetailsHandler: failed to save details", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to save details")
	}

	return ctx.JSON(http.StatusOK, SaveResponse{
		State:      result.State,
		ImageName:  result.ImageName,
		Inserted:   result.Inserted,
		Duplicates: result.Duplicates,
		Failed:     result.Failed,
	})
}

func (s *APIService) discardSessionHandler(ctx echo.Context) error {
	err := s.coreService.DiscardSession(ctx.Request().Context(), ctx.Param("id"))
	if errors.Is(err, session.ErrSessionNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	if err != nil {
		slog.Error("discardSessionHandler: failed to discard session", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to discard session")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (s *APIService) listFacesHandler(ctx echo.Context) error {
	records, err := s.coreService.ListFaces()
	if err != nil {
		slog.Error("listFacesHandler: failed to list faces", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list faces")
	}

	faces := make([]FaceResponse, 0, len(records))
	for _, r := range records {
		faces = append(faces, FaceResponse{ID: r.ID, ImageName: r.ImageName, Details: r.Details})
	}
	return ctx.JSON(http.StatusOK, faces)
}

func (s *APIService) getFaceHandler(ctx echo.Context) error {
	imageName := ctx.Param("imageName")
	details, err := s.coreService.GetFaceDetails(imageName)
	if errors.Is(err, database.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "no face stored for "+imageName)
	}
	if err != nil {
		slog.Error("getFaceHandler: failed to load face", "error", err, "image_name", imageName)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load face")
	}
	return ctx.JSON(http.StatusOK, details)
}
