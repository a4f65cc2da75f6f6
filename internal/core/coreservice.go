package core

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/jo-hoe/faceregistry/internal/backend/commands"
	"github.com/jo-hoe/faceregistry/internal/backend/commandstructure"
	"github.com/jo-hoe/faceregistry/internal/backend/database"
	"github.com/jo-hoe/faceregistry/internal/backend/detector"
	"github.com/jo-hoe/faceregistry/internal/backend/session"
)

var (
	// ErrNoFaceDetected is returned when an uploaded image contains no face
	ErrNoFaceDetected = errors.New("no face detected in the image")
	// ErrUnsupportedFileType is returned for uploads whose extension is not allowed
	ErrUnsupportedFileType = errors.New("unsupported file type")
	// ErrEmptyImage is returned for uploads without content
	ErrEmptyImage = errors.New("image is empty")
)

type SessionState string

const (
	StateIdle                 SessionState = "idle"
	StateImageReceived        SessionState = "image_received"
	StateFacesDetected        SessionState = "faces_detected"
	StateNoFaceError          SessionState = "no_face_error"
	StateEmbedded             SessionState = "embedded"
	StateMatched              SessionState = "matched"
	StateDetailsDisplayed     SessionState = "details_displayed"
	StateAwaitingUserInput    SessionState = "awaiting_user_input"
	StateSaved                SessionState = "saved"
	StateAbandonedWithoutSave SessionState = "abandoned_without_save"
)

// Recognition is the outcome of processing one uploaded image
type Recognition struct {
	State     SessionState
	ImageName string
	Faces     []detector.Box
	// Details is set when a face was recognized
	Details *database.FaceDetails
	// SessionID is set while waiting for the user to enter details
	SessionID string
	// Preview is a PNG thumbnail with the faces outlined, nil if rendering failed
	Preview []byte
}

type SaveResult struct {
	State      SessionState
	ImageName  string
	Inserted   int
	Duplicates int
	Failed     int
}

type CoreService struct {
	config          *ServiceConfig
	databaseService database.DatabaseService
	detector        detector.Detector
	sessions        session.Store
	matcher         *Matcher
	preprocessor    *commandstructure.CommandInvoker
}

// NewCoreService wires storage, sessions and the HTTP face service from config
func NewCoreService(config *ServiceConfig) (*CoreService, error) {
	timeout := time.Duration(config.Detector.TimeoutSeconds) * time.Second
	return NewCoreServiceWithDetector(config, detector.NewHTTPDetector(config.Detector.URL, timeout))
}

func NewCoreServiceWithDetector(config *ServiceConfig, faceDetector detector.Detector) (*CoreService, error) {
	preprocessor, err := newPreprocessor(config.Commands)
	if err != nil {
		return nil, err
	}

	databaseService, err := getDatabaseService(config)
	if err != nil {
		return nil, err
	}

	ttl := time.Duration(config.Session.TTLSeconds) * time.Second
	sessions, err := session.NewStore(config.Session.Type, config.Session.Address, ttl)
	if err != nil {
		_ = databaseService.Close()
		return nil, fmt.Errorf("failed to initialize session store: %w", err)
	}
	slog.Info("session store initialized", "type", config.Session.Type)

	return &CoreService{
		config:          config,
		databaseService: databaseService,
		detector:        faceDetector,
		sessions:        sessions,
		matcher:         NewMatcher(databaseService),
		preprocessor:    preprocessor,
	}, nil
}

func getDatabaseService(config *ServiceConfig) (database.DatabaseService, error) {
	databaseService, err := database.NewDatabase(config.Database.Type, config.Database.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	slog.Info("database initialized successfully", "type", config.Database.Type)
	return databaseService, nil
}

// newPreprocessor builds the configured command chain. Without configured
// commands uploads are normalised to PNG.
func newPreprocessor(configs []CommandConfig) (*commandstructure.CommandInvoker, error) {
	if len(configs) == 0 {
		configs = []CommandConfig{{Name: "PngConverterCommand"}}
	}
	commandConfigs := make([]commandstructure.CommandConfig, 0, len(configs))
	for _, c := range configs {
		commandConfigs = append(commandConfigs, commandstructure.CommandConfig{Name: c.Name, Params: c.Params})
	}
	invoker, err := commandstructure.NewCommandInvokerFromConfigs(commandstructure.DefaultRegistry, commandConfigs)
	if err != nil {
		return nil, fmt.Errorf("failed to build image pipeline: %w", err)
	}
	slog.Info("image pipeline ready", "commands", invoker.Len())
	return invoker, nil
}

// IsAllowedImage reports whether the file name carries one of the configured extensions
func (service *CoreService) IsAllowedImage(imageName string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(imageName), "."))
	return ext != "" && slices.Contains(service.config.AllowedExtensions, ext)
}

// Recognize runs detection, embedding and matching for one uploaded image.
// Unknown faces open a pending session that SaveDetails or DiscardSession closes.
func (service *CoreService) Recognize(ctx context.Context, imageName string, imageData []byte) (*Recognition, error) {
	if !service.IsAllowedImage(imageName) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, imageName)
	}
	if len(imageData) == 0 {
		return nil, ErrEmptyImage
	}

	result := &Recognition{State: StateImageReceived, ImageName: imageName}
	logTransition(result.ImageName, StateIdle, result.State)

	processed, err := service.preprocessor.Execute(imageData)
	if err != nil {
		return nil, fmt.Errorf("failed to process image %s: %w", imageName, err)
	}

	boxes, err := service.detector.Detect(ctx, processed)
	if err != nil {
		return nil, err
	}
	if len(boxes) == 0 {
		service.transition(result, StateNoFaceError)
		return result, ErrNoFaceDetected
	}
	result.Faces = boxes
	service.transition(result, StateFacesDetected)
	result.Preview = service.renderPreview(processed, boxes)

	embeddings, err := service.detector.Embed(ctx, processed, boxes)
	if err != nil {
		return nil, err
	}
	if len(embeddings) != len(boxes) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d faces", detector.ErrEmbeddingCountMismatch, len(embeddings), len(boxes))
	}
	service.transition(result, StateEmbedded)

	details, err := service.matcher.MatchFirst(embeddings)
	if err == nil {
		result.Details = details
		service.transition(result, StateMatched)
		service.transition(result, StateDetailsDisplayed)
		return result, nil
	}

	sessionID, err := service.sessions.Put(ctx, &session.Pending{
		ImageName:  imageName,
		Embeddings: embeddings,
		CreatedAt:  time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store pending session: %w", err)
	}
	result.SessionID = sessionID
	service.transition(result, StateAwaitingUserInput)
	return result, nil
}

// SaveDetails stores one record per embedding of the pending session, all under
// the session's image name. Failed inserts are logged and do not abort the save.
func (service *CoreService) SaveDetails(ctx context.Context, sessionID string, details database.FaceDetails) (*SaveResult, error) {
	pending, err := service.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	result := &SaveResult{ImageName: pending.ImageName}
	for i, embedding := range pending.Embeddings {
		err := service.databaseService.InsertFace(&database.FaceRecord{
			ImageName: pending.ImageName,
			Details:   details,
			Embedding: embedding,
		})
		switch {
		case err == nil:
			result.Inserted++
		case errors.Is(err, database.ErrDuplicateImage):
			result.Duplicates++
			slog.Warn("face not saved, image already stored", "image", pending.ImageName, "index", i)
		default:
			result.Failed++
			slog.Error("face not saved", "image", pending.ImageName, "index", i, "error", err)
		}
	}

	if err := service.sessions.Delete(ctx, sessionID); err != nil {
		slog.Warn("failed to delete session", "session", sessionID, "error", err)
	}
	result.State = StateSaved
	logTransition(pending.ImageName, StateAwaitingUserInput, StateSaved)
	return result, nil
}

// DiscardSession drops a pending session without storing anything
func (service *CoreService) DiscardSession(ctx context.Context, sessionID string) error {
	pending, err := service.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := service.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	logTransition(pending.ImageName, StateAwaitingUserInput, StateAbandonedWithoutSave)
	return nil
}

// GetFaceDetails returns the details stored for an image name. Storage failures
// are logged and reported as not found.
func (service *CoreService) GetFaceDetails(imageName string) (*database.FaceDetails, error) {
	details, err := service.databaseService.GetFaceByImageName(imageName)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		slog.Error("failed to load face details", "image", imageName, "error", err)
		return nil, database.ErrNotFound
	}
	return details, err
}

func (service *CoreService) ListFaces() ([]*database.FaceRecord, error) {
	return service.databaseService.GetAllFaces()
}

// Healthy reports whether the face store is reachable
func (service *CoreService) Healthy() bool {
	return service.databaseService.DoesDatabaseExist()
}

// Close releases the session store and the database
func (service *CoreService) Close() error {
	return errors.Join(service.sessions.Close(), service.databaseService.Close())
}

// renderPreview outlines the faces and scales the result down to the thumbnail width
func (service *CoreService) renderPreview(imageData []byte, boxes []detector.Box) []byte {
	rects := make([]image.Rectangle, 0, len(boxes))
	for _, b := range boxes {
		rects = append(rects, b.Rectangle())
	}

	previewCommands := []commandstructure.Command{commands.NewBoundingBoxCommandWithBoxes(rects)}
	if service.config.ThumbnailWidth > 0 {
		scale, err := commands.NewPixelScaleCommand(map[string]any{
			"width":         service.config.ThumbnailWidth,
			"downscaleOnly": true,
		})
		if err != nil {
			slog.Warn("preview scaling disabled", "error", err)
		} else {
			previewCommands = append(previewCommands, scale)
		}
	}

	preview, err := commandstructure.NewCommandInvoker(previewCommands).Execute(imageData)
	if err != nil {
		slog.Warn("failed to render preview", "error", err)
		return nil
	}
	return preview
}

func (service *CoreService) transition(result *Recognition, to SessionState) {
	logTransition(result.ImageName, result.State, to)
	result.State = to
}

func logTransition(imageName string, from, to SessionState) {
	slog.Debug("session state changed", "image", imageName, "from", from, "to", to)
}
