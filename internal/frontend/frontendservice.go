package frontend

import (
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jo-hoe/faceregistry/internal/backend/database"
	"github.com/jo-hoe/faceregistry/internal/backend/session"
	"github.com/jo-hoe/faceregistry/internal/core"
	"github.com/labstack/echo/v4"
)

const (
	MainPageName   = "index.html"
	maxUploadBytes = 32 << 20
)

type FrontendService struct {
	coreService *core.CoreService
	config      *core.ServiceConfig
}

type indexData struct {
	Accept string
}

func NewFrontendService(config *core.ServiceConfig, coreService *core.CoreService) *FrontendService {
	return &FrontendService{
		coreService: coreService,
		config:      config,
	}
}

// rootRedirectHandler redirects root path to index.html
func (service *FrontendService) rootRedirectHandler(ctx echo.Context) error {
	return ctx.Redirect(http.StatusMovedPermanently, "/"+MainPageName)
}

func (service *FrontendService) SetRoutes(e *echo.Echo) {
	e.Renderer = &Template{
		templates: template.Must(template.New("").ParseFS(templateFS, viewsPattern)),
	}

	e.GET("/", service.rootRedirectHandler)
	e.GET("/"+MainPageName, service.indexHandler)
	e.POST("/htmx/uploadImage", service.htmxUploadImageHandler)
	e.POST("/htmx/details/:session", service.htmxSaveDetailsHandler)
	e.DELETE("/htmx/details/:session", service.htmxDiscardDetailsHandler)
	e.GET("/htmx/faces", service.htmxListFacesHandler)

	e.GET("/icon.svg", service.iconHandler)
}

func (service *FrontendService) indexHandler(ctx echo.Context) error {
	accept := make([]string, 0, len(service.config.AllowedExtensions))
	for _, ext := range service.config.AllowedExtensions {
		accept = append(accept, "."+ext)
	}
	return ctx.Render(http.StatusOK, MainPageName, indexData{Accept: strings.Join(accept, ",")})
}

func (service *FrontendService) htmxUploadImageHandler(ctx echo.Context) error {
	file, err := ctx.FormFile("image")
	if err != nil {
		slog.Error("htmxUploadImageHandler: failed to get uploaded file",
			"status", http.StatusBadRequest, "error", err)
		return ctx.String(http.StatusBadRequest, "Failed to get uploaded file")
	}

	if !service.coreService.IsAllowedImage(file.Filename) {
		slog.Warn("htmxUploadImageHandler: rejected file type", "image_name", file.Filename)
		return ctx.HTML(http.StatusOK, resultHTML("error",
			fmt.Sprintf("Unsupported file type. Allowed: %s", strings.Join(service.config.AllowedExtensions, ", "))))
	}

	src, err := file.Open()
	if err != nil {
		slog.Error("htmxUploadImageHandler: failed to open uploaded file",
			"status", http.StatusInternalServerError, "error", err, "image_name", file.Filename)
		return ctx.String(http.StatusInternalServerError, "Failed to open uploaded file")
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			slog.Error("htmxUploadImageHandler: failed to close uploaded file reader", "error", cerr, "image_name", file.Filename)
		}
	}()

	image, err := io.ReadAll(io.LimitReader(src, maxUploadBytes))
	if err != nil {
		slog.Error("htmxUploadImageHandler: failed to read uploaded file",
			"status", http.StatusInternalServerError, "error", err, "image_name", file.Filename)
		return ctx.String(http.StatusInternalServerError, "Failed to read uploaded file")
	}

	result, err := service.coreService.Recognize(ctx.Request().Context(), file.Filename, image)
	if errors.Is(err, core.ErrNoFaceDetected) {
		return ctx.HTML(http.StatusOK, resultHTML("error", "No face detected in the image."))
	}
	if errors.Is(err, core.ErrEmptyImage) {
		return ctx.HTML(http.StatusOK, resultHTML("error", "The uploaded file is empty."))
	}
	if err != nil {
		slog.Error("htmxUploadImageHandler: failed to process uploaded image",
			"status", http.StatusInternalServerError, "error", err, "image_name", file.Filename)
		return ctx.HTML(http.StatusOK, resultHTML("error", "Failed to process the uploaded image."))
	}

	service.setNoCache(ctx)
	if result.Details != nil {
		return ctx.HTML(http.StatusOK, matchHTML(result))
	}
	return ctx.HTML(http.StatusOK, detailsFormHTML(result))
}

func (service *FrontendService) htmxSaveDetailsHandler(ctx echo.Context) error {
	sessionID := ctx.Param("session")
	details := database.FaceDetails{
		Name:   ctx.FormValue("name"),
		Age:    ctx.FormValue("age"),
		Number: ctx.FormValue("number"),
		Email:  ctx.FormValue("email"),
	}

	result, err := service.coreService.SaveDetails(ctx.Request().Context(), sessionID, details)
	if errors.Is(err, session.ErrSessionNotFound) {
		slog.Warn("htmxSaveDetailsHandler: session not found", "session", sessionID)
		return ctx.HTML(http.StatusOK, resultHTML("error", "This upload has expired. Please upload the image again."))
	}
	if err != nil {
		slog.Error("htmxSaveDetailsHandler: failed to save details", "error", err, "session", sessionID)
		return ctx.HTML(http.StatusOK, resultHTML("error", "Failed to save details."))
	}

	message := "Saved details."
	if details.Name != "" {
		message = fmt.Sprintf("Saved details for %s.", details.Name)
	}
	if result.Inserted == 0 {
		message = fmt.Sprintf("%s is already registered, nothing was saved.", result.ImageName)
	}
	// refresh the face list alongside the result
	listHTML, err := service.buildFaceListHTML()
	if err != nil {
		slog.Error("htmxSaveDetailsHandler: failed to list faces for OOB update", "error", err)
		return ctx.HTML(http.StatusOK, resultHTML("success", message))
	}
	return ctx.HTML(http.StatusOK, resultHTML("success", message)+
		fmt.Sprintf(`<div id="face-list" hx-swap-oob="true">%s</div>`, listHTML))
}

func (service *FrontendService) htmxDiscardDetailsHandler(ctx echo.Context) error {
	sessionID := ctx.Param("session")
	if err := service.coreService.DiscardSession(ctx.Request().Context(), sessionID); err != nil &&
		!errors.Is(err, session.ErrSessionNotFound) {
		slog.Error("htmxDiscardDetailsHandler: failed to discard session", "error", err, "session", sessionID)
	}
	return ctx.HTML(http.StatusOK, `<div id="upload-result"></div>`)
}

func (service *FrontendService) htmxListFacesHandler(ctx echo.Context) error {
	listHTML, err := service.buildFaceListHTML()
	if err != nil {
		slog.Error("htmxListFacesHandler: failed to list faces",
			"status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to list faces")
	}

	service.setNoCache(ctx)
	return ctx.HTML(http.StatusOK, listHTML)
}

func (service *FrontendService) buildFaceListHTML() (string, error) {
	faces, err := service.coreService.ListFaces()
	if err != nil {
		return "", err
	}
	if len(faces) == 0 {
		return `<p>No faces registered yet.</p>`, nil
	}

	var b strings.Builder
	b.WriteString(`<table><thead><tr><th>Image</th><th>Name</th><th>Age</th><th>Number</th><th>Email</th></tr></thead><tbody>`)
	for _, f := range faces {
		fmt.Fprintf(&b, `<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>`,
			html.EscapeString(f.ImageName),
			html.EscapeString(f.Details.Name),
			html.EscapeString(f.Details.Age),
			html.EscapeString(f.Details.Number),
			html.EscapeString(f.Details.Email))
	}
	b.WriteString(`</tbody></table>`)
	return b.String(), nil
}

func resultHTML(class, message string) string {
	return fmt.Sprintf(`<div id="upload-result" class="%s"><p>%s</p></div>`, class, html.EscapeString(message))
}

func previewHTML(result *core.Recognition) string {
	if len(result.Preview) == 0 {
		return ""
	}
	return fmt.Sprintf(`<img src="data:image/png;base64,%s" alt="Detected faces in %s" style="max-width:100%%;height:auto">`,
		base64.StdEncoding.EncodeToString(result.Preview), html.EscapeString(result.ImageName))
}

func matchHTML(result *core.Recognition) string {
	d := result.Details
	return fmt.Sprintf(`<div id="upload-result" class="success"><article>
	%s
	<p>Face recognized.</p>
	<dl>
		<dt>Name</dt><dd>%s</dd>
		<dt>Age</dt><dd>%s</dd>
		<dt>Number</dt><dd>%s</dd>
		<dt>Email</dt><dd>%s</dd>
	</dl>
</article></div>`,
		previewHTML(result),
		html.EscapeString(d.Name),
		html.EscapeString(d.Age),
		html.EscapeString(d.Number),
		html.EscapeString(d.Email))
}

func detailsFormHTML(result *core.Recognition) string {
	sessionID := html.EscapeString(result.SessionID)
	return fmt.Sprintf(`<div id="upload-result"><article>
	%s
	<p>No match found for %s. Enter the details to register %d face(s).</p>
	<form hx-post="/htmx/details/%s" hx-target="#upload-result" hx-swap="outerHTML">
		<input type="text" name="name" placeholder="Name" maxlength="4096">
		<input type="text" name="age" placeholder="Age" maxlength="4096">
		<input type="text" name="number" placeholder="Number" maxlength="4096">
		<input type="text" name="email" placeholder="Email" maxlength="4096">
		<div style="display:flex;gap:0.5rem">
			<button type="submit">Save</button>
			<button type="button" class="secondary" hx-delete="/htmx/details/%s" hx-target="#upload-result" hx-swap="outerHTML">Cancel</button>
		</div>
	</form>
</article></div>`,
		previewHTML(result),
		html.EscapeString(result.ImageName),
		len(result.Faces),
		sessionID,
		sessionID)
}

func (service *FrontendService) setNoCache(ctx echo.Context) {
	ctx.Response().Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	ctx.Response().Header().Set("Pragma", "no-cache")
	ctx.Response().Header().Set("Expires", "0")
}

func (service *FrontendService) iconHandler(ctx echo.Context) error {
	data, err := assetsFS.ReadFile("views/icon.svg")
	if err != nil {
		slog.Error("iconHandler: failed to read icon.svg", "status", http.StatusInternalServerError, "error", err)
		return ctx.String(http.StatusInternalServerError, "Failed to load icon")
	}
	// Cache for 7 days
	ctx.Response().Header().Set("Cache-Control", "public, max-age=604800, immutable")
	return ctx.Blob(http.StatusOK, "image/svg+xml", data)
}
