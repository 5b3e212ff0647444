package frontend

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Mounith2005/Agro-gaurd/internal/backend"
	"github.com/Mounith2005/Agro-gaurd/internal/backend/feedback"
	"github.com/Mounith2005/Agro-gaurd/internal/backend/inference"
	"github.com/Mounith2005/Agro-gaurd/internal/core"
)

const (
	MainPageName   = "index.html"
	resultFragment = "result.html"
)

type FrontendService struct {
	coreService *core.CoreService
}

type resultView struct {
	Result inference.Result
	Error  string
}

func NewFrontendService(coreService *core.CoreService) *FrontendService {
	return &FrontendService{
		coreService: coreService,
	}
}

// rootRedirectHandler redirects root path to index.html
func (service *FrontendService) rootRedirectHandler(ctx echo.Context) error {
	return ctx.Redirect(http.StatusMovedPermanently, "/"+MainPageName)
}

func (service *FrontendService) SetRoutes(e *echo.Echo) {
	e.Renderer = newTemplate()

	e.GET("/", service.rootRedirectHandler)
	e.GET("/"+MainPageName, service.indexHandler)
	bodyLimit := backend.UploadBodyLimit(service.coreService.MaxUploadBytes())
	e.POST("/htmx/predict", service.htmxPredictHandler, bodyLimit)
	e.POST("/htmx/feedback", service.htmxFeedbackHandler, bodyLimit)

	e.GET("/icon.svg", service.iconHandler)
}

func (service *FrontendService) indexHandler(ctx echo.Context) error {
	return ctx.Render(http.StatusOK, MainPageName, nil)
}

func (service *FrontendService) htmxPredictHandler(ctx echo.Context) error {
	upload, err := backend.ReadUpload(ctx, "file", service.coreService.MaxUploadBytes())
	if err != nil {
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			slog.Warn("htmxPredictHandler: rejected upload", "status", httpErr.Code, "error", err)
			return ctx.Render(httpErr.Code, resultFragment, resultView{Error: fmt.Sprint(httpErr.Message)})
		}
		return err
	}

	result := service.coreService.Predict(ctx.Request().Context(), upload)
	service.setNoCache(ctx)

	switch result.Outcome {
	case inference.OutcomeNoFile:
		return ctx.Render(http.StatusBadRequest, resultFragment, resultView{Error: "No file uploaded"})
	case inference.OutcomeEmptySelection:
		return ctx.Render(http.StatusBadRequest, resultFragment, resultView{Error: "No file selected"})
	}
	return ctx.Render(http.StatusOK, resultFragment, resultView{Result: result})
}

func (service *FrontendService) htmxFeedbackHandler(ctx echo.Context) error {
	filename := ctx.FormValue("filename")
	label := ctx.FormValue("label")
	verdict := ctx.FormValue("feedback")

	err := service.coreService.RecordLegacyFeedback(filename, label, verdict)
	switch {
	case errors.Is(err, feedback.ErrMissingData):
		return ctx.HTML(http.StatusBadRequest, `<p>Missing data</p>`)
	case err != nil:
		slog.Error("htmxFeedbackHandler: failed to record feedback",
			"status", http.StatusServiceUnavailable, "error", err, "filename", filename)
		return ctx.HTML(http.StatusServiceUnavailable, `<p>Feedback could not be saved, please try again later.</p>`)
	}
	return ctx.HTML(http.StatusOK, `<p>Thanks for your feedback.</p>`)
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

func formatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v*100)
}
