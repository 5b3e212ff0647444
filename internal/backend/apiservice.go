package backend

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Mounith2005/Agro-gaurd/internal/backend/database"
	"github.com/Mounith2005/Agro-gaurd/internal/backend/feedback"
	"github.com/Mounith2005/Agro-gaurd/internal/backend/inference"
	"github.com/Mounith2005/Agro-gaurd/internal/core"
)

const userContextKey = "user"

type APIService struct {
	coreService *core.CoreService
}

type legacyFeedbackRequest struct {
	Filename string `json:"filename"`
	Label    string `json:"label"`
	Feedback string `json:"feedback"`
}

type registrationRequest struct {
	Username string `json:"username" validate:"required,alphanum,min=3,max=64"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type statusResponse struct {
	Status  string `json:"status"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewAPIService(coreService *core.CoreService) *APIService {
	return &APIService{
		coreService: coreService,
	}
}

func (s *APIService) SetRoutes(e *echo.Echo) {
	e.GET("/probe", func(c echo.Context) error {
		return c.String(http.StatusOK, "API Service is running")
	})
	e.GET("/metrics", echo.WrapHandler(s.coreService.Metrics().Handler()))

	bodyLimit := UploadBodyLimit(s.coreService.MaxUploadBytes())

	e.POST("/api/predict", s.predictHandler, bodyLimit)
	e.POST("/predict", s.predictHandler, bodyLimit)
	e.POST("/feedback", s.legacyFeedbackHandler, bodyLimit)
	e.POST("/api/users", s.registerHandler)

	authenticated := e.Group("/api", middleware.BasicAuth(s.authenticate))
	authenticated.POST("/feedback", s.feedbackHandler, bodyLimit)
	authenticated.GET("/admin/feedback", s.adminFeedbackHandler, requireAdmin)
}

func (s *APIService) predictHandler(c echo.Context) error {
	upload, err := ReadUpload(c, "file", s.coreService.MaxUploadBytes())
	if err != nil {
		return err
	}

	result := s.coreService.Predict(c.Request().Context(), upload)
	switch result.Outcome {
	case inference.OutcomeNoFile:
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "No file uploaded"})
	case inference.OutcomeEmptySelection:
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "No file selected"})
	}
	return c.JSON(http.StatusOK, result)
}

func (s *APIService) feedbackHandler(c echo.Context) error {
	user := c.Get(userContextKey).(*database.User)

	submission := feedback.Submission{
		Username: user.Username,
		Label:    c.FormValue("label"),
		Text:     c.FormValue("feedback"),
	}

	fileHeader, err := c.FormFile("file")
	switch {
	case err == nil:
		data, readErr := readFormFile(fileHeader, s.coreService.MaxUploadBytes())
		if readErr != nil {
			return readErr
		}
		submission.Evidence = &feedback.Evidence{Filename: fileHeader.Filename, Data: data}
	case !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart):
		slog.Warn("feedbackHandler: failed to read multipart form", "error", err)
		return c.JSON(http.StatusBadRequest, statusResponse{Status: "error", Message: "Invalid form data"})
	}

	id, err := s.coreService.RecordFeedback(c.Request().Context(), submission)
	switch {
	case errors.Is(err, feedback.ErrMissingData):
		return c.JSON(http.StatusBadRequest, statusResponse{Status: "error", Message: "Missing data"})
	case err != nil:
		return c.JSON(http.StatusServiceUnavailable, statusResponse{Status: "error"})
	}
	return c.JSON(http.StatusOK, statusResponse{Status: "success", ID: id})
}

func (s *APIService) legacyFeedbackHandler(c echo.Context) error {
	var request legacyFeedbackRequest
	if err := c.Bind(&request); err != nil {
		return c.JSON(http.StatusBadRequest, statusResponse{Status: "error", Message: "Missing data"})
	}

	err := s.coreService.RecordLegacyFeedback(request.Filename, request.Label, request.Feedback)
	switch {
	case errors.Is(err, feedback.ErrMissingData):
		return c.JSON(http.StatusBadRequest, statusResponse{Status: "error", Message: "Missing data"})
	case err != nil:
		slog.Error("legacyFeedbackHandler: failed to append feedback", "error", err)
		return c.JSON(http.StatusServiceUnavailable, statusResponse{Status: "error"})
	}
	return c.JSON(http.StatusOK, statusResponse{Status: "success"})
}

func (s *APIService) registerHandler(c echo.Context) error {
	var request registrationRequest
	if err := c.Bind(&request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&request); err != nil {
		return err
	}

	err := s.coreService.RegisterUser(c.Request().Context(), request.Username, request.Password)
	if errors.Is(err, database.ErrUserExists) {
		return echo.NewHTTPError(http.StatusConflict, "username already taken")
	}
	if err != nil {
		slog.Error("registerHandler: failed to create user", "username", request.Username, "error", err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, "failed to create user")
	}
	return c.JSON(http.StatusCreated, map[string]string{"username": request.Username})
}

func (s *APIService) adminFeedbackHandler(c echo.Context) error {
	ctx := c.Request().Context()

	var (
		records []*database.FeedbackRecord
		err     error
	)
	if username := c.QueryParam("username"); username != "" {
		records, err = s.coreService.ListFeedbackByUser(ctx, username)
	} else {
		records, err = s.coreService.ListFeedback(ctx)
	}
	if err != nil {
		slog.Error("adminFeedbackHandler: failed to list feedback", "error", err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, "failed to list feedback")
	}
	if records == nil {
		records = []*database.FeedbackRecord{}
	}
	return c.JSON(http.StatusOK, records)
}

func (s *APIService) authenticate(username, password string, c echo.Context) (bool, error) {
	user, err := s.coreService.Authenticate(c.Request().Context(), username, password)
	if errors.Is(err, core.ErrInvalidCredentials) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	c.Set(userContextKey, user)
	return true, nil
}

func requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, ok := c.Get(userContextKey).(*database.User)
		if !ok || !user.IsAdmin() {
			return echo.NewHTTPError(http.StatusForbidden, "admin role required")
		}
		return next(c)
	}
}

// formOverheadBytes leaves room for multipart boundaries and the non-file
// fields next to an upload of the maximum size.
const formOverheadBytes = 64 << 10

// UploadBodyLimit rejects request bodies that cannot hold an acceptable upload
// with 413 before they are read. Non-positive maxBytes disables the limit.
func UploadBodyLimit(maxBytes int64) echo.MiddlewareFunc {
	if maxBytes <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return middleware.BodyLimit(fmt.Sprintf("%dB", maxBytes+formOverheadBytes))
}

// ReadUpload reads the multipart field into an Upload. A missing form or field
// yields a nil Upload, a field sent without a filename an Upload with an
// empty name, so the pipeline can tell the two apart.
func ReadUpload(c echo.Context, field string, maxBytes int64) (*inference.Upload, error) {
	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			return nil, nil
		}
		slog.Warn("ReadUpload: failed to parse multipart form", "error", err)
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid multipart form")
	}

	files := form.File[field]
	if len(files) == 0 {
		if _, ok := form.Value[field]; ok {
			return &inference.Upload{Filename: "", Data: []byte{}, ReceivedAt: time.Now()}, nil
		}
		return nil, nil
	}

	data, err := readFormFile(files[0], maxBytes)
	if err != nil {
		return nil, err
	}
	return &inference.Upload{Filename: files[0].Filename, Data: data, ReceivedAt: time.Now()}, nil
}

func readFormFile(fileHeader *multipart.FileHeader, maxBytes int64) ([]byte, error) {
	if maxBytes > 0 && fileHeader.Size > maxBytes {
		return nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %d bytes", maxBytes))
	}

	src, err := fileHeader.Open()
	if err != nil {
		slog.Error("readFormFile: failed to open uploaded file", "error", err, "filename", fileHeader.Filename)
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "failed to open uploaded file")
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			slog.Error("readFormFile: failed to close uploaded file reader", "error", cerr, "filename", fileHeader.Filename)
		}
	}()

	data, err := io.ReadAll(src)
	if err != nil {
		slog.Error("readFormFile: failed to read uploaded file", "error", err, "filename", fileHeader.Filename)
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "failed to read uploaded file")
	}
	return data, nil
}
