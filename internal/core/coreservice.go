package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Mounith2005/Agro-gaurd/internal/backend/classifier"
	"github.com/Mounith2005/Agro-gaurd/internal/backend/database"
	"github.com/Mounith2005/Agro-gaurd/internal/backend/feedback"
	"github.com/Mounith2005/Agro-gaurd/internal/backend/imageprocessing"
	"github.com/Mounith2005/Agro-gaurd/internal/backend/inference"
	"github.com/Mounith2005/Agro-gaurd/internal/backend/metrics"
	"github.com/Mounith2005/Agro-gaurd/internal/backend/retention"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type CoreService struct {
	config          *ServiceConfig
	databaseService database.DatabaseService
	classifier      classifier.Classifier
	metrics         *metrics.Metrics
	sweeper         *retention.Sweeper
	scheduler       *retention.Scheduler
	pipeline        *inference.Pipeline
	recorder        *feedback.Recorder
	bcryptCost      int
}

type Option func(*CoreService)

// WithClassifier replaces the ONNX model named in the configuration.
func WithClassifier(c classifier.Classifier) Option {
	return func(s *CoreService) {
		s.classifier = c
	}
}

func withBcryptCost(cost int) Option {
	return func(s *CoreService) {
		s.bcryptCost = cost
	}
}

func NewCoreService(config *ServiceConfig, opts ...Option) (*CoreService, error) {
	service := &CoreService{
		config:     config,
		metrics:    metrics.New(),
		bcryptCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(service)
	}

	databaseService, err := getDatabaseService(config)
	if err != nil {
		return nil, err
	}
	service.databaseService = databaseService

	if service.classifier == nil {
		service.classifier = classifier.Load(classifier.ONNXConfig{
			ModelPath:         config.Model.Path,
			SharedLibraryPath: config.Model.SharedLibraryPath,
			InputName:         config.Model.InputName,
			OutputName:        config.Model.OutputName,
		})
	}

	service.sweeper = retention.NewSweeper(config.Staging.Directory, service.metrics)
	service.pipeline = inference.NewPipeline(inference.Config{
		StagingDir:       config.Staging.Directory,
		InferenceTimeout: config.Model.InferenceTimeout,
		SweepOnRequest:   config.SweepOnRequest(),
		MaxAge:           config.Retention.MaxAge,
	}, imageprocessing.NewPreprocessor(imageprocessing.WithMaxPixels(config.Staging.MaxImagePixels)), service.classifier, service.sweeper, service.metrics)

	service.recorder = feedback.NewRecorder(feedback.Config{
		Directory:         config.Feedback.Directory,
		AllowedExtensions: config.Feedback.AllowedExtensions,
		LegacyLogFile:     config.Feedback.LegacyLogFile,
	}, databaseService, service.metrics)

	if config.Retention.Schedule != "" {
		service.scheduler, err = retention.NewScheduler(service.sweeper, config.Retention.Schedule, config.Retention.MaxAge)
		if err != nil {
			_ = service.Close()
			return nil, err
		}
	}

	if err := service.bootstrapAdmin(context.Background()); err != nil {
		_ = service.Close()
		return nil, err
	}

	return service, nil
}

// Start replays feedback summaries missing from the store and starts the
// background sweep when one is configured.
func (service *CoreService) Start(ctx context.Context) error {
	if _, err := service.recorder.Reconcile(ctx); err != nil {
		return fmt.Errorf("failed to reconcile feedback: %w", err)
	}
	if service.scheduler != nil {
		service.scheduler.Start()
	}
	return nil
}

func (service *CoreService) Predict(ctx context.Context, upload *inference.Upload) inference.Result {
	return service.pipeline.Run(ctx, upload)
}

func (service *CoreService) RecordFeedback(ctx context.Context, submission feedback.Submission) (string, error) {
	return service.recorder.Record(ctx, submission)
}

func (service *CoreService) RecordLegacyFeedback(filename, label, text string) error {
	return service.recorder.RecordLegacy(filename, label, text)
}

// RegisterUser creates an account with the user role.
func (service *CoreService) RegisterUser(ctx context.Context, username, password string) error {
	return service.createUser(ctx, username, password, database.RoleUser)
}

// Authenticate returns the account matching username and password.
func (service *CoreService) Authenticate(ctx context.Context, username, password string) (*database.User, error) {
	user, err := service.databaseService.GetUser(ctx, username)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (service *CoreService) ListFeedback(ctx context.Context) ([]*database.FeedbackRecord, error) {
	return service.databaseService.ListFeedback(ctx)
}

func (service *CoreService) ListFeedbackByUser(ctx context.Context, username string) ([]*database.FeedbackRecord, error) {
	return service.databaseService.ListFeedbackByUser(ctx, username)
}

func (service *CoreService) Metrics() *metrics.Metrics {
	return service.metrics
}

func (service *CoreService) MaxUploadBytes() int64 {
	return service.config.Staging.MaxUploadBytes
}

func (service *CoreService) Close() error {
	var errs []error
	if service.scheduler != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		service.scheduler.Stop(ctx)
		cancel()
	}
	if service.classifier != nil {
		if err := service.classifier.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close classifier: %w", err))
		}
	}
	if service.databaseService != nil {
		if err := service.databaseService.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (service *CoreService) createUser(ctx context.Context, username, password, role string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), service.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return service.databaseService.CreateUser(ctx, &database.User{
		Username:     strings.TrimSpace(username),
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	})
}

// bootstrapAdmin creates the admin account on first start. Without a
// password in the environment no admin exists.
func (service *CoreService) bootstrapAdmin(ctx context.Context) error {
	if service.config.Auth.AdminPassword == "" {
		slog.Info("no admin password configured, admin account not bootstrapped")
		return nil
	}
	err := service.createUser(ctx, service.config.Auth.AdminUsername, service.config.Auth.AdminPassword, database.RoleAdmin)
	if errors.Is(err, database.ErrUserExists) {
		slog.Debug("admin account already exists", "username", service.config.Auth.AdminUsername)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to bootstrap admin account: %w", err)
	}
	slog.Info("admin account created", "username", service.config.Auth.AdminUsername)
	return nil
}

func getDatabaseService(config *ServiceConfig) (database.DatabaseService, error) {
	databaseService, err := database.NewDatabase(context.Background(), config.Database.Type, config.Database.ConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	slog.Info("database initialized successfully", "type", config.Database.Type)
	return databaseService, nil
}
