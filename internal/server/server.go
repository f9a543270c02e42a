package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	mid "github.com/OFFIS-RIT/threatmap/internal/server/middleware"
	serverutil "github.com/OFFIS-RIT/threatmap/internal/server/util"
	"github.com/OFFIS-RIT/threatmap/internal/util"
	"github.com/OFFIS-RIT/threatmap/pkg/logger"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// DefaultRecordsPath is the sanitized record array the server publishes.
const DefaultRecordsPath = "cleaned_extracted_relationships.json"

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i any) error {
	if err := cv.validator.Struct(i); err != nil {
		return err
	}
	return nil
}

// New builds the echo instance serving the records at recordsPath.
func New(recordsPath string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}

	app := &mid.App{Artifact: serverutil.NewArtifact(recordsPath)}

	e.Use(mid.AppContextMiddleware(app))
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())

	RegisterRoutes(e)
	return e
}

// Init serves until SIGINT or SIGTERM.
func Init(recordsPath, port string) {
	if recordsPath == "" {
		recordsPath = util.GetEnvString("RECORDS_PATH", DefaultRecordsPath)
	}
	if port == "" {
		port = util.GetEnvString("PORT", "8080")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e := New(recordsPath)

	go func() {
		logger.Info("Starting server", "port", port, "records", recordsPath)
		if err := e.Start(":" + port); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed shutting down server", "err", err)
		}
	}()

	<-ctx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown server", "err", err)
	}
}
