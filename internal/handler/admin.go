package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/toll-settlement/internal/apperr"
	"github.com/iliyamo/toll-settlement/internal/ingest"
	"github.com/iliyamo/toll-settlement/internal/logger"
	"github.com/iliyamo/toll-settlement/internal/middleware"
	"github.com/iliyamo/toll-settlement/internal/model"
	"github.com/iliyamo/toll-settlement/internal/queue"
	"github.com/iliyamo/toll-settlement/internal/report"
	"github.com/iliyamo/toll-settlement/internal/reseed"
	"github.com/iliyamo/toll-settlement/internal/utils"
)

// Ingester is implemented by *ingest.Pipeline.
type Ingester interface {
	Run(ctx context.Context, r io.Reader) (*ingest.Result, error)
}

// Reseeder is implemented by *reseed.Controller.
type Reseeder interface {
	ResetAll(ctx context.Context) (*reseed.Summary, error)
	ResetPasses(ctx context.Context) error
}

// CacheInvalidator is implemented by *middleware.CacheInvalidator.
type CacheInvalidator interface {
	Invalidate(ctx context.Context) (int, error)
}

// AdminHandler serves the data-management endpoints under /admin.
type AdminHandler struct {
	Ingest        Ingester
	Reseed        Reseeder
	Users         UserStore
	Events        queue.Publisher
	Cache         CacheInvalidator
	PassesFile    string
	ImportTimeout time.Duration
	BcryptCost    int
	Log           *logger.Logger
}

type usermodReq struct {
	Username  string `json:"username" form:"username" validate:"required,max=64"`
	Password  string `json:"password" form:"password" validate:"required,min=4,max=128"`
	Role      string `json:"role" form:"role" validate:"omitempty,oneof=OPERATOR ADMIN operator admin"`
	CompanyID string `json:"company_id" form:"company_id" validate:"omitempty,max=16"`
}

// AddPasses ingests the uploaded multipart "file", or PassesFile when
// nothing was uploaded.
func (h *AdminHandler) AddPasses(c echo.Context) error {
	fp := FormatParam{Format: c.QueryParam("format")}
	if err := c.Validate(&fp); err != nil {
		return err
	}
	src, name, err := h.openSource(c)
	if err != nil {
		return err
	}
	defer src.Close()

	ctx, cancel := h.withTimeout(c.Request().Context())
	defer cancel()

	res, err := h.Ingest.Run(ctx, src)
	if err != nil {
		return err
	}

	ev := queue.NewEvent(queue.EventPassesImported)
	ev.Source = name
	ev.Imported, ev.Skipped, ev.Failed = len(res.Imported), len(res.Skipped), len(res.Failed)
	h.afterWrite(c, ev)

	return render(c, fp.Format, http.StatusOK, "passes-data", report.NewImport(res))
}

// openSource returns the uploaded file, falling back to PassesFile when the
// request carries no upload.
func (h *AdminHandler) openSource(c echo.Context) (io.ReadCloser, string, error) {
	fh, err := c.FormFile("file")
	switch {
	case err == nil:
		f, err := fh.Open()
		if err != nil {
			return nil, "", apperr.Wrap(err, apperr.KindSourceUnavailable, apperr.CodeFileUnreadable, "uploaded file could not be read")
		}
		return f, fh.Filename, nil
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	default:
		return nil, "", apperr.Wrap(err, apperr.KindSourceUnavailable, apperr.CodeFileUnreadable, "multipart body could not be read")
	}

	f, err := os.Open(h.PassesFile)
	if err != nil {
		return nil, "", apperr.Wrap(err, apperr.KindSourceUnavailable, apperr.CodeFileNotFound, "CSV file not found")
	}
	return f, h.PassesFile, nil
}

// ResetPasses deletes every pass and tag.
func (h *AdminHandler) ResetPasses(c echo.Context) error {
	if err := h.Reseed.ResetPasses(c.Request().Context()); err != nil {
		return err
	}
	h.afterWrite(c, queue.NewEvent(queue.EventPassesReset))
	return c.JSON(http.StatusOK, echo.Map{"status": "OK"})
}

// ResetStations reloads companies and stations from the reference file,
// wiping passes and tags.
func (h *AdminHandler) ResetStations(c echo.Context) error {
	sum, err := h.Reseed.ResetAll(c.Request().Context())
	if err != nil {
		return err
	}
	ev := queue.NewEvent(queue.EventStationsReset)
	ev.Companies, ev.Stations, ev.Skipped = sum.Companies, sum.Stations, len(sum.Skipped)
	h.afterWrite(c, ev)

	return c.JSON(http.StatusOK, echo.Map{
		"status":      "OK",
		"companies":   sum.Companies,
		"stations":    sum.Stations,
		"skipped":     len(sum.Skipped),
		"skippedRows": append([]ingest.Skip{}, sum.Skipped...),
	})
}

// Usermod creates a user or replaces the password and role of an
// existing one.
func (h *AdminHandler) Usermod(c echo.Context) error {
	var req usermodReq
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	role := strings.ToUpper(req.Role)
	if role == "" {
		role = model.RoleOperator
	}
	hash, err := utils.HashPassword(req.Password, h.BcryptCost)
	if err != nil {
		return apperr.Wrap(err, apperr.KindInternal, apperr.CodeInternal, "hash password failed")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	username := strings.TrimSpace(req.Username)
	if err := h.Users.Upsert(ctx, username, hash, role, model.NormalizeCode(req.CompanyID)); err != nil {
		return apperr.Storage(err, "user could not be saved")
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "OK", "username": username, "role": role})
}

// afterWrite publishes ev and drops cached reports.  Neither failure
// affects the response; the data change has already committed.
func (h *AdminHandler) afterWrite(c echo.Context, ev queue.Event) {
	log := h.Log
	if log == nil {
		log = middleware.GetLogger(c)
	}
	ev.RequestID = middleware.GetRequestID(c)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if h.Cache != nil {
		if n, err := h.Cache.Invalidate(ctx); err != nil {
			log.Warn("report cache invalidation failed", map[string]interface{}{"error": err.Error()})
		} else if n > 0 {
			log.Debug("report cache invalidated", map[string]interface{}{"keys": n})
		}
	}
	if h.Events != nil {
		if err := h.Events.Publish(ctx, ev); err != nil {
			log.Warn("event publish failed", map[string]interface{}{"type": ev.Type, "error": err.Error()})
		}
	}
}

func (h *AdminHandler) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.ImportTimeout > 0 {
		return context.WithTimeout(ctx, h.ImportTimeout)
	}
	return context.WithCancel(ctx)
}
