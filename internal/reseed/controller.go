package reseed

import (
	"context"
	"os"
	"time"

	"github.com/iliyamo/toll-settlement/internal/apperr"
	"github.com/iliyamo/toll-settlement/internal/ingest"
	"github.com/iliyamo/toll-settlement/internal/logger"
	"github.com/iliyamo/toll-settlement/internal/model"
)

// Store applies a reseed.  repository.ReseedRepo implements it.
type Store interface {
	ReplaceReference(ctx context.Context, companies []model.TollCompany, stations []model.TollStation) error
	ResetPasses(ctx context.Context) error
}

// Summary reports what a full reset loaded.
type Summary struct {
	Companies int
	Stations  int
	Skipped   []ingest.Skip
}

// Controller runs full and pass-only resets.
type Controller struct {
	store        Store
	stationsFile string
	timeout      time.Duration
	log          *logger.Logger
}

// NewController returns a Controller reading the reference data from
// stationsFile.
func NewController(store Store, stationsFile string, timeout time.Duration, log *logger.Logger) *Controller {
	if log == nil {
		log = logger.Nop()
	}
	return &Controller{store: store, stationsFile: stationsFile, timeout: timeout, log: log.WithComponent("reseed")}
}

// ResetAll replaces every company, station, tag and pass with the content
// of the stations file.  The file is parsed before storage is touched, so
// a missing or unreadable file leaves the current data in place.
func (c *Controller) ResetAll(ctx context.Context) (*Summary, error) {
	f, err := os.Open(c.stationsFile)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindSourceUnavailable, apperr.CodeFileNotFound, "stations file not found")
	}
	defer f.Close()

	ref, err := ParseReference(f)
	if err != nil {
		return nil, err
	}
	for _, s := range ref.Skipped {
		c.log.Warn("reference row skipped", map[string]interface{}{"line": s.Line, "code": s.Code, "reason": s.Reason})
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	if err := c.store.ReplaceReference(ctx, ref.Companies, ref.Stations); err != nil {
		return nil, apperr.Storage(err, "reference data could not be replaced")
	}
	c.log.Info("reference data reloaded", map[string]interface{}{
		"companies": len(ref.Companies),
		"stations":  len(ref.Stations),
		"skipped":   len(ref.Skipped),
	})
	return &Summary{Companies: len(ref.Companies), Stations: len(ref.Stations), Skipped: ref.Skipped}, nil
}

// ResetPasses deletes all passes and tags.
func (c *Controller) ResetPasses(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	if err := c.store.ResetPasses(ctx); err != nil {
		return apperr.Storage(err, "passes could not be reset")
	}
	c.log.Info("passes reset", nil)
	return nil
}

func (c *Controller) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(ctx, c.timeout)
	}
	return context.WithCancel(ctx)
}
