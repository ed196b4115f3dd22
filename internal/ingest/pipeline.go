package ingest

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"sort"

	"github.com/sourcegraph/conc/pool"

	"github.com/iliyamo/toll-settlement/internal/apperr"
	"github.com/iliyamo/toll-settlement/internal/logger"
	"github.com/iliyamo/toll-settlement/internal/model"
	"github.com/iliyamo/toll-settlement/internal/repository"
)

// Writer stores one decoded row.  repository.PassRepo is the production
// implementation; it returns repository.ErrStationNotFound for rows that
// reference an unknown station.
type Writer interface {
	WritePass(ctx context.Context, row model.PassRow) (model.Pass, error)
}

// Imported is a row that reached storage.
type Imported struct {
	Line        int
	TagOperator string
	Pass        model.Pass
}

// Failure is a row whose write failed in storage.
type Failure struct {
	Line  int    `json:"line"`
	Error string `json:"error"`
}

// Result summarises a run.  All slices are ordered by line.
type Result struct {
	Imported []Imported
	Skipped  []Skip
	Failed   []Failure
}

// Pipeline reads rows lazily in file order and hands them to at most
// Workers concurrent writers.  Dispatch blocks while all workers are busy,
// so memory and connection use stay bounded however large the file is.
type Pipeline struct {
	Writer    Writer
	Workers   int
	HasHeader bool
	Logger    *logger.Logger
}

type outcome struct {
	line     int
	imported *Imported
	skip     *Skip
	failure  *Failure
}

// Run ingests r.  It returns once every dispatched row has finished.  A
// cancelled or expired ctx stops dispatch; rows already running are still
// awaited and the partial Result is returned with a timeout error.
func (p *Pipeline) Run(ctx context.Context, r io.Reader) (*Result, error) {
	log := p.Logger
	if log == nil {
		log = logger.Nop()
	}
	workers := p.Workers
	if workers < 1 {
		workers = 1
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	wp := pool.NewWithResults[outcome]().WithMaxGoroutines(workers)
	var (
		skipped []Skip
		stopErr error
		first   = true
	)
	for {
		if err := ctx.Err(); err != nil {
			stopErr = err
			break
		}
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				// The header is the first physical record, parseable or not.
				if first {
					first = false
					if p.HasHeader {
						log.Warn("malformed header ignored", map[string]interface{}{"line": pe.StartLine, "reason": pe.Err.Error()})
						continue
					}
				}
				s := skip(pe.StartLine, apperr.CodeMalformedRow, "%v", pe.Err)
				log.Warn("row skipped", map[string]interface{}{"line": s.Line, "reason": s.Reason})
				skipped = append(skipped, *s)
				continue
			}
			stopErr = err
			break
		}
		line, _ := cr.FieldPos(0)
		if first {
			first = false
			if p.HasHeader {
				continue
			}
		}

		row, s := DecodeRow(line, rec)
		if s != nil {
			log.Warn("row skipped", map[string]interface{}{"line": s.Line, "code": s.Code, "reason": s.Reason})
			skipped = append(skipped, *s)
			continue
		}
		wp.Go(func() outcome { return p.write(ctx, log, row) })
	}
	outcomes := wp.Wait()
	// Rows still running when the deadline hit have failed with it.
	if stopErr == nil && ctx.Err() != nil {
		stopErr = ctx.Err()
	}

	res := &Result{Skipped: skipped}
	for _, o := range outcomes {
		switch {
		case o.imported != nil:
			res.Imported = append(res.Imported, *o.imported)
		case o.skip != nil:
			res.Skipped = append(res.Skipped, *o.skip)
		case o.failure != nil:
			res.Failed = append(res.Failed, *o.failure)
		}
	}
	sort.Slice(res.Imported, func(i, j int) bool { return res.Imported[i].Line < res.Imported[j].Line })
	sort.Slice(res.Skipped, func(i, j int) bool { return res.Skipped[i].Line < res.Skipped[j].Line })
	sort.Slice(res.Failed, func(i, j int) bool { return res.Failed[i].Line < res.Failed[j].Line })

	if stopErr != nil {
		if ctx.Err() != nil {
			return res, apperr.Wrap(stopErr, apperr.KindTimeout, apperr.CodeTimeout, "import interrupted before the end of the file")
		}
		return res, apperr.Wrap(stopErr, apperr.KindSourceUnavailable, apperr.CodeFileUnreadable, "passes file could not be read")
	}
	return res, nil
}

func (p *Pipeline) write(ctx context.Context, log *logger.Logger, row model.PassRow) outcome {
	pass, err := p.Writer.WritePass(ctx, row)
	switch {
	case err == nil:
		return outcome{line: row.Line, imported: &Imported{Line: row.Line, TagOperator: row.CompanyID, Pass: pass}}
	case errors.Is(err, repository.ErrStationNotFound):
		s := skip(row.Line, apperr.CodeStationNotFound, "station %s not found", row.StationID)
		log.Warn("row skipped", map[string]interface{}{"line": row.Line, "code": s.Code, "station_id": row.StationID})
		return outcome{line: row.Line, skip: s}
	default:
		log.Error("row failed", err, map[string]interface{}{"line": row.Line, "station_id": row.StationID, "tag_id": row.TagID})
		return outcome{line: row.Line, failure: &Failure{Line: row.Line, Error: apperr.MessageOf(apperr.Storage(err, "pass could not be stored"))}}
	}
}
