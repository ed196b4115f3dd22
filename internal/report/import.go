package report

import (
	"io"
	"strconv"

	"github.com/iliyamo/toll-settlement/internal/ingest"
)

// ImportedPass is one stored row in the addpasses response.
type ImportedPass struct {
	Line      int    `json:"line"`
	PassID    uint64 `json:"passID"`
	Timestamp string `json:"timestamp"`
	StationID string `json:"station_id"`
	TagID     string `json:"tag_id"`
	CompanyID string `json:"company_id"`
	Charge    Money  `json:"charge"`
	PassType  string `json:"passType"`
}

// Import is the addpasses envelope.
type Import struct {
	Status      string           `json:"status"`
	Message     string           `json:"message"`
	Imported    int              `json:"imported"`
	Skipped     int              `json:"skipped"`
	Failed      int              `json:"failed"`
	Data        []ImportedPass   `json:"data"`
	SkippedRows []ingest.Skip    `json:"skippedRows"`
	FailedRows  []ingest.Failure `json:"failedRows"`
}

// NewImport shapes an ingestion result.  Status is "OK" when no row failed
// in storage; skipped rows alone do not fail an import.
func NewImport(res *ingest.Result) Import {
	env := Import{
		Status:      "OK",
		Message:     "Passes imported successfully.",
		Imported:    len(res.Imported),
		Skipped:     len(res.Skipped),
		Failed:      len(res.Failed),
		Data:        make([]ImportedPass, 0, len(res.Imported)),
		SkippedRows: append([]ingest.Skip{}, res.Skipped...),
		FailedRows:  append([]ingest.Failure{}, res.Failed...),
	}
	if len(res.Failed) > 0 {
		env.Status = "partial"
		env.Message = "Some passes could not be stored."
	}
	for _, im := range res.Imported {
		env.Data = append(env.Data, ImportedPass{
			Line:      im.Line,
			PassID:    im.Pass.ID,
			Timestamp: stamp(im.Pass.Timestamp),
			StationID: im.Pass.StationID,
			TagID:     im.Pass.TagID,
			CompanyID: im.TagOperator,
			Charge:    NewMoney(im.Pass.Charge),
			PassType:  string(im.Pass.Type),
		})
	}
	return env
}

// WriteCSV writes the imported rows.
func (e Import) WriteCSV(w io.Writer) error {
	rows := make([][]string, 0, len(e.Data))
	for _, p := range e.Data {
		rows = append(rows, []string{p.Timestamp, p.StationID, p.TagID, p.CompanyID, p.Charge.String(),
			strconv.FormatUint(p.PassID, 10), p.PassType})
	}
	return writeAll(w, []string{"timestamp", "station_id", "tag_id", "company_id", "charge", "passID", "passType"}, rows)
}
