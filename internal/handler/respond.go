package handler

import (
	"bytes"
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/toll-settlement/internal/apperr"
	"github.com/iliyamo/toll-settlement/internal/report"
)

const (
	formatJSON = "json"
	formatCSV  = "csv"
)

// FormatParam is embedded by every request that can answer in CSV.
type FormatParam struct {
	Format string `query:"format" validate:"omitempty,oneof=json csv"`
}

// render writes env as JSON, or as a CSV attachment named name.csv.
func render(c echo.Context, format string, status int, name string, env report.CSVWriter) error {
	if format != formatCSV {
		return c.JSON(status, env)
	}
	var buf bytes.Buffer
	if err := env.WriteCSV(&buf); err != nil {
		return apperr.Wrap(err, apperr.KindInternal, apperr.CodeInternal, "csv rendering failed")
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s.csv"`, name))
	return c.Blob(status, "text/csv; charset=utf-8", buf.Bytes())
}
