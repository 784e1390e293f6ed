package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/stadtmeldung/report-server/internal/models"
	"github.com/xuri/excelize/v2"
)

// exportHeaders is the fixed column order of the report export.
var exportHeaders = []string{
	"id", "category", "description", "status", "approved", "createdAt",
	"acceptedAt", "doneAt", "lat", "lng", "area", "zip", "votes", "reporterId",
}

// exportRow flattens a report into the export columns. Newlines and double
// quotes in the description are sanitized the way the frontend export did.
func exportRow(r *models.Report) []string {
	desc := strings.ReplaceAll(r.Description, "\n", " ")
	desc = strings.ReplaceAll(desc, `"`, "'")

	approved := "0"
	if r.Approved {
		approved = "1"
	}
	lat, lng, area, zip := "", "", "", ""
	if r.Location != nil {
		lat = strconv.FormatFloat(r.Location.Lat, 'f', -1, 64)
		lng = strconv.FormatFloat(r.Location.Lng, 'f', -1, 64)
		area = r.Location.Area
		zip = r.Location.Zip
	}
	reporter := ""
	if r.ReporterID != nil {
		reporter = *r.ReporterID
	}

	return []string{
		strconv.FormatInt(r.ID, 10),
		r.Category,
		desc,
		string(r.Status),
		approved,
		strconv.FormatInt(r.CreatedAt, 10),
		millisOrEmpty(r.StatusAt(models.StatusAccepted)),
		millisOrEmpty(r.StatusAt(models.StatusResolved)),
		lat, lng, area, zip,
		strconv.Itoa(r.Votes.Count),
		reporter,
	}
}

func millisOrEmpty(ms int64) string {
	if ms == 0 {
		return ""
	}
	return strconv.FormatInt(ms, 10)
}

// ExportCSV writes all reports as a comma-separated table. Admin only.
func ExportCSV(w io.Writer, reports []*models.Report, actor *models.User) error {
	if !CanPerform(ActionExport, actor, nil) {
		return ErrPermissionDenied
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeaders); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range reports {
		if err := cw.Write(exportRow(r)); err != nil {
			return fmt.Errorf("write report %d: %w", r.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportXLSX writes the same table as a spreadsheet. Admin only.
func ExportXLSX(w io.Writer, reports []*models.Report, actor *models.User) error {
	if !CanPerform(ActionExport, actor, nil) {
		return ErrPermissionDenied
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Reports"
	f.SetSheetName("Sheet1", sheet)

	writeRow := func(rowIdx int, values []string) error {
		cell, err := excelize.CoordinatesToCellName(1, rowIdx)
		if err != nil {
			return err
		}
		row := make([]any, len(values))
		for i, v := range values {
			row[i] = v
		}
		return f.SetSheetRow(sheet, cell, &row)
	}

	if err := writeRow(1, exportHeaders); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range reports {
		if err := writeRow(i+2, exportRow(r)); err != nil {
			return fmt.Errorf("write report %d: %w", r.ID, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
