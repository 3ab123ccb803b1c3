// Package export serializes an already-built SiteDataset to CSV or XLSX.
// It performs no remote fetches and never mutates the dataset.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/mthydro/stagedata/stage"
)

// header returns the column set for a dataset. The timestamp column is
// Datetime for instant data and Date for daily data.
func header(timestep stage.Timestep) []string {
	timeCol := "Datetime"
	if timestep == stage.TimestepDaily {
		timeCol = "Date"
	}
	return []string{
		"SiteID", "DatasetCode", "DatasetLabel", timeCol,
		"RecordedValue", "GradeCode", "GradeName", "Method",
		"ApprovalLevel", "ApprovalName",
	}
}

func row(timestep stage.Timestep, s stage.NormalizedSample) []string {
	ts := s.Date
	if timestep == stage.TimestepInstant {
		ts = s.LocalTime.Format(time.RFC3339)
	}
	value := ""
	if s.Value != nil {
		value = strconv.FormatFloat(*s.Value, 'f', -1, 64)
	}
	return []string{
		s.SiteCode, s.ParameterCode, s.DatasetLabel, ts,
		value, s.GradeCode, s.GradeName, s.Method,
		strconv.Itoa(s.ApprovalLevel), s.ApprovalName,
	}
}

// WriteCSV writes the dataset's samples as CSV, header first.
func WriteCSV(w io.Writer, ds *stage.SiteDataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header(ds.Timestep)); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, s := range ds.Samples {
		if err := cw.Write(row(ds.Timestep, s)); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes the dataset as a single-sheet workbook named after the
// site's location code.
func WriteXLSX(w io.Writer, ds *stage.SiteDataset) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := ds.Site.LocationCode
	if sheet == "" {
		sheet = "Data"
	}
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")

	cols := header(ds.Timestep)
	headerRow := make([]any, len(cols))
	for i, c := range cols {
		headerRow[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &headerRow); err != nil {
		return fmt.Errorf("write header row: %w", err)
	}

	for i, s := range ds.Samples {
		cells := row(ds.Timestep, s)
		values := make([]any, len(cells))
		for j, c := range cells {
			values[j] = c
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("locate data row: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write data row: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
