package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"
	"github.com/xuri/excelize/v2"
)

// Exporter writes archived samples in one file format.
type Exporter interface {
	Export(w io.Writer, rows []Instant) error
	Extension() string
	ContentType() string
}

// NewExporter returns the exporter for format (csv, json, parquet, xlsx),
// or nil if the format is not supported.
func NewExporter(format string) Exporter {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv":
		return CSVExporter{}
	case "json":
		return JSONExporter{}
	case "parquet":
		return ParquetExporter{}
	case "xlsx", "excel":
		return XLSXExporter{}
	default:
		return nil
	}
}

// Formats lists the supported export formats.
func Formats() []string {
	return []string{"csv", "json", "parquet", "xlsx"}
}

var header = []string{"market", "item", "t", "price", "volume"}

func fields(r Instant) []string {
	return []string{
		r.Market,
		r.Item,
		strconv.FormatInt(r.Timestamp, 10),
		floatStr(r.Price),
		floatStr(r.Volume),
	}
}

func floatStr(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// CSVExporter writes a header row followed by one row per sample.
type CSVExporter struct{}

func (CSVExporter) Extension() string   { return "csv" }
func (CSVExporter) ContentType() string { return "text/csv" }

func (CSVExporter) Export(w io.Writer, rows []Instant) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(fields(r)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// JSONExporter writes an indented array.
type JSONExporter struct{}

func (JSONExporter) Extension() string   { return "json" }
func (JSONExporter) ContentType() string { return "application/json" }

func (JSONExporter) Export(w io.Writer, rows []Instant) error {
	if rows == nil {
		rows = []Instant{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

// ParquetExporter writes a single parquet file.
type ParquetExporter struct{}

func (ParquetExporter) Extension() string   { return "parquet" }
func (ParquetExporter) ContentType() string { return "application/vnd.apache.parquet" }

func (ParquetExporter) Export(w io.Writer, rows []Instant) error {
	return parquet.Write(w, rows)
}

// XLSXExporter writes a workbook with one sheet of samples.
type XLSXExporter struct{}

const xlsxSheet = "Sheet1"

func (XLSXExporter) Extension() string { return "xlsx" }
func (XLSXExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (XLSXExporter) Export(w io.Writer, rows []Instant) error {
	f := excelize.NewFile()
	defer f.Close()

	head := make([]interface{}, len(header))
	for i, h := range header {
		head[i] = h
	}
	if err := f.SetSheetRow(xlsxSheet, "A1", &head); err != nil {
		return fmt.Errorf("xlsx header: %w", err)
	}
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{r.Market, r.Item, r.Timestamp, r.Price, r.Volume}
		if err := f.SetSheetRow(xlsxSheet, cell, &row); err != nil {
			return fmt.Errorf("xlsx row %d: %w", i, err)
		}
	}
	return f.Write(w)
}
