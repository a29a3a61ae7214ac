package stats

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/xuri/excelize/v2"
)

var sample = []Instant{
	{Market: "default", Item: "stone", Timestamp: 1000, Price: 1.5, Volume: 3},
	{Market: "default", Item: "stone", Timestamp: 61000, Price: 1.75, Volume: 0},
}

func TestNewExporter(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{format: "csv", want: "csv"},
		{format: " JSON ", want: "json"},
		{format: "parquet", want: "parquet"},
		{format: "excel", want: "xlsx"},
		{format: "xml", want: ""},
	}
	for _, tt := range tests {
		e := NewExporter(tt.format)
		if tt.want == "" {
			if e != nil {
				t.Errorf("NewExporter(%q) = %T, want nil", tt.format, e)
			}
			continue
		}
		if e == nil || e.Extension() != tt.want {
			t.Errorf("NewExporter(%q) = %v, want %s", tt.format, e, tt.want)
		}
	}
}

func TestCSVExporter(t *testing.T) {
	var buf bytes.Buffer
	if err := (CSVExporter{}).Export(&buf, sample); err != nil {
		t.Fatal(err)
	}
	want := "market,item,t,price,volume\ndefault,stone,1000,1.5,3\ndefault,stone,61000,1.75,0\n"
	if buf.String() != want {
		t.Errorf("csv = %q, want %q", buf.String(), want)
	}
}

func TestJSONExporter(t *testing.T) {
	var buf bytes.Buffer
	if err := (JSONExporter{}).Export(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("empty json = %q, want []", buf.String())
	}

	buf.Reset()
	if err := (JSONExporter{}).Export(&buf, sample); err != nil {
		t.Fatal(err)
	}
	var got []Instant
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, sample) {
		t.Errorf("json decoded %+v", got)
	}
}

func TestParquetExporter(t *testing.T) {
	var buf bytes.Buffer
	if err := (ParquetExporter{}).Export(&buf, sample); err != nil {
		t.Fatal(err)
	}
	got, err := parquet.Read[Instant](bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, sample) {
		t.Errorf("parquet rows = %+v", got)
	}
}

func TestXLSXExporter(t *testing.T) {
	var buf bytes.Buffer
	if err := (XLSXExporter{}).Export(&buf, sample); err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := f.GetRows(xlsxSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 || rows[0][0] != "market" || rows[2][3] != "1.75" {
		t.Errorf("xlsx rows = %v", rows)
	}
}
