// Package export joins parcels, attributes and enrichment results into flat
// tables and GeoJSON collections.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/Veraticus/suito/internal/model"
)

// AttributeReader is the read side of the attribute store.
type AttributeReader interface {
	Get(id string) (model.Attributes, bool)
}

// Header lists the table columns in order.
var Header = []string{
	model.PropPolygonUUID,
	model.FieldName,
	model.FieldTransplantDate,
	model.FieldVariety,
	"latitude",
	"longitude",
	model.FieldPredictedHeading,
	model.FieldPredictedMaturity,
	"error",
}

// Row is one exported parcel.
type Row struct {
	ID                    string
	Name                  string
	TransplantDate        string
	Variety               string
	Latitude              string
	Longitude             string
	PredictedHeadingDate  string
	PredictedMaturityDate string
	Error                 string
}

// Values returns the row in Header order.
func (r Row) Values() []string {
	return []string{
		r.ID, r.Name, r.TransplantDate, r.Variety, r.Latitude, r.Longitude,
		r.PredictedHeadingDate, r.PredictedMaturityDate, r.Error,
	}
}

// ToTable builds one row per parcel in input order. A failed result fills the
// error column and leaves the date columns blank.
func ToTable(parcels []model.Feature, attrs AttributeReader, results map[string]model.EnrichmentResult) []Row {
	rows := make([]Row, 0, len(parcels))
	for _, p := range parcels {
		a, _ := attrs.Get(p.ID)
		row := Row{
			ID:             p.ID,
			Name:           a.Name,
			TransplantDate: a.TransplantDate,
			Variety:        a.Variety,
		}
		if p.HasCentroid {
			row.Latitude = formatCoord(p.Centroid.Lat)
			row.Longitude = formatCoord(p.Centroid.Lon)
		}
		if res, ok := results[p.ID]; ok {
			if res.OK() {
				row.PredictedHeadingDate = res.HeadingDate
				row.PredictedMaturityDate = res.MaturityDate
			} else {
				row.Error = res.ErrorMessage
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Records returns the rows as string slices without the header.
func Records(rows []Row) [][]string {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = r.Values()
	}
	return out
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV writes a BOM-prefixed, CRLF-terminated CSV with a header row.
func WriteCSV(w io.Writer, rows []Row) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := cw.WriteAll(Records(rows)); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return nil
}

// ReadCSV parses a table written by WriteCSV.
func ReadCSV(r io.Reader) ([]Row, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read table: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse table: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	rows := make([]Row, 0, len(records)-1)
	for i, rec := range records[1:] {
		if len(rec) != len(Header) {
			return nil, fmt.Errorf("row %d has %d columns, want %d", i+1, len(rec), len(Header))
		}
		rows = append(rows, Row{
			ID: rec[0], Name: rec[1], TransplantDate: rec[2], Variety: rec[3],
			Latitude: rec[4], Longitude: rec[5],
			PredictedHeadingDate: rec[6], PredictedMaturityDate: rec[7], Error: rec[8],
		})
	}
	return rows, nil
}
