// Package csvimport turns imported CSV rows into attribute records.
package csvimport

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/Veraticus/suito/internal/common"
	"github.com/Veraticus/suito/internal/model"
)

// Result is the usable part of an import.
type Result struct {
	Records []model.AttributeRecord
	IDs     []string
	Dropped int
}

// FromRecords keeps the rows that carry a polygon_uuid. Known fields map onto
// Attributes; every other non-empty column becomes a custom field. When no row
// is usable the error wraps common.ErrNoUsableIDs and is an
// *common.EmptyResultNotice.
func FromRecords(rows []map[string]string) (Result, error) {
	var res Result
	seen := make(map[string]int)

	for _, row := range rows {
		id := strings.TrimSpace(row[model.PropPolygonUUID])
		if id == "" {
			res.Dropped++
			continue
		}

		attrs := model.Attributes{
			Name:           strings.TrimSpace(row[model.FieldName]),
			Variety:        strings.TrimSpace(row[model.FieldVariety]),
			TransplantDate: strings.TrimSpace(row[model.FieldTransplantDate]),
		}
		for k, v := range row {
			switch k {
			case model.PropPolygonUUID, model.FieldName, model.FieldVariety, model.FieldTransplantDate:
				continue
			}
			v = strings.TrimSpace(v)
			if k == "" || v == "" {
				continue
			}
			if attrs.Custom == nil {
				attrs.Custom = make(map[string]string)
			}
			attrs.Custom[k] = v
		}

		// Later rows for the same id win.
		if i, dup := seen[id]; dup {
			res.Records[i].Attributes = attrs
			continue
		}
		seen[id] = len(res.Records)
		res.Records = append(res.Records, model.AttributeRecord{ID: id, Attributes: attrs})
		res.IDs = append(res.IDs, id)
	}

	if len(res.IDs) == 0 {
		return res, fmt.Errorf("%w: %w", &common.EmptyResultNotice{
			Source: common.SourceImport,
			Detail: fmt.Sprintf("%d rows without %s", res.Dropped, model.PropPolygonUUID),
		}, common.ErrNoUsableIDs)
	}
	return res, nil
}

// ReadCSV reads a header row followed by data rows. A UTF-8 BOM is stripped
// and blank lines are skipped.
func ReadCSV(r io.Reader) ([]map[string]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})

	cr := csv.NewReader(bytes.NewReader(data))
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		row := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(rec) {
				row[h] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
