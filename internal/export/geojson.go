package export

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"

	"github.com/Veraticus/suito/internal/model"
)

// GeoJSON property names for prediction results.
const (
	PropHeadingPred  = "heading_date_pred"
	PropMaturityPred = "maturity_date_pred"
)

// ToGeoJSON emits one feature per parcel in input order. Attribute fields
// override raw properties of the same name; prediction properties are added for
// parcels with a successful result.
func ToGeoJSON(parcels []model.Feature, attrs AttributeReader, results map[string]model.EnrichmentResult) model.FeatureCollection {
	fc := model.FeatureCollection{
		Type:     "FeatureCollection",
		Features: make([]model.GeoJSONFeature, 0, len(parcels)),
	}
	for _, p := range parcels {
		props := p.CloneProperties()
		props[model.PropPolygonUUID] = p.ID

		if a, ok := attrs.Get(p.ID); ok {
			props[model.FieldName] = a.Name
			props[model.FieldVariety] = a.Variety
			props[model.FieldTransplantDate] = a.TransplantDate
			maps.Copy(props, stringProps(a.Custom))
		}
		if res, ok := results[p.ID]; ok && res.OK() {
			props[PropHeadingPred] = res.HeadingDate
			props[PropMaturityPred] = res.MaturityDate
		}

		fc.Features = append(fc.Features, model.GeoJSONFeature{
			Type:       "Feature",
			Properties: props,
			Geometry:   p.Geometry,
		})
	}
	return fc
}

func stringProps(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// WriteGeoJSON writes fc as indented JSON.
func WriteGeoJSON(w io.Writer, fc model.FeatureCollection) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(fc); err != nil {
		return fmt.Errorf("failed to encode feature collection: %w", err)
	}
	return nil
}
