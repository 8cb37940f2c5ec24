// Package model defines the parcel data types shared across suito.
package model

import (
	"encoding/json"
	"maps"
)

// Property keys shared by the geometry source, CSV imports and exports.
const (
	PropPolygonUUID = "polygon_uuid"
	PropPointLat    = "point_lat"
	PropPointLng    = "point_lng"

	FieldName           = "name"
	FieldVariety        = "variety"
	FieldTransplantDate = "transplantDate"

	FieldPredictedHeading  = "predicted_heading_date"
	FieldPredictedMaturity = "predicted_maturity_date"
)

// Centroid is a WGS84 point carried by each parcel feature.
type Centroid struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Feature is one parcel polygon as delivered by the geometry source. Geometry is
// kept verbatim and never modified.
type Feature struct {
	Properties  map[string]any  `json:"properties"`
	Geometry    json.RawMessage `json:"geometry"`
	ID          string          `json:"-"`
	Centroid    Centroid        `json:"-"`
	HasCentroid bool            `json:"-"`
}

// CloneProperties returns a shallow copy of the raw properties.
func (f Feature) CloneProperties() map[string]any {
	if f.Properties == nil {
		return map[string]any{}
	}
	return maps.Clone(f.Properties)
}

// FeatureCollection is a GeoJSON feature collection.
type FeatureCollection struct {
	Type     string           `json:"type"`
	Features []GeoJSONFeature `json:"features"`
}

// GeoJSONFeature is the wire shape of one feature.
type GeoJSONFeature struct {
	ID         any             `json:"id,omitempty"`
	Properties map[string]any  `json:"properties"`
	Type       string          `json:"type"`
	Geometry   json.RawMessage `json:"geometry"`
}

// Attributes are the mutable, user-supplied fields of a parcel.
type Attributes struct {
	Custom         map[string]string `json:"custom,omitempty"`
	Name           string            `json:"name"`
	Variety        string            `json:"variety"`
	TransplantDate string            `json:"transplantDate"`
}

// Field returns a named attribute, falling back to custom fields.
func (a Attributes) Field(name string) string {
	switch name {
	case FieldName:
		return a.Name
	case FieldVariety:
		return a.Variety
	case FieldTransplantDate:
		return a.TransplantDate
	default:
		return a.Custom[name]
	}
}

// IsZero reports whether no field carries a value.
func (a Attributes) IsZero() bool {
	return a.Name == "" && a.Variety == "" && a.TransplantDate == "" && len(a.Custom) == 0
}

// AttributeRecord pairs a parcel id with its stored attributes.
type AttributeRecord struct {
	ID         string
	Attributes Attributes
}

// AttributePatch is a partial update. Nil pointers leave fields untouched; a
// pointer to "" clears the field.
type AttributePatch struct {
	Name           *string
	Variety        *string
	TransplantDate *string
	Custom         map[string]string
}

// IsEmpty reports whether the patch changes nothing.
func (p AttributePatch) IsEmpty() bool {
	return p.Name == nil && p.Variety == nil && p.TransplantDate == nil && len(p.Custom) == 0
}

// Apply merges the patch into a and returns the result.
func (p AttributePatch) Apply(a Attributes) Attributes {
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.Variety != nil {
		a.Variety = *p.Variety
	}
	if p.TransplantDate != nil {
		a.TransplantDate = *p.TransplantDate
	}
	if len(p.Custom) > 0 {
		custom := make(map[string]string, len(a.Custom)+len(p.Custom))
		maps.Copy(custom, a.Custom)
		maps.Copy(custom, p.Custom)
		a.Custom = custom
	}
	return a
}

// BulkPatch builds the patch used for multi-parcel edits, where an empty value
// means "not provided".
func BulkPatch(variety, transplantDate string) AttributePatch {
	var p AttributePatch
	if variety != "" {
		p.Variety = &variety
	}
	if transplantDate != "" {
		p.TransplantDate = &transplantDate
	}
	return p
}

// Ptr returns a pointer to s, for building patches.
func Ptr(s string) *string {
	return &s
}
