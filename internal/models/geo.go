package models

// GeoPoint is a GeoJSON point: coordinates are [longitude, latitude].
type GeoPoint struct {
	Type        string    `json:"type" bson:"type" default:"Point"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates" validate:"omitempty,len=2"`
}

func NewGeoPoint(longitude, latitude float64) *GeoPoint {
	return &GeoPoint{Type: "Point", Coordinates: []float64{longitude, latitude}}
}

func (p *GeoPoint) Latitude() float64 {
	if p == nil || len(p.Coordinates) < 2 {
		return 0
	}
	return p.Coordinates[1]
}

func (p *GeoPoint) Longitude() float64 {
	if p == nil || len(p.Coordinates) < 1 {
		return 0
	}
	return p.Coordinates[0]
}

// GeoLine is a GeoJSON line string used for route geometry.
type GeoLine struct {
	Type        string      `json:"type" bson:"type" default:"LineString"`
	Coordinates [][]float64 `json:"coordinates" bson:"coordinates"`
}
