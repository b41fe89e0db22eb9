package models

import "time"

// GeoPoint is a GeoJSON point, indexed 2dsphere. Coordinates are lon, lat.
type GeoPoint struct {
	Type        string    `json:"type" bson:"type"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates"`
}

type Place struct {
	ID              string    `json:"id" bson:"_id"`
	DataSource      string    `json:"data_source" bson:"data_source"`
	Publisher       string    `json:"publisher" bson:"publisher"`
	Name            MultiLang `json:"name" bson:"name"`
	Description     MultiLang `json:"description,omitempty" bson:"description,omitempty"`
	StreetAddress   MultiLang `json:"street_address,omitempty" bson:"street_address,omitempty"`
	AddressLocality MultiLang `json:"address_locality,omitempty" bson:"address_locality,omitempty"`
	PostalCode      string    `json:"postal_code,omitempty" bson:"postal_code,omitempty"`
	Position        *GeoPoint `json:"position,omitempty" bson:"position,omitempty"`
	Email           string    `json:"email,omitempty" bson:"email,omitempty"`
	Telephone       MultiLang `json:"telephone,omitempty" bson:"telephone,omitempty"`
	Parent          string    `json:"parent,omitempty" bson:"parent,omitempty"`

	Deleted           bool   `json:"deleted" bson:"deleted"`
	ReplacedBy        string `json:"replaced_by,omitempty" bson:"replaced_by,omitempty"`
	NEvents           int    `json:"n_events" bson:"n_events"`
	HasUpcomingEvents bool   `json:"has_upcoming_events" bson:"has_upcoming_events"`

	CreatedTime      time.Time `json:"created_time" bson:"created_time"`
	LastModifiedTime time.Time `json:"last_modified_time" bson:"last_modified_time"`
	CreatedBy        string    `json:"created_by,omitempty" bson:"created_by,omitempty"`
	LastModifiedBy   string    `json:"last_modified_by,omitempty" bson:"last_modified_by,omitempty"`
}
