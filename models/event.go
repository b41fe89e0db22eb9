package models

import "time"

// Event statuses follow schema.org event vocabulary.
const (
	EventScheduled   = "EventScheduled"
	EventCancelled   = "EventCancelled"
	EventPostponed   = "EventPostponed"
	EventRescheduled = "EventRescheduled"
)

// Publication statuses
const (
	PublicationPublic = "public"
	PublicationDraft  = "draft"
)

// Event type ids
const (
	TypeGeneral      = "General"
	TypeCourse       = "Course"
	TypeVolunteering = "Volunteering"
)

// Super event types
const (
	SuperEventRecurring = "recurring"
	SuperEventUmbrella  = "umbrella"
)

// MultiLang is a translated text field keyed by language code ("fi", "sv"...).
type MultiLang map[string]string

type Offer struct {
	IsFree      bool      `json:"is_free" bson:"is_free"`
	Price       MultiLang `json:"price,omitempty" bson:"price,omitempty"`
	InfoURL     MultiLang `json:"info_url,omitempty" bson:"info_url,omitempty"`
	Description MultiLang `json:"description,omitempty" bson:"description,omitempty"`
}

type ExternalLink struct {
	Name     string `json:"name" bson:"name"`
	Link     string `json:"link" bson:"link"`
	Language string `json:"language,omitempty" bson:"language,omitempty"`
}

type Event struct {
	ID                string    `json:"id" bson:"_id"`
	DataSource        string    `json:"data_source" bson:"data_source"`
	Publisher         string    `json:"publisher" bson:"publisher"`
	Name              MultiLang `json:"name" bson:"name"`
	Description       MultiLang `json:"description,omitempty" bson:"description,omitempty"`
	ShortDescription  MultiLang `json:"short_description,omitempty" bson:"short_description,omitempty"`
	InfoURL           MultiLang `json:"info_url,omitempty" bson:"info_url,omitempty"`
	Location          string    `json:"location,omitempty" bson:"location,omitempty"`
	LocationExtraInfo MultiLang `json:"location_extra_info,omitempty" bson:"location_extra_info,omitempty"`

	StartTime    *time.Time `json:"start_time,omitempty" bson:"start_time,omitempty"`
	EndTime      *time.Time `json:"end_time,omitempty" bson:"end_time,omitempty"`
	HasStartTime bool       `json:"has_start_time" bson:"has_start_time"`
	HasEndTime   bool       `json:"has_end_time" bson:"has_end_time"`

	EventStatus       string `json:"event_status" bson:"event_status"`
	PublicationStatus string `json:"publication_status" bson:"publication_status"`
	TypeID            string `json:"type_id" bson:"type_id"`

	Keywords   []string `json:"keywords" bson:"keywords"`
	Audience   []string `json:"audience,omitempty" bson:"audience,omitempty"`
	InLanguage []string `json:"in_language,omitempty" bson:"in_language,omitempty"`

	AudienceMinAge *int `json:"audience_min_age,omitempty" bson:"audience_min_age,omitempty"`
	AudienceMaxAge *int `json:"audience_max_age,omitempty" bson:"audience_max_age,omitempty"`

	Offers        []Offer        `json:"offers" bson:"offers"`
	ExternalLinks []ExternalLink `json:"external_links,omitempty" bson:"external_links,omitempty"`
	Images        []string       `json:"images,omitempty" bson:"images,omitempty"`

	SuperEvent     string `json:"super_event,omitempty" bson:"super_event,omitempty"`
	SuperEventType string `json:"super_event_type,omitempty" bson:"super_event_type,omitempty"`

	Registration string `json:"registration,omitempty" bson:"registration,omitempty"`

	Deleted          bool      `json:"deleted" bson:"deleted"`
	CreatedTime      time.Time `json:"created_time" bson:"created_time"`
	LastModifiedTime time.Time `json:"last_modified_time" bson:"last_modified_time"`
	CreatedBy        string    `json:"created_by,omitempty" bson:"created_by,omitempty"`
	LastModifiedBy   string    `json:"last_modified_by,omitempty" bson:"last_modified_by,omitempty"`
}

// AnyText returns the first non-empty translation, preferring the given code.
func (m MultiLang) AnyText(prefer string) string {
	if m == nil {
		return ""
	}
	if v := m[prefer]; v != "" {
		return v
	}
	for _, code := range []string{"fi", "sv", "en"} {
		if v := m[code]; v != "" {
			return v
		}
	}
	for _, v := range m {
		if v != "" {
			return v
		}
	}
	return ""
}
