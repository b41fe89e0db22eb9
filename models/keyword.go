package models

import "time"

type Keyword struct {
	ID         string    `json:"id" bson:"_id"`
	DataSource string    `json:"data_source" bson:"data_source"`
	Publisher  string    `json:"publisher,omitempty" bson:"publisher,omitempty"`
	Name       MultiLang `json:"name" bson:"name"`
	AltLabels  []string  `json:"alt_labels,omitempty" bson:"alt_labels,omitempty"`

	Deprecated        bool   `json:"deprecated" bson:"deprecated"`
	ReplacedBy        string `json:"replaced_by,omitempty" bson:"replaced_by,omitempty"`
	NEvents           int    `json:"n_events" bson:"n_events"`
	HasUpcomingEvents bool   `json:"has_upcoming_events" bson:"has_upcoming_events"`

	// Ontology relations to other keywords.
	Parents  []string `json:"parents,omitempty" bson:"parents,omitempty"`
	Children []string `json:"children,omitempty" bson:"children,omitempty"`

	CreatedTime      time.Time `json:"created_time" bson:"created_time"`
	LastModifiedTime time.Time `json:"last_modified_time" bson:"last_modified_time"`
}

// Keyword set usages
const (
	KeywordSetKeyword  = "keyword"
	KeywordSetAudience = "audience"
)

type KeywordSet struct {
	ID         string    `json:"id" bson:"_id"`
	DataSource string    `json:"data_source" bson:"data_source"`
	Name       MultiLang `json:"name" bson:"name"`
	Usage      string    `json:"usage" bson:"usage"`
	Keywords   []string  `json:"keywords" bson:"keywords"`
}
