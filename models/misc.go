package models

import "time"

type DataSource struct {
	ID                    string `json:"id" bson:"_id"`
	Name                  string `json:"name" bson:"name"`
	APIKeyHash            string `json:"-" bson:"api_key_hash,omitempty"`
	Owner                 string `json:"owner,omitempty" bson:"owner,omitempty"`
	UserEditableResources bool   `json:"user_editable_resources" bson:"user_editable_resources"`
	Private               bool   `json:"private" bson:"private"`
}

type Language struct {
	ID              string    `json:"id" bson:"_id"`
	Name            MultiLang `json:"name" bson:"name"`
	ServiceLanguage bool      `json:"service_language" bson:"service_language"`
}

type Image struct {
	ID               string    `json:"id" bson:"_id"`
	DataSource       string    `json:"data_source" bson:"data_source"`
	Publisher        string    `json:"publisher,omitempty" bson:"publisher,omitempty"`
	Name             string    `json:"name" bson:"name"`
	URL              string    `json:"url" bson:"url"`
	PhotographerName string    `json:"photographer_name,omitempty" bson:"photographer_name,omitempty"`
	License          string    `json:"license" bson:"license"`
	CreatedTime      time.Time `json:"created_time" bson:"created_time"`
	CreatedBy        string    `json:"created_by,omitempty" bson:"created_by,omitempty"`
}

type Feedback struct {
	ID          string    `json:"id" bson:"_id"`
	Name        string    `json:"name,omitempty" bson:"name,omitempty"`
	Email       string    `json:"email,omitempty" bson:"email,omitempty"`
	Subject     string    `json:"subject" bson:"subject"`
	Body        string    `json:"body" bson:"body"`
	CreatedTime time.Time `json:"created_time" bson:"created_time"`
}

type User struct {
	ID          string    `json:"id" bson:"_id"`
	Username    string    `json:"username" bson:"username"`
	Email       string    `json:"email,omitempty" bson:"email,omitempty"`
	CreatedTime time.Time `json:"created_time" bson:"created_time"`
}
