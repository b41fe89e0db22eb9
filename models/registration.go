package models

import "time"

// Attendee statuses
const (
	AttendeeAttending  = "attending"
	AttendeeWaitlisted = "waitlisted"
)

type Registration struct {
	ID    string `json:"id" bson:"_id"`
	Event string `json:"event" bson:"event"`

	EnrolmentStartTime *time.Time `json:"enrolment_start_time,omitempty" bson:"enrolment_start_time,omitempty"`
	EnrolmentEndTime   *time.Time `json:"enrolment_end_time,omitempty" bson:"enrolment_end_time,omitempty"`

	MinimumAttendeeCapacity *int `json:"minimum_attendee_capacity,omitempty" bson:"minimum_attendee_capacity,omitempty"`
	MaximumAttendeeCapacity *int `json:"maximum_attendee_capacity,omitempty" bson:"maximum_attendee_capacity,omitempty"`
	WaitingListCapacity     *int `json:"waiting_list_capacity,omitempty" bson:"waiting_list_capacity,omitempty"`
	MaximumGroupSize        *int `json:"maximum_group_size,omitempty" bson:"maximum_group_size,omitempty"`

	AudienceMinAge *int `json:"audience_min_age,omitempty" bson:"audience_min_age,omitempty"`
	AudienceMaxAge *int `json:"audience_max_age,omitempty" bson:"audience_max_age,omitempty"`

	Instructions MultiLang `json:"instructions,omitempty" bson:"instructions,omitempty"`

	// Denormalized; maintained on sign-up writes.
	CurrentAttendeeCount    int `json:"current_attendee_count" bson:"current_attendee_count"`
	CurrentWaitingListCount int `json:"current_waiting_list_count" bson:"current_waiting_list_count"`

	CreatedTime      time.Time `json:"created_time" bson:"created_time"`
	LastModifiedTime time.Time `json:"last_modified_time" bson:"last_modified_time"`
	CreatedBy        string    `json:"created_by,omitempty" bson:"created_by,omitempty"`
}

type SignUp struct {
	ID               string    `json:"id" bson:"_id"`
	Registration     string    `json:"registration" bson:"registration"`
	FirstName        string    `json:"first_name" bson:"first_name"`
	LastName         string    `json:"last_name" bson:"last_name"`
	Email            string    `json:"email" bson:"email"`
	PhoneNumber      string    `json:"phone_number,omitempty" bson:"phone_number,omitempty"`
	City             string    `json:"city,omitempty" bson:"city,omitempty"`
	AttendeeStatus   string    `json:"attendee_status" bson:"attendee_status"`
	ConfirmationCode string    `json:"confirmation_code" bson:"confirmation_code"`
	CreatedTime      time.Time `json:"created_time" bson:"created_time"`
}

type RegistrationMessage struct {
	ID           string    `json:"id" bson:"_id"`
	Registration string    `json:"registration" bson:"registration"`
	Subject      string    `json:"subject" bson:"subject"`
	Body         string    `json:"body" bson:"body"`
	Recipients   []string  `json:"recipients" bson:"recipients"`
	SentBy       string    `json:"sent_by" bson:"sent_by"`
	CreatedTime  time.Time `json:"created_time" bson:"created_time"`
}
