package domain

import "time"

// Enquiry statuses.
const (
	EnquirySubmitted  = "submitted"
	EnquiryContacted  = "contacted"
	EnquiryInProgress = "in_progress"
	EnquiryResolved   = "resolved"
)

// Enquiry is a contact-form message from a visitor.
type Enquiry struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	Email     string    `json:"email" bson:"email"`
	Mobile    string    `json:"mobile" bson:"mobile"`
	Comment   string    `json:"comment" bson:"comment"`
	Status    string    `json:"status" bson:"status"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

func IsValidEnquiryStatus(status string) bool {
	switch status {
	case EnquirySubmitted, EnquiryContacted, EnquiryInProgress, EnquiryResolved:
		return true
	}
	return false
}
