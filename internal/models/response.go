package models

import "time"

// ResponseStatus represents the negotiation state of a response.
type ResponseStatus string

const (
	ResponsePending   ResponseStatus = "pending"
	ResponseAccepted  ResponseStatus = "accepted"
	ResponseRejected  ResponseStatus = "rejected"
	ResponseWithdrawn ResponseStatus = "withdrawn"
)

// ContactChannel is the applicant's preferred way to be reached.
type ContactChannel string

const (
	ContactEmail    ContactChannel = "email"
	ContactPhone    ContactChannel = "phone"
	ContactPlatform ContactChannel = "platform"
)

// ContactInfo holds the applicant's contact details.
type ContactInfo struct {
	Email            string         `gorm:"size:255" json:"email,omitempty"`
	Phone            string         `gorm:"size:50" json:"phone,omitempty"`
	PreferredChannel ContactChannel `gorm:"size:20;default:'platform'" json:"preferredChannel"`
}

// Response is an applicant's negotiation record against a listing. The
// target is a single (type, listing) pair so it can never point at both an
// offer and a request.
type Response struct {
	BaseModel
	ApplicantID      string         `gorm:"size:36;not null;uniqueIndex:idx_response_applicant_target,priority:1" json:"applicantId"`
	ResponseType     ListingKind    `gorm:"size:10;not null;uniqueIndex:idx_response_applicant_target,priority:2" json:"responseType"`
	ListingID        string         `gorm:"size:36;not null;index;uniqueIndex:idx_response_applicant_target,priority:3" json:"listingId"`
	Message          string         `gorm:"type:text;not null" json:"message"`
	Availability     string         `gorm:"size:255;not null" json:"availability"`
	ProposedTimeline string         `gorm:"size:255" json:"proposedTimeline,omitempty"`
	ContactInfo      ContactInfo    `gorm:"embedded;embeddedPrefix:contact_" json:"contactInfo"`
	Status           ResponseStatus `gorm:"size:20;default:'pending';index" json:"status"`
	IsCompleted      bool           `gorm:"default:false" json:"isCompleted"`
	CompletedAt      *time.Time     `json:"completedAt,omitempty"`
	CompletedBy      string         `gorm:"size:36" json:"completedBy,omitempty"`
	EmailExchanged   bool           `gorm:"default:false" json:"emailExchanged"`

	Applicant User `gorm:"foreignKey:ApplicantID" json:"-"`
}

// NewResponse builds a pending response targeting ref.
func NewResponse(applicantID string, ref ListingRef) *Response {
	return &Response{
		ApplicantID:  applicantID,
		ResponseType: ref.Kind,
		ListingID:    ref.ID,
		Status:       ResponsePending,
		ContactInfo:  ContactInfo{PreferredChannel: ContactPlatform},
	}
}

// Target returns the listing this response was made against.
func (r *Response) Target() ListingRef {
	return ListingRef{Kind: r.ResponseType, ID: r.ListingID}
}
