package models

import "fmt"

// ListingKind discriminates offers from requests.
type ListingKind string

const (
	ListingOffer   ListingKind = "offer"
	ListingRequest ListingKind = "request"
)

// Valid reports whether k is a known listing kind.
func (k ListingKind) Valid() bool {
	return k == ListingOffer || k == ListingRequest
}

// ListingStatus is the publication state of an offer or request.
type ListingStatus string

const (
	ListingActive    ListingStatus = "active"
	ListingCompleted ListingStatus = "completed"
	ListingClosed    ListingStatus = "closed"
)

// Listing is a published Offer or Request.
type Listing struct {
	BaseModel
	Kind        ListingKind   `gorm:"size:10;index;not null" json:"kind"`
	UserID      string        `gorm:"size:36;index;not null" json:"userId"`
	Title       string        `gorm:"size:200;not null" json:"title"`
	Description string        `gorm:"type:text" json:"description"`
	Category    string        `gorm:"size:100" json:"category,omitempty"`
	Status      ListingStatus `gorm:"size:20;default:'active'" json:"status"`

	Owner User `gorm:"foreignKey:UserID" json:"-"`
}

// Ref returns the reference responses use to target this listing.
func (l *Listing) Ref() ListingRef {
	return ListingRef{Kind: l.Kind, ID: l.ID}
}

// ListingRef points at either an Offer or a Request.
type ListingRef struct {
	Kind ListingKind `json:"kind"`
	ID   string      `json:"id"`
}

func (r ListingRef) String() string {
	return fmt.Sprintf("%s/%s", r.Kind, r.ID)
}

// Path is the client route of the listing.
func (r ListingRef) Path() string {
	return fmt.Sprintf("/%ss/%s", r.Kind, r.ID)
}
