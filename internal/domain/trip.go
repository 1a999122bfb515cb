// Package domain contains the core data types for the trip planner.
// This package has zero external dependencies and is imported by every other
// internal package (repo, service, handler, facade, client).
//
// Struct tags named "validate" are read by the service layer; they are plain
// strings here and do not pull the validator into this package.
package domain

// DateLayout is the calendar date format used for trip ranges and days.
const DateLayout = "2006-01-02"

// ItemType tags the variant of an itinerary Item.
type ItemType string

const (
	ItemFlight ItemType = "flight"
	ItemTrain  ItemType = "train"
	ItemBus    ItemType = "bus"
	ItemHotel  ItemType = "hotel"
	ItemSpot   ItemType = "spot"
	ItemOther  ItemType = "other"
)

// Trip is the root itinerary aggregate.
// Days are persisted as a single serialized column alongside the row, so a
// Trip is always read and written as a whole.
//
// Timestamps are epoch milliseconds. DeletedAt is 0 for a live trip.
type Trip struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Cover     *string `json:"cover"`
	StartAt   string  `json:"startAt"`
	EndAt     string  `json:"endAt"`
	Days      []Day   `json:"days"`
	CreatedAt int64   `json:"createdAt"`
	UpdatedAt int64   `json:"updatedAt"`
	DeletedAt int64   `json:"deletedAt"`
}

// Day is one calendar day of a trip and its ordered items.
type Day struct {
	ID     string `json:"id,omitempty"`
	TripID string `json:"tripId,omitempty"`
	Date   string `json:"date" validate:"required,datetime=2006-01-02"`
	Items  []Item `json:"items" validate:"dive"`
}

// Item is a single itinerary entry. Only ID and Type are required; the
// remaining fields overlap between variants and are not tied to Type.
type Item struct {
	ID          string       `json:"id" validate:"required"`
	Type        ItemType     `json:"type" validate:"required,oneof=flight train bus hotel spot other"`
	Time        string       `json:"time,omitempty"`
	FlightNo    string       `json:"flightNo,omitempty"`
	TrainNo     string       `json:"trainNo,omitempty"`
	BusNo       string       `json:"busNo,omitempty"`
	HotelName   string       `json:"hotelName,omitempty"`
	SpotName    string       `json:"spotName,omitempty"`
	Title       string       `json:"title,omitempty"`
	From        string       `json:"from,omitempty"`
	To          string       `json:"to,omitempty"`
	Address     string       `json:"address,omitempty"`
	Lat         *float64     `json:"lat,omitempty"`
	Lng         *float64     `json:"lng,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	Note        *Note        `json:"note,omitempty"`
}

// Label returns the most specific human-readable name of the item:
// the transport number, hotel or spot name, falling back to Title.
func (i Item) Label() string {
	for _, s := range []string{i.FlightNo, i.TrainNo, i.BusNo, i.HotelName, i.SpotName} {
		if s != "" {
			return s
		}
	}
	return i.Title
}

// Coordinates holds the endpoints of a transport item.
type Coordinates struct {
	From *LatLng `json:"from,omitempty"`
	To   *LatLng `json:"to,omitempty"`
}

// LatLng is a WGS84 point.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Note is free text attached to an item, with optional files.
type Note struct {
	Text        string       `json:"text,omitempty"`
	Attachments []Attachment `json:"attachments" validate:"dive"`
}

// Attachment is a file owned by a Note. Data is a base64 payload.
type Attachment struct {
	ID   string `json:"id" validate:"required"`
	Type string `json:"type" validate:"required,oneof=pdf image"`
	Data string `json:"data"`
	Name string `json:"name"`
}

// NewTrip carries the caller-supplied fields for creating a trip.
// The store assigns ID and all timestamps.
type NewTrip struct {
	Title   string  `json:"title"`
	Cover   *string `json:"cover,omitempty"`
	StartAt string  `json:"startAt" validate:"required,datetime=2006-01-02"`
	EndAt   string  `json:"endAt" validate:"required,datetime=2006-01-02"`
	Days    []Day   `json:"days,omitempty" validate:"dive"`
}

// TripPatch is a partial update. Nil fields are left untouched.
// A non-nil Cover pointing at "" clears the cover; a non-nil Days pointing at
// a nil slice stores an empty list.
type TripPatch struct {
	Title   *string
	Cover   *string
	StartAt *string `validate:"omitempty,datetime=2006-01-02"`
	EndAt   *string `validate:"omitempty,datetime=2006-01-02"`
	Days    *[]Day
}
