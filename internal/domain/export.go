package domain

// ExportRow is a single row in the flat itinerary export.
// It is a denormalized view: one row per item, with trip and day fields
// repeated for every item. A trip without days yields one row with empty day
// and item fields; a day without items yields one row with empty item fields.
type ExportRow struct {
	TripID      string `json:"tripId"`
	TripTitle   string `json:"tripTitle"`
	TripStartAt string `json:"tripStartAt"`
	TripEndAt   string `json:"tripEndAt"`

	DayDate string `json:"dayDate,omitempty"`

	ItemID      string   `json:"itemId,omitempty"`
	ItemType    ItemType `json:"itemType,omitempty"`
	ItemTime    string   `json:"itemTime,omitempty"`
	ItemLabel   string   `json:"itemLabel,omitempty"`
	ItemAddress string   `json:"itemAddress,omitempty"`
	ItemNote    string   `json:"itemNote,omitempty"`
	Attachments int      `json:"attachments,omitempty"`
}
