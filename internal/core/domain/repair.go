package domain

// Repair is a repair order as seen by the deletion endpoint. Only archived
// repairs may be deleted, together with their history entries.
type Repair struct {
	ID       int64 `json:"id" bson:"id"`
	Archived bool  `json:"archived" bson:"archived"`
}
