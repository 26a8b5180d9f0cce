package dto

import (
	"sort"
	"time"

	domainrating "staybook/internal/domain/rating"
	domainuser "staybook/internal/domain/user"
)

type Rating struct {
	ID           string   `json:"id"`
	PropertyID   string   `json:"property_id"`
	UserID       string   `json:"user_id"`
	Rating       float64  `json:"rating"`
	Review       string   `json:"review"`
	Helpful      []string `json:"helpful"`
	HelpfulCount int      `json:"helpful_count"`

	// HelpfulByViewer is set when the caller is in the helpful set.
	HelpfulByViewer bool      `json:"helpful_by_viewer"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type RatingCollection struct {
	Items  []Rating `json:"items"`
	Limit  int      `json:"limit"`
	Offset int      `json:"offset"`
}

// HelpfulToggle reports the voter's membership after a toggle.
type HelpfulToggle struct {
	RatingID     string `json:"rating_id"`
	Helpful      bool   `json:"helpful"`
	HelpfulCount int    `json:"helpful_count"`
}

// MapRating renders r for viewer, who may be empty for anonymous reads.
func MapRating(r *domainrating.Rating, viewer string) Rating {
	if r == nil {
		return Rating{}
	}
	helpful := make([]string, 0, r.HelpfulCount())
	for _, id := range r.HelpfulIDs() {
		helpful = append(helpful, string(id))
	}
	sort.Strings(helpful)
	return Rating{
		ID:              string(r.ID),
		PropertyID:      string(r.PropertyID),
		UserID:          string(r.UserID),
		Rating:          r.Value,
		Review:          r.Review,
		Helpful:         helpful,
		HelpfulCount:    len(helpful),
		HelpfulByViewer: viewer != "" && r.MarkedHelpfulBy(domainuser.ID(viewer)),
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}
