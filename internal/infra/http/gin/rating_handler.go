package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	ratingapp "staybook/internal/app/handlers/ratings"
	"staybook/internal/app/queries"
)

type RatingHTTP interface {
	ListByProperty(c *gin.Context)
	Submit(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
	ToggleHelpful(c *gin.Context)
}

type RatingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type submitRatingRequest struct {
	Rating float64 `json:"rating"`
	Review string  `json:"review"`
}

type updateRatingRequest struct {
	Rating *float64 `json:"rating"`
	Review *string  `json:"review"`
}

func (h RatingHandler) ListByProperty(c *gin.Context) {
	if h.Queries == nil {
		respondError(c, h.Logger, errBusUnavailable)
		return
	}
	query := ratingapp.ListPropertyRatingsQuery{
		PropertyID: c.Param("id"),
		Limit:      parsePositiveInt(c.Query("limit"), 0),
		Offset:     parsePositiveInt(c.Query("offset"), 0),
	}
	if p, ok := currentPrincipal(c); ok {
		query.ViewerID = p.UserID
	}
	result, err := queries.Ask[ratingapp.ListPropertyRatingsQuery, dto.RatingCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h RatingHandler) Submit(c *gin.Context) {
	user, ok := requireAuth(c)
	if !ok {
		return
	}
	if h.Commands == nil {
		respondError(c, h.Logger, errBusUnavailable)
		return
	}
	var req submitRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmd := ratingapp.CreateRatingCommand{
		PropertyID:      c.Param("id"),
		UserID:          user.UserID,
		Rating:          req.Rating,
		Review:          req.Review,
		IdempotencyKeyV: c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[ratingapp.CreateRatingCommand, dto.Rating](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h RatingHandler) Update(c *gin.Context) {
	user, ok := requireAuth(c)
	if !ok {
		return
	}
	if h.Commands == nil {
		respondError(c, h.Logger, errBusUnavailable)
		return
	}
	var req updateRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmd := ratingapp.UpdateRatingCommand{RatingID: c.Param("id"), ActorID: user.UserID, Rating: req.Rating, Review: req.Review}
	result, err := commands.Dispatch[ratingapp.UpdateRatingCommand, dto.Rating](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Delete answers with the property so clients see the recomputed rollup.
func (h RatingHandler) Delete(c *gin.Context) {
	user, ok := requireAuth(c)
	if !ok {
		return
	}
	if h.Commands == nil {
		respondError(c, h.Logger, errBusUnavailable)
		return
	}
	cmd := ratingapp.DeleteRatingCommand{RatingID: c.Param("id"), ActorID: user.UserID}
	result, err := commands.Dispatch[ratingapp.DeleteRatingCommand, dto.Property](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h RatingHandler) ToggleHelpful(c *gin.Context) {
	user, ok := requireAuth(c)
	if !ok {
		return
	}
	if h.Commands == nil {
		respondError(c, h.Logger, errBusUnavailable)
		return
	}
	cmd := ratingapp.ToggleHelpfulCommand{RatingID: c.Param("id"), UserID: user.UserID}
	result, err := commands.Dispatch[ratingapp.ToggleHelpfulCommand, dto.HelpfulToggle](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ RatingHTTP = RatingHandler{}
