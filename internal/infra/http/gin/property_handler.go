package ginserver

import (
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"staybook/internal/app/commands"
	"staybook/internal/app/dto"
	availabilityapp "staybook/internal/app/handlers/availability"
	propertyapp "staybook/internal/app/handlers/properties"
	"staybook/internal/app/queries"
	"staybook/internal/domain/shared/daterange"
)

type PropertyHTTP interface {
	Get(c *gin.Context)
	Availability(c *gin.Context)
	SetAvailability(c *gin.Context)
}

type PropertyHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type setAvailabilityRequest struct {
	Available *bool `json:"available"`
}

func (h PropertyHandler) Get(c *gin.Context) {
	if h.Queries == nil {
		respondError(c, h.Logger, errBusUnavailable)
		return
	}
	query := propertyapp.GetPropertyQuery{PropertyID: c.Param("id")}
	result, err := queries.Ask[propertyapp.GetPropertyQuery, dto.Property](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Availability answers whether check_in..check_out could be booked and quotes
// the stay when it could.
func (h PropertyHandler) Availability(c *gin.Context) {
	if h.Queries == nil {
		respondError(c, h.Logger, errBusUnavailable)
		return
	}
	checkIn, err := daterange.ParseDay(c.Query("check_in"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	checkOut, err := daterange.ParseDay(c.Query("check_out"))
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	query := availabilityapp.CheckAvailabilityQuery{PropertyID: c.Param("id"), CheckIn: checkIn, CheckOut: checkOut}
	result, err := queries.Ask[availabilityapp.CheckAvailabilityQuery, dto.Availability](c.Request.Context(), h.Queries, query)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h PropertyHandler) SetAvailability(c *gin.Context) {
	user, ok := requireAuth(c)
	if !ok {
		return
	}
	if h.Commands == nil {
		respondError(c, h.Logger, errBusUnavailable)
		return
	}
	var req setAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Available == nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: "available is required"})
		return
	}
	cmd := propertyapp.SetAvailabilityCommand{PropertyID: c.Param("id"), ActorID: user.UserID, Available: *req.Available}
	result, err := commands.Dispatch[propertyapp.SetAvailabilityCommand, dto.Property](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ PropertyHTTP = PropertyHandler{}
