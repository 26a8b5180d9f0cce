package ginserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/app/bootstrap"
	"staybook/internal/app/dto"
	"staybook/internal/app/policies"
	domainproperty "staybook/internal/domain/property"
	"staybook/internal/domain/shared/money"
	domainuser "staybook/internal/domain/user"
	"staybook/internal/infra/identity"
	"staybook/internal/infra/obs"
	"staybook/internal/infra/storage/memory"
)

const testSecret = "http-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type api struct {
	t      *testing.T
	router *gin.Engine
	store  *memory.Store
}

func newAPI(t *testing.T) *api {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	p, err := domainproperty.NewProperty(domainproperty.CreateParams{
		ID: "p1", Owner: "owner", Title: "Harbour loft", PricePerNight: money.Must(10000, "USD"), MaxGuests: 4, Available: true,
	})
	require.NoError(t, err)
	require.NoError(t, store.SeedProperty(ctx, p))
	for _, id := range []domainuser.ID{"guest", "guest2", "owner", "admin"} {
		u, err := domainuser.NewUser(domainuser.CreateParams{ID: id})
		require.NoError(t, err)
		require.NoError(t, store.SeedUser(ctx, u))
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	verifier, err := identity.NewJWTVerifier(identity.Options{Secret: testSecret, CacheTTL: time.Minute})
	require.NoError(t, err)
	t.Cleanup(verifier.Close)

	buses := bootstrap.NewBuses(bootstrap.Deps{
		UoWFactory:  store,
		Outbox:      memory.Outbox{},
		Idempotency: memory.NewIdempotencyStore(time.Hour),
		Logger:      logger,
	})
	router := NewRouter(obs.Middleware{Logger: logger}, obs.HealthHandlers{}, Handlers{
		Booking:        BookingHandler{Commands: buses.Commands, Queries: buses.Queries, Logger: logger},
		Conversation:   ConversationHandler{Commands: buses.Commands, Queries: buses.Queries, Logger: logger},
		Property:       PropertyHandler{Commands: buses.Commands, Queries: buses.Queries, Logger: logger},
		Rating:         RatingHandler{Commands: buses.Commands, Queries: buses.Queries, Logger: logger},
		Me:             MeHandler{Queries: buses.Queries, Logger: logger},
		AuthMiddleware: AuthMiddleware{Verifier: verifier, Logger: logger}.Handle,
	})
	return &api{t: t, router: router, store: store}
}

func (a *api) token(user string, roles ...domainuser.Role) string {
	a.t.Helper()
	tok, err := identity.Sign(testSecret, "", policies.Principal{UserID: user, Roles: roles}, time.Now(), time.Hour)
	require.NoError(a.t, err)
	return tok
}

func (a *api) do(method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func bookingBody(in, out string, guests int) map[string]any {
	return map[string]any{"property_id": "p1", "check_in": in, "check_out": out, "number_of_guests": guests}
}

func TestBookingFlowOverHTTP(t *testing.T) {
	a := newAPI(t)
	guest := a.token("guest")
	owner := a.token("owner", domainuser.RoleOwner)

	rec := a.do(http.MethodPost, "/api/v1/bookings", guest, bookingBody("2030-03-01", "2030-03-05", 2))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	booking := decode[dto.Booking](t, rec)
	assert.Equal(t, int64(40000), booking.TotalPrice.Amount)
	assert.Equal(t, "pending", booking.Status)

	rec = a.do(http.MethodPost, "/api/v1/bookings", a.token("guest2"), bookingBody("2030-03-04", "2030-03-06", 1))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(http.MethodPost, "/api/v1/bookings", a.token("guest2"), bookingBody("2030-03-05", "2030-03-07", 9))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodGet, "/api/v1/properties/p1/availability?check_in=2030-03-02&check_out=2030-03-03", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[dto.Availability](t, rec).Available)

	rec = a.do(http.MethodPost, "/api/v1/bookings/"+booking.ID+"/confirm", guest, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = a.do(http.MethodPost, "/api/v1/bookings/"+booking.ID+"/confirm", owner, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "confirmed", decode[dto.Booking](t, rec).Status)

	rec = a.do(http.MethodGet, "/api/v1/properties/p1/bookings", owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[dto.BookingCollection](t, rec).Items, 1)

	rec = a.do(http.MethodGet, "/api/v1/me/bookings", guest, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	mine := decode[dto.GuestBookingCollection](t, rec)
	require.Len(t, mine.Items, 1)
	assert.Equal(t, "Harbour loft", mine.Items[0].PropertyTitle)

	rec = a.do(http.MethodPost, "/api/v1/bookings/"+booking.ID+"/cancel", guest, map[string]string{"reason": "plans changed"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cancelled", decode[dto.Booking](t, rec).Status)

	rec = a.do(http.MethodPost, "/api/v1/bookings", a.token("guest2"), bookingBody("2030-03-04", "2030-03-06", 1))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestConversationOverHTTP(t *testing.T) {
	a := newAPI(t)
	guest := a.token("guest")
	owner := a.token("owner")

	rec := a.do(http.MethodPost, "/api/v1/bookings", guest, bookingBody("2030-04-01", "2030-04-03", 1))
	require.Equal(t, http.StatusCreated, rec.Code)
	convID := decode[dto.Booking](t, rec).Conversation.ID

	rec = a.do(http.MethodPost, "/api/v1/conversations/"+convID+"/messages", guest, map[string]string{"content": "Is parking available?"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	msg := decode[dto.Message](t, rec)
	assert.Equal(t, "owner", msg.To)

	rec = a.do(http.MethodGet, "/api/v1/conversations/"+convID, owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[dto.Conversation](t, rec).UnreadCount)

	rec = a.do(http.MethodPost, "/api/v1/conversations/"+convID+"/read", owner, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, decode[dto.Conversation](t, rec).UnreadCount)

	rec = a.do(http.MethodGet, "/api/v1/conversations/"+convID, a.token("guest2"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRatingsOverHTTP(t *testing.T) {
	a := newAPI(t)
	guest := a.token("guest")

	rec := a.do(http.MethodPost, "/api/v1/properties/p1/ratings", guest, map[string]any{"rating": 4, "review": "Lovely stay, quiet street"}, "Idempotency-Key", "r-1")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decode[dto.Rating](t, rec)

	rec = a.do(http.MethodPost, "/api/v1/properties/p1/ratings", guest, map[string]any{"rating": 4, "review": "Lovely stay, quiet street"}, "Idempotency-Key", "r-1")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, first.ID, decode[dto.Rating](t, rec).ID)

	rec = a.do(http.MethodPost, "/api/v1/properties/p1/ratings", guest, map[string]any{"rating": 5, "review": "Second thoughts, even better"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(http.MethodPost, "/api/v1/properties/p1/ratings", a.token("guest2"), map[string]any{"rating": 2, "review": "Noisy at night, thin walls"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = a.do(http.MethodGet, "/api/v1/properties/p1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	prop := decode[dto.Property](t, rec)
	assert.Equal(t, 3.0, prop.AvgRating)
	assert.Equal(t, 2, prop.TotalRatings)

	rec = a.do(http.MethodPost, "/api/v1/ratings/"+first.ID+"/helpful", guest, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = a.do(http.MethodPost, "/api/v1/ratings/"+first.ID+"/helpful", a.token("guest2"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[dto.HelpfulToggle](t, rec).Helpful)

	rec = a.do(http.MethodDelete, "/api/v1/ratings/"+first.ID, guest, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2.0, decode[dto.Property](t, rec).AvgRating)

	rec = a.do(http.MethodGet, "/api/v1/properties/p1/ratings?limit=10", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[dto.RatingCollection](t, rec).Items, 1)
}

func TestAuthenticationAndRoles(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodPost, "/api/v1/bookings", "", bookingBody("2030-05-01", "2030-05-02", 1))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(http.MethodGet, "/api/v1/properties/p1", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(http.MethodPost, "/api/v1/bookings", a.token("guest"), bookingBody("2030-05-01", "2030-05-02", 1))
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[dto.Booking](t, rec).ID

	rec = a.do(http.MethodDelete, "/api/v1/bookings/"+id, a.token("guest"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = a.do(http.MethodDelete, "/api/v1/bookings/"+id, a.token("admin", domainuser.RoleAdmin), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = a.do(http.MethodGet, "/api/v1/bookings/"+id, a.token("guest"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestValidationOverHTTP(t *testing.T) {
	a := newAPI(t)
	guest := a.token("guest")

	rec := a.do(http.MethodPost, "/api/v1/bookings", guest, bookingBody("03/01/2030", "2030-03-05", 1))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPost, "/api/v1/bookings", guest, bookingBody("2030-03-05", "2030-03-01", 1))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodGet, "/api/v1/properties/p1/availability?check_in=2030-03-01", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodGet, "/api/v1/properties/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(http.MethodPut, "/api/v1/properties/p1/availability", a.token("owner"), map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(http.MethodPut, "/api/v1/properties/p1/availability", a.token("owner"), map[string]any{"available": false})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = a.do(http.MethodPost, "/api/v1/bookings", guest, bookingBody("2030-06-01", "2030-06-02", 1))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	a := newAPI(t)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/livez", "", nil).Code)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/readyz", "", nil).Code)
}
