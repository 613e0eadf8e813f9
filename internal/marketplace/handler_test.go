package marketplace

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/staybook/internal/httpx"
	"github.com/sudo-init-do/staybook/internal/store/memory"
)

func newTestServer(svc *Service, a Actor) *echo.Echo {
	e := echo.New()
	e.Validator = httpx.NewValidator()
	public := e.Group("")
	authed := e.Group("", func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("user_id", a.UserID)
			c.Set("role", a.Role)
			return next(c)
		}
	})
	NewHandler(svc).Register(public, authed)
	return e
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestBookingEndpoints(t *testing.T) {
	svc, l := newService(t)
	e := newTestServer(svc, guest)

	t.Run("create computes duration and price", func(t *testing.T) {
		rec := do(e, http.MethodPost, "/bookings",
			`{"listing_id":"`+l.ID+`","check_in_date":"2024-01-01","check_out_date":"2024-01-04","number_of_guests":2}`)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var got map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "pending", got["status"])
		assert.Equal(t, float64(3), got["duration_nights"])
		assert.Equal(t, "2024-01-01", got["check_in_date"])
		assert.Equal(t, "300", got["total_price"])
	})

	t.Run("capacity violation names the field", func(t *testing.T) {
		rec := do(e, http.MethodPost, "/bookings",
			`{"listing_id":"`+l.ID+`","check_in_date":"2024-01-01","check_out_date":"2024-01-04","number_of_guests":9}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var got map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "number_of_guests", got["field"])
		assert.Equal(t, "number of guests exceeds listing capacity", got["error"])
	})

	t.Run("date range violation", func(t *testing.T) {
		rec := do(e, http.MethodPost, "/bookings",
			`{"listing_id":"`+l.ID+`","check_in_date":"2024-01-04","check_out_date":"2024-01-04","number_of_guests":1}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "check_out_date")
	})

	t.Run("missing dates rejected at the boundary", func(t *testing.T) {
		rec := do(e, http.MethodPost, "/bookings", `{"listing_id":"`+l.ID+`","number_of_guests":1}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "check_in_date")
	})

	t.Run("malformed date", func(t *testing.T) {
		rec := do(e, http.MethodPost, "/bookings",
			`{"listing_id":"`+l.ID+`","check_in_date":"01/01/2024","check_out_date":"2024-01-04","number_of_guests":1}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown booking", func(t *testing.T) {
		rec := do(e, http.MethodGet, "/bookings/does-not-exist", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestListingEndpoints(t *testing.T) {
	svc := NewService(memory.New())
	hostSrv := newTestServer(svc, host)
	guestSrv := newTestServer(svc, guest)

	rec := do(guestSrv, http.MethodPost, "/listings",
		`{"title":"Hut","description":"Small","location":"Lalibela","price_per_night":"20.50","max_guests":2}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(hostSrv, http.MethodPost, "/listings",
		`{"title":"Hut","description":"Small","location":"Lalibela","price_per_night":"20.50","max_guests":0}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "max_guests")

	rec = do(hostSrv, http.MethodPost, "/listings",
		`{"title":"Hut","description":"Small","location":"Lalibela","price_per_night":"20.50","max_guests":2}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = do(guestSrv, http.MethodPost, "/reviews", `{"listing_id":"`+created.ID+`","rating":4,"comment":"cosy"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = do(guestSrv, http.MethodPost, "/reviews", `{"listing_id":"`+created.ID+`","rating":2}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(guestSrv, http.MethodGet, "/listings/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var detail struct {
		Title         string   `json:"title"`
		AverageRating *float64 `json:"average_rating"`
		Reviews       []any    `json:"reviews"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detail))
	assert.Equal(t, "Hut", detail.Title)
	require.NotNil(t, detail.AverageRating)
	assert.InDelta(t, 4.0, *detail.AverageRating, 1e-9)
	assert.Len(t, detail.Reviews, 1)

	rec = do(guestSrv, http.MethodGet, "/listings?location=lali&max_price=25", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = do(guestSrv, http.MethodGet, "/listings?min_price=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(guestSrv, http.MethodPatch, "/listings/"+created.ID, `{"title":"Mine now"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(hostSrv, http.MethodPatch, "/listings/"+created.ID, `{"available":false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"available":false`)
}
