package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/class-booking-backend/internal/auth"
	"github.com/nekogravitycat/class-booking-backend/internal/booking"
	bookingHttp "github.com/nekogravitycat/class-booking-backend/internal/booking/http"
	"github.com/nekogravitycat/class-booking-backend/internal/class"
	classHttp "github.com/nekogravitycat/class-booking-backend/internal/class/http"
	"github.com/nekogravitycat/class-booking-backend/internal/pkg/response"
	"github.com/nekogravitycat/class-booking-backend/internal/user"
	userHttp "github.com/nekogravitycat/class-booking-backend/internal/user/http"
)

// overviewBookingLimit caps the bookings embedded in the overview; the full
// history is paged through GET /v1/bookings.
const overviewBookingLimit = 100

// OverviewResponse is everything a dashboard needs in one call, scoped by
// the caller's role.
type OverviewResponse struct {
	Classes  []classHttp.ClassResponse     `json:"classes"`
	Bookings []bookingHttp.BookingResponse `json:"bookings"`
	Users    []userHttp.UserResponse       `json:"users"`
}

type OverviewHandler struct {
	classes  class.Service
	bookings booking.Service
	users    user.Service
}

func NewOverviewHandler(classes class.Service, bookings booking.Service, users user.Service) *OverviewHandler {
	return &OverviewHandler{classes: classes, bookings: bookings, users: users}
}

// Get returns classes with confirmed counts for everyone. Authenticated
// callers also get their bookings (admins: all bookings and users).
func (h *OverviewHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	p := auth.GetPrincipal(c)

	summaries, err := h.classes.List(ctx)
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := OverviewResponse{
		Classes:  make([]classHttp.ClassResponse, len(summaries)),
		Bookings: []bookingHttp.BookingResponse{},
		Users:    []userHttp.UserResponse{},
	}
	for i, s := range summaries {
		resp.Classes[i] = classHttp.NewSummaryResponse(s)
	}

	if p == nil {
		c.JSON(http.StatusOK, resp)
		return
	}

	bookings, _, err := h.bookings.List(ctx, p, booking.Filter{Page: 1, PageSize: overviewBookingLimit})
	if err != nil {
		response.Error(c, err)
		return
	}
	for _, b := range bookings {
		resp.Bookings = append(resp.Bookings, bookingHttp.NewBookingResponse(b))
	}

	users, err := h.users.Visible(ctx, p)
	if err != nil {
		response.Error(c, err)
		return
	}
	for _, u := range users {
		resp.Users = append(resp.Users, userHttp.NewUserResponse(u))
	}

	c.JSON(http.StatusOK, resp)
}
