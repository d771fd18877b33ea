package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/palmcove/resortd/internal/demo"
	"github.com/palmcove/resortd/internal/model"
	"github.com/palmcove/resortd/internal/query"
	"github.com/palmcove/resortd/internal/service"
	"github.com/palmcove/resortd/internal/store"
)

// PublicHandler serves the catalog pages that need no sign-in. When fallback
// is enabled, read failures are answered with the demo catalog and flagged in
// the response meta.
type PublicHandler struct {
	store    *store.Store
	bookings *service.BookingService
	fallback bool
	logger   *slog.Logger
}

// NewPublicHandler creates a new PublicHandler.
func NewPublicHandler(st *store.Store, bookings *service.BookingService, fallback bool, logger *slog.Logger) *PublicHandler {
	return &PublicHandler{store: st, bookings: bookings, fallback: fallback, logger: logger}
}

// writeFallback answers a failed catalog read with demo data, or with a
// generic error when fallback is disabled.
func (h *PublicHandler) writeFallback(w http.ResponseWriter, r *http.Request, op string, err error, data interface{}, count int) {
	if !h.fallback {
		writeServiceError(w, r, h.logger, op, err)
		return
	}
	h.logger.Warn(op+" failed, serving demo data", "error", err)
	writeJSON(w, http.StatusOK, model.Response{
		Success: true,
		Data:    data,
		Meta:    &model.ResponseMeta{Count: count, Total: int64(count), Fallback: true},
	})
}

// ListRooms returns rooms that are not under maintenance.
// GET /api/v1/rooms?type=&min_capacity=&order=&limit=&offset=
func (h *PublicHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	f := store.RoomFilter{
		RoomType:        strings.TrimSpace(r.URL.Query().Get("type")),
		MinCapacity:     queryInt(r, "min_capacity", 0),
		HideMaintenance: true,
		Order:           r.URL.Query().Get("order"),
		Page:            query.ParsePage(r.URL.Query()),
	}
	rooms, total, err := h.store.ListRooms(r.Context(), f)
	if err != nil {
		if errors.Is(err, store.ErrInvalidFilter) {
			writeServiceError(w, r, h.logger, "list rooms", err)
			return
		}
		demoRooms := filterDemoRooms(f)
		h.writeFallback(w, r, "list rooms", err, demoRooms, len(demoRooms))
		return
	}
	writeList(w, rooms, len(rooms), total, f.Page)
}

func filterDemoRooms(f store.RoomFilter) []model.Room {
	out := []model.Room{}
	for _, room := range demo.Rooms() {
		if f.RoomType != "" && room.RoomType != f.RoomType {
			continue
		}
		if room.Capacity < f.MinCapacity || room.Status == model.RoomMaintenance {
			continue
		}
		out = append(out, room)
	}
	return out
}

// GetRoom returns one room.
// GET /api/v1/rooms/{id}
func (h *PublicHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, model.CodeValidation, err.Error())
		return
	}
	room, err := h.store.GetRoom(r.Context(), id)
	if err != nil {
		if h.fallback && !isNotFound(err) {
			for _, d := range demo.Rooms() {
				if d.ID == id {
					h.writeFallback(w, r, "get room", err, d, 1)
					return
				}
			}
		}
		writeServiceError(w, r, h.logger, "get room", err)
		return
	}
	writeData(w, http.StatusOK, room)
}

// Availability lists rooms free for the whole stay.
// GET /api/v1/availability?check_in=YYYY-MM-DD&check_out=YYYY-MM-DD&guests=N
func (h *PublicHandler) Availability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	checkIn, err := parseDate("check_in", q.Get("check_in"))
	if err != nil {
		writeServiceError(w, r, h.logger, "availability", err)
		return
	}
	checkOut, err := parseDate("check_out", q.Get("check_out"))
	if err != nil {
		writeServiceError(w, r, h.logger, "availability", err)
		return
	}
	rooms, err := h.bookings.Availability(r.Context(), checkIn, checkOut, queryInt(r, "guests", 1))
	if err != nil {
		writeServiceError(w, r, h.logger, "availability", err)
		return
	}
	writeJSON(w, http.StatusOK, model.Response{
		Success: true,
		Data:    rooms,
		Meta:    &model.ResponseMeta{Count: len(rooms), Total: int64(len(rooms))},
	})
}

// ListAmenities returns active amenities.
// GET /api/v1/amenities
func (h *PublicHandler) ListAmenities(w http.ResponseWriter, r *http.Request) {
	amenities, err := h.store.ListAmenities(r.Context(), true)
	if err != nil {
		d := demo.Amenities()
		h.writeFallback(w, r, "list amenities", err, d, len(d))
		return
	}
	writeJSON(w, http.StatusOK, model.Response{
		Success: true,
		Data:    amenities,
		Meta:    &model.ResponseMeta{Count: len(amenities), Total: int64(len(amenities))},
	})
}

// ListServices returns active bookable extras.
// GET /api/v1/services
func (h *PublicHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.store.ListServices(r.Context(), true)
	if err != nil {
		d := demo.Services()
		h.writeFallback(w, r, "list services", err, d, len(d))
		return
	}
	writeJSON(w, http.StatusOK, model.Response{
		Success: true,
		Data:    services,
		Meta:    &model.ResponseMeta{Count: len(services), Total: int64(len(services))},
	})
}
