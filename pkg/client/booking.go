package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"roombook/pkg/model"
)

// BookingClient talks to the bookings HTTP API.
type BookingClient struct {
	httpClient *HttpClient
}

func NewBookingClient(baseURL, token string) *BookingClient {
	c := NewHttpClient(baseURL)
	c.Token = token
	return &BookingClient{httpClient: c}
}

// UserBookings mirrors the /bookings/mine payload.
type UserBookings struct {
	Upcoming []*model.Booking `json:"upcoming"`
	Past     []*model.Booking `json:"past"`
}

// Create books a room. A non-empty idempotencyKey makes retries safe.
func (c *BookingClient) Create(ctx context.Context, req *model.BookingRequest, idempotencyKey string) (*model.Booking, error) {
	headers := map[string]string{}
	if idempotencyKey != "" {
		headers["Idempotency-Key"] = idempotencyKey
	}
	resp, err := c.httpClient.POSTWithHeaders(ctx, "/api/v1/bookings", req, headers)
	if err != nil {
		return nil, err
	}
	var booking model.Booking
	if err := decodeData(resp, http.StatusCreated, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (c *BookingClient) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	resp, err := c.httpClient.GET(ctx, "/api/v1/bookings/id/"+url.PathEscape(id))
	if err != nil {
		return nil, err
	}
	var booking model.Booking
	if err := decodeData(resp, http.StatusOK, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (c *BookingClient) Cancel(ctx context.Context, id, reason string) (*model.Booking, error) {
	path := "/api/v1/bookings/id/" + url.PathEscape(id) + "/cancel"
	resp, err := c.httpClient.POST(ctx, path, model.CancelRequest{Reason: reason})
	if err != nil {
		return nil, err
	}
	var booking model.Booking
	if err := decodeData(resp, http.StatusOK, &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (c *BookingClient) AuditTrail(ctx context.Context, id, order string) ([]*model.AuditEntry, error) {
	path := "/api/v1/bookings/id/" + url.PathEscape(id) + "/audit"
	if order != "" {
		path += "?order=" + url.QueryEscape(order)
	}
	resp, err := c.httpClient.GET(ctx, path)
	if err != nil {
		return nil, err
	}
	var entries []*model.AuditEntry
	if err := decodeData(resp, http.StatusOK, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Mine lists the caller's bookings, or userID's when the caller is an admin.
func (c *BookingClient) Mine(ctx context.Context, userID string) (*UserBookings, error) {
	path := "/api/v1/bookings/mine"
	if userID != "" {
		path += "?user_id=" + url.QueryEscape(userID)
	}
	resp, err := c.httpClient.GET(ctx, path)
	if err != nil {
		return nil, err
	}
	var out UserBookings
	if err := decodeData(resp, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *BookingClient) Rooms(ctx context.Context) ([]*model.Room, error) {
	resp, err := c.httpClient.GET(ctx, "/api/v1/rooms")
	if err != nil {
		return nil, err
	}
	var rooms []*model.Room
	if err := decodeData(resp, http.StatusOK, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

func (c *BookingClient) OccupiedSlots(ctx context.Context, roomID, date string) ([]*model.Booking, error) {
	path := "/api/v1/rooms/" + url.PathEscape(roomID) + "/slots?date=" + url.QueryEscape(date)
	resp, err := c.httpClient.GET(ctx, path)
	if err != nil {
		return nil, err
	}
	var slots []*model.Booking
	if err := decodeData(resp, http.StatusOK, &slots); err != nil {
		return nil, err
	}
	return slots, nil
}

func decodeData(resp *Response, want int, dst any) error {
	if err := CheckStatus(resp, want); err != nil {
		return err
	}

	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(resp.Body, &wrapper); err != nil {
		return fmt.Errorf("could not decode response wrapper %s: %w", resp, err)
	}
	if err := json.Unmarshal(wrapper.Data, dst); err != nil {
		return fmt.Errorf("could not decode response data %s: %w", resp, err)
	}
	return nil
}
