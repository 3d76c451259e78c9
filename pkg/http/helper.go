package http

import (
	"net/http"
	"strings"
	"time"

	apperrors "roombook/pkg/errors"
	"roombook/pkg/model"
)

const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// ExtractDate reads a required YYYY-MM-DD query parameter.
func ExtractDate(r *http.Request, name string) (string, error) {
	s := strings.TrimSpace(r.URL.Query().Get(name))
	if s == "" {
		return "", apperrors.InvalidInput(name + " query parameter is required")
	}
	if _, err := time.Parse(model.DateLayout, s); err != nil {
		return "", apperrors.InvalidInput("invalid " + name + " parameter: " + s)
	}
	return s, nil
}

// ExtractOrder reads the optional "order" query parameter, defaulting to asc.
func ExtractOrder(r *http.Request) (string, error) {
	s := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("order")))
	switch s {
	case "", OrderAsc:
		return OrderAsc, nil
	case OrderDesc:
		return OrderDesc, nil
	}
	return "", apperrors.InvalidInput("invalid order parameter: " + s)
}
