package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/nimashkithmal/NKmoviehub-sub000/internal/validation"
)

// Response is the envelope every endpoint replies with.
type Response struct {
	Success    bool                    `json:"success"`
	Message    string                  `json:"message,omitempty"`
	Data       interface{}             `json:"data,omitempty"`
	Errors     []validation.FieldError `json:"errors,omitempty"`
	Pagination *Pagination             `json:"pagination,omitempty"`
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

func WriteJSON(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func OK(w http.ResponseWriter, status int, message string, data interface{}) {
	WriteJSON(w, status, Response{Success: true, Message: message, Data: data})
}

// List writes one page of results with pagination metadata and the
// X-Total-Count header.
func List(w http.ResponseWriter, data interface{}, p Page, total int) {
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	pages := (total + p.Limit - 1) / p.Limit
	WriteJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    data,
		Pagination: &Pagination{
			Page:       p.Page,
			Limit:      p.Limit,
			Total:      total,
			TotalPages: pages,
		},
	})
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Response{Success: false, Message: message})
}

func WriteValidation(w http.ResponseWriter, errs validation.Errors) {
	WriteJSON(w, http.StatusBadRequest, Response{
		Success: false,
		Message: "validation failed",
		Errors:  errs,
	})
}

const maxBodyBytes = 16 << 20

var ErrEmptyBody = errors.New("request body is empty")

// ReadJSON decodes the request body into dst. Unknown fields are ignored so
// clients may send back whole objects; trailing data is rejected.
func ReadJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return ErrEmptyBody
		case errors.As(err, &syntaxErr):
			return fmt.Errorf("malformed JSON at position %d", syntaxErr.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("malformed JSON")
		case errors.As(err, &typeErr):
			if typeErr.Field != "" {
				return fmt.Errorf("invalid type for field %q", typeErr.Field)
			}
			return fmt.Errorf("invalid JSON type at position %d", typeErr.Offset)
		case errors.As(err, &maxErr):
			return fmt.Errorf("request body must not exceed %d bytes", maxErr.Limit)
		}
		return err
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON value")
	}
	return nil
}
