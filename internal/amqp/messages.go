package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidMessage is returned for bodies that cannot be decoded into a message.
var ErrInvalidMessage = errors.New("invalid message")

// ReportRequest asks a worker to compute one report.
type ReportRequest struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Date      string    `json:"date,omitempty"`
	Month     string    `json:"month,omitempty"`
	Limit     int       `json:"limit,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	// ReplyTo names a private reply queue; empty routes the result to the
	// shared result queue. Carried in the AMQP reply-to property.
	ReplyTo string `json:"-"`
}

// NewReportRequest creates a request with a fresh id.
func NewReportRequest(kind, date, month string, limit int) *ReportRequest {
	return &ReportRequest{
		ID:        uuid.NewString(),
		Kind:      kind,
		Date:      date,
		Month:     month,
		Limit:     limit,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ReportRequest) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReportRequestFromJSON decodes a request. The id and kind are mandatory.
func ReportRequestFromJSON(data []byte) (*ReportRequest, error) {
	var msg ReportRequest
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if msg.ID == "" || msg.Kind == "" {
		return nil, fmt.Errorf("%w: id and kind are required", ErrInvalidMessage)
	}
	return &msg, nil
}

// ReportResult carries a computed report, or the reason it was rejected.
type ReportResult struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	OK        bool            `json:"ok"`
	Error     string          `json:"error,omitempty"`
	Body      json.RawMessage `json:"body,omitempty"`
	Timestamp time.Time       `json:"timestamp"`

	ReplyTo string `json:"-"`
}

// NewReportResult answers req with either body or err.
func NewReportResult(req *ReportRequest, body string, err error) *ReportResult {
	res := &ReportResult{
		ID:        req.ID,
		Kind:      req.Kind,
		OK:        err == nil,
		Timestamp: time.Now(),
		ReplyTo:   req.ReplyTo,
	}
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Body = json.RawMessage(body)
	return res
}

// ToJSON converts the message to JSON bytes
func (m *ReportResult) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReportResultFromJSON decodes a result.
func ReportResultFromJSON(data []byte) (*ReportResult, error) {
	var msg ReportResult
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if msg.ID == "" {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidMessage)
	}
	return &msg, nil
}
