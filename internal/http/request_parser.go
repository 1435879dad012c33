// This file turns query strings into report requests.

package http

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"kopilka/internal/core"
	"kopilka/internal/services"
)

// Query parameter names.
const (
	ParamDate  = "date"
	ParamMonth = "month"
	ParamLimit = "limit"
)

// ParseReportRequest builds the request for kind from query parameters.
// Values are trimmed and control characters dropped; format validation is
// left to the report itself so every transport reports the same errors.
func ParseReportRequest(kind services.Kind, query url.Values) (services.Request, error) {
	req := services.Request{
		Kind:  kind,
		Date:  sanitizeInput(query.Get(ParamDate)),
		Month: sanitizeInput(query.Get(ParamMonth)),
	}
	if kind == services.KindInvest {
		limit, err := parseLimit(query.Get(ParamLimit))
		if err != nil {
			return services.Request{}, err
		}
		req.Limit = limit
	}
	return req, nil
}

func parseLimit(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%w: limit is required", core.ErrInvalidLimit)
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", core.ErrInvalidLimit, raw)
	}
	return n, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 {
			return -1
		}
		return r
	}, s)
}
