package googleads

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"feed-price-qa/models"
)

// errorEnvelope is the google.rpc.Status body returned on non-2xx responses.
type errorEnvelope struct {
	Error struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Status  string          `json:"status"`
		Details []failureDetail `json:"details"`
	} `json:"error"`
}

type failureDetail struct {
	Type      string         `json:"@type"`
	Errors    []failureError `json:"errors"`
	RequestID string         `json:"requestId"`
}

type failureError struct {
	ErrorCode map[string]string `json:"errorCode"`
	Message   string            `json:"message"`
	Location  *struct {
		FieldPathElements []struct {
			FieldName string `json:"fieldName"`
		} `json:"fieldPathElements"`
	} `json:"location"`
}

// decodeFailure turns an error response into an UpstreamQueryError. Bodies
// that are not a Google API error still produce one with the raw text.
func decodeFailure(statusCode int, body []byte) *models.UpstreamQueryError {
	qerr := &models.UpstreamQueryError{
		StatusCode: statusCode,
		Status:     http.StatusText(statusCode),
	}

	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.Error.Code == 0 {
		qerr.Message = strings.TrimSpace(string(body))
		return qerr
	}

	qerr.Message = env.Error.Message
	if env.Error.Status != "" {
		qerr.Status = env.Error.Status
	}

	for _, d := range env.Error.Details {
		if !strings.HasSuffix(d.Type, "GoogleAdsFailure") {
			continue
		}
		if d.RequestID != "" {
			qerr.RequestID = d.RequestID
		}
		for _, e := range d.Errors {
			f := models.QueryFailure{Message: e.Message, Codes: map[string]string{}}
			if e.Location != nil {
				for _, el := range e.Location.FieldPathElements {
					f.FieldPath = append(f.FieldPath, el.FieldName)
				}
			}
			for kind, code := range e.ErrorCode {
				if code == "" || code == "UNSPECIFIED" {
					continue
				}
				f.Codes[kind] = code
			}
			qerr.Failures = append(qerr.Failures, f)
		}
	}
	return qerr
}

// Diagnostics renders one line per failure, field and error code, in the
// shape operators read on stderr.
func Diagnostics(qerr *models.UpstreamQueryError) []string {
	var lines []string
	if len(qerr.Failures) == 0 {
		lines = append(lines, "Error with message: "+qerr.Error())
	}
	for _, f := range qerr.Failures {
		lines = append(lines, "Error with message: "+f.Message)
		for _, field := range f.FieldPath {
			lines = append(lines, "\tOn field: "+field)
		}
		kinds := make([]string, 0, len(f.Codes))
		for kind := range f.Codes {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			lines = append(lines, "\tType: "+kind, "\tCode: "+f.Codes[kind])
		}
	}
	if qerr.RequestID != "" {
		lines = append(lines, "\tRequest-Id: "+qerr.RequestID)
	}
	return lines
}
