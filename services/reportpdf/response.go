package reportpdf

import (
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/nicholaszhao/uptime-report-pdf/services/reportpdf/render"
)

// DebugPayload is the JSON status body returned in debug mode
type DebugPayload struct {
	SrcBucket   string           `json:"src_bucket"`
	DestBucket  string           `json:"dest_bucket"`
	Prefix      string           `json:"prefix"`
	HTMLKey     string           `json:"html_key"`
	DestHTMLKey string           `json:"dest_html_key"`
	DestPDFKey  string           `json:"dest_pdf_key"`
	PDFUploaded bool             `json:"pdf_uploaded"`
	PDFError    *string          `json:"pdf_error"`
	Renderer    string           `json:"renderer,omitempty"`
	Attempts    []render.Attempt `json:"attempts,omitempty"`
	Error       string           `json:"error,omitempty"`
}

// NewDebugPayload builds the status payload for a run
func NewDebugPayload(res *Result) DebugPayload {
	p := DebugPayload{
		SrcBucket:   res.SrcBucket,
		DestBucket:  res.DestBucket,
		Prefix:      res.Keys.SourcePrefix,
		HTMLKey:     res.SourceKey,
		DestHTMLKey: res.Keys.DestHTMLKey,
		DestPDFKey:  res.Keys.DestPDFKey,
		PDFUploaded: res.PDFUploaded,
		Renderer:    res.Renderer,
		Attempts:    res.Attempts,
	}
	if res.PDFError != "" {
		msg := res.PDFError
		p.PDFError = &msg
	}
	return p
}

// Respond shapes the outcome of Generate into an API Gateway proxy response.
// Debug requests get the JSON status payload, others get the HTML itself.
// A render failure in debug mode still returns the payload, with status 500.
func Respond(res *Result, err error, debug bool) events.APIGatewayProxyResponse {
	if err != nil {
		if debug && res != nil && IsRenderError(err) {
			p := NewDebugPayload(res)
			p.Error = err.Error()
			return jsonResponse(http.StatusInternalServerError, p)
		}
		return ErrorResponse(StatusCode(err), PublicMessage(err))
	}

	if debug {
		return jsonResponse(http.StatusOK, NewDebugPayload(res))
	}

	return events.APIGatewayProxyResponse{
		StatusCode: http.StatusOK,
		Headers: map[string]string{
			"Content-Type":  htmlContentType,
			"Cache-Control": "no-store",
		},
		Body: res.HTML,
	}
}

// ErrorResponse returns {"error": message} with the given status
func ErrorResponse(status int, message string) events.APIGatewayProxyResponse {
	return jsonResponse(status, map[string]string{"error": message})
}

func jsonResponse(status int, v any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"` + internalErrorMessage + `"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}
