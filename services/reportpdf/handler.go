package reportpdf

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog/log"
)

// Handler serves API Gateway and direct Lambda invocations
type Handler struct {
	svc *Service
}

// NewHandler creates a handler backed by svc
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Handle runs one report publication. Every failure, including a panic,
// is converted to a response; the returned error is always nil.
func (h *Handler) Handle(ctx context.Context, event Event) (resp events.APIGatewayProxyResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("panic", fmt.Sprint(r)).Msg("Unhandled panic in report handler")
			resp = ErrorResponse(http.StatusInternalServerError, internalErrorMessage)
			err = nil
		}
	}()

	month, _ := event.Param("month")
	year, _ := event.Param("year")
	debug := event.Debug()

	res, genErr := h.svc.Generate(ctx, Request{Month: month, Year: year})
	resp = Respond(res, genErr, debug)

	if genErr != nil {
		log.Error().
			Err(genErr).
			Int("status", resp.StatusCode).
			Str("month", month).
			Str("year", year).
			Bool("debug", debug).
			Msg("Report request failed")
	}
	return resp, nil
}
