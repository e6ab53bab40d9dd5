// Package handler adapts API Gateway proxy events to the chat service.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"travel-assistant/internal/conversation"
	"travel-assistant/internal/domain"
	"travel-assistant/internal/usecase"
)

type ChatService interface {
	Send(ctx context.Context, in usecase.SendInput) (usecase.SendOutput, error)
	Reset()
	State() conversation.State
	UpdatePreferences(p conversation.PreferencesPatch) error
	UpdateLocation(loc domain.GeoPoint) error
}

type Handler struct {
	service ChatService
}

type chatRequest struct {
	Message  string           `json:"message"`
	Location *locationRequest `json:"location,omitempty"`
}

type chatResponse struct {
	MessageID   string              `json:"messageId"`
	Answer      string              `json:"answer"`
	Intent      domain.IntentKind   `json:"intent"`
	Confidence  float64             `json:"confidence"`
	Degraded    bool                `json:"degraded,omitempty"`
	Markers     []domain.MapMarker  `json:"markers"`
	Destination *domain.Destination `json:"destination,omitempty"`
}

type locationRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

func NewHandler(service ChatService) (*Handler, error) {
	if service == nil {
		return nil, errors.New("handler: chat service must not be nil")
	}
	return &Handler{service: service}, nil
}

func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := correlationIDFrom(event.Headers)

	switch event.HTTPMethod + " " + event.Path {
	case http.MethodPost + " /chat":
		return h.chat(ctx, event, correlationID), nil
	case http.MethodPost + " /reset":
		h.service.Reset()
		return respond(http.StatusOK, h.service.State(), correlationID), nil
	case http.MethodGet + " /messages":
		return respond(http.StatusOK, h.service.State(), correlationID), nil
	case http.MethodPut + " /preferences":
		return h.preferences(event, correlationID), nil
	case http.MethodPut + " /location":
		return h.location(event, correlationID), nil
	default:
		return respondError(http.StatusNotFound, errorResponse{Error: "NOT_FOUND", Reason: "unknown_route"}, correlationID), nil
	}
}

func (h *Handler) chat(ctx context.Context, event events.APIGatewayProxyRequest, correlationID string) events.APIGatewayProxyResponse {
	var req chatRequest
	if err := json.Unmarshal([]byte(event.Body), &req); err != nil {
		return respondError(http.StatusBadRequest,
			errorResponse{Error: string(usecase.ErrorInvalidInput), Reason: "malformed_body"}, correlationID)
	}

	// A position sent with the message takes effect before the cycle.
	if req.Location != nil {
		if req.Location.Lat == nil || req.Location.Lng == nil {
			return respondError(http.StatusBadRequest,
				errorResponse{Error: string(usecase.ErrorInvalidInput), Reason: "malformed_body"}, correlationID)
		}
		if err := h.service.UpdateLocation(domain.GeoPoint{Lat: *req.Location.Lat, Lng: *req.Location.Lng}); err != nil {
			return errorFrom(err, correlationID)
		}
	}

	out, err := h.service.Send(ctx, usecase.SendInput{Text: req.Message})
	if err != nil {
		return errorFrom(err, correlationID)
	}

	state := h.service.State()
	return respond(http.StatusOK, chatResponse{
		MessageID:   out.MessageID,
		Answer:      out.Answer,
		Intent:      out.Intent,
		Confidence:  out.Confidence,
		Degraded:    out.Degraded,
		Markers:     state.Markers,
		Destination: state.Destination,
	}, correlationID)
}

func (h *Handler) preferences(event events.APIGatewayProxyRequest, correlationID string) events.APIGatewayProxyResponse {
	var patch conversation.PreferencesPatch
	if err := json.Unmarshal([]byte(event.Body), &patch); err != nil {
		return respondError(http.StatusBadRequest,
			errorResponse{Error: string(usecase.ErrorInvalidInput), Reason: "malformed_body"}, correlationID)
	}
	if err := h.service.UpdatePreferences(patch); err != nil {
		return errorFrom(err, correlationID)
	}
	return respond(http.StatusOK, h.service.State().Preferences, correlationID)
}

func (h *Handler) location(event events.APIGatewayProxyRequest, correlationID string) events.APIGatewayProxyResponse {
	var req locationRequest
	if err := json.Unmarshal([]byte(event.Body), &req); err != nil || req.Lat == nil || req.Lng == nil {
		return respondError(http.StatusBadRequest,
			errorResponse{Error: string(usecase.ErrorInvalidInput), Reason: "malformed_body"}, correlationID)
	}
	if err := h.service.UpdateLocation(domain.GeoPoint{Lat: *req.Lat, Lng: *req.Lng}); err != nil {
		return errorFrom(err, correlationID)
	}
	return respond(http.StatusOK, h.service.State().CurrentLocation, correlationID)
}

func errorFrom(err error, correlationID string) events.APIGatewayProxyResponse {
	var usecaseErr *usecase.Error
	if !errors.As(err, &usecaseErr) {
		slog.Error("unexpected handler error", "err", err, "correlation_id", correlationID)
		return respondError(http.StatusInternalServerError,
			errorResponse{Error: string(usecase.ErrorInternal)}, correlationID)
	}

	status := http.StatusInternalServerError
	switch usecaseErr.Code {
	case usecase.ErrorInvalidInput:
		status = http.StatusBadRequest
	case usecase.ErrorBusy:
		status = http.StatusConflict
	case usecase.ErrorRateLimited:
		status = http.StatusTooManyRequests
	case usecase.ErrorUpstream, usecase.ErrorGenerationEmpty:
		status = http.StatusBadGateway
	}
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "code", usecaseErr.Code, "reason", usecaseErr.Reason, "err", usecaseErr.Unwrap(), "correlation_id", correlationID)
	}
	return respondError(status, errorResponse{Error: string(usecaseErr.Code), Reason: usecaseErr.Reason}, correlationID)
}

func respond(status int, body any, correlationID string) events.APIGatewayProxyResponse {
	raw, err := json.Marshal(body)
	if err != nil {
		return respondError(http.StatusInternalServerError,
			errorResponse{Error: string(usecase.ErrorInternal)}, correlationID)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    responseHeaders(correlationID),
		Body:       string(raw),
	}
}

func respondError(status int, body errorResponse, correlationID string) events.APIGatewayProxyResponse {
	raw, _ := json.Marshal(body)
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    responseHeaders(correlationID),
		Body:       string(raw),
	}
}

func responseHeaders(correlationID string) map[string]string {
	return map[string]string{
		"Content-Type":     "application/json",
		"X-Correlation-Id": correlationID,
	}
}

func correlationIDFrom(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, "X-Correlation-Id") && v != "" {
			return v
		}
	}
	return uuid.NewString()
}
