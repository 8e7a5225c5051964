package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"llm-tutor/internal/domain"
	"llm-tutor/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

// TutorService is the part of usecase.Service the handler depends on.
type TutorService interface {
	Initialize(ctx context.Context) domain.Outcome
	Chat(ctx context.Context, text string) (domain.Outcome, error)
	Reset(ctx context.Context) (json.RawMessage, error)
}

type Handler struct {
	svc TutorService
}

func NewHandler(svc TutorService) (*Handler, error) {
	if svc == nil {
		return nil, errors.New("handler: service must not be nil")
	}
	return &Handler{svc: svc}, nil
}

func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := headerValue(req.Headers, correlationHeader)
	if corrID == "" {
		corrID = uuid.NewString()
	}
	ctx = usecase.WithCorrelationID(ctx, corrID)

	method := strings.ToUpper(req.HTTPMethod)
	path := strings.TrimRight(req.Path, "/")

	switch {
	case method == http.MethodGet && path == "/api/initialization":
		return outcomeResponse(h.svc.Initialize(ctx), corrID), nil

	case method == http.MethodPost && path == "/api/chat":
		body, err := requestBody(req)
		if err != nil {
			return errorResponseFor(usecase.NewError(usecase.ErrorInvalidInput, "invalid_body", err), corrID), nil
		}
		var in usecase.ChatRequest
		if err := json.Unmarshal(body, &in); err != nil {
			return errorResponseFor(usecase.NewError(usecase.ErrorInvalidInput, "invalid_body", err), corrID), nil
		}
		out, err := h.svc.Chat(ctx, in.Content())
		if err != nil {
			return errorResponseFor(err, corrID), nil
		}
		return outcomeResponse(out, corrID), nil

	case method == http.MethodPost && path == "/api/reset":
		reply, err := h.svc.Reset(ctx)
		if err != nil {
			return errorResponseFor(err, corrID), nil
		}
		return response(http.StatusOK, reply, corrID), nil

	default:
		return errorResponseFor(usecase.NewError(usecase.ErrorNotFound, "route_not_found", nil), corrID), nil
	}
}

func requestBody(req events.APIGatewayProxyRequest) ([]byte, error) {
	if req.IsBase64Encoded {
		return base64.StdEncoding.DecodeString(req.Body)
	}
	return []byte(req.Body), nil
}

func outcomeResponse(o domain.Outcome, corrID string) events.APIGatewayProxyResponse {
	body, err := o.Body()
	if err != nil {
		return errorResponseFor(err, corrID)
	}
	return response(o.StatusCode(), body, corrID)
}

func errorResponseFor(err error, corrID string) events.APIGatewayProxyResponse {
	status, ue := usecase.Classify(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "code", ue.Code, "reason", ue.Reason, "err", err, "correlation_id", corrID)
	}
	body, _ := json.Marshal(ue.Body())
	return response(status, body, corrID)
}

func response(status int, body []byte, corrID string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: corrID,
		},
		Body: string(body),
	}
}

func headerValue(headers map[string]string, key string) string {
	for k, v := range headers {
		if strings.EqualFold(k, key) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
