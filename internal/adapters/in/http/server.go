// Package http is the relay's HTTP surface: event publishing for the REST
// system of record, room introspection and order resync.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/labstack/echo/v4"
	"github.com/oapi-codegen/runtime"
	echoSwagger "github.com/swaggo/echo-swagger"

	"relay/internal/core/application/router"
	"relay/internal/core/application/usecases/queries"
	"relay/internal/core/domain/model/event"
	"relay/internal/core/domain/model/kernel"
	"relay/internal/hub"
	"relay/internal/pkg/errs"
)

const (
	eventsPath   = "/api/v1/events"
	roomsPath    = "/api/v1/rooms"
	orderPath    = "/api/v1/orders/{orderId}"
	maxBodyBytes = 64 << 10
)

// Error is the body of every non-2xx JSON response. Reason carries the router's
// error code when the failure came from routing.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

// EventRouter routes events published over HTTP.
type EventRouter interface {
	Route(ctx context.Context, from router.Sender, in event.Inbound) error
}

// RoomLister reports live rooms.
type RoomLister interface {
	Stats() []hub.RoomStat
}

// Server implements the relay's HTTP handlers.
type Server struct {
	router          EventRouter
	rooms           RoomLister
	getOrderHandler queries.GetOrderQueryHandler

	eventSchema   *openapi3.Schema
	orderIDSchema *openapi3.Schema
}

// NewServer creates the HTTP server. Request bodies and path parameters are
// validated against the embedded OpenAPI document.
func NewServer(
	eventRouter EventRouter,
	rooms RoomLister,
	getOrderHandler queries.GetOrderQueryHandler,
) (*Server, error) {
	doc, err := loadAPI()
	if err != nil {
		return nil, err
	}
	eventSchema, err := requestBodySchema(doc, eventsPath, http.MethodPost)
	if err != nil {
		return nil, err
	}
	orderIDSchema, err := pathParamSchema(doc, orderPath, http.MethodGet, "orderId")
	if err != nil {
		return nil, err
	}

	return &Server{
		router:          eventRouter,
		rooms:           rooms,
		getOrderHandler: getOrderHandler,
		eventSchema:     eventSchema,
		orderIDSchema:   orderIDSchema,
	}, nil
}

// Register mounts the API routes, the websocket endpoint, the metrics endpoint
// and the swagger UI on e.
func (s *Server) Register(e *echo.Echo, ws http.Handler, metrics http.Handler) {
	e.GET("/health", s.GetHealth)
	e.GET("/ws", echo.WrapHandler(ws))
	e.GET("/metrics", echo.WrapHandler(metrics))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	e.POST(eventsPath, s.PublishEvent)
	e.GET(roomsPath, s.GetRooms)
	e.GET("/api/v1/orders/:orderId", s.GetOrder)
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Healthy")
}

// PublishEvent handles POST /api/v1/events - routes an event as the system role.
func (s *Server) PublishEvent(ctx echo.Context) error {
	raw, err := io.ReadAll(io.LimitReader(ctx.Request().Body, maxBodyBytes))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, Error{
			Code:    http.StatusBadRequest,
			Message: "Failed to read request body",
		})
	}

	var body any
	if err = json.Unmarshal(raw, &body); err != nil {
		return ctx.JSON(http.StatusBadRequest, Error{
			Code:    http.StatusBadRequest,
			Message: "Invalid request body",
			Reason:  router.CodeMalformedEvent,
		})
	}
	if err = s.eventSchema.VisitJSON(body); err != nil {
		return ctx.JSON(http.StatusBadRequest, Error{
			Code:    http.StatusBadRequest,
			Message: "Invalid event: " + err.Error(),
			Reason:  router.CodeMalformedEvent,
		})
	}

	var in event.Inbound
	if err = json.Unmarshal(raw, &in); err != nil {
		return ctx.JSON(http.StatusBadRequest, Error{
			Code:    http.StatusBadRequest,
			Message: "Invalid event: " + err.Error(),
			Reason:  router.CodeMalformedEvent,
		})
	}

	if err = s.router.Route(ctx.Request().Context(), router.System(), in); err != nil {
		code := router.Code(err)
		status := routingStatus(code)
		return ctx.JSON(status, Error{
			Code:    status,
			Message: err.Error(),
			Reason:  code,
		})
	}

	return ctx.NoContent(http.StatusAccepted)
}

// GetRooms handles GET /api/v1/rooms - lists live rooms and their member counts.
func (s *Server) GetRooms(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, s.rooms.Stats())
}

// GetOrder handles GET /api/v1/orders/:orderId - returns the cached order
// snapshot with the last known driver position.
func (s *Server) GetOrder(ctx echo.Context) error {
	var rawID string
	err := runtime.BindStyledParameterWithOptions("simple", "orderId", ctx.Param("orderId"), &rawID,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err == nil {
		err = s.orderIDSchema.VisitJSON(rawID)
	}
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, Error{
			Code:    http.StatusBadRequest,
			Message: "Invalid orderId: " + err.Error(),
		})
	}

	orderID, err := kernel.NewEntityID("orderId", rawID)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, Error{
			Code:    http.StatusBadRequest,
			Message: "Invalid orderId: " + err.Error(),
		})
	}

	query, err := queries.NewGetOrderQuery(orderID)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, Error{
			Code:    http.StatusBadRequest,
			Message: "Invalid orderId: " + err.Error(),
		})
	}

	resp, err := s.getOrderHandler.Handle(ctx.Request().Context(), query)
	if errors.Is(err, errs.ErrObjectNotFound) {
		return ctx.JSON(http.StatusNotFound, Error{
			Code:    http.StatusNotFound,
			Message: "Order not found",
			Reason:  router.CodeNotFound,
		})
	}
	if err != nil {
		return ctx.JSON(http.StatusInternalServerError, Error{
			Code:    http.StatusInternalServerError,
			Message: "Failed to retrieve order",
		})
	}

	return ctx.JSON(http.StatusOK, resp)
}

func routingStatus(code string) int {
	switch code {
	case router.CodeMalformedEvent, router.CodeRoleNotAllowed, router.CodeUnauthorized:
		return http.StatusBadRequest
	case router.CodeInvalidTransition:
		return http.StatusConflict
	case router.CodeNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
