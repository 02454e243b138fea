package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"

	"github.com/webpiratt/swapd/internal/tasks"
	"github.com/webpiratt/swapd/internal/types"
	"github.com/webpiratt/swapd/storage"
)

func (s *Server) Ping(c echo.Context) error {
	return c.String(http.StatusOK, "Swap monitor server is running")
}

// errorResponse folds the error taxonomy onto HTTP statuses.
func errorResponse(c echo.Context, err error) error {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return err
	}
	var v *types.ValidationError
	if errors.As(err, &v) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": v.Reason})
	}
	var nf *types.NotFoundError
	if errors.As(err, &nf) || errors.Is(err, storage.ErrNotFound) {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
	}
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func (s *Server) CreateSwap(c echo.Context) error {
	var req types.CreateSwapRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("fail to parse request, err: %w", err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	result, err := s.orderService.CreateSwap(c.Request().Context(), req)
	if err != nil {
		s.logger.WithError(err).Error("create swap failed")
		return errorResponse(c, err)
	}
	s.scheduleReconcile(c.Request().Context(), result.ProviderOrderID)
	return c.JSON(http.StatusOK, result)
}

// scheduleReconcile queues a delayed status check so a swap the user never
// polls still reaches a terminal state promptly. Best effort: the periodic
// sweep covers any enqueue failure.
func (s *Server) scheduleReconcile(ctx context.Context, providerOrderID string) {
	if s.client == nil {
		return
	}
	buf, err := json.Marshal(tasks.ReconcilePayload{ProviderOrderID: providerOrderID})
	if err != nil {
		return
	}
	_, err = s.client.EnqueueContext(ctx,
		asynq.NewTask(tasks.TypeReconcileSwap, buf),
		asynq.ProcessIn(2*time.Minute),
		asynq.MaxRetry(3),
		asynq.Queue(tasks.QUEUE_NAME))
	if err != nil {
		s.logger.WithError(err).Warnf("failed to enqueue reconcile for %s", providerOrderID)
	}
}

func (s *Server) CreateLimitOrder(c echo.Context) error {
	var req types.CreateLimitOrderRequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("fail to parse request, err: %w", err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	order, err := s.orderService.CreateLimitOrder(c.Request().Context(), req)
	if err != nil {
		s.logger.WithError(err).Error("create limit order failed")
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

func (s *Server) CreateDCA(c echo.Context) error {
	var req types.CreateDCARequest
	if err := c.Bind(&req); err != nil {
		return fmt.Errorf("fail to parse request, err: %w", err)
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	sched, err := s.orderService.CreateDCA(c.Request().Context(), req)
	if err != nil {
		s.logger.WithError(err).Error("create dca schedule failed")
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, sched)
}

// SwapStatus serves both the POST body form and the GET query form.
func (s *Server) SwapStatus(c echo.Context) error {
	orderID := c.QueryParam("order_id")
	if orderID == "" {
		orderID = c.QueryParam("orderId")
	}
	if orderID == "" && c.Request().Method == http.MethodPost {
		var req types.SwapStatusRequest
		if err := c.Bind(&req); err != nil {
			return fmt.Errorf("fail to parse request, err: %w", err)
		}
		orderID = req.OrderID
	}
	if orderID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "order_id is required"})
	}

	entry, err := s.orderService.GetSwapStatus(c.Request().Context(), orderID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, entry)
}

func (s *Server) ListLimitOrders(c echo.Context) error {
	owner := c.QueryParam("owner")
	if owner == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "owner is required"})
	}
	orders, err := s.db.ListLimitOrdersByOwner(c.Request().Context(), owner)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, orders)
}

func (s *Server) CancelLimitOrder(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid order id"})
	}
	if err := s.orderService.CancelLimitOrder(c.Request().Context(), id); err != nil {
		return errorResponse(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) ListDCASchedules(c echo.Context) error {
	owner := c.QueryParam("owner")
	if owner == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "owner is required"})
	}
	schedules, err := s.db.ListDCASchedulesByOwner(c.Request().Context(), owner)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, schedules)
}

func (s *Server) CancelDCA(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid schedule id"})
	}
	if err := s.orderService.CancelDCA(c.Request().Context(), id); err != nil {
		return errorResponse(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) GetHistory(c echo.Context) error {
	owner := c.QueryParam("owner")
	if owner == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "owner is required"})
	}
	take, _ := strconv.Atoi(c.QueryParam("take"))
	skip, _ := strconv.Atoi(c.QueryParam("skip"))

	entries, err := s.orderService.GetHistory(c.Request().Context(), owner, c.QueryParam("sort"), take, skip)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, entries)
}

func (s *Server) GetReputation(c echo.Context) error {
	owner := c.QueryParam("owner")
	if owner == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "owner is required"})
	}
	metrics, err := s.orderService.GetReputation(c.Request().Context(), owner)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, metrics)
}
