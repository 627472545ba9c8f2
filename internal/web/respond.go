package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/fekuna/omnipos-inventory-service/internal/logger"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var statusByError = []struct {
	err    error
	status int
}{
	{model.ErrProductNotFound, http.StatusNotFound},
	{model.ErrCategoryNotFound, http.StatusNotFound},
	{model.ErrBatchNotFound, http.StatusNotFound},
	{model.ErrTransactionNotFound, http.StatusNotFound},
	{model.ErrOrderNotFound, http.StatusNotFound},
	{model.ErrInvalidQuantity, http.StatusBadRequest},
	{model.ErrInvalidDirection, http.StatusBadRequest},
	{model.ErrInvalidStatus, http.StatusBadRequest},
	{model.ErrEmptyOrder, http.StatusBadRequest},
	{model.ErrInvalidInput, http.StatusBadRequest},
	{model.ErrInsufficientStock, http.StatusConflict},
	{model.ErrNotPending, http.StatusConflict},
	{model.ErrSKUAlreadyExists, http.StatusConflict},
	{model.ErrCategoryExists, http.StatusConflict},
	{model.ErrProductInUse, http.StatusConflict},
	{model.ErrOrderNotPending, http.StatusConflict},
	{model.ErrBusy, http.StatusServiceUnavailable},
}

// StatusFor maps a domain error to its HTTP status.
func StatusFor(err error) int {
	for _, e := range statusByError {
		if errors.Is(err, e.err) {
			return e.status
		}
	}
	return http.StatusInternalServerError
}

// RespondError writes err as {"message": ...}. Shortages also list every
// short product so a client can show them all at once.
func RespondError(c *gin.Context, log logger.ZapLogger, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		log.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(status, gin.H{"message": "Internal server error"})
		return
	}

	body := gin.H{"message": err.Error()}
	var shortage *model.StockShortageError
	var insufficient *model.InsufficientStockError
	switch {
	case errors.As(err, &shortage):
		body["shortages"] = shortage.Shortages
	case errors.As(err, &insufficient):
		body["shortages"] = []*model.InsufficientStockError{insufficient}
	}
	c.JSON(status, body)
}

func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"message": message})
}

// ParamID parses a positive integer path parameter, answering 400 itself when
// it is malformed.
func ParamID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		BadRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}
