package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"workshop-billing-backend/internal/apperrors"
	"workshop-billing-backend/internal/logger"
	"workshop-billing-backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// respondError answers with the status of the error kind and its
// caller-facing message. Unclassified errors are logged and hidden.
func respondError(c *gin.Context, err error) {
	status := apperrors.HTTPStatus(err)
	msg := apperrors.Message(err)
	if status == http.StatusInternalServerError {
		logger.FromContext(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		msg = "internal server error"
	}
	_ = c.Error(err)
	c.JSON(status, gin.H{"error": msg})
}

// bindJSON binds the body and answers 400 on failure.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": bindingMessage(err)})
		return false
	}
	return true
}

func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid payload"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			parts = append(parts, field+" is required")
		case "oneof":
			parts = append(parts, fmt.Sprintf("%s must be one of [%s]", field, fe.Param()))
		case "email":
			parts = append(parts, field+" must be a valid email")
		case "min":
			parts = append(parts, fmt.Sprintf("%s must have at least %s item(s)", field, fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

func paramID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

func queryUint(c *gin.Context, key string) (uint, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(v), nil
}

func queryDate(c *gin.Context, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s, expected yyyy-mm-dd", key)
	}
	return &t, nil
}

type lineRequest struct {
	Description string              `json:"description"`
	Quantity    decimal.Decimal     `json:"quantity"`
	UnitPrice   decimal.Decimal     `json:"unit_price"`
	Category    models.LineCategory `json:"category" binding:"omitempty,oneof=PRODUCT SERVICE OTHER"`
	ProductID   *uint               `json:"product_id"`
	ServiceID   *uint               `json:"service_id"`
}

func (l lineRequest) item() models.LineItem {
	return models.LineItem{
		Description: l.Description,
		Quantity:    l.Quantity,
		UnitPrice:   l.UnitPrice,
		Category:    l.Category,
		ProductID:   l.ProductID,
		ServiceID:   l.ServiceID,
	}
}

func lineItems(reqs []lineRequest) []models.LineItem {
	out := make([]models.LineItem, len(reqs))
	for i, r := range reqs {
		out[i] = r.item()
	}
	return out
}
