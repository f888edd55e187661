package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"restaurant-pos-api/events"
	"restaurant-pos-api/pricing"
	"restaurant-pos-api/realtime"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps are the collaborators handlers use besides config.DB.
type Deps struct {
	Publisher    events.Publisher
	Hub          *realtime.Hub
	TaxRate      decimal.Decimal
	PaymentDelay time.Duration
	Location     *time.Location
}

var (
	publisher    events.Publisher = events.Noop{}
	hub                           = realtime.NewHub()
	taxRate                       = pricing.DefaultTaxRate
	paymentDelay time.Duration
	location     = time.Local
	now          = time.Now
)

// Init wires the package level collaborators. Zero fields keep their defaults.
func Init(d Deps) {
	if d.Publisher != nil {
		publisher = d.Publisher
	}
	if d.Hub != nil {
		hub = d.Hub
	}
	if !d.TaxRate.IsZero() {
		taxRate = d.TaxRate
	}
	paymentDelay = d.PaymentDelay
	if d.Location != nil {
		location = d.Location
	}
}

// idParam parses a numeric path parameter, answering 400 when it is not one.
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// dbError answers a failed lookup or write: 404 for a missing record, 500 otherwise.
func dbError(c *gin.Context, err error, what string) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
		return
	}
	zap.L().Error("database error", zap.String("what", what), zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process " + what})
}

// requireName trims name in place and answers 400 when nothing is left.
func requireName(c *gin.Context, name *string) bool {
	*name = strings.TrimSpace(*name)
	if *name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name must not be blank"})
		return false
	}
	return true
}

// optionalUint reads a numeric query parameter; zero when absent or malformed.
func optionalUint(c *gin.Context, key string) uint {
	v, err := strconv.ParseUint(c.Query(key), 10, 64)
	if err != nil {
		return 0
	}
	return uint(v)
}

// optionalBool reads a boolean query parameter; nil when absent or malformed.
func optionalBool(c *gin.Context, key string) *bool {
	v, err := strconv.ParseBool(c.Query(key))
	if err != nil {
		return nil
	}
	return &v
}

func parseUintParam(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return uint(id), err
}
