package handler

import (
	"net/http"
	"reflect"

	"github.com/tea-tech/simple-inventory/internal/apierror"
	"github.com/tea-tech/simple-inventory/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails —
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid JSON: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		fields := make(map[string]string)
		for _, fe := range err.(validator.ValidationErrors) {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// pathID parses a :id-style path parameter as a UUID. Writes the 400 itself.
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return uuid.Nil, false
	}
	return id, true
}

// respondErr maps operation error kinds onto HTTP statuses. Unknown errors
// become opaque 500s through the error-handler middleware.
func respondErr(c *gin.Context, err error) {
	kind := service.KindOf(err)
	switch kind {
	case service.KindValidation, service.KindInvalidTarget,
		service.KindIncompatibleConversion, service.KindInsufficientQuantity:
		c.JSON(http.StatusBadRequest, apierror.NewKind(kind, err.Error()))
	case service.KindNotFound:
		c.JSON(http.StatusNotFound, apierror.NewKind(kind, err.Error()))
	case service.KindConflict, service.KindPartialMerge:
		c.JSON(http.StatusConflict, apierror.NewKind(kind, err.Error()))
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, apierror.New("internal server error"))
	}
}
