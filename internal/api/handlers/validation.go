package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/SaadNasir-Drago/Zolo/internal/services"
)

var registerTagNames sync.Once

// useJSONFieldNames makes validator report fields by their JSON names.
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Required"
	case "email":
		return "Invalid email"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("Must be at least %s characters", fe.Param())
		}
		return fmt.Sprintf("Must be at least %s", fe.Param())
	case "gte":
		return fmt.Sprintf("Must be greater than or equal to %s", fe.Param())
	case "gt":
		return fmt.Sprintf("Must be greater than %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("Must be one of: %s", fe.Param())
	case "hexadecimal", "len", "mongodb":
		return "Invalid id"
	}
	return fmt.Sprintf("Failed on %s", fe.Tag())
}

// bindJSON binds the request body and answers 400 with field errors on failure.
func bindJSON(c *gin.Context, obj interface{}) bool {
	useJSONFieldNames()
	if err := c.ShouldBindJSON(obj); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]services.FieldError, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, services.FieldError{Field: fe.Field(), Message: fieldMessage(fe)})
			}
			c.JSON(http.StatusBadRequest, gin.H{"errors": fields})
			return false
		}
		c.JSON(http.StatusBadRequest, gin.H{"errors": []services.FieldError{{Field: "body", Message: "Invalid request body"}}})
		return false
	}
	return true
}

// parseID parses a hex object id from a request value, answering 400 when it is malformed.
func parseID(c *gin.Context, field, value string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(value)
	if err != nil {
		respondError(c, services.NewValidationError(field, "Invalid id"), "")
		return primitive.NilObjectID, false
	}
	return id, true
}

func notFoundMessage(err error) string {
	switch {
	case errors.Is(err, services.ErrDealNotFound):
		return "Deal not found"
	case errors.Is(err, services.ErrPropertyNotFound):
		return "Property not found"
	case errors.Is(err, services.ErrUserNotFound):
		return "User not found"
	case errors.Is(err, services.ErrNoMatchingDeals):
		return "No matching deals found"
	}
	return "Not found"
}

// respondError maps service errors onto status codes. Unknown errors are
// attached to the context, logged and answered with fallback.
func respondError(c *gin.Context, err error, fallback string) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"errors": verr.Fields})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": notFoundMessage(err)})
	case errors.Is(err, services.ErrAuth):
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Invalid credentials"})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"message": "Not allowed"})
	case errors.Is(err, services.ErrDealClosed):
		c.JSON(http.StatusConflict, gin.H{"message": "Deal is closed"})
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"message": "Conflict"})
	default:
		_ = c.Error(err)
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		if fallback == "" {
			fallback = "Server error"
		}
		c.JSON(http.StatusInternalServerError, gin.H{"message": fallback})
	}
}
