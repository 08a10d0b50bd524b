package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/Marga-Ghale/ora-family-backend/internal/api/middleware"
	"github.com/Marga-Ghale/ora-family-backend/internal/models"
	"github.com/Marga-Ghale/ora-family-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// RegisterValidators adds the custom binding rules used by the request
// models. Call once before serving.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("unexpected binding validator engine")
	}
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}

func respond(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, models.Envelope{Status: "success", Message: message, Data: data})
}

func ok(c *gin.Context, data interface{}) {
	respond(c, http.StatusOK, "", data)
}

func created(c *gin.Context, message string, data interface{}) {
	respond(c, http.StatusCreated, message, data)
}

func fail(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, models.Envelope{Status: "fail", Message: message})
}

// statusFor maps a service error kind to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrUnauthorized),
		errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrInvalidState),
		errors.Is(err, service.ErrConflict),
		errors.Is(err, service.ErrInsufficientPoints),
		errors.Is(err, service.ErrLastParent):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// handleError writes err as an envelope. Unexpected errors are logged and
// reported without detail.
func handleError(c *gin.Context, log *logrus.Entry, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		log.WithError(err).WithField("path", c.Request.URL.Path).Error("unexpected error")
		c.AbortWithStatusJSON(status, models.Envelope{Status: "error", Message: "Something went wrong, please try again later"})
		return
	}

	env := models.Envelope{Status: "fail", Message: err.Error()}
	var se *service.Error
	if errors.As(err, &se) {
		env.Message = se.Message
		env.Field = se.Field
	}
	c.AbortWithStatusJSON(status, env)
}

// bind decodes the JSON body into req, writing a 400 on failure.
func bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		fail(c, http.StatusBadRequest, bindMessage(err))
		return false
	}
	return true
}

func bindMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		switch fe.Tag() {
		case "required", "notblank":
			return fmt.Sprintf("Please provide %s", fe.Field())
		case "email":
			return fmt.Sprintf("%s must be a valid email address", fe.Field())
		case "gte":
			return fmt.Sprintf("%s must not be negative", fe.Field())
		default:
			return fmt.Sprintf("Invalid value for %s", fe.Field())
		}
	}
	return "Invalid request body"
}

// actor returns the authenticated actor or writes a 401.
func actor(c *gin.Context) (service.Actor, bool) {
	a, found := middleware.CurrentActor(c)
	if !found {
		fail(c, http.StatusUnauthorized, "User not authenticated")
		return service.Actor{}, false
	}
	return a, true
}
