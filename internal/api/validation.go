package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// ValidationError describes one rejected request field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

var validationMessages = map[string]string{
	"required": "field is required",
	"notblank": "field must not be blank",
}

var registerOnce sync.Once

// registerValidators installs the custom tags on gin's validator and makes
// errors report JSON field names.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
			panic(err)
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return fld.Name
			}
			return name
		})
	})
}

// bindJSON decodes the body into req and answers 400 when it is malformed
// or fails validation.
func bindJSON(c *gin.Context, req any) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]ValidationError, 0, len(verrs))
		for _, e := range verrs {
			msg := validationMessages[e.Tag()]
			if msg == "" {
				msg = e.Error()
			}
			fields = append(fields, ValidationError{Field: e.Field(), Message: msg})
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request", "errors": fields})
		return false
	}

	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
	return false
}

// identityNumber accepts the CI number as a JSON string or a bare number.
type identityNumber string

func (n *identityNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = identityNumber(s)
		return nil
	}

	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("cinro must be a string or number: %w", err)
	}
	*n = identityNumber(num.String())
	return nil
}
