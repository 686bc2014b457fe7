package handlers

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

var registerOnce sync.Once

// bindingTags are the storefront-specific binding tags.
var bindingTags = map[string]validator.Func{
	"category": func(fl validator.FieldLevel) bool {
		return models.Category(fl.Field().String()).Valid()
	},
	"orderstatus": func(fl validator.FieldLevel) bool {
		return models.OrderStatus(fl.Field().String()).Valid()
	},
}

// RegisterValidators adds the storefront binding tags to gin's validator.
// It panics when a tag cannot be registered, since every request using the
// tag would otherwise fail binding.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			panic("handlers: gin binding engine is not go-playground/validator")
		}
		if err := registerTags(v, bindingTags); err != nil {
			logging.NewLoggerV2("handlers").Error("Failed to register binding validators", logging.Fields{
				"error": err.Error(),
			})
			panic(err)
		}
	})
}

func registerTags(v *validator.Validate, tags map[string]validator.Func) error {
	for tag, fn := range tags {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("register %q validator: %w", tag, err)
		}
	}
	return nil
}
