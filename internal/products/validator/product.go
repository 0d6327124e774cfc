package validator

import (
	"atelier/pkg/logger"
	"atelier/pkg/model"
	"atelier/pkg/validate"
)

type ProductValidator struct {
	validate *validate.Validator
	log      *logger.Logger
}

func NewProductValidator(log *logger.Logger) *ProductValidator {
	return &ProductValidator{
		validate: validate.New(),
		log:      log,
	}
}

func (v *ProductValidator) Validate(product *model.Product) error {
	if err := v.validate.Struct(product); err != nil {
		return err
	}

	var errs validate.FieldErrors
	if product.Category == model.ProductCategoryClothing && len(product.Sizes) == 0 {
		errs = append(errs, validate.FieldError{
			Field:   "sizes",
			Message: "sizes are required for clothing products",
		})
	}
	if product.DiscountPrice > 0 && product.DiscountPrice >= product.Price {
		errs = append(errs, validate.FieldError{
			Field:   "discount_price",
			Message: "discount_price must be less than price",
		})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
