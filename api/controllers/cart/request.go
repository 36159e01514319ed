package cart

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/siver-b2b-backend/api/validators"
	cartsvc "github.com/angelmondragon/siver-b2b-backend/internal/cart"
)

const maxVariantLength = 64

type addItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
	Color     *string   `json:"color,omitempty" validate:"omitempty,max=64"`
	Size      *string   `json:"size,omitempty" validate:"omitempty,max=64"`
}

func (p addItemRequest) toInput() cartsvc.AddItemInput {
	return cartsvc.AddItemInput{
		ProductID: p.ProductID,
		Quantity:  p.Quantity,
		Color:     variant(p.Color),
		Size:      variant(p.Size),
	}
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

type stepRequest struct {
	Delta int `json:"delta" validate:"required"`
}

func variant(value *string) *string {
	if value == nil {
		return nil
	}
	cleaned := validators.SanitizeString(*value, maxVariantLength)
	if cleaned == "" {
		return nil
	}
	return &cleaned
}
