package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Product — позиция меню. Название уникально без учёта регистра.
type Product struct {
	ID          int64
	UUID        uuid.UUID
	Name        string
	Category    Category
	PriceMinor  int64
	Description string
	Images      []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProductAttributes — изменяемые поля товара (создание и обновление).
type ProductAttributes struct {
	Name        string
	Category    Category
	PriceMinor  int64
	Description string
	Images      []string
}

func NewProduct(attrs ProductAttributes) (Product, error) {
	now := time.Now().UTC()
	product := Product{
		UUID:      uuid.New(),
		CreatedAt: now,
	}
	product.assign(attrs, now)
	if err := firstError(product.Validate()); err != nil {
		return Product{}, err
	}
	return product, nil
}

// Update применяет новые атрибуты. При ошибке товар остаётся прежним.
func (p *Product) Update(attrs ProductAttributes) error {
	updated := *p
	updated.assign(attrs, time.Now().UTC())
	if err := firstError(updated.Validate()); err != nil {
		return err
	}
	*p = updated
	return nil
}

func (p *Product) assign(attrs ProductAttributes, now time.Time) {
	p.Name = strings.TrimSpace(attrs.Name)
	p.Category = attrs.Category
	p.PriceMinor = attrs.PriceMinor
	p.Description = strings.TrimSpace(attrs.Description)
	p.Images = append([]string(nil), attrs.Images...)
	p.UpdatedAt = now
}

// Validate проверяет инварианты товара.
func (p *Product) Validate() []error {
	errs := collect(
		assertNotNilUUID(p.UUID, "Product uuid is required."),
		assertNotEmpty(p.Name, "Product name is required."),
		assertLength(p.Name, 1, maxNameLength, "Product name must have between 1 and 120 characters."),
		assertOneOf(p.Category, categories, "Product category is invalid."),
		assertPositive(p.PriceMinor, "Product price must be greater than zero."),
		assertNotEmpty(p.Description, "Product description is required."),
		assertNotEmptySlice(p.Images, "Product must have at least one image."),
	)
	for _, image := range p.Images {
		if err := assertNotEmpty(image, "Product image must not be empty."); err != nil {
			errs = append(errs, err)
			break
		}
	}
	return errs
}
