package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/fastfood/internal/domain"
)

// ProductInput — атрибуты товара для создания и обновления.
type ProductInput struct {
	Name        string
	Category    string
	PriceMinor  int64
	Description string
	Images      []string
}

func (in ProductInput) attributes() (domain.ProductAttributes, error) {
	category, err := domain.ParseCategory(in.Category)
	if err != nil {
		return domain.ProductAttributes{}, err
	}
	return domain.ProductAttributes{
		Name:        in.Name,
		Category:    category,
		PriceMinor:  in.PriceMinor,
		Description: in.Description,
		Images:      in.Images,
	}, nil
}

// Service управляет каталогом товаров.
type Service struct {
	products domain.ProductRepository
	logger   *log.Entry
}

func NewService(products domain.ProductRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "catalog-service")
	}
	return &Service{products: products, logger: logger}
}

// Create добавляет товар. Название уникально без учёта регистра.
func (s *Service) Create(ctx context.Context, in ProductInput) (domain.Product, error) {
	attrs, err := in.attributes()
	if err != nil {
		return domain.Product{}, err
	}
	product, err := domain.NewProduct(attrs)
	if err != nil {
		return domain.Product{}, err
	}
	if err := s.ensureNameFree(ctx, product.Name, uuid.Nil); err != nil {
		return domain.Product{}, err
	}

	saved, err := s.products.Create(ctx, product)
	if err != nil {
		return domain.Product{}, wrapStorage("create product", err)
	}
	s.logger.WithFields(log.Fields{
		"product_uuid": saved.UUID,
		"category":     saved.Category,
	}).Info("product created")
	return saved, nil
}

// Update заменяет атрибуты товара целиком.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in ProductInput) (domain.Product, error) {
	product, err := s.products.GetByUUID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	attrs, err := in.attributes()
	if err != nil {
		return domain.Product{}, err
	}
	if err := product.Update(attrs); err != nil {
		return domain.Product{}, err
	}
	if err := s.ensureNameFree(ctx, product.Name, product.UUID); err != nil {
		return domain.Product{}, err
	}

	saved, err := s.products.Update(ctx, product)
	if err != nil {
		return domain.Product{}, wrapStorage("update product", err)
	}
	s.logger.WithField("product_uuid", saved.UUID).Info("product updated")
	return saved, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return wrapStorage("delete product", err)
	}
	s.logger.WithField("product_uuid", id).Info("product deleted")
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Product, error) {
	return s.products.GetByUUID(ctx, id)
}

// List возвращает весь каталог или товары одной категории, если она задана.
func (s *Service) List(ctx context.Context, category string) ([]domain.Product, error) {
	if strings.TrimSpace(category) == "" {
		return s.products.List(ctx)
	}
	parsed, err := domain.ParseCategory(category)
	if err != nil {
		return nil, err
	}
	return s.products.ListByCategory(ctx, parsed)
}

func (s *Service) ensureNameFree(ctx context.Context, name string, self uuid.UUID) error {
	existing, err := s.products.GetByName(ctx, name)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("lookup product by name: %w", err)
	case existing.UUID != self:
		return domain.ErrProductExists
	default:
		return nil
	}
}

// wrapStorage пропускает ошибки доменных видов как есть.
func wrapStorage(op string, err error) error {
	if domain.IsClientError(err) {
		return err
	}
	return fmt.Errorf("%s: %w", op, err)
}
