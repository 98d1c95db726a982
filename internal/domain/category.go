package domain

import "strings"

// Category — фиксированный набор категорий меню.
type Category string

const (
	CategoryLanche         Category = "lanche"
	CategoryAcompanhamento Category = "acompanhamento"
	CategoryBebida         Category = "bebida"
	CategorySobremesa      Category = "sobremesa"
)

var categories = []Category{
	CategoryLanche,
	CategoryAcompanhamento,
	CategoryBebida,
	CategorySobremesa,
}

// Categories возвращает все допустимые категории.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// ParseCategory проверяет принадлежность значения набору (без учёта регистра).
func ParseCategory(raw string) (Category, error) {
	candidate := Category(strings.ToLower(strings.TrimSpace(raw)))
	if err := assertOneOf(candidate, categories, ""); err != nil {
		return "", invalidEnumValue(raw)
	}
	return candidate, nil
}
