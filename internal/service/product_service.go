package service

import (
	"strings"

	"github.com/diancan-next/internal/models"
	"github.com/diancan-next/internal/repository"
)

// ProductService 商品业务服务
type ProductService struct {
	repo         repository.ProductRepository
	categoryRepo repository.CategoryRepository
}

// NewProductService 创建商品服务
func NewProductService(repo repository.ProductRepository, categoryRepo repository.CategoryRepository) *ProductService {
	return &ProductService{repo: repo, categoryRepo: categoryRepo}
}

// ProductInput 创建/更新商品输入
type ProductInput struct {
	CategoryID      uint
	Slug            string
	TitleJSON       map[string]interface{}
	DescriptionJSON map[string]interface{}
	Type            string
	PriceAmount     models.Money
	BasePrices      models.SizePriceMap
	BasePrice       models.Money
	ComboItems      models.ComboComponents
	Addons          models.AddonSpecs
	Images          []string
	Tags            []string
	IsActive        bool
	SortOrder       int
}

// List 商品列表
func (s *ProductService) List(filter repository.ProductListFilter) ([]models.Product, int64, error) {
	return s.repo.List(filter)
}

// GetBySlug 根据 slug 获取商品
func (s *ProductService) GetBySlug(slug string, onlyActive bool) (*models.Product, error) {
	product, err := s.repo.GetBySlug(slug, onlyActive)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return product, nil
}

// GetByID 根据 ID 获取商品
func (s *ProductService) GetByID(id uint) (*models.Product, error) {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return product, nil
}

// Create 创建商品
func (s *ProductService) Create(input ProductInput) (*models.Product, error) {
	if err := s.validate(&input, nil); err != nil {
		return nil, err
	}

	count, err := s.repo.CountBySlug(input.Slug, nil)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrSlugExists
	}

	product := models.Product{
		CategoryID:      input.CategoryID,
		Slug:            input.Slug,
		TitleJSON:       models.JSON(input.TitleJSON),
		DescriptionJSON: models.JSON(input.DescriptionJSON),
		Type:            input.Type,
		PriceAmount:     input.PriceAmount,
		BasePrices:      input.BasePrices,
		BasePrice:       input.BasePrice,
		ComboItems:      input.ComboItems,
		Addons:          input.Addons,
		Images:          models.StringArray(input.Images),
		Tags:            models.StringArray(input.Tags),
		IsActive:        input.IsActive,
		SortOrder:       input.SortOrder,
	}
	if err := s.repo.Create(&product); err != nil {
		return nil, err
	}
	return &product, nil
}

// Update 更新商品
func (s *ProductService) Update(id uint, input ProductInput) (*models.Product, error) {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	if err := s.validate(&input, &id); err != nil {
		return nil, err
	}

	count, err := s.repo.CountBySlug(input.Slug, &id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrSlugExists
	}

	product.CategoryID = input.CategoryID
	product.Slug = input.Slug
	product.TitleJSON = models.JSON(input.TitleJSON)
	product.DescriptionJSON = models.JSON(input.DescriptionJSON)
	product.Type = input.Type
	product.PriceAmount = input.PriceAmount
	product.BasePrices = input.BasePrices
	product.BasePrice = input.BasePrice
	product.ComboItems = input.ComboItems
	product.Addons = input.Addons
	product.Images = models.StringArray(input.Images)
	product.Tags = models.StringArray(input.Tags)
	product.IsActive = input.IsActive
	product.SortOrder = input.SortOrder

	if err := s.repo.Update(product); err != nil {
		return nil, err
	}
	return product, nil
}

// Delete 删除商品
func (s *ProductService) Delete(id uint) error {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if product == nil {
		return ErrProductNotFound
	}
	return s.repo.Delete(id)
}

// validate 按商品形态校验输入。excludeID 用于更新时排除自身
func (s *ProductService) validate(input *ProductInput, excludeID *uint) error {
	input.Slug = strings.TrimSpace(input.Slug)
	if input.Slug == "" || len(input.TitleJSON) == 0 {
		return ErrProductInvalid
	}

	switch input.Type {
	case models.ProductTypeSimple:
		if input.PriceAmount.IsNegative() {
			return ErrProductInvalid
		}
	case models.ProductTypeSized:
		if len(input.BasePrices) == 0 {
			return ErrProductInvalid
		}
		for _, price := range input.BasePrices {
			if price.IsNegative() {
				return ErrProductInvalid
			}
		}
	case models.ProductTypeCombo:
		if input.BasePrice.IsNegative() || len(input.ComboItems) == 0 {
			return ErrProductInvalid
		}
		if err := s.validateComboItems(input.ComboItems, excludeID); err != nil {
			return err
		}
	default:
		return ErrProductInvalid
	}

	for _, addon := range input.Addons {
		if strings.TrimSpace(addon.Name) == "" || addon.Price.IsNegative() {
			return ErrProductAddonInvalid
		}
	}
	return nil
}

// validateComboItems 校验套餐组成项，套餐不可嵌套套餐
func (s *ProductService) validateComboItems(items models.ComboComponents, excludeID *uint) error {
	ids := make([]uint, 0, len(items))
	for _, item := range items {
		if item.ProductID == 0 || item.Quantity < 0 {
			return ErrProductInvalid
		}
		if excludeID != nil && item.ProductID == *excludeID {
			return ErrProductInvalid
		}
		ids = append(ids, item.ProductID)
	}

	components, err := s.repo.ListByIDs(ids)
	if err != nil {
		return err
	}
	byID := make(map[uint]*models.Product, len(components))
	for i := range components {
		byID[components[i].ID] = &components[i]
	}
	for _, item := range items {
		component, ok := byID[item.ProductID]
		if !ok {
			return ErrProductInvalid
		}
		if component.Type == models.ProductTypeCombo {
			return ErrProductInvalid
		}
		if component.Type == models.ProductTypeSized {
			if _, ok := component.BasePrices[item.Size]; !ok {
				return ErrProductSizeInvalid
			}
		}
	}
	return nil
}
