package service

import (
	"strings"

	"github.com/diancan-next/internal/models"
	"github.com/diancan-next/internal/promotion"
	"github.com/diancan-next/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// 单个购物车项的数量上限
const cartQuantityMax = 99

// CartService 购物车业务服务。购物车按会话令牌隔离，游客无需登录
type CartService struct {
	cartRepo     repository.CartRepository
	productRepo  repository.ProductRepository
	promotionSvc *PromotionService
	settingSvc   *SettingService
}

// NewCartService 创建购物车服务
func NewCartService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	promotionSvc *PromotionService,
	settingSvc *SettingService,
) *CartService {
	return &CartService{
		cartRepo:     cartRepo,
		productRepo:  productRepo,
		promotionSvc: promotionSvc,
		settingSvc:   settingSvc,
	}
}

// NewSessionToken 生成新的购物车会话令牌
func (s *CartService) NewSessionToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// AddItemInput 加购输入
type AddItemInput struct {
	ProductID uint     `json:"product_id"`
	Size      string   `json:"size"`
	Quantity  int      `json:"quantity"`
	Addons    []string `json:"addons"` // 按加料名称选择
}

// CartView 购物车视图，含引擎计价结果
type CartView struct {
	Items  []models.CartItem    `json:"items"`
	Totals promotion.CartTotals `json:"totals"`
}

// AddItem 加购。同商品同规格同加料的行项合并数量
func (s *CartService) AddItem(sessionToken string, input AddItemInput) (*models.CartItem, error) {
	if input.Quantity <= 0 || input.Quantity > cartQuantityMax {
		return nil, ErrQuantityInvalid
	}

	product, err := s.productRepo.GetByID(input.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	if !product.IsActive {
		return nil, ErrProductInactive
	}

	size, err := resolveSize(product, input.Size)
	if err != nil {
		return nil, err
	}
	addons, err := resolveAddons(product, input.Addons)
	if err != nil {
		return nil, err
	}

	unit := product.UnitPrice(size).Decimal
	for _, addon := range addons {
		unit = unit.Add(addon.Price.Decimal)
	}
	unitPrice := models.NewMoneyFromDecimal(unit)

	existing, err := s.findMergeTarget(sessionToken, input.ProductID, size, addons)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		existing.Quantity += input.Quantity
		if existing.Quantity > cartQuantityMax {
			existing.Quantity = cartQuantityMax
		}
		existing.UnitPrice = unitPrice
		if err := s.cartRepo.Update(existing); err != nil {
			return nil, err
		}
		existing.Product = product
		return existing, nil
	}

	item := &models.CartItem{
		SessionToken: sessionToken,
		ProductID:    input.ProductID,
		Size:         size,
		Quantity:     input.Quantity,
		UnitPrice:    unitPrice,
		Addons:       addons,
	}
	if err := s.cartRepo.Create(item); err != nil {
		return nil, err
	}
	item.Product = product
	return item, nil
}

// UpdateQuantity 修改行项数量，数量必须为正
func (s *CartService) UpdateQuantity(sessionToken string, itemID uint, quantity int) (*models.CartItem, error) {
	if quantity <= 0 || quantity > cartQuantityMax {
		return nil, ErrQuantityInvalid
	}
	item, err := s.ownedItem(sessionToken, itemID)
	if err != nil {
		return nil, err
	}
	item.Quantity = quantity
	if err := s.cartRepo.Update(item); err != nil {
		return nil, err
	}
	return item, nil
}

// RemoveItem 删除行项
func (s *CartService) RemoveItem(sessionToken string, itemID uint) error {
	item, err := s.ownedItem(sessionToken, itemID)
	if err != nil {
		return err
	}
	return s.cartRepo.Delete(item.ID)
}

// Clear 清空购物车
func (s *CartService) Clear(sessionToken string) error {
	return s.cartRepo.ClearBySession(sessionToken)
}

// GetCart 获取购物车及计价结果。couponCode 可为空
func (s *CartService) GetCart(sessionToken string, couponCode string) (*CartView, error) {
	items, err := s.cartRepo.ListBySession(sessionToken)
	if err != nil {
		return nil, err
	}
	view := &CartView{Items: items}
	if len(items) == 0 {
		return view, nil
	}

	lineItems, err := s.promotionSvc.BuildLineItems(items)
	if err != nil {
		return nil, err
	}
	deliveryFee, err := s.settingSvc.GetDeliveryFee(decimal.Zero)
	if err != nil {
		return nil, err
	}
	view.Totals = s.promotionSvc.CartTotals(lineItems, deliveryFee, couponCode)
	return view, nil
}

// BuildTransientItems 根据输入构造未持久化的购物车行项，用于促销试算
func (s *CartService) BuildTransientItems(inputs []AddItemInput) ([]models.CartItem, error) {
	items := make([]models.CartItem, 0, len(inputs))
	for _, input := range inputs {
		if input.Quantity <= 0 || input.Quantity > cartQuantityMax {
			return nil, ErrQuantityInvalid
		}
		product, err := s.productRepo.GetByID(input.ProductID)
		if err != nil {
			return nil, err
		}
		if product == nil {
			return nil, ErrProductNotFound
		}
		size, err := resolveSize(product, input.Size)
		if err != nil {
			return nil, err
		}
		addons, err := resolveAddons(product, input.Addons)
		if err != nil {
			return nil, err
		}
		unit := product.UnitPrice(size).Decimal
		for _, addon := range addons {
			unit = unit.Add(addon.Price.Decimal)
		}
		items = append(items, models.CartItem{
			ProductID: input.ProductID,
			Size:      size,
			Quantity:  input.Quantity,
			UnitPrice: models.NewMoneyFromDecimal(unit),
			Addons:    addons,
			Product:   product,
		})
	}
	return items, nil
}

// ownedItem 获取会话内的行项，越权按不存在处理
func (s *CartService) ownedItem(sessionToken string, itemID uint) (*models.CartItem, error) {
	item, err := s.cartRepo.GetByID(itemID)
	if err != nil {
		return nil, err
	}
	if item == nil || item.SessionToken != sessionToken {
		return nil, ErrCartItemNotFound
	}
	return item, nil
}

// findMergeTarget 查找可合并的行项。加料组合不同的视为独立行项
func (s *CartService) findMergeTarget(sessionToken string, productID uint, size string, addons models.AddonSpecs) (*models.CartItem, error) {
	items, err := s.cartRepo.ListBySession(sessionToken)
	if err != nil {
		return nil, err
	}
	for i := range items {
		item := &items[i]
		if item.ProductID == productID && item.Size == size && addonsEqual(item.Addons, addons) {
			return item, nil
		}
	}
	return nil, nil
}

// resolveSize 校验规格。sized 商品必须给出有效规格，其余商品忽略规格
func resolveSize(product *models.Product, size string) (string, error) {
	if product.Type != models.ProductTypeSized {
		return "", nil
	}
	size = strings.TrimSpace(size)
	if size == "" {
		return "", ErrProductSizeInvalid
	}
	if _, ok := product.BasePrices[size]; !ok {
		return "", ErrProductSizeInvalid
	}
	return size, nil
}

// resolveAddons 按名称匹配商品加料，价格以商品配置为准
func resolveAddons(product *models.Product, names []string) (models.AddonSpecs, error) {
	if len(names) == 0 {
		return nil, nil
	}
	addons := make(models.AddonSpecs, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		found := false
		for _, spec := range product.Addons {
			if spec.Name == name {
				addons = append(addons, spec)
				found = true
				break
			}
		}
		if !found {
			return nil, ErrProductAddonInvalid
		}
	}
	return addons, nil
}

func addonsEqual(a, b models.AddonSpecs) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || !a[i].Price.Equal(b[i].Price.Decimal) {
			return false
		}
	}
	return true
}
