package service

import (
	"testing"

	"github.com/diancan-next/internal/constants"
	"github.com/diancan-next/internal/models"
	"github.com/diancan-next/internal/payment"
	"github.com/diancan-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// serviceTestEnv 服务层测试环境：共享内存库 + 完整服务依赖图
type serviceTestEnv struct {
	db *gorm.DB

	cartRepo    *repository.GormCartRepository
	productRepo *repository.GormProductRepository
	ruleRepo    *repository.GormPromotionRuleRepository
	usageRepo   *repository.GormCouponUsageRepository
	orderRepo   *repository.GormOrderRepository

	settingSvc   *SettingService
	promotionSvc *PromotionService
	cartSvc      *CartService
	orderSvc     *OrderService

	provider *payment.MockProvider
}

func newServiceTestEnv(t *testing.T) *serviceTestEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}

	tables := []interface{}{
		&models.Category{},
		&models.Product{},
		&models.PromotionRule{},
		&models.CouponUsage{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.Setting{},
	}
	for _, table := range tables {
		if err := db.Migrator().DropTable(table); err != nil {
			t.Fatalf("drop table failed: %v", err)
		}
	}
	if err := db.AutoMigrate(tables...); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	// 订单服务的事务走包级 DB
	models.DB = db

	env := &serviceTestEnv{
		db:          db,
		cartRepo:    repository.NewCartRepository(db),
		productRepo: repository.NewProductRepository(db),
		ruleRepo:    repository.NewPromotionRuleRepository(db),
		usageRepo:   repository.NewCouponUsageRepository(db),
		orderRepo:   repository.NewOrderRepository(db),
		provider:    payment.NewMockProvider(),
	}
	categoryRepo := repository.NewCategoryRepository(db)
	settingRepo := repository.NewSettingRepository(db)

	env.settingSvc = NewSettingService(settingRepo)
	env.promotionSvc = NewPromotionService(env.ruleRepo, env.productRepo, categoryRepo, env.settingSvc)
	env.cartSvc = NewCartService(env.cartRepo, env.productRepo, env.promotionSvc, env.settingSvc)
	env.orderSvc = NewOrderService(
		env.orderRepo,
		env.cartRepo,
		env.ruleRepo,
		env.usageRepo,
		env.promotionSvc,
		env.settingSvc,
		nil,
		env.provider,
	)
	return env
}

func (env *serviceTestEnv) reloadRules(t *testing.T) {
	t.Helper()
	if err := env.promotionSvc.Reload(); err != nil {
		t.Fatalf("reload promotion engine failed: %v", err)
	}
}

func (env *serviceTestEnv) createCategory(t *testing.T, slug string) *models.Category {
	t.Helper()
	category := &models.Category{
		Slug:     slug,
		NameJSON: models.JSON(map[string]interface{}{"zh-CN": slug}),
		IsActive: true,
	}
	if err := env.db.Create(category).Error; err != nil {
		t.Fatalf("create category failed: %v", err)
	}
	return category
}

func (env *serviceTestEnv) createSimpleProduct(t *testing.T, categoryID uint, slug, price string) *models.Product {
	t.Helper()
	product := &models.Product{
		CategoryID:  categoryID,
		Slug:        slug,
		TitleJSON:   models.JSON(map[string]interface{}{"zh-CN": slug}),
		Type:        models.ProductTypeSimple,
		PriceAmount: testMoney(price),
		IsActive:    true,
	}
	if err := env.db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func (env *serviceTestEnv) createSizedProduct(t *testing.T, categoryID uint, slug string, prices map[string]string, addons models.AddonSpecs) *models.Product {
	t.Helper()
	basePrices := make(models.SizePriceMap, len(prices))
	for size, price := range prices {
		basePrices[size] = testMoney(price)
	}
	product := &models.Product{
		CategoryID: categoryID,
		Slug:       slug,
		TitleJSON:  models.JSON(map[string]interface{}{"zh-CN": slug}),
		Type:       models.ProductTypeSized,
		BasePrices: basePrices,
		Addons:     addons,
		IsActive:   true,
	}
	if err := env.db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func (env *serviceTestEnv) createComboProduct(t *testing.T, categoryID uint, slug, price string, components models.ComboComponents) *models.Product {
	t.Helper()
	product := &models.Product{
		CategoryID: categoryID,
		Slug:       slug,
		TitleJSON:  models.JSON(map[string]interface{}{"zh-CN": slug}),
		Type:       models.ProductTypeCombo,
		BasePrice:  testMoney(price),
		ComboItems: components,
		IsActive:   true,
	}
	if err := env.db.Create(product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func (env *serviceTestEnv) createCouponRule(t *testing.T, code, discount, minSubtotal string, maxUsage int) *models.PromotionRule {
	t.Helper()
	rule := &models.PromotionRule{
		Name: "coupon " + code,
		Type: constants.PromotionTypeCoupon,
		Code: code,
		DiscountJSON: models.JSON(map[string]interface{}{
			"kind":  constants.DiscountKindFixed,
			"value": discount,
		}),
		MinSubtotal: testMoney(minSubtotal),
		MaxUsage:    maxUsage,
		IsActive:    true,
	}
	if err := env.db.Create(rule).Error; err != nil {
		t.Fatalf("create promotion rule failed: %v", err)
	}
	return rule
}

func testMoney(value string) models.Money {
	return models.NewMoneyFromDecimal(decimal.RequireFromString(value))
}
