package main

import (
	"fmt"
	"time"

	"github.com/diancan-next/internal/config"
	"github.com/diancan-next/internal/constants"
	"github.com/diancan-next/internal/logger"
	"github.com/diancan-next/internal/models"

	"github.com/shopspring/decimal"
)

func money(value string) models.Money {
	return models.NewMoneyFromDecimal(decimal.RequireFromString(value))
}

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 菜单分类
	categories := []models.Category{
		{
			Slug: "mains",
			NameJSON: models.JSON(map[string]interface{}{
				"zh-CN": "主食",
				"en-US": "Mains",
			}),
			Icon:      "/uploads/icons/mains.png",
			IsActive:  true,
			SortOrder: 10,
		},
		{
			Slug: "drinks",
			NameJSON: models.JSON(map[string]interface{}{
				"zh-CN": "饮品",
				"en-US": "Drinks",
			}),
			Icon:      "/uploads/icons/drinks.png",
			IsActive:  true,
			SortOrder: 20,
		},
		{
			Slug: "sides",
			NameJSON: models.JSON(map[string]interface{}{
				"zh-CN": "小食",
				"en-US": "Sides",
			}),
			Icon:      "/uploads/icons/sides.png",
			IsActive:  true,
			SortOrder: 30,
		},
		{
			Slug: "combos",
			NameJSON: models.JSON(map[string]interface{}{
				"zh-CN": "超值套餐",
				"en-US": "Combos",
			}),
			Icon:      "/uploads/icons/combos.png",
			IsActive:  true,
			SortOrder: 40,
		},
	}

	categoryIDs := make(map[string]uint, len(categories))
	for _, category := range categories {
		var existing models.Category
		if err := models.DB.Where("slug = ?", category.Slug).First(&existing).Error; err != nil {
			if err := models.DB.Create(&category).Error; err != nil {
				stdLog.Fatalf("Failed to create category %s: %v", category.Slug, err)
			}
			categoryIDs[category.Slug] = category.ID
			stdLog.Printf("Created category: %s", category.Slug)
		} else {
			existing.NameJSON = category.NameJSON
			existing.Icon = category.Icon
			existing.IsActive = category.IsActive
			existing.SortOrder = category.SortOrder
			if err := models.DB.Save(&existing).Error; err != nil {
				stdLog.Printf("Failed to update category %s: %v", category.Slug, err)
			}
			categoryIDs[category.Slug] = existing.ID
		}
	}

	// 菜品：单品、多规格、套餐各有代表
	products := []models.Product{
		{
			CategoryID: categoryIDs["mains"],
			Slug:       "braised-beef-rice",
			TitleJSON: models.JSON(map[string]interface{}{
				"zh-CN": "红烧牛肉饭",
				"en-US": "Braised Beef Rice",
			}),
			DescriptionJSON: models.JSON(map[string]interface{}{
				"zh-CN": "慢炖牛腩配时蔬，汤汁拌饭",
				"en-US": "Slow-braised beef brisket over rice with vegetables",
			}),
			Type:        constants.ProductTypeSimple,
			PriceAmount: money("28.00"),
			Addons: models.AddonSpecs{
				{Name: "煎蛋", Price: money("3.00")},
				{Name: "加饭", Price: money("2.00")},
			},
			Images:    models.StringArray{"/uploads/products/braised-beef-rice.jpg"},
			Tags:      models.StringArray{"signature"},
			IsActive:  true,
			SortOrder: 10,
		},
		{
			CategoryID: categoryIDs["mains"],
			Slug:       "tomato-egg-noodles",
			TitleJSON: models.JSON(map[string]interface{}{
				"zh-CN": "番茄鸡蛋面",
				"en-US": "Tomato Egg Noodles",
			}),
			Type: constants.ProductTypeSized,
			BasePrices: models.SizePriceMap{
				constants.ProductSizeSmall:  money("16.00"),
				constants.ProductSizeMedium: money("20.00"),
				constants.ProductSizeLarge:  money("24.00"),
			},
			Addons: models.AddonSpecs{
				{Name: "香菜", Price: money("0.00")},
				{Name: "加面", Price: money("3.00")},
			},
			Images:    models.StringArray{"/uploads/products/tomato-egg-noodles.jpg"},
			IsActive:  true,
			SortOrder: 20,
		},
		{
			CategoryID: categoryIDs["drinks"],
			Slug:       "pearl-milk-tea",
			TitleJSON: models.JSON(map[string]interface{}{
				"zh-CN": "珍珠奶茶",
				"en-US": "Pearl Milk Tea",
			}),
			Type: constants.ProductTypeSized,
			BasePrices: models.SizePriceMap{
				constants.ProductSizeSmall:  money("9.00"),
				constants.ProductSizeMedium: money("12.00"),
				constants.ProductSizeLarge:  money("15.00"),
			},
			Addons: models.AddonSpecs{
				{Name: "加珍珠", Price: money("2.00")},
				{Name: "布丁", Price: money("3.00")},
			},
			Images:    models.StringArray{"/uploads/products/pearl-milk-tea.jpg"},
			Tags:      models.StringArray{"bestseller"},
			IsActive:  true,
			SortOrder: 10,
		},
		{
			CategoryID: categoryIDs["drinks"],
			Slug:       "lemon-iced-tea",
			TitleJSON: models.JSON(map[string]interface{}{
				"zh-CN": "柠檬冰红茶",
				"en-US": "Lemon Iced Tea",
			}),
			Type:        constants.ProductTypeSimple,
			PriceAmount: money("8.00"),
			Images:      models.StringArray{"/uploads/products/lemon-iced-tea.jpg"},
			IsActive:    true,
			SortOrder:   20,
		},
		{
			CategoryID: categoryIDs["sides"],
			Slug:       "crispy-spring-rolls",
			TitleJSON: models.JSON(map[string]interface{}{
				"zh-CN": "香脆春卷",
				"en-US": "Crispy Spring Rolls",
			}),
			Type:        constants.ProductTypeSimple,
			PriceAmount: money("10.00"),
			Images:      models.StringArray{"/uploads/products/crispy-spring-rolls.jpg"},
			IsActive:    true,
			SortOrder:   10,
		},
		{
			CategoryID: categoryIDs["sides"],
			Slug:       "salted-fries",
			TitleJSON: models.JSON(map[string]interface{}{
				"zh-CN": "椒盐薯条",
				"en-US": "Salted Fries",
			}),
			Type:        constants.ProductTypeSimple,
			PriceAmount: money("12.00"),
			Images:      models.StringArray{"/uploads/products/salted-fries.jpg"},
			IsActive:    true,
			SortOrder:   20,
		},
	}

	productIDs := make(map[string]uint, len(products)+1)
	for _, product := range products {
		var existing models.Product
		if err := models.DB.Where("slug = ?", product.Slug).First(&existing).Error; err != nil {
			if err := models.DB.Create(&product).Error; err != nil {
				stdLog.Fatalf("Failed to create product %s: %v", product.Slug, err)
			}
			productIDs[product.Slug] = product.ID
			stdLog.Printf("Created product: %s", product.Slug)
		} else {
			productIDs[product.Slug] = existing.ID
		}
	}

	// 套餐引用上面的单品，组件价格由引擎在比价时重构
	combo := models.Product{
		CategoryID: categoryIDs["combos"],
		Slug:       "beef-rice-combo",
		TitleJSON: models.JSON(map[string]interface{}{
			"zh-CN": "牛肉饭套餐",
			"en-US": "Beef Rice Combo",
		}),
		DescriptionJSON: models.JSON(map[string]interface{}{
			"zh-CN": "红烧牛肉饭 + 中杯珍珠奶茶 + 香脆春卷",
			"en-US": "Braised beef rice with a medium pearl milk tea and spring rolls",
		}),
		Type:      constants.ProductTypeCombo,
		BasePrice: money("42.00"),
		ComboItems: models.ComboComponents{
			{ProductID: productIDs["braised-beef-rice"], Quantity: 1},
			{ProductID: productIDs["pearl-milk-tea"], Size: constants.ProductSizeMedium, Quantity: 1},
			{ProductID: productIDs["crispy-spring-rolls"], Quantity: 1},
		},
		Images:    models.StringArray{"/uploads/products/beef-rice-combo.jpg"},
		Tags:      models.StringArray{"combo"},
		IsActive:  true,
		SortOrder: 10,
	}
	var existingCombo models.Product
	if err := models.DB.Where("slug = ?", combo.Slug).First(&existingCombo).Error; err != nil {
		if err := models.DB.Create(&combo).Error; err != nil {
			stdLog.Fatalf("Failed to create product %s: %v", combo.Slug, err)
		}
		stdLog.Printf("Created product: %s", combo.Slug)
	}

	// 促销规则：每种类型一条，便于演示引擎行为
	now := time.Now()
	yearEnd := time.Date(now.Year(), 12, 31, 23, 59, 59, 0, now.Location())
	rules := []models.PromotionRule{
		{
			Name:       "工作日下午茶饮品 8 折",
			Type:       constants.PromotionTypeTimeBased,
			ApplyOrder: 10,
			ConditionsJSON: models.JSON(map[string]interface{}{
				"days_of_week":     []interface{}{1, 2, 3, 4, 5},
				"hour_range":       map[string]interface{}{"start": 14, "end": 17},
				"product_category": "drinks",
			}),
			DiscountJSON: models.JSON(map[string]interface{}{
				"kind":  constants.DiscountKindPercentage,
				"value": 20,
			}),
			Stackable: false,
			IsActive:  true,
		},
		{
			Name:       "新客立减 5 元",
			Type:       constants.PromotionTypeFirstOrder,
			ApplyOrder: 20,
			DiscountJSON: models.JSON(map[string]interface{}{
				"kind":  constants.DiscountKindFixed,
				"value": 5,
			}),
			MinSubtotal: money("20.00"),
			Stackable:   false,
			IsActive:    true,
		},
		{
			Name:       "小食第三件免单",
			Type:       constants.PromotionTypeBulk,
			ApplyOrder: 30,
			ConditionsJSON: models.JSON(map[string]interface{}{
				"product_category": "sides",
				"min_quantity":     3,
			}),
			DiscountJSON: models.JSON(map[string]interface{}{
				"kind":      constants.DiscountKindFreeItem,
				"for_every": 3,
				"pay_for":   2,
			}),
			Stackable: false,
			IsActive:  true,
		},
		{
			Name:       "主食满减 10%",
			Type:       constants.PromotionTypeCategory,
			ApplyOrder: 40,
			ConditionsJSON: models.JSON(map[string]interface{}{
				"product_category": "mains",
				"min_subtotal":     30,
			}),
			DiscountJSON: models.JSON(map[string]interface{}{
				"kind":  constants.DiscountKindPercentage,
				"value": 10,
			}),
			Stackable: true,
			IsActive:  true,
		},
		{
			Name:       "欢迎券 WELCOME10",
			Type:       constants.PromotionTypeCoupon,
			ApplyOrder: 50,
			Code:       "WELCOME10",
			DiscountJSON: models.JSON(map[string]interface{}{
				"kind":  constants.DiscountKindFixed,
				"value": 10,
			}),
			MinSubtotal: money("50.00"),
			MaxUsage:    1000,
			ValidUntil:  &yearEnd,
			Stackable:   false,
			IsActive:    true,
		},
		{
			Name:       "套餐自动比价",
			Type:       constants.PromotionTypePriceCompare,
			ApplyOrder: 60,
			ConditionsJSON: models.JSON(map[string]interface{}{
				"product_types": []interface{}{constants.ProductTypeCombo},
			}),
			Stackable: true,
			IsActive:  true,
		},
	}

	for _, rule := range rules {
		var existing models.PromotionRule
		if err := models.DB.Where("name = ? AND type = ?", rule.Name, rule.Type).First(&existing).Error; err != nil {
			if err := models.DB.Create(&rule).Error; err != nil {
				stdLog.Printf("Failed to create promotion rule %s: %v", rule.Name, err)
			} else {
				stdLog.Printf("Created promotion rule: %s", rule.Name)
			}
		}
	}

	// 站点与下单相关设置
	settings := map[string]map[string]interface{}{
		constants.SettingKeySiteConfig: {
			"store_name": map[string]interface{}{
				"zh-CN": "点餐小馆",
				"en-US": "Diancan Kitchen",
			},
			constants.SettingFieldSiteCurrency: constants.SiteCurrencyDefault,
			"announcement": map[string]interface{}{
				"zh-CN": "工作日下午茶饮品 8 折，新客立减 5 元",
				"en-US": "20% off drinks on weekday afternoons, 5 off your first order",
			},
			"languages": constants.SupportedLocales,
		},
		constants.SettingKeyOrderConfig: {
			constants.SettingFieldPaymentExpireMinutes: 15,
		},
		constants.SettingKeyDeliveryConfig: {
			constants.SettingFieldDeliveryFee: 5,
		},
		constants.SettingKeyPromotionDefaults: {
			"tie_breaker": constants.TieBreakerFavorCustomer,
			"max_stack":   constants.MaxStackDefault,
		},
	}

	for key, value := range settings {
		var setting models.Setting
		if err := models.DB.Where("key = ?", key).First(&setting).Error; err != nil {
			setting = models.Setting{Key: key, ValueJSON: models.JSON(value)}
			if err := models.DB.Create(&setting).Error; err != nil {
				stdLog.Printf("Failed to create setting %s: %v", key, err)
			} else {
				stdLog.Printf("Created setting: %s", key)
			}
		} else {
			setting.ValueJSON = models.JSON(value)
			if err := models.DB.Save(&setting).Error; err != nil {
				stdLog.Printf("Failed to update setting %s: %v", key, err)
			} else {
				stdLog.Printf("Updated setting: %s", key)
			}
		}
	}

	fmt.Println("\n✅ Demo menu created successfully!")
	fmt.Println("Summary:")
	fmt.Println("- 4 Categories")
	fmt.Println("- 7 Products (simple / sized / combo)")
	fmt.Println("- 6 Promotion rules (one per type)")
	fmt.Println("- Site, order, delivery and promotion settings")
}
