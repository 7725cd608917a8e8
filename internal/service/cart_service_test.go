package service

import (
	"errors"
	"testing"

	"github.com/diancan-next/internal/constants"
	"github.com/diancan-next/internal/models"
)

func TestCartAddItemMergesSameSelection(t *testing.T) {
	env := newServiceTestEnv(t)
	category := env.createCategory(t, "drinks")
	product := env.createSizedProduct(t, category.ID, "milk-tea", map[string]string{
		constants.ProductSizeMedium: "12.00",
		constants.ProductSizeLarge:  "15.00",
	}, models.AddonSpecs{
		{Name: "加珍珠", Price: testMoney("2.00")},
	})

	token := env.cartSvc.NewSessionToken()
	first, err := env.cartSvc.AddItem(token, AddItemInput{
		ProductID: product.ID,
		Size:      constants.ProductSizeMedium,
		Quantity:  1,
		Addons:    []string{"加珍珠"},
	})
	if err != nil {
		t.Fatalf("add item failed: %v", err)
	}
	second, err := env.cartSvc.AddItem(token, AddItemInput{
		ProductID: product.ID,
		Size:      constants.ProductSizeMedium,
		Quantity:  2,
		Addons:    []string{"加珍珠"},
	})
	if err != nil {
		t.Fatalf("add item again failed: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected merge into same line, got new line %d", second.ID)
	}
	if second.Quantity != 3 {
		t.Fatalf("expected merged quantity 3, got %d", second.Quantity)
	}
	// 单价含加料
	if !second.UnitPrice.Decimal.Equal(testMoney("14.00").Decimal) {
		t.Fatalf("expected unit price 14.00, got %s", second.UnitPrice.Decimal)
	}

	// 不同加料组合是独立行项
	other, err := env.cartSvc.AddItem(token, AddItemInput{
		ProductID: product.ID,
		Size:      constants.ProductSizeMedium,
		Quantity:  1,
	})
	if err != nil {
		t.Fatalf("add item without addons failed: %v", err)
	}
	if other.ID == first.ID {
		t.Fatalf("expected separate line for different addon selection")
	}
}

func TestCartAddItemValidation(t *testing.T) {
	env := newServiceTestEnv(t)
	category := env.createCategory(t, "drinks")
	sized := env.createSizedProduct(t, category.ID, "milk-tea", map[string]string{
		constants.ProductSizeMedium: "12.00",
	}, nil)
	inactive := env.createSimpleProduct(t, category.ID, "off-menu", "8.00")
	if err := env.db.Model(inactive).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate product failed: %v", err)
	}

	token := env.cartSvc.NewSessionToken()
	cases := []struct {
		name  string
		input AddItemInput
		want  error
	}{
		{"zero quantity", AddItemInput{ProductID: sized.ID, Size: constants.ProductSizeMedium, Quantity: 0}, ErrQuantityInvalid},
		{"over limit", AddItemInput{ProductID: sized.ID, Size: constants.ProductSizeMedium, Quantity: 100}, ErrQuantityInvalid},
		{"unknown product", AddItemInput{ProductID: 9999, Quantity: 1}, ErrProductNotFound},
		{"inactive product", AddItemInput{ProductID: inactive.ID, Quantity: 1}, ErrProductInactive},
		{"missing size", AddItemInput{ProductID: sized.ID, Quantity: 1}, ErrProductSizeInvalid},
		{"unknown size", AddItemInput{ProductID: sized.ID, Size: "XL", Quantity: 1}, ErrProductSizeInvalid},
		{"unknown addon", AddItemInput{ProductID: sized.ID, Size: constants.ProductSizeMedium, Quantity: 1, Addons: []string{"芝士"}}, ErrProductAddonInvalid},
	}
	for _, tc := range cases {
		if _, err := env.cartSvc.AddItem(token, tc.input); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestCartItemOwnership(t *testing.T) {
	env := newServiceTestEnv(t)
	category := env.createCategory(t, "sides")
	product := env.createSimpleProduct(t, category.ID, "fries", "12.00")

	token := env.cartSvc.NewSessionToken()
	item, err := env.cartSvc.AddItem(token, AddItemInput{ProductID: product.ID, Quantity: 1})
	if err != nil {
		t.Fatalf("add item failed: %v", err)
	}

	stranger := env.cartSvc.NewSessionToken()
	if _, err := env.cartSvc.UpdateQuantity(stranger, item.ID, 2); !errors.Is(err, ErrCartItemNotFound) {
		t.Fatalf("expected ErrCartItemNotFound for foreign session, got %v", err)
	}
	if err := env.cartSvc.RemoveItem(stranger, item.ID); !errors.Is(err, ErrCartItemNotFound) {
		t.Fatalf("expected ErrCartItemNotFound for foreign remove, got %v", err)
	}

	updated, err := env.cartSvc.UpdateQuantity(token, item.ID, 5)
	if err != nil {
		t.Fatalf("update quantity failed: %v", err)
	}
	if updated.Quantity != 5 {
		t.Fatalf("expected quantity 5, got %d", updated.Quantity)
	}
	if err := env.cartSvc.RemoveItem(token, item.ID); err != nil {
		t.Fatalf("remove item failed: %v", err)
	}
	view, err := env.cartSvc.GetCart(token, "")
	if err != nil {
		t.Fatalf("get cart failed: %v", err)
	}
	if len(view.Items) != 0 {
		t.Fatalf("expected empty cart, got %d items", len(view.Items))
	}
}

func TestCartTotalsWithCoupon(t *testing.T) {
	env := newServiceTestEnv(t)
	category := env.createCategory(t, "mains")
	product := env.createSimpleProduct(t, category.ID, "beef-rice", "28.00")
	env.createCouponRule(t, "SAVE10", "10", "50.00", 0)
	env.reloadRules(t)

	token := env.cartSvc.NewSessionToken()
	if _, err := env.cartSvc.AddItem(token, AddItemInput{ProductID: product.ID, Quantity: 2}); err != nil {
		t.Fatalf("add item failed: %v", err)
	}

	view, err := env.cartSvc.GetCart(token, "SAVE10")
	if err != nil {
		t.Fatalf("get cart failed: %v", err)
	}
	if !view.Totals.Subtotal.Equal(testMoney("56.00").Decimal) {
		t.Fatalf("expected subtotal 56.00, got %s", view.Totals.Subtotal)
	}
	if !view.Totals.Discount.Equal(testMoney("10.00").Decimal) {
		t.Fatalf("expected discount 10.00, got %s", view.Totals.Discount)
	}
	if !view.Totals.Total.Equal(testMoney("46.00").Decimal) {
		t.Fatalf("expected total 46.00, got %s", view.Totals.Total)
	}
}

func TestBuildTransientItems(t *testing.T) {
	env := newServiceTestEnv(t)
	category := env.createCategory(t, "drinks")
	product := env.createSizedProduct(t, category.ID, "milk-tea", map[string]string{
		constants.ProductSizeLarge: "15.00",
	}, models.AddonSpecs{
		{Name: "布丁", Price: testMoney("3.00")},
	})

	items, err := env.cartSvc.BuildTransientItems([]AddItemInput{
		{ProductID: product.ID, Size: constants.ProductSizeLarge, Quantity: 2, Addons: []string{"布丁"}},
	})
	if err != nil {
		t.Fatalf("build transient items failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Product == nil {
		t.Fatalf("expected product snapshot on transient item")
	}
	if !items[0].UnitPrice.Decimal.Equal(testMoney("18.00").Decimal) {
		t.Fatalf("expected unit price 18.00, got %s", items[0].UnitPrice.Decimal)
	}

	// 试算不落库
	var count int64
	if err := env.db.Model(&models.CartItem{}).Count(&count).Error; err != nil {
		t.Fatalf("count cart items failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no persisted cart items, got %d", count)
	}
}
