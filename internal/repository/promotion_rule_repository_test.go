package repository

import (
	"testing"

	"github.com/diancan-next/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupPromotionRuleRepositoryTest(t *testing.T) *GormPromotionRuleRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.Migrator().DropTable(&models.PromotionRule{}); err != nil {
		t.Fatalf("drop promotion_rules failed: %v", err)
	}
	if err := db.AutoMigrate(&models.PromotionRule{}); err != nil {
		t.Fatalf("migrate promotion_rules failed: %v", err)
	}
	return NewPromotionRuleRepository(db)
}

func createRule(t *testing.T, repo *GormPromotionRuleRepository, name, ruleType, code string, applyOrder int, active bool) *models.PromotionRule {
	t.Helper()
	rule := &models.PromotionRule{
		Name:        name,
		Type:        ruleType,
		ApplyOrder:  applyOrder,
		Code:        code,
		MinSubtotal: models.NewMoneyFromDecimal(decimal.Zero),
		IsActive:    active,
	}
	if err := repo.Create(rule); err != nil {
		t.Fatalf("create rule failed: %v", err)
	}
	return rule
}

func TestPromotionRuleListOrder(t *testing.T) {
	repo := setupPromotionRuleRepositoryTest(t)
	createRule(t, repo, "late", "time_based", "", 999, true)
	createRule(t, repo, "early", "category", "", 10, true)
	createRule(t, repo, "disabled", "bulk", "", 1, false)

	rules, total, err := repo.List(PromotionRuleListFilter{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 3 || len(rules) != 3 {
		t.Fatalf("expected all 3 rules, got total=%d len=%d", total, len(rules))
	}
	if rules[0].Name != "disabled" || rules[1].Name != "early" || rules[2].Name != "late" {
		t.Fatalf("expected apply_order ascending, got %s, %s, %s", rules[0].Name, rules[1].Name, rules[2].Name)
	}
}

func TestPromotionRuleGetByCodeCaseInsensitive(t *testing.T) {
	repo := setupPromotionRuleRepositoryTest(t)
	created := createRule(t, repo, "welcome", "coupon", "BEMVINDO10", 100, true)

	rule, err := repo.GetByCode("bemvindo10")
	if err != nil {
		t.Fatalf("get by code failed: %v", err)
	}
	if rule == nil || rule.ID != created.ID {
		t.Fatalf("expected rule %d, got %+v", created.ID, rule)
	}

	missing, err := repo.GetByCode("NOPE")
	if err != nil {
		t.Fatalf("get by code failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown code, got %+v", missing)
	}
}

func TestPromotionRuleIncrementUsage(t *testing.T) {
	repo := setupPromotionRuleRepositoryTest(t)
	rule := createRule(t, repo, "capped", "coupon", "CAP", 100, true)

	if err := repo.IncrementUsage(rule.ID, 1); err != nil {
		t.Fatalf("increment usage failed: %v", err)
	}
	if err := repo.IncrementUsage(rule.ID, 1); err != nil {
		t.Fatalf("increment usage failed: %v", err)
	}

	got, err := repo.GetByID(rule.ID)
	if err != nil {
		t.Fatalf("get by id failed: %v", err)
	}
	if got.CurrentUsage != 2 {
		t.Fatalf("expected current_usage 2, got %d", got.CurrentUsage)
	}

	// 释放一次，再超额释放一次不应下穿 0
	if err := repo.IncrementUsage(rule.ID, -1); err != nil {
		t.Fatalf("decrement usage failed: %v", err)
	}
	if err := repo.IncrementUsage(rule.ID, -5); err != nil {
		t.Fatalf("decrement usage failed: %v", err)
	}
	got, err = repo.GetByID(rule.ID)
	if err != nil {
		t.Fatalf("get by id failed: %v", err)
	}
	if got.CurrentUsage != 1 {
		t.Fatalf("expected current_usage 1, got %d", got.CurrentUsage)
	}
}

func TestPromotionRuleListFilter(t *testing.T) {
	repo := setupPromotionRuleRepositoryTest(t)
	createRule(t, repo, "a", "coupon", "A", 10, true)
	createRule(t, repo, "b", "coupon", "B", 20, false)
	createRule(t, repo, "c", "bulk", "", 5, true)

	active := true
	rules, total, err := repo.List(PromotionRuleListFilter{Type: "coupon", IsActive: &active})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 1 || len(rules) != 1 || rules[0].Name != "a" {
		t.Fatalf("expected single active coupon rule, got total=%d rules=%+v", total, rules)
	}
}
