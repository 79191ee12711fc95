package model

import "testing"

func TestFindProduct(t *testing.T) {
	p := FindProduct(7)
	if p == nil {
		t.Fatal("product 7 not found")
	}
	if p.Name != "便利店零食券" || p.Price != 10 || p.Category != ProductCategoryCoupon {
		t.Fatalf("product = %+v", p)
	}

	if FindProduct(999) != nil {
		t.Fatal("unknown product should return nil")
	}
}

func TestFilterProducts(t *testing.T) {
	if got := len(FilterProducts("", "")); got != len(Products) {
		t.Fatalf("no filter = %d, want %d", got, len(Products))
	}
	if got := len(FilterProducts("all", "")); got != len(Products) {
		t.Fatalf("category all = %d, want %d", got, len(Products))
	}

	coupons := FilterProducts(ProductCategoryCoupon, "")
	if len(coupons) != 2 {
		t.Fatalf("coupons = %d, want 2", len(coupons))
	}
	for _, p := range coupons {
		if p.Category != ProductCategoryCoupon {
			t.Fatalf("unexpected category %q", p.Category)
		}
	}

	// 分类大小写不敏感
	if got := len(FilterProducts("COUPON", "")); got != 2 {
		t.Fatalf("upper-case category = %d, want 2", got)
	}

	// 关键字同时匹配名称和描述
	byName := FilterProducts("", "鼠标")
	if len(byName) != 1 || byName[0].ID != 5 {
		t.Fatalf("search by name = %+v", byName)
	}
	byDesc := FilterProducts("", "备份")
	if len(byDesc) != 1 || byDesc[0].ID != 4 {
		t.Fatalf("search by description = %+v", byDesc)
	}

	// 分类 + 关键字组合
	combined := FilterProducts(ProductCategoryCoupon, "咖啡")
	if len(combined) != 1 || combined[0].ID != 6 {
		t.Fatalf("combined filter = %+v", combined)
	}

	if got := len(FilterProducts("", "不存在的商品")); got != 0 {
		t.Fatalf("no match = %d, want 0", got)
	}
}
