package model

import (
	"strings"
	"time"
)

// ============================================================================
// 商品目录与购买小票
// ============================================================================

const (
	ProductCategoryAll     = "all"
	ProductCategoryGoods   = "goods"
	ProductCategoryDigital = "digital"
	ProductCategoryCoupon  = "coupon"
)

// Product 商品
// 商品目录是静态参考数据，运行期不增删改，因此不落库
type Product struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"` // 硬币价格，非负
	Category    string `json:"category"`
}

// Products 静态商品目录
var Products = []Product{
	{ID: 1, Name: "骑士团限定卫衣", Description: "骑士团限定版连帽卫衣", Price: 120, Category: ProductCategoryGoods},
	{ID: 2, Name: "徽章套装", Description: "适合贴在笔记本电脑上的徽章三件套", Price: 40, Category: ProductCategoryGoods},
	{ID: 3, Name: "贴纸包", Description: "各式各样的贴纸", Price: 20, Category: ProductCategoryGoods},
	{ID: 4, Name: "USB 32GB", Description: "资料备份用U盘", Price: 60, Category: ProductCategoryDigital},
	{ID: 5, Name: "无线鼠标", Description: "做任务专用鼠标", Price: 80, Category: ProductCategoryDigital},
	{ID: 6, Name: "咖啡券", Description: "熬夜写代码必备咖啡", Price: 15, Category: ProductCategoryCoupon},
	{ID: 7, Name: "便利店零食券", Description: "夜宵零食券", Price: 10, Category: ProductCategoryCoupon},
}

// FindProduct 按ID查找商品，找不到返回 nil
func FindProduct(productID int64) *Product {
	for i := range Products {
		if Products[i].ID == productID {
			return &Products[i]
		}
	}
	return nil
}

// FilterProducts 按分类和关键字过滤商品
// category 为 "all" 或空时不过滤分类；search 对名称/描述做不区分大小写的子串匹配
func FilterProducts(category, search string) []Product {
	category = strings.ToLower(strings.TrimSpace(category))
	search = strings.ToLower(strings.TrimSpace(search))

	list := make([]Product, 0, len(Products))
	for _, p := range Products {
		if category != "" && category != ProductCategoryAll && p.Category != category {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		list = append(list, p)
	}
	return list
}

// Purchase 购买小票表
// 每次成功扣款后追加一条，永不修改、永不删除
// 商品名称和价格做冗余快照，目录以后调价不会改写历史
type Purchase struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ReceiptNo   string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"receipt_no"` // 小票编号（全局唯一）
	UserID      int64     `gorm:"index;not null" json:"user_id"`
	ProductID   int64     `gorm:"index;not null" json:"product_id"`
	ProductName string    `gorm:"type:varchar(128);not null" json:"product_name"` // 快照
	Price       int64     `gorm:"not null" json:"price"`                          // 快照
	PurchasedAt time.Time `gorm:"autoCreateTime;index" json:"purchased_at"`
}

func (Purchase) TableName() string {
	return "purchase"
}
