package models

import (
	"log"

	"github.com/mmdatafocus/erp_backend/config"
	"gorm.io/gorm"
)

// AllModels lists every table in dependency order.
func AllModels() []interface{} {
	return []interface{}{
		&AccountLevel1{},
		&AccountLevel2{},
		&AccountLevel3{},
		&AccountLevel4{},
		&DefaultAccount{},
		&ParentCenter{},
		&ChildCenter{},
		&Godown{},
		&Item{},
		&TaxRateSetting{},
		&TaxRateLine{},
		&DiscountRate{},
		&DiscountRateLine{},
		&ProductRate{},
		&NumberSequence{},
		&SalesVoucher{},
		&SalesVoucherItem{},
		&AccountingEntry{},
		&VoucherEvent{},
		&PurchaseOrder{},
	}
}

// Migrate runs AutoMigrate on db.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}

func MigrateTable() {
	if err := Migrate(config.GetDB()); err != nil {
		log.Fatal(err)
	}
}
