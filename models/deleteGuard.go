package models

import (
	"gorm.io/gorm"

	"github.com/mmdatafocus/erp_backend/utils"
)

type EntityType string

const (
	EntityAccountLevel1  EntityType = "AccountLevel1"
	EntityAccountLevel2  EntityType = "AccountLevel2"
	EntityAccountLevel3  EntityType = "AccountLevel3"
	EntityAccountLevel4  EntityType = "AccountLevel4"
	EntityDefaultAccount EntityType = "DefaultAccount"
	EntityParentCenter   EntityType = "ParentCenter"
	EntityChildCenter    EntityType = "ChildCenter"
	EntityGodown         EntityType = "Godown"
	EntityItem           EntityType = "Item"
)

// Dependent is one (model, column) pair that may hold the id of a guarded entity.
type Dependent struct {
	Model string
	Field string
	count func(tx *gorm.DB, companyId string, id int) (int64, error)
}

func dependent[T any](field string) Dependent {
	return Dependent{
		Model: utils.GetTypeName[T](),
		Field: field,
		count: func(tx *gorm.DB, companyId string, id int) (int64, error) {
			return utils.ResourceCountWhereTx[T](tx, companyId, field+" = ?", id)
		},
	}
}

// dependents lists, per guarded entity, every column that can reference it.
// A new referencing model must be added here.
var dependents = map[EntityType][]Dependent{
	EntityAccountLevel1: {
		dependent[AccountLevel2]("level1_id"),
		dependent[AccountLevel3]("level1_id"),
		dependent[AccountLevel4]("level1_id"),
		dependent[DefaultAccount]("level1_id"),
	},
	EntityAccountLevel2: {
		dependent[AccountLevel3]("level2_id"),
		dependent[AccountLevel4]("level2_id"),
		dependent[DefaultAccount]("level2_id"),
	},
	EntityAccountLevel3: {
		dependent[AccountLevel4]("level3_id"),
		dependent[DefaultAccount]("level3_id"),
	},
	EntityAccountLevel4: {
		dependent[DefaultAccount]("level4_id"),
		dependent[Item]("level4_id"),
		dependent[TaxRateSetting]("level4_id"),
		dependent[DiscountRate]("level4_id"),
		dependent[ProductRate]("level4_id"),
		dependent[SalesVoucher]("sub_account_id"),
		dependent[SalesVoucherItem]("level4_id"),
		dependent[PurchaseOrder]("sub_account_id"),
	},
	EntityDefaultAccount: {
		dependent[SalesVoucher]("debtor_account_id"),
		dependent[SalesVoucherItem]("finished_good_id"),
		dependent[PurchaseOrder]("creditor_account_id"),
	},
	EntityParentCenter: {
		dependent[ChildCenter]("parent_center_id"),
		dependent[SalesVoucher]("parent_center_id"),
	},
	EntityChildCenter: {
		dependent[SalesVoucher]("child_center_id"),
	},
	EntityGodown: {
		dependent[SalesVoucher]("godown_id"),
	},
	EntityItem: {
		dependent[TaxRateSetting]("item_id"),
		dependent[DiscountRate]("item_id"),
		dependent[ProductRate]("item_id"),
		dependent[SalesVoucherItem]("product_id"),
		dependent[PurchaseOrder]("item_id"),
	},
}

// CheckDependents counts every registered dependent of (entity, id) and returns the non-zero ones.
func CheckDependents(tx *gorm.DB, companyId string, entity EntityType, id int) ([]utils.DependentReference, error) {
	var refs []utils.DependentReference
	for _, dep := range dependents[entity] {
		count, err := dep.count(tx, companyId, id)
		if err != nil {
			return nil, err
		}
		if count > 0 {
			refs = append(refs, utils.DependentReference{Model: dep.Model, Count: count, Field: dep.Field})
		}
	}
	return refs, nil
}

// guardDelete fails with a DependencyExistsError when anything still references (entity, id).
func guardDelete(tx *gorm.DB, companyId string, entity EntityType, id int) error {
	refs, err := CheckDependents(tx, companyId, entity, id)
	if err != nil {
		return err
	}
	if len(refs) > 0 {
		return utils.NewDependencyExistsError(string(entity), refs)
	}
	return nil
}
