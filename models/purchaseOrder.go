package models

import (
	"context"
	"strings"
	"time"

	"github.com/mmdatafocus/erp_backend/config"
	"github.com/mmdatafocus/erp_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QuantityTrio tracks one unit basis of an order. Balance is always Total - Received.
type QuantityTrio struct {
	Total    decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"total"`
	Received decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"received"`
	Balance  decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"balance"`
}

func (q *QuantityTrio) rebalance() {
	q.Balance = q.Total.Sub(q.Received)
}

type PurchaseOrder struct {
	ID                 int             `gorm:"primary_key" json:"id"`
	CompanyId          string          `gorm:"size:64;not null;uniqueIndex:idx_purchase_order_number,priority:1" json:"company_id"`
	PoNumber           string          `gorm:"size:20;not null;uniqueIndex:idx_purchase_order_number,priority:2" json:"po_number"`
	PoDate             time.Time       `gorm:"not null;index" json:"po_date"`
	CreditorAccountId  int             `gorm:"not null;index" json:"creditor_account_id"`
	CreditorLevel1Code string          `gorm:"size:2" json:"creditor_level1_code"`
	CreditorLevel2Code string          `gorm:"size:2" json:"creditor_level2_code"`
	CreditorLevel3Code string          `gorm:"size:3" json:"creditor_level3_code"`
	SubAccountId       int             `gorm:"not null;index" json:"sub_account_id"`
	SubAccountFullcode string          `gorm:"size:12" json:"sub_account_fullcode"`
	ItemId             int             `gorm:"not null;index" json:"item_id"`
	Rate               decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"rate"`
	Bags               QuantityTrio    `gorm:"embedded;embeddedPrefix:bags_" json:"bags"`
	Weight             QuantityTrio    `gorm:"embedded;embeddedPrefix:weight_" json:"weight"`
	Truck              QuantityTrio    `gorm:"embedded;embeddedPrefix:truck_" json:"truck"`
	Remarks            string          `gorm:"type:text" json:"remarks"`
	IsCancelled        bool            `gorm:"not null;default:false;index" json:"is_cancelled"`
	CancelledAt        *time.Time      `json:"cancelled_at"`
	CreatedBy          string          `gorm:"size:100" json:"created_by"`
	UpdatedBy          string          `gorm:"size:100" json:"updated_by"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPurchaseOrder struct {
	PoNumber          string          `json:"po_number"`
	PoDate            time.Time       `json:"po_date" binding:"required"`
	CreditorAccountId int             `json:"creditor_account_id" binding:"required"`
	SubAccountId      int             `json:"sub_account_id" binding:"required"`
	ItemId            int             `json:"item_id" binding:"required"`
	Rate              decimal.Decimal `json:"rate"`
	TotalBags         decimal.Decimal `json:"total_bags"`
	TotalWeight       decimal.Decimal `json:"total_weight"`
	TotalTruck        decimal.Decimal `json:"total_truck"`
	Remarks           string          `json:"remarks"`
}

type PurchaseOrderReceipt struct {
	Bags   decimal.Decimal `json:"bags"`
	Weight decimal.Decimal `json:"weight"`
	Truck  decimal.Decimal `json:"truck"`
}

type PurchaseOrderFilter struct {
	FromDate    *time.Time
	ToDate      *time.Time
	IsCancelled *bool
	ItemId      *int
}

type purchaseOrderRefs struct {
	creditor *DefaultAccount
	sub      *AccountLevel4
	item     *Item
}

func (input *NewPurchaseOrder) validate(ctx context.Context, companyId string) (*purchaseOrderRefs, error) {
	input.PoNumber = strings.TrimSpace(input.PoNumber)
	if input.PoDate.IsZero() {
		return nil, utils.NewValidationError("poDate", "po date is required")
	}
	totals := map[string]decimal.Decimal{"totalBags": input.TotalBags, "totalWeight": input.TotalWeight, "totalTruck": input.TotalTruck}
	anyPositive := false
	for field, v := range totals {
		if v.IsNegative() {
			return nil, utils.NewValidationError(field, "%s must not be negative", field)
		}
		anyPositive = anyPositive || v.IsPositive()
	}
	if !anyPositive {
		return nil, utils.NewValidationError("totalBags", "at least one ordered quantity is required")
	}
	if input.Rate.IsNegative() {
		return nil, utils.NewValidationError("rate", "rate must not be negative")
	}

	db := config.GetDB().WithContext(ctx)
	var refs purchaseOrderRefs
	var err error
	if refs.creditor, err = fetchRoleAccount(db, companyId, input.CreditorAccountId, RoleCreditorAccount, "creditorAccount"); err != nil {
		return nil, err
	}
	if refs.sub, err = fetchChainNode[AccountLevel4](db, companyId, input.SubAccountId, "subAccount"); err != nil {
		return nil, err
	}
	if err := checkSubAccountChain(db, companyId, refs.creditor, refs.sub); err != nil {
		return nil, err
	}
	if refs.item, err = fetchChainNode[Item](db, companyId, input.ItemId, "item"); err != nil {
		return nil, err
	}
	return &refs, nil
}

func (po *PurchaseOrder) applyReferences(refs *purchaseOrderRefs) {
	po.CreditorAccountId = refs.creditor.ID
	po.CreditorLevel1Code = refs.creditor.Level1Code
	po.CreditorLevel2Code = refs.creditor.Level2Code
	po.CreditorLevel3Code = refs.creditor.Level3Code
	po.SubAccountId = refs.sub.ID
	po.SubAccountFullcode = refs.sub.Fullcode
	po.ItemId = refs.item.ID
}

func CreatePurchaseOrder(ctx context.Context, input *NewPurchaseOrder) (*PurchaseOrder, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	refs, err := input.validate(ctx, companyId)
	if err != nil {
		return nil, err
	}

	username := usernameFromContext(ctx)
	po := PurchaseOrder{
		CompanyId: companyId,
		PoDate:    utils.DateOnly(input.PoDate),
		Rate:      input.Rate,
		Bags:      QuantityTrio{Total: input.TotalBags},
		Weight:    QuantityTrio{Total: input.TotalWeight},
		Truck:     QuantityTrio{Total: input.TotalTruck},
		Remarks:   input.Remarks,
		CreatedBy: username,
		UpdatedBy: username,
	}
	po.applyReferences(refs)
	po.Bags.rebalance()
	po.Weight.rebalance()
	po.Truck.rebalance()

	release, lockErr := utils.CompanyLock(ctx, companyId, "po_number", moduleName, "CreatePurchaseOrder")
	defer release()
	if lockErr != nil {
		config.GetLogger().WithField("company_id", companyId).Warn(lockErr.Error())
	}

	for attempt := 1; ; attempt++ {
		err = createPurchaseOrderOnce(ctx, &po, input.PoNumber)
		if err == nil {
			return &po, nil
		}
		if !utils.IsDuplicateKeyErr(err) {
			return nil, err
		}
		if input.PoNumber != "" {
			return nil, utils.NewDuplicateError("poNumber", input.PoNumber)
		}
		if attempt >= invoiceAllocationAttempts {
			return nil, utils.TranslateDuplicate(err, "poNumber", po.PoNumber)
		}
	}
}

func createPurchaseOrderOnce(ctx context.Context, po *PurchaseOrder, supplied string) error {
	tx := beginTx(ctx)
	defer rollback(tx)

	po.ID = 0
	number, err := AllocatePONumber(tx, po.CompanyId, po.PoDate, supplied)
	if err != nil {
		return err
	}
	po.PoNumber = number
	if err := tx.Create(po).Error; err != nil {
		return err
	}
	return tx.Commit().Error
}

// lockPurchaseOrder reads the order FOR UPDATE and refuses cancelled ones.
func lockPurchaseOrder(tx *gorm.DB, companyId string, id int) (*PurchaseOrder, error) {
	var po PurchaseOrder
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("company_id = ? AND id = ?", companyId, id).
		First(&po).Error
	if err != nil {
		return nil, notFound("PurchaseOrder", err)
	}
	if po.IsCancelled {
		return nil, utils.NewValidationError("isCancelled", "purchase order %s is cancelled", po.PoNumber)
	}
	return &po, nil
}

func trioColumns(prefix string, q QuantityTrio) map[string]interface{} {
	return map[string]interface{}{
		prefix + "_total":    q.Total,
		prefix + "_received": q.Received,
		prefix + "_balance":  q.Balance,
	}
}

func savePurchaseOrderQuantities(tx *gorm.DB, po *PurchaseOrder, extra map[string]interface{}) error {
	fields := map[string]interface{}{}
	for _, m := range []map[string]interface{}{trioColumns("bags", po.Bags), trioColumns("weight", po.Weight), trioColumns("truck", po.Truck), extra} {
		for k, v := range m {
			fields[k] = v
		}
	}
	return tx.Model(&PurchaseOrder{}).Where("company_id = ? AND id = ?", po.CompanyId, po.ID).Updates(fields).Error
}

// UpdatePurchaseOrder changes the order terms. The number is kept and totals may not drop below what was received.
func UpdatePurchaseOrder(ctx context.Context, id int, input *NewPurchaseOrder) (*PurchaseOrder, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	refs, err := input.validate(ctx, companyId)
	if err != nil {
		return nil, err
	}

	tx := beginTx(ctx)
	defer rollback(tx)
	po, err := lockPurchaseOrder(tx, companyId, id)
	if err != nil {
		return nil, err
	}

	checks := []struct {
		field string
		trio  *QuantityTrio
		total decimal.Decimal
	}{
		{"totalBags", &po.Bags, input.TotalBags},
		{"totalWeight", &po.Weight, input.TotalWeight},
		{"totalTruck", &po.Truck, input.TotalTruck},
	}
	for _, c := range checks {
		if c.total.LessThan(c.trio.Received) {
			return nil, utils.NewValidationError(c.field, "%s %s is below the received %s", c.field, c.total.String(), c.trio.Received.String())
		}
		c.trio.Total = c.total
		c.trio.rebalance()
	}

	po.applyReferences(refs)
	po.PoDate = utils.DateOnly(input.PoDate)
	po.Rate = input.Rate
	po.Remarks = input.Remarks
	po.UpdatedBy = usernameFromContext(ctx)
	err = savePurchaseOrderQuantities(tx, po, map[string]interface{}{
		"PoDate":             po.PoDate,
		"CreditorAccountId":  po.CreditorAccountId,
		"CreditorLevel1Code": po.CreditorLevel1Code,
		"CreditorLevel2Code": po.CreditorLevel2Code,
		"CreditorLevel3Code": po.CreditorLevel3Code,
		"SubAccountId":       po.SubAccountId,
		"SubAccountFullcode": po.SubAccountFullcode,
		"ItemId":             po.ItemId,
		"Rate":               po.Rate,
		"Remarks":            po.Remarks,
		"UpdatedBy":          po.UpdatedBy,
	})
	if err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return po, nil
}

// ReceivePurchaseOrder adds a receipt. No basis may be received beyond its total.
func ReceivePurchaseOrder(ctx context.Context, id int, receipt *PurchaseOrderReceipt) (*PurchaseOrder, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	deltas := []struct {
		field string
		v     decimal.Decimal
	}{{"bags", receipt.Bags}, {"weight", receipt.Weight}, {"truck", receipt.Truck}}
	anyPositive := false
	for _, d := range deltas {
		if d.v.IsNegative() {
			return nil, utils.NewValidationError(d.field, "received %s must not be negative", d.field)
		}
		anyPositive = anyPositive || d.v.IsPositive()
	}
	if !anyPositive {
		return nil, utils.NewValidationError("bags", "nothing to receive")
	}

	tx := beginTx(ctx)
	defer rollback(tx)
	po, err := lockPurchaseOrder(tx, companyId, id)
	if err != nil {
		return nil, err
	}
	trios := []*QuantityTrio{&po.Bags, &po.Weight, &po.Truck}
	for i, d := range deltas {
		received := trios[i].Received.Add(d.v)
		if received.GreaterThan(trios[i].Total) {
			return nil, utils.NewValidationError(d.field, "received %s %s exceeds ordered %s", d.field, received.String(), trios[i].Total.String())
		}
		trios[i].Received = received
		trios[i].rebalance()
	}
	po.UpdatedBy = usernameFromContext(ctx)
	if err := savePurchaseOrderQuantities(tx, po, map[string]interface{}{"UpdatedBy": po.UpdatedBy}); err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return po, nil
}

// CancelPurchaseOrder is terminal.
func CancelPurchaseOrder(ctx context.Context, id int) (*PurchaseOrder, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	tx := beginTx(ctx)
	defer rollback(tx)
	po, err := lockPurchaseOrder(tx, companyId, id)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	po.IsCancelled = true
	po.CancelledAt = &now
	po.UpdatedBy = usernameFromContext(ctx)
	err = tx.Model(&PurchaseOrder{}).Where("company_id = ? AND id = ?", companyId, id).Updates(map[string]interface{}{
		"IsCancelled": true,
		"CancelledAt": &now,
		"UpdatedBy":   po.UpdatedBy,
	}).Error
	if err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return po, nil
}

func GetPurchaseOrder(ctx context.Context, id int) (*PurchaseOrder, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	po, err := utils.FetchModel[PurchaseOrder](ctx, companyId, id)
	if err != nil {
		return nil, notFound("PurchaseOrder", err)
	}
	return po, nil
}

func ListPurchaseOrders(ctx context.Context, filter PurchaseOrderFilter) ([]*PurchaseOrder, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	dbCtx := config.GetDB().WithContext(ctx).Where("company_id = ?", companyId)
	if filter.FromDate != nil {
		dbCtx = dbCtx.Where("po_date >= ?", utils.DateOnly(*filter.FromDate))
	}
	if filter.ToDate != nil {
		dbCtx = dbCtx.Where("po_date <= ?", utils.DateOnly(*filter.ToDate))
	}
	if filter.IsCancelled != nil {
		dbCtx = dbCtx.Where("is_cancelled = ?", *filter.IsCancelled)
	}
	if filter.ItemId != nil && *filter.ItemId > 0 {
		dbCtx = dbCtx.Where("item_id = ?", *filter.ItemId)
	}
	var results []*PurchaseOrder
	err = dbCtx.Order("po_date DESC, id DESC").Find(&results).Error
	return results, err
}
