package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mmdatafocus/erp_backend/config"
	"github.com/mmdatafocus/erp_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const invoiceAllocationAttempts = 3

type CustomerProfile struct {
	Name      string `gorm:"size:255" json:"name"`
	Phone     string `gorm:"size:30" json:"phone"`
	TaxNumber string `gorm:"size:50" json:"tax_number"`
}

type SalesVoucher struct {
	ID                 int                `gorm:"primary_key" json:"id"`
	CompanyId          string             `gorm:"size:64;not null;uniqueIndex:idx_sales_voucher_number,priority:1;index:idx_sales_voucher_date,priority:1" json:"company_id"`
	GodownId           int                `gorm:"not null;index" json:"godown_id"`
	GodownCode         string             `gorm:"size:30" json:"godown_code"`
	InvoiceType        string             `gorm:"size:30;not null" json:"invoice_type"`
	InvoiceNumber      string             `gorm:"size:30;not null;uniqueIndex:idx_sales_voucher_number,priority:2" json:"invoice_number"`
	InvoiceDate        time.Time          `gorm:"not null;index:idx_sales_voucher_date,priority:2" json:"invoice_date"`
	DebtorAccountId    int                `gorm:"not null;index" json:"debtor_account_id"`
	DebtorLevel1Code   string             `gorm:"size:2" json:"debtor_level1_code"`
	DebtorLevel2Code   string             `gorm:"size:2" json:"debtor_level2_code"`
	DebtorLevel3Code   string             `gorm:"size:3" json:"debtor_level3_code"`
	SubAccountId       int                `gorm:"not null;index" json:"sub_account_id"`
	SubAccountFullcode string             `gorm:"size:12" json:"sub_account_fullcode"`
	ParentCenterId     *int               `gorm:"index" json:"parent_center_id"`
	ParentCenterCode   string             `gorm:"size:2" json:"parent_center_code"`
	ChildCenterId      *int               `gorm:"index" json:"child_center_id"`
	ChildCenterCode    string             `gorm:"size:2" json:"child_center_code"`
	Customer           CustomerProfile    `gorm:"embedded;embeddedPrefix:customer_" json:"customer_profile"`
	Remarks            string             `gorm:"type:text" json:"remarks"`
	TotalAmount        decimal.Decimal    `gorm:"type:decimal(20,4);not null;default:0" json:"total_amount"`
	DiscountAmount     decimal.Decimal    `gorm:"type:decimal(20,4);not null;default:0" json:"discount_amount"`
	TaxAmount          decimal.Decimal    `gorm:"type:decimal(20,4);not null;default:0" json:"tax_amount"`
	NetAmountBeforeTax decimal.Decimal    `gorm:"type:decimal(20,4);not null;default:0" json:"net_amount_before_tax"`
	NetAmount          decimal.Decimal    `gorm:"type:decimal(20,4);not null;default:0" json:"net_amount"`
	IsPosted           bool               `gorm:"not null;default:false;index" json:"is_posted"`
	PostedAt           *time.Time         `json:"posted_at"`
	PostedBy           string             `gorm:"size:100" json:"posted_by"`
	FbrInvoiceNumber   string             `gorm:"size:100" json:"fbr_invoice_number"`
	Items              []SalesVoucherItem `gorm:"foreignKey:SalesVoucherId" json:"items"`
	AccountingEntries  []AccountingEntry  `gorm:"foreignKey:SalesVoucherId" json:"accounting_entries"`
	CreatedBy          string             `gorm:"size:100" json:"created_by"`
	UpdatedBy          string             `gorm:"size:100" json:"updated_by"`
	CreatedAt          time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

type SalesVoucherItem struct {
	ID                 int             `gorm:"primary_key" json:"id"`
	CompanyId          string          `gorm:"size:64;not null;index" json:"company_id"`
	SalesVoucherId     int             `gorm:"not null;index" json:"sales_voucher_id"`
	ProductId          int             `gorm:"not null;index" json:"product_id"`
	ProductCode        string          `gorm:"size:30" json:"product_code"`
	Level4Id           int             `gorm:"not null;index" json:"level4_id"`
	Level4Fullcode     string          `gorm:"size:12" json:"level4_fullcode"`
	FinishedGoodId     *int            `gorm:"index" json:"finished_good_id"`
	Quantity           decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"quantity"`
	Rate               decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"rate"`
	Amount             decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"amount"`
	Discount           decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"discount"`
	Tax                decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"tax"`
	NetAmountBeforeTax decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"net_amount_before_tax"`
	NetAmount          decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"net_amount"`
	IsExempted         bool            `gorm:"not null;default:false" json:"is_exempted"`
	DiscountBreakdown  []Breakdown     `gorm:"serializer:json;type:text" json:"discount_breakdown"`
	TaxBreakdown       []Breakdown     `gorm:"serializer:json;type:text" json:"tax_breakdown"`
}

type NewSalesVoucherItem struct {
	ProductId       int             `json:"product_id" binding:"required"`
	Quantity        decimal.Decimal `json:"quantity"`
	Rate            decimal.Decimal `json:"rate"`
	Amount          decimal.Decimal `json:"amount"`
	AccountLevel4Id int             `json:"account_level4_id"`
	FinishedGoodId  int             `json:"finished_good_id"`
}

type NewSalesVoucher struct {
	GodownId        int                   `json:"godown_id" binding:"required"`
	InvoiceType     string                `json:"invoice_type" binding:"required"`
	InvoiceNumber   string                `json:"invoice_number"`
	InvoiceDate     time.Time             `json:"invoice_date" binding:"required"`
	DebtorAccountId int                   `json:"debtor_account_id" binding:"required"`
	SubAccountId    int                   `json:"sub_account_id" binding:"required"`
	ParentCenterId  *int                  `json:"parent_center_id"`
	ChildCenterId   *int                  `json:"child_center_id"`
	CustomerProfile *CustomerProfile      `json:"customer_profile"`
	Remarks         string                `json:"remarks"`
	Items           []NewSalesVoucherItem `json:"items"`
}

// SalesVoucherUpdate merges into the stored voucher: nil fields keep their value
// and Items, when present, replace every line.
type SalesVoucherUpdate struct {
	GodownId        *int                  `json:"godown_id"`
	InvoiceType     *string               `json:"invoice_type"`
	InvoiceDate     *time.Time            `json:"invoice_date"`
	DebtorAccountId *int                  `json:"debtor_account_id"`
	SubAccountId    *int                  `json:"sub_account_id"`
	ParentCenterId  *int                  `json:"parent_center_id"`
	ChildCenterId   *int                  `json:"child_center_id"`
	CustomerProfile *CustomerProfile      `json:"customer_profile"`
	Remarks         *string               `json:"remarks"`
	Items           []NewSalesVoucherItem `json:"items"`
}

type SalesVoucherFilter struct {
	FromDate     *time.Time
	ToDate       *time.Time
	IsPosted     *bool
	SubAccountId *int
}

// DeleteVoucherItemResult carries the remaining voucher, or Deleted when the last line went.
type DeleteVoucherItemResult struct {
	Voucher *SalesVoucher `json:"voucher"`
	Deleted bool          `json:"deleted"`
}

func validateVoucherItems(items []NewSalesVoucherItem) error {
	if len(items) == 0 {
		return utils.NewValidationError("items", "at least one item is required")
	}
	for i, item := range items {
		if item.ProductId <= 0 {
			return utils.NewValidationError(fmt.Sprintf("items[%d].productId", i), "product is required")
		}
		if !item.Quantity.IsPositive() {
			return utils.NewValidationError(fmt.Sprintf("items[%d].quantity", i), "quantity must be greater than zero")
		}
		if item.Rate.IsNegative() {
			return utils.NewValidationError(fmt.Sprintf("items[%d].rate", i), "rate must not be negative")
		}
		if item.Amount.IsNegative() {
			return utils.NewValidationError(fmt.Sprintf("items[%d].amount", i), "amount must not be negative")
		}
	}
	return nil
}

// normalizeCustomer trims the profile and stores the phone in E164.
func normalizeCustomer(profile *CustomerProfile) (CustomerProfile, error) {
	if profile == nil {
		return CustomerProfile{}, nil
	}
	out := CustomerProfile{
		Name:      strings.TrimSpace(profile.Name),
		Phone:     strings.TrimSpace(profile.Phone),
		TaxNumber: strings.TrimSpace(profile.TaxNumber),
	}
	if out.Phone != "" {
		phone, err := utils.FormatPhoneNumber(out.Phone, config.Env().PhoneRegion)
		if err != nil {
			return out, utils.NewValidationError("customerProfile.phone", "invalid phone number %s", out.Phone)
		}
		out.Phone = phone
	}
	return out, nil
}

// validateInvoiceType requires an ASCII letter first; it becomes the invoice number prefix.
func validateInvoiceType(invoiceType string) error {
	if invoiceType == "" {
		return utils.NewValidationError("invoiceType", "invoice type is required")
	}
	first := invoiceType[0]
	if (first < 'A' || first > 'Z') && (first < 'a' || first > 'z') {
		return utils.NewValidationError("invoiceType", "invoice type %s must start with a letter", invoiceType)
	}
	return nil
}

func (input *NewSalesVoucher) validate() error {
	input.InvoiceType = strings.TrimSpace(input.InvoiceType)
	input.InvoiceNumber = strings.TrimSpace(input.InvoiceNumber)
	if err := validateInvoiceType(input.InvoiceType); err != nil {
		return err
	}
	if input.InvoiceDate.IsZero() {
		return utils.NewValidationError("invoiceDate", "invoice date is required")
	}
	return validateVoucherItems(input.Items)
}

func lineReferences(items []NewSalesVoucherItem) []LineReferences {
	out := make([]LineReferences, 0, len(items))
	for _, item := range items {
		out = append(out, LineReferences{
			ProductId:      item.ProductId,
			Level4Id:       item.AccountLevel4Id,
			FinishedGoodId: item.FinishedGoodId,
		})
	}
	return out
}

// stored lines as inputs, so an existing voucher can be re-resolved and re-priced
func itemsAsInput(items []SalesVoucherItem) []NewSalesVoucherItem {
	out := make([]NewSalesVoucherItem, 0, len(items))
	for _, item := range items {
		out = append(out, NewSalesVoucherItem{
			ProductId:       item.ProductId,
			Quantity:        item.Quantity,
			Rate:            item.Rate,
			Amount:          item.Amount,
			AccountLevel4Id: item.Level4Id,
			FinishedGoodId:  utils.DereferencePtr(item.FinishedGoodId),
		})
	}
	return out
}

// applyReferences copies the code snapshots of the resolved references onto the header.
func (v *SalesVoucher) applyReferences(refs *ResolvedReferences) {
	v.GodownId = refs.Godown.ID
	v.GodownCode = refs.Godown.Code
	v.DebtorAccountId = refs.DebtorAccount.ID
	v.DebtorLevel1Code = refs.DebtorAccount.Level1Code
	v.DebtorLevel2Code = refs.DebtorAccount.Level2Code
	v.DebtorLevel3Code = refs.DebtorAccount.Level3Code
	v.SubAccountId = refs.SubAccount.ID
	v.SubAccountFullcode = refs.SubAccount.Fullcode
	v.ParentCenterId, v.ParentCenterCode = nil, ""
	v.ChildCenterId, v.ChildCenterCode = nil, ""
	if refs.ParentCenter != nil {
		id := refs.ParentCenter.ID
		v.ParentCenterId = &id
		v.ParentCenterCode = refs.ParentCenter.ParentCode
	}
	if refs.ChildCenter != nil {
		id := refs.ChildCenter.ID
		v.ChildCenterId = &id
		v.ChildCenterCode = refs.ChildCenter.ChildCode
	}
}

// applyTotals recomputes the header aggregates from the lines.
func (v *SalesVoucher) applyTotals() {
	v.TotalAmount = decimal.Zero
	v.DiscountAmount = decimal.Zero
	v.TaxAmount = decimal.Zero
	v.NetAmountBeforeTax = decimal.Zero
	v.NetAmount = decimal.Zero
	for _, item := range v.Items {
		v.TotalAmount = v.TotalAmount.Add(item.Amount)
		v.DiscountAmount = v.DiscountAmount.Add(item.Discount)
		v.TaxAmount = v.TaxAmount.Add(item.Tax)
		v.NetAmountBeforeTax = v.NetAmountBeforeTax.Add(item.NetAmountBeforeTax)
		v.NetAmount = v.NetAmount.Add(item.NetAmount)
	}
}

// linePricer resolves the schedules of (sub-account, item) effective on the invoice date.
type linePricer struct {
	ctx          context.Context
	companyId    string
	subAccountId int
	date         time.Time
}

func (p linePricer) logMissing(itemId int, err error) {
	config.GetLogger().WithFields(logrus.Fields{
		"field":          "linePricer",
		"company_id":     p.companyId,
		"sub_account_id": p.subAccountId,
		"item_id":        itemId,
		"date":           p.date.Format(time.DateOnly),
	}).Debug(err.Error())
}

func (p linePricer) price(input NewSalesVoucherItem, line ResolvedLine) (*SalesVoucherItem, error) {
	rate := input.Rate
	if rate.IsZero() && input.Amount.IsZero() {
		productRate, err := GetEffectiveProductRate(p.ctx, p.companyId, p.subAccountId, line.Item.ID, p.date)
		switch {
		case err == nil:
			rate = productRate.Rate
		case errors.Is(err, ErrNoApplicableRate):
			p.logMissing(line.Item.ID, err)
		default:
			return nil, err
		}
	}

	tax, discount, err := ResolveRatesFor(p.ctx, p.companyId, p.subAccountId, line.Item.ID, p.date)
	if err != nil {
		if !errors.Is(err, ErrNoApplicableRate) {
			return nil, err
		}
		// missing schedules price as no tax / no discount
		p.logMissing(line.Item.ID, err)
	}

	exempted := tax.Exempted()
	res := CalculateLine(input.Quantity, rate, input.Amount, DiscountComponents(discount), TaxComponents(tax), exempted)
	item := newVoucherLine(p.companyId, input, line, rate)
	item.Amount = res.Amount
	item.Discount = res.Discount
	item.Tax = res.Tax
	item.NetAmountBeforeTax = res.NetAmountBeforeTax
	item.NetAmount = res.NetAmount
	item.IsExempted = exempted
	item.DiscountBreakdown = res.DiscountBreakdown
	item.TaxBreakdown = res.TaxBreakdown
	return item, nil
}

func newVoucherLine(companyId string, input NewSalesVoucherItem, line ResolvedLine, rate decimal.Decimal) *SalesVoucherItem {
	item := &SalesVoucherItem{
		CompanyId:      companyId,
		ProductId:      line.Item.ID,
		ProductCode:    line.Item.Code,
		Level4Id:       line.Level4.ID,
		Level4Fullcode: line.Level4.Fullcode,
		Quantity:       input.Quantity,
		Rate:           rate,
	}
	if line.FinishedGood != nil {
		id := line.FinishedGood.ID
		item.FinishedGoodId = &id
	}
	return item
}

// carryLine re-amounts a line but keeps the discount and tax breakdown it was priced with.
func carryLine(companyId string, input NewSalesVoucherItem, line ResolvedLine, prev *SalesVoucherItem) *SalesVoucherItem {
	rate := input.Rate
	if rate.IsZero() {
		rate = prev.Rate
	}
	item := newVoucherLine(companyId, input, line, rate)
	item.Amount = LineAmount(input.Quantity, rate, input.Amount)
	item.Discount = decimal.Zero
	item.Tax = decimal.Zero
	for _, d := range prev.DiscountBreakdown {
		item.Discount = item.Discount.Add(d.Value)
	}
	for _, t := range prev.TaxBreakdown {
		item.Tax = item.Tax.Add(t.Value)
	}
	item.NetAmountBeforeTax = item.Amount.Sub(item.Discount)
	item.NetAmount = item.NetAmountBeforeTax.Add(item.Tax)
	item.IsExempted = prev.IsExempted
	item.DiscountBreakdown = append([]Breakdown{}, prev.DiscountBreakdown...)
	item.TaxBreakdown = append([]Breakdown{}, prev.TaxBreakdown...)
	return item
}

func (p linePricer) priceAll(inputs []NewSalesVoucherItem, lines []ResolvedLine) ([]SalesVoucherItem, error) {
	items := make([]SalesVoucherItem, 0, len(inputs))
	for i, input := range inputs {
		item, err := p.price(input, lines[i])
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, nil
}

// finalize recomputes totals and entries and checks the journal balances.
func (v *SalesVoucher) finalize() error {
	v.applyTotals()
	v.AccountingEntries = BuildAccountingEntries(v)
	return ValidateEntriesBalanced(v.AccountingEntries)
}

func CreateSalesVoucher(ctx context.Context, input *NewSalesVoucher) (*SalesVoucher, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}
	customer, err := normalizeCustomer(input.CustomerProfile)
	if err != nil {
		return nil, err
	}

	refs, err := ResolveVoucherReferences(ctx, companyId, VoucherReferences{
		GodownId:        input.GodownId,
		DebtorAccountId: input.DebtorAccountId,
		SubAccountId:    input.SubAccountId,
		ParentCenterId:  input.ParentCenterId,
		ChildCenterId:   input.ChildCenterId,
		Lines:           lineReferences(input.Items),
	})
	if err != nil {
		return nil, err
	}

	invoiceDate := utils.DateOnly(input.InvoiceDate)
	pricer := linePricer{ctx: ctx, companyId: companyId, subAccountId: refs.SubAccount.ID, date: invoiceDate}
	items, err := pricer.priceAll(input.Items, refs.Lines)
	if err != nil {
		return nil, err
	}

	username := usernameFromContext(ctx)
	voucher := SalesVoucher{
		CompanyId:   companyId,
		InvoiceType: input.InvoiceType,
		InvoiceDate: invoiceDate,
		Customer:    customer,
		Remarks:     input.Remarks,
		Items:       items,
		CreatedBy:   username,
		UpdatedBy:   username,
	}
	voucher.applyReferences(refs)

	release, lockErr := utils.CompanyLock(ctx, companyId, "invoice_number", moduleName, "CreateSalesVoucher")
	defer release()
	if lockErr != nil {
		// the counter row still serializes allocation
		config.GetLogger().WithField("company_id", companyId).Warn(lockErr.Error())
	}

	for attempt := 1; ; attempt++ {
		err = createVoucherOnce(ctx, &voucher, input.InvoiceNumber)
		if err == nil {
			break
		}
		if !utils.IsDuplicateKeyErr(err) {
			return nil, err
		}
		if input.InvoiceNumber != "" {
			return nil, utils.NewDuplicateError("invoiceNumber", input.InvoiceNumber)
		}
		if attempt >= invoiceAllocationAttempts {
			return nil, utils.TranslateDuplicate(err, "invoiceNumber", voucher.InvoiceNumber)
		}
	}
	return GetSalesVoucher(ctx, voucher.ID)
}

func createVoucherOnce(ctx context.Context, voucher *SalesVoucher, supplied string) error {
	tx := beginTx(ctx)
	defer rollback(tx)

	voucher.ID = 0
	for i := range voucher.Items {
		voucher.Items[i].ID = 0
		voucher.Items[i].SalesVoucherId = 0
	}
	number, err := AllocateInvoiceNumber(tx, voucher.CompanyId, voucher.InvoiceType, voucher.InvoiceDate, supplied)
	if err != nil {
		return err
	}
	voucher.InvoiceNumber = number
	if err := voucher.finalize(); err != nil {
		return err
	}
	if err := tx.Create(voucher).Error; err != nil {
		return err
	}
	return tx.Commit().Error
}

// mergeReferences overlays the supplied ids on the stored ones.
func (input *SalesVoucherUpdate) mergeReferences(v *SalesVoucher, items []NewSalesVoucherItem) VoucherReferences {
	refs := VoucherReferences{
		GodownId:        v.GodownId,
		DebtorAccountId: v.DebtorAccountId,
		SubAccountId:    v.SubAccountId,
		ParentCenterId:  v.ParentCenterId,
		ChildCenterId:   v.ChildCenterId,
		Lines:           lineReferences(items),
	}
	if input.GodownId != nil {
		refs.GodownId = *input.GodownId
	}
	if input.DebtorAccountId != nil {
		refs.DebtorAccountId = *input.DebtorAccountId
	}
	if input.SubAccountId != nil {
		refs.SubAccountId = *input.SubAccountId
	}
	if input.ParentCenterId != nil {
		refs.ParentCenterId = input.ParentCenterId
		if input.ChildCenterId == nil {
			refs.ChildCenterId = nil
		}
	}
	if input.ChildCenterId != nil {
		refs.ChildCenterId = input.ChildCenterId
	}
	return refs
}

// UpdateSalesVoucher re-resolves every reference of the merged voucher. Rates are looked
// up again only when the sub-account changes; otherwise lines keep the breakdown they were
// priced with and only their amounts follow the new quantities.
func UpdateSalesVoucher(ctx context.Context, id int, input *SalesVoucherUpdate) (*SalesVoucher, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	tx := beginTx(ctx)
	defer rollback(tx)

	existing, err := lockSalesVoucher(tx, companyId, id)
	if err != nil {
		return nil, err
	}

	itemInputs := itemsAsInput(existing.Items)
	if input.Items != nil {
		if err := validateVoucherItems(input.Items); err != nil {
			return nil, err
		}
		itemInputs = input.Items
	}

	refs, err := resolveVoucherReferences(tx, companyId, input.mergeReferences(existing, itemInputs))
	if err != nil {
		return nil, err
	}

	voucher := *existing
	if input.InvoiceType != nil {
		invoiceType := strings.TrimSpace(*input.InvoiceType)
		if err := validateInvoiceType(invoiceType); err != nil {
			return nil, err
		}
		voucher.InvoiceType = invoiceType
	}
	if input.InvoiceDate != nil {
		if input.InvoiceDate.IsZero() {
			return nil, utils.NewValidationError("invoiceDate", "invoice date is required")
		}
		voucher.InvoiceDate = utils.DateOnly(*input.InvoiceDate)
	}
	if input.CustomerProfile != nil {
		if voucher.Customer, err = normalizeCustomer(input.CustomerProfile); err != nil {
			return nil, err
		}
	}
	if input.Remarks != nil {
		voucher.Remarks = *input.Remarks
	}

	subAccountChanged := refs.SubAccount.ID != existing.SubAccountId
	voucher.applyReferences(refs)
	withItems := true

	switch {
	case subAccountChanged:
		pricer := linePricer{ctx: ctx, companyId: companyId, subAccountId: refs.SubAccount.ID, date: voucher.InvoiceDate}
		if voucher.Items, err = pricer.priceAll(itemInputs, refs.Lines); err != nil {
			return nil, err
		}
	case input.Items != nil:
		if voucher.Items, err = carryLines(ctx, companyId, voucher, existing.Items, itemInputs, refs.Lines); err != nil {
			return nil, err
		}
	default:
		// lines untouched and kept under their ids; only account snapshots may have moved
		withItems = false
		for i := range voucher.Items {
			voucher.Items[i].Level4Fullcode = refs.Lines[i].Level4.Fullcode
		}
	}
	if err := voucher.finalize(); err != nil {
		return nil, err
	}
	voucher.UpdatedBy = usernameFromContext(ctx)

	if err := replaceVoucherBody(tx, &voucher, withItems); err != nil {
		return nil, err
	}
	if !withItems {
		if err := saveLineSnapshots(tx, voucher.Items); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return GetSalesVoucher(ctx, id)
}

// carryLines matches each supplied line to a stored line of the same product. Matched
// lines keep their breakdown; unmatched products have none to keep and are priced fresh.
func carryLines(ctx context.Context, companyId string, v SalesVoucher, stored []SalesVoucherItem, inputs []NewSalesVoucherItem, lines []ResolvedLine) ([]SalesVoucherItem, error) {
	used := make(map[int]bool, len(stored))
	pricer := linePricer{ctx: ctx, companyId: companyId, subAccountId: v.SubAccountId, date: v.InvoiceDate}
	items := make([]SalesVoucherItem, 0, len(inputs))
	for i, input := range inputs {
		var prev *SalesVoucherItem
		for j := range stored {
			if !used[j] && stored[j].ProductId == input.ProductId {
				used[j] = true
				prev = &stored[j]
				break
			}
		}
		if prev != nil {
			items = append(items, *carryLine(companyId, input, lines[i], prev))
			continue
		}
		item, err := pricer.price(input, lines[i])
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, nil
}

// lockSalesVoucher reads the voucher FOR UPDATE with its lines and refuses posted ones.
func lockSalesVoucher(tx *gorm.DB, companyId string, id int) (*SalesVoucher, error) {
	var voucher SalesVoucher
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("company_id = ? AND id = ?", companyId, id).
		First(&voucher).Error
	if err != nil {
		return nil, notFound("SalesVoucher", err)
	}
	if voucher.IsPosted {
		return nil, utils.NewValidationError("isPosted", "posted voucher %s cannot be changed", voucher.InvoiceNumber)
	}
	if err := tx.Where("company_id = ? AND sales_voucher_id = ?", companyId, id).Order("id").Find(&voucher.Items).Error; err != nil {
		return nil, err
	}
	return &voucher, nil
}

func saveLineSnapshots(tx *gorm.DB, items []SalesVoucherItem) error {
	for _, item := range items {
		err := tx.Model(&SalesVoucherItem{}).
			Where("company_id = ? AND id = ?", item.CompanyId, item.ID).
			UpdateColumn("level4_fullcode", item.Level4Fullcode).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// replaceVoucherBody rewrites the header columns and, when withItems is set, the lines.
// Accounting entries are always regenerated.
func replaceVoucherBody(tx *gorm.DB, v *SalesVoucher, withItems bool) error {
	err := tx.Model(&SalesVoucher{}).Where("company_id = ? AND id = ?", v.CompanyId, v.ID).Updates(map[string]interface{}{
		"GodownId":            v.GodownId,
		"GodownCode":          v.GodownCode,
		"InvoiceType":         v.InvoiceType,
		"InvoiceDate":         v.InvoiceDate,
		"DebtorAccountId":     v.DebtorAccountId,
		"DebtorLevel1Code":    v.DebtorLevel1Code,
		"DebtorLevel2Code":    v.DebtorLevel2Code,
		"DebtorLevel3Code":    v.DebtorLevel3Code,
		"SubAccountId":        v.SubAccountId,
		"SubAccountFullcode":  v.SubAccountFullcode,
		"ParentCenterId":      v.ParentCenterId,
		"ParentCenterCode":    v.ParentCenterCode,
		"ChildCenterId":       v.ChildCenterId,
		"ChildCenterCode":     v.ChildCenterCode,
		"customer_name":       v.Customer.Name,
		"customer_phone":      v.Customer.Phone,
		"customer_tax_number": v.Customer.TaxNumber,
		"Remarks":             v.Remarks,
		"TotalAmount":         v.TotalAmount,
		"DiscountAmount":      v.DiscountAmount,
		"TaxAmount":           v.TaxAmount,
		"NetAmountBeforeTax":  v.NetAmountBeforeTax,
		"NetAmount":           v.NetAmount,
		"UpdatedBy":           v.UpdatedBy,
	}).Error
	if err != nil {
		return err
	}

	if withItems {
		if err := tx.Where("company_id = ? AND sales_voucher_id = ?", v.CompanyId, v.ID).Delete(&SalesVoucherItem{}).Error; err != nil {
			return err
		}
		for i := range v.Items {
			v.Items[i].ID = 0
			v.Items[i].SalesVoucherId = v.ID
			v.Items[i].CompanyId = v.CompanyId
		}
		if len(v.Items) > 0 {
			if err := tx.Create(&v.Items).Error; err != nil {
				return err
			}
		}
	}

	if err := tx.Where("company_id = ? AND sales_voucher_id = ?", v.CompanyId, v.ID).Delete(&AccountingEntry{}).Error; err != nil {
		return err
	}
	for i := range v.AccountingEntries {
		v.AccountingEntries[i].ID = 0
		v.AccountingEntries[i].SalesVoucherId = v.ID
	}
	return tx.Create(&v.AccountingEntries).Error
}

// DeleteSalesVoucherItem removes one line. Removing the last line deletes the voucher.
func DeleteSalesVoucherItem(ctx context.Context, voucherId int, itemId int) (*DeleteVoucherItemResult, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	tx := beginTx(ctx)
	defer rollback(tx)

	voucher, err := lockSalesVoucher(tx, companyId, voucherId)
	if err != nil {
		return nil, err
	}

	remaining := make([]SalesVoucherItem, 0, len(voucher.Items))
	found := false
	for _, item := range voucher.Items {
		if item.ID == itemId {
			found = true
			continue
		}
		remaining = append(remaining, item)
	}
	if !found {
		return nil, utils.NewNotFoundError("SalesVoucherItem", utils.ErrorRecordNotFound)
	}

	if err := tx.Where("company_id = ? AND id = ?", companyId, itemId).Delete(&SalesVoucherItem{}).Error; err != nil {
		return nil, err
	}

	if len(remaining) == 0 {
		if err := tx.Where("company_id = ? AND sales_voucher_id = ?", companyId, voucherId).Delete(&AccountingEntry{}).Error; err != nil {
			return nil, err
		}
		if err := tx.Delete(voucher).Error; err != nil {
			return nil, err
		}
		if err := tx.Commit().Error; err != nil {
			return nil, err
		}
		return &DeleteVoucherItemResult{Deleted: true}, nil
	}

	voucher.Items = remaining
	if err := voucher.finalize(); err != nil {
		return nil, err
	}
	voucher.UpdatedBy = usernameFromContext(ctx)
	if err := replaceVoucherBody(tx, voucher, false); err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	updated, err := GetSalesVoucher(ctx, voucherId)
	if err != nil {
		return nil, err
	}
	return &DeleteVoucherItemResult{Voucher: updated}, nil
}

// PostSalesVoucher flips is_posted once and queues a VoucherEvent in the same transaction.
func PostSalesVoucher(ctx context.Context, id int, fbrInvoiceNumber string) (*SalesVoucher, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	tx := beginTx(ctx)
	defer rollback(tx)

	voucher, err := utils.FetchModelTx[SalesVoucher](tx, companyId, id)
	if err != nil {
		return nil, notFound("SalesVoucher", err)
	}
	if voucher.IsPosted {
		return nil, utils.NewValidationError("isPosted", "voucher %s is already posted", voucher.InvoiceNumber)
	}

	now := time.Now().UTC()
	username := usernameFromContext(ctx)
	fields := map[string]interface{}{
		"IsPosted":  true,
		"PostedAt":  &now,
		"PostedBy":  username,
		"UpdatedBy": username,
	}
	if fbr := strings.TrimSpace(fbrInvoiceNumber); fbr != "" {
		fields["FbrInvoiceNumber"] = fbr
	}
	res := tx.Model(&SalesVoucher{}).Where("company_id = ? AND id = ? AND is_posted = ?", companyId, id, false).Updates(fields)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, utils.NewValidationError("isPosted", "voucher %s is already posted", voucher.InvoiceNumber)
	}

	voucher.IsPosted = true
	voucher.PostedAt = &now
	voucher.PostedBy = username
	if fbr, ok := fields["FbrInvoiceNumber"].(string); ok {
		voucher.FbrInvoiceNumber = fbr
	}
	event, err := newVoucherPostedEvent(ctx, voucher)
	if err != nil {
		return nil, err
	}
	if err := tx.Create(event).Error; err != nil {
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return GetSalesVoucher(ctx, id)
}

func GetSalesVoucher(ctx context.Context, id int) (*SalesVoucher, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var voucher SalesVoucher
	err = config.GetDB().WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("AccountingEntries", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("company_id = ? AND id = ?", companyId, id).
		First(&voucher).Error
	if err != nil {
		return nil, notFound("SalesVoucher", err)
	}
	return &voucher, nil
}

func GetSalesVoucherByNumber(ctx context.Context, invoiceNumber string) (*SalesVoucher, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	var id int
	err = config.GetDB().WithContext(ctx).Model(&SalesVoucher{}).
		Where("company_id = ? AND invoice_number = ?", companyId, invoiceNumber).
		Select("id").Scan(&id).Error
	if err != nil {
		return nil, err
	}
	if id == 0 {
		return nil, utils.NewNotFoundError("SalesVoucher", utils.ErrorRecordNotFound)
	}
	return GetSalesVoucher(ctx, id)
}

func ListSalesVouchers(ctx context.Context, filter SalesVoucherFilter) ([]*SalesVoucher, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	dbCtx := config.GetDB().WithContext(ctx).Where("company_id = ?", companyId)
	if filter.FromDate != nil {
		dbCtx = dbCtx.Where("invoice_date >= ?", utils.DateOnly(*filter.FromDate))
	}
	if filter.ToDate != nil {
		dbCtx = dbCtx.Where("invoice_date <= ?", utils.DateOnly(*filter.ToDate))
	}
	if filter.IsPosted != nil {
		dbCtx = dbCtx.Where("is_posted = ?", *filter.IsPosted)
	}
	if filter.SubAccountId != nil && *filter.SubAccountId > 0 {
		dbCtx = dbCtx.Where("sub_account_id = ?", *filter.SubAccountId)
	}
	var results []*SalesVoucher
	err = dbCtx.Order("invoice_date DESC, id DESC").Find(&results).Error
	return results, err
}
