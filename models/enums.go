package models

import (
	"encoding/json"
	"fmt"
)

type DefaultAccountRole string

const (
	RoleBankAccount     DefaultAccountRole = "BankAccount"
	RoleCashAccount     DefaultAccountRole = "CashAccount"
	RoleDebtorAccount   DefaultAccountRole = "DebtorAccount"
	RoleCreditorAccount DefaultAccountRole = "CreditorAccount"
	RoleRawMaterial     DefaultAccountRole = "RawMaterial"
	RoleFinishedGoods   DefaultAccountRole = "FinishedGoods"
)

var AllDefaultAccountRoles = []DefaultAccountRole{
	RoleBankAccount, RoleCashAccount, RoleDebtorAccount, RoleCreditorAccount, RoleRawMaterial, RoleFinishedGoods,
}

func (r DefaultAccountRole) IsValid() bool {
	for _, v := range AllDefaultAccountRoles {
		if v == r {
			return true
		}
	}
	return false
}

func (r *DefaultAccountRole) UnmarshalJSON(b []byte) error {
	var str string
	if err := json.Unmarshal(b, &str); err != nil {
		return err
	}
	role := DefaultAccountRole(str)
	if !role.IsValid() {
		return fmt.Errorf("invalid default account role %q", str)
	}
	*r = role
	return nil
}

type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeQuantity   DiscountType = "quantity"
	DiscountTypeFlat       DiscountType = "flat"
)

func (t DiscountType) IsValid() bool {
	switch t {
	case DiscountTypePercentage, DiscountTypeQuantity, DiscountTypeFlat:
		return true
	}
	return false
}

// TaxType is free text ("sales tax", "further tax", ...). Only quantity is charged per unit.
type TaxType string

const (
	TaxTypeQuantity TaxType = "quantity"
)

type VoucherEventType string

const (
	VoucherEventPosted VoucherEventType = "SalesVoucherPosted"
)

type VoucherEventStatus string

const (
	VoucherEventPending   VoucherEventStatus = "PENDING"
	VoucherEventPublished VoucherEventStatus = "PUBLISHED"
	VoucherEventFailed    VoucherEventStatus = "FAILED"
	VoucherEventDead      VoucherEventStatus = "DEAD"
)

type EntryAccountKind string

const (
	EntrySubAccount  EntryAccountKind = "SubAccount"
	EntryDiscount    EntryAccountKind = "Discount"
	EntryTax         EntryAccountKind = "Tax"
	EntrySalesIncome EntryAccountKind = "Sales"
)
