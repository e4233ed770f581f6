package models

import (
	"context"
	"fmt"

	"github.com/mmdatafocus/erp_backend/config"
	"github.com/mmdatafocus/erp_backend/utils"
	"gorm.io/gorm"
)

// VoucherReferences are the foreign keys a voucher claims.
type VoucherReferences struct {
	GodownId        int
	DebtorAccountId int
	SubAccountId    int
	ParentCenterId  *int
	ChildCenterId   *int
	Lines           []LineReferences
}

type LineReferences struct {
	ProductId      int
	Level4Id       int
	FinishedGoodId int
}

type ResolvedReferences struct {
	Godown        *Godown
	DebtorAccount *DefaultAccount
	SubAccount    *AccountLevel4
	ParentCenter  *ParentCenter
	ChildCenter   *ChildCenter
	Lines         []ResolvedLine
}

type ResolvedLine struct {
	Item         *Item
	Level4       *AccountLevel4
	FinishedGood *DefaultAccount
}

// ResolveVoucherReferences fetches every reference of a voucher and checks that it belongs
// to the company and that claimed hierarchies hold, comparing cached codes as well as ids.
// It stops at the first failure with a ReferenceError naming the reference.
func ResolveVoucherReferences(ctx context.Context, companyId string, refs VoucherReferences) (*ResolvedReferences, error) {
	return resolveVoucherReferences(config.GetDB().WithContext(ctx), companyId, refs)
}

func resolveVoucherReferences(db *gorm.DB, companyId string, refs VoucherReferences) (*ResolvedReferences, error) {
	var out ResolvedReferences
	var err error

	if out.Godown, err = fetchChainNode[Godown](db, companyId, refs.GodownId, "godown"); err != nil {
		return nil, err
	}
	if out.Godown.IsActive != nil && !*out.Godown.IsActive {
		return nil, utils.NewReferenceError("godown", "godown %s is inactive", out.Godown.Code)
	}

	if out.DebtorAccount, err = fetchRoleAccount(db, companyId, refs.DebtorAccountId, RoleDebtorAccount, "debtorAccount"); err != nil {
		return nil, err
	}

	if out.SubAccount, err = fetchChainNode[AccountLevel4](db, companyId, refs.SubAccountId, "subAccount"); err != nil {
		return nil, err
	}
	if err := checkSubAccountChain(db, companyId, out.DebtorAccount, out.SubAccount); err != nil {
		return nil, err
	}

	if out.ParentCenter, out.ChildCenter, err = resolveCenters(db, companyId, refs.ParentCenterId, refs.ChildCenterId); err != nil {
		return nil, err
	}

	out.Lines = make([]ResolvedLine, 0, len(refs.Lines))
	for i, l := range refs.Lines {
		line, err := resolveLine(db, companyId, i, l)
		if err != nil {
			return nil, err
		}
		out.Lines = append(out.Lines, *line)
	}
	return &out, nil
}

func fetchRoleAccount(db *gorm.DB, companyId string, id int, role DefaultAccountRole, reference string) (*DefaultAccount, error) {
	account, err := fetchChainNode[DefaultAccount](db, companyId, id, reference)
	if err != nil {
		return nil, err
	}
	if account.Role != role {
		return nil, utils.NewReferenceError(reference, "%s %d is a %s, not a %s", reference, id, account.Role, role)
	}
	if !account.Active() {
		return nil, utils.NewReferenceError(reference, "%s %d is inactive", reference, id)
	}
	return account, nil
}

// the sub-account must sit under the party account's Level3, by id, by cached codes,
// and by the live Level3 codes
func checkSubAccountChain(db *gorm.DB, companyId string, party *DefaultAccount, sub *AccountLevel4) error {
	if sub.Level1Id != party.Level1Id || sub.Level2Id != party.Level2Id || sub.Level3Id != party.Level3Id {
		return utils.NewReferenceError("subAccount", "sub account %s is not under account %s", sub.Fullcode, party.Level3FullCode())
	}
	if sub.Code != party.Level3FullCode() {
		return utils.NewParentMismatchError("subAccount", sub.Code, party.Level3FullCode())
	}
	if party.Level4Id != nil && *party.Level4Id != sub.ID {
		return utils.NewReferenceError("subAccount", "sub account %s is not the account's leaf", sub.Fullcode)
	}

	level3, err := fetchChainNode[AccountLevel3](db, companyId, party.Level3Id, "subAccount")
	if err != nil {
		return err
	}
	if live := level3.FullCode(); live != party.Level3FullCode() {
		return utils.NewParentMismatchError("subAccount", party.Level3FullCode(), live)
	}
	return nil
}

func resolveCenters(db *gorm.DB, companyId string, parentId *int, childId *int) (*ParentCenter, *ChildCenter, error) {
	if parentId == nil || *parentId <= 0 {
		if childId != nil && *childId > 0 {
			return nil, nil, utils.NewReferenceError("childCenter", "child center requires a parent center")
		}
		return nil, nil, nil
	}
	parent, err := fetchChainNode[ParentCenter](db, companyId, *parentId, "parentCenter")
	if err != nil {
		return nil, nil, err
	}
	if childId == nil || *childId <= 0 {
		return parent, nil, nil
	}
	child, err := fetchChainNode[ChildCenter](db, companyId, *childId, "childCenter")
	if err != nil {
		return nil, nil, err
	}
	if child.ParentCenterId != parent.ID {
		return nil, nil, utils.NewReferenceError("childCenter", "child center %d does not belong to parent center %d", child.ID, parent.ID)
	}
	if child.ParentCode != parent.ParentCode {
		return nil, nil, utils.NewParentMismatchError("childCenter", child.ParentCode, parent.ParentCode)
	}
	return parent, child, nil
}

func resolveLine(db *gorm.DB, companyId string, i int, l LineReferences) (*ResolvedLine, error) {
	prefix := fmt.Sprintf("items[%d].", i)
	var line ResolvedLine
	var err error

	if line.Item, err = fetchChainNode[Item](db, companyId, l.ProductId, prefix+"product"); err != nil {
		return nil, err
	}

	level4Id := l.Level4Id
	if level4Id <= 0 && line.Item.Level4Id != nil {
		level4Id = *line.Item.Level4Id
	}
	if line.Level4, err = fetchChainNode[AccountLevel4](db, companyId, level4Id, prefix+"accountLevel4"); err != nil {
		return nil, err
	}

	if l.FinishedGoodId > 0 {
		if line.FinishedGood, err = fetchRoleAccount(db, companyId, l.FinishedGoodId, RoleFinishedGoods, prefix+"finishedGood"); err != nil {
			return nil, err
		}
	}
	return &line, nil
}
