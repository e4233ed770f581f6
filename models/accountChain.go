package models

import (
	"errors"

	"gorm.io/gorm"

	"github.com/mmdatafocus/erp_backend/utils"
)

// accountChain is a claimed ancestor path: ids plus the cached code of each ancestor.
// Codes left empty are taken from the live rows; supplied codes must match them.
type accountChain struct {
	Level1Id   int
	Level2Id   int
	Level3Id   int
	Level1Code string
	Level2Code string
	Level3Code string
}

type resolvedChain struct {
	Level1 *AccountLevel1
	Level2 *AccountLevel2
	Level3 *AccountLevel3
}

func fetchChainNode[T any](db *gorm.DB, companyId string, id int, reference string) (*T, error) {
	if id <= 0 {
		return nil, utils.NewValidationError(reference+"Id", "%s id is required", reference)
	}
	node, err := utils.FetchModelTx[T](db, companyId, id)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return nil, utils.NewReferenceError(reference, "%s %d not found", reference, id)
		}
		return nil, err
	}
	return node, nil
}

func checkSnapshot(reference string, supplied string, live string) error {
	if supplied != "" && supplied != live {
		return utils.NewParentMismatchError(reference, supplied, live)
	}
	return nil
}

// resolve verifies the first depth levels of the chain exist in the company, hang together,
// and that every supplied code snapshot equals the live code.
func (c accountChain) resolve(db *gorm.DB, companyId string, depth int) (*resolvedChain, error) {
	var out resolvedChain
	var err error

	if out.Level1, err = fetchChainNode[AccountLevel1](db, companyId, c.Level1Id, "level1"); err != nil {
		return nil, err
	}
	if err := checkSnapshot("level1", c.Level1Code, out.Level1.Code); err != nil {
		return nil, err
	}
	if depth < 2 {
		return &out, nil
	}

	if out.Level2, err = fetchChainNode[AccountLevel2](db, companyId, c.Level2Id, "level2"); err != nil {
		return nil, err
	}
	if out.Level2.Level1Id != out.Level1.ID {
		return nil, utils.NewReferenceError("level2", "level2 %d does not belong to level1 %d", out.Level2.ID, out.Level1.ID)
	}
	if err := checkSnapshot("level2", c.Level2Code, out.Level2.Code); err != nil {
		return nil, err
	}
	if depth < 3 {
		return &out, nil
	}

	if out.Level3, err = fetchChainNode[AccountLevel3](db, companyId, c.Level3Id, "level3"); err != nil {
		return nil, err
	}
	if out.Level3.Level1Id != out.Level1.ID || out.Level3.Level2Id != out.Level2.ID {
		return nil, utils.NewReferenceError("level3", "level3 %d does not belong to level2 %d", out.Level3.ID, out.Level2.ID)
	}
	if err := checkSnapshot("level3", c.Level3Code, out.Level3.Code); err != nil {
		return nil, err
	}
	return &out, nil
}
