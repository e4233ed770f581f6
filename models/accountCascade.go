package models

import (
	"gorm.io/gorm"
)

// cascadeLevel1Code pushes a new Level1 code into every snapshot below it.
func cascadeLevel1Code(tx *gorm.DB, companyId string, level1Id int, code string) ([]int, error) {
	scope := "company_id = ? AND level1_id = ?"
	if err := tx.Model(&AccountLevel2{}).Where(scope, companyId, level1Id).UpdateColumn("parent_code", code).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&AccountLevel3{}).Where(scope, companyId, level1Id).UpdateColumn("parent_level1_code", code).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&AccountLevel4{}).Where(scope, companyId, level1Id).UpdateColumn("parent_level1_code", code).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&DefaultAccount{}).Where(scope, companyId, level1Id).UpdateColumn("level1_code", code).Error; err != nil {
		return nil, err
	}
	return refreshLevel4Codes(tx, companyId, "level1_id = ?", level1Id)
}

func cascadeLevel2Code(tx *gorm.DB, companyId string, level2Id int, code string) ([]int, error) {
	scope := "company_id = ? AND level2_id = ?"
	if err := tx.Model(&AccountLevel3{}).Where(scope, companyId, level2Id).UpdateColumn("parent_level2_code", code).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&AccountLevel4{}).Where(scope, companyId, level2Id).UpdateColumn("parent_level2_code", code).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&DefaultAccount{}).Where(scope, companyId, level2Id).UpdateColumn("level2_code", code).Error; err != nil {
		return nil, err
	}
	return refreshLevel4Codes(tx, companyId, "level2_id = ?", level2Id)
}

func cascadeLevel3Code(tx *gorm.DB, companyId string, level3Id int, code string) ([]int, error) {
	scope := "company_id = ? AND level3_id = ?"
	if err := tx.Model(&AccountLevel4{}).Where(scope, companyId, level3Id).UpdateColumn("parent_level3_code", code).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&DefaultAccount{}).Where(scope, companyId, level3Id).UpdateColumn("level3_code", code).Error; err != nil {
		return nil, err
	}
	return refreshLevel4Codes(tx, companyId, "level3_id = ?", level3Id)
}

// refreshLevel4Codes rewrites code/fullcode of the matching leaves from their snapshots
// and returns their ids; callers evict the cached titles once the transaction commits.
func refreshLevel4Codes(tx *gorm.DB, companyId string, cond string, args ...interface{}) ([]int, error) {
	var leaves []*AccountLevel4
	if err := tx.Where("company_id = ?", companyId).Where(cond, args...).Find(&leaves).Error; err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(leaves))
	for _, leaf := range leaves {
		leaf.regenerateCodes()
		if err := tx.Model(leaf).UpdateColumns(map[string]interface{}{
			"code":     leaf.Code,
			"fullcode": leaf.Fullcode,
		}).Error; err != nil {
			return nil, err
		}
		ids = append(ids, leaf.ID)
	}
	return ids, nil
}
