package models

import (
	"regexp"

	"github.com/mmdatafocus/erp_backend/utils"
)

var (
	level1CodePattern    = regexp.MustCompile(`^\d{2}$`)
	level2CodePattern    = regexp.MustCompile(`^\d{2}$`)
	level3CodePattern    = regexp.MustCompile(`^\d{3}$`)
	level4SubcodePattern = regexp.MustCompile(`^\d{5}$`)
	centerCodePattern    = regexp.MustCompile(`^\d{2}$`)
)

func ValidateLevel1Code(code string) error {
	if !level1CodePattern.MatchString(code) {
		return utils.NewValidationError("code", "level 1 code must be exactly 2 digits, got %q", code)
	}
	return nil
}

func ValidateLevel2Code(code string) error {
	if !level2CodePattern.MatchString(code) {
		return utils.NewValidationError("code", "level 2 code must be exactly 2 digits, got %q", code)
	}
	return nil
}

func ValidateLevel3Code(code string) error {
	if !level3CodePattern.MatchString(code) {
		return utils.NewValidationError("code", "level 3 code must be exactly 3 digits, got %q", code)
	}
	return nil
}

func ValidateLevel4Subcode(subcode string) error {
	if !level4SubcodePattern.MatchString(subcode) {
		return utils.NewValidationError("subcode", "level 4 subcode must be exactly 5 digits, got %q", subcode)
	}
	return nil
}

func ValidateCenterCode(field string, code string) error {
	if !centerCodePattern.MatchString(code) {
		return utils.NewValidationError(field, "%s must be exactly 2 digits, got %q", field, code)
	}
	return nil
}

// ComposeLevel4Code joins the three ancestor codes, e.g. 01+01+001 = 0101001.
func ComposeLevel4Code(level1Code, level2Code, level3Code string) string {
	return level1Code + level2Code + level3Code
}

// ComposeLevel4Fullcode appends the subcode, e.g. 0101001+00001 = 010100100001.
func ComposeLevel4Fullcode(code, subcode string) string {
	return code + subcode
}
