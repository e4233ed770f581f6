package models_test

import (
	"testing"

	"github.com/mmdatafocus/erp_backend/models"
	"github.com/mmdatafocus/erp_backend/utils"
	"github.com/stretchr/testify/assert"
)

func TestLevelCodeFormats(t *testing.T) {
	cases := []struct {
		name  string
		check func(string) error
		ok    []string
		bad   []string
	}{
		{"level1", models.ValidateLevel1Code, []string{"01", "99"}, []string{"1", "001", "a1", ""}},
		{"level2", models.ValidateLevel2Code, []string{"00", "42"}, []string{"4", "420", " 42"}},
		{"level3", models.ValidateLevel3Code, []string{"001", "999"}, []string{"01", "0001", "00a"}},
		{"subcode", models.ValidateLevel4Subcode, []string{"00001", "12345"}, []string{"0001", "000001", "1234x"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			for _, code := range c.ok {
				assert.NoError(t, c.check(code), code)
			}
			for _, code := range c.bad {
				err := c.check(code)
				assert.True(t, utils.IsKind(err, utils.KindValidation), code)
			}
		})
	}
}

func TestComposeLevel4Codes(t *testing.T) {
	code := models.ComposeLevel4Code("01", "01", "001")
	assert.Equal(t, "0101001", code)
	full := models.ComposeLevel4Fullcode(code, "00001")
	assert.Equal(t, "010100100001", full)
	assert.Len(t, full, 12)
}

func TestValidateCenterCode(t *testing.T) {
	assert.NoError(t, models.ValidateCenterCode("childCode", "07"))
	err := models.ValidateCenterCode("childCode", "7")
	var appErr *utils.AppError
	if assert.ErrorAs(t, err, &appErr) {
		assert.Equal(t, "childCode", appErr.Field)
	}
}
