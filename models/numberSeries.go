package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/mmdatafocus/erp_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	sequenceScopeInvoice = "invoice"
	sequenceScopePO      = "po"

	invoiceSequenceWidth = 4
	poSequenceWidth      = 5
)

// NumberSequence is the per (company, scope, prefix) counter that serializes number allocation.
type NumberSequence struct {
	ID        int       `gorm:"primary_key" json:"id"`
	CompanyId string    `gorm:"size:64;not null;uniqueIndex:idx_number_sequence_key,priority:1" json:"company_id"`
	Scope     string    `gorm:"size:20;not null;uniqueIndex:idx_number_sequence_key,priority:2" json:"scope"`
	Prefix    string    `gorm:"size:20;not null;uniqueIndex:idx_number_sequence_key,priority:3" json:"prefix"`
	LastValue int64     `gorm:"not null;default:0" json:"last_value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// InvoicePrefix is the upper-cased first letter of the invoice type plus the 4 digit year, e.g. S2025.
func InvoicePrefix(invoiceType string, invoiceDate time.Time) string {
	var first rune
	for _, r := range strings.TrimSpace(invoiceType) {
		first = unicode.ToUpper(r)
		break
	}
	return fmt.Sprintf("%c%04d", first, invoiceDate.Year())
}

// POPrefix is "<year>-".
func POPrefix(poDate time.Time) string {
	return fmt.Sprintf("%04d-", poDate.Year())
}

func FormatSequence(n int64, width int) string {
	return fmt.Sprintf("%0*d", width, n)
}

// ParseSequenceSuffix reads the last width characters of number as an integer.
func ParseSequenceSuffix(number string, width int) (int64, bool) {
	if len(number) < width {
		return 0, false
	}
	n, err := strconv.ParseInt(number[len(number)-width:], 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// NextSequenceFromScan is max(suffix)+1 over existing numbers, 1 when none parse.
func NextSequenceFromScan(numbers []string, width int) int64 {
	var maxSeq int64
	for _, num := range numbers {
		if n, ok := ParseSequenceSuffix(num, width); ok && n > maxSeq {
			maxSeq = n
		}
	}
	return maxSeq + 1
}

// sequenceTarget is the table and column whose values a sequence allocates.
type sequenceTarget struct {
	scope  string
	model  interface{}
	column string
	width  int
}

var (
	invoiceSequence = sequenceTarget{scope: sequenceScopeInvoice, model: &SalesVoucher{}, column: "invoice_number", width: invoiceSequenceWidth}
	poSequence      = sequenceTarget{scope: sequenceScopePO, model: &PurchaseOrder{}, column: "po_number", width: poSequenceWidth}
)

func (t sequenceTarget) existing(tx *gorm.DB, companyId string, prefix string) ([]string, error) {
	var numbers []string
	err := tx.Model(t.model).
		Where("company_id = ? AND "+t.column+" LIKE ?", companyId, prefix+"%").
		Pluck(t.column, &numbers).Error
	return numbers, err
}

func (t sequenceTarget) taken(tx *gorm.DB, companyId string, number string) (bool, error) {
	var count int64
	err := tx.Model(t.model).Where("company_id = ? AND "+t.column+" = ?", companyId, number).Count(&count).Error
	return count > 0, err
}

// lockSequence returns the counter row locked for update, creating and seeding it on first use.
func (t sequenceTarget) lockSequence(tx *gorm.DB, companyId string, prefix string) (*NumberSequence, error) {
	var seq NumberSequence
	find := func() error {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("company_id = ? AND scope = ? AND prefix = ?", companyId, t.scope, prefix).
			First(&seq).Error
	}
	err := find()
	if err == nil {
		return &seq, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// first time this prefix is seen: continue after whatever is already stored
	numbers, err := t.existing(tx, companyId, prefix)
	if err != nil {
		return nil, err
	}
	seed := NumberSequence{
		CompanyId: companyId,
		Scope:     t.scope,
		Prefix:    prefix,
		LastValue: NextSequenceFromScan(numbers, t.width) - 1,
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return nil, err
	}
	if err := find(); err != nil {
		return nil, err
	}
	return &seq, nil
}

// allocate takes the next free number of prefix inside tx. Numbers already present
// (supplied by callers) are skipped.
func (t sequenceTarget) allocate(tx *gorm.DB, companyId string, prefix string) (string, error) {
	seq, err := t.lockSequence(tx, companyId, prefix)
	if err != nil {
		return "", err
	}

	limit := int64(1)
	for i := 0; i < t.width; i++ {
		limit *= 10
	}

	next := seq.LastValue + 1
	var number string
	for {
		if next >= limit {
			return "", utils.NewValidationError(t.column, "%s sequence for %s is exhausted", t.column, prefix)
		}
		number = prefix + FormatSequence(next, t.width)
		exists, err := t.taken(tx, companyId, number)
		if err != nil {
			return "", err
		}
		if !exists {
			break
		}
		next++
	}

	if err := tx.Model(seq).UpdateColumn("last_value", next).Error; err != nil {
		return "", err
	}
	return number, nil
}

// AllocateInvoiceNumber returns supplied when given, otherwise the next number of
// the (type, year) prefix, e.g. S20250001. Must run in the caller's transaction.
func AllocateInvoiceNumber(tx *gorm.DB, companyId string, invoiceType string, invoiceDate time.Time, supplied string) (string, error) {
	if s := strings.TrimSpace(supplied); s != "" {
		return s, nil
	}
	if strings.TrimSpace(invoiceType) == "" {
		return "", utils.NewValidationError("invoiceType", "invoice type is required")
	}
	if invoiceDate.IsZero() {
		return "", utils.NewValidationError("invoiceDate", "invoice date is required")
	}
	return invoiceSequence.allocate(tx, companyId, InvoicePrefix(invoiceType, invoiceDate))
}

// AllocatePONumber is AllocateInvoiceNumber for purchase orders, e.g. 2025-00001.
func AllocatePONumber(tx *gorm.DB, companyId string, poDate time.Time, supplied string) (string, error) {
	if s := strings.TrimSpace(supplied); s != "" {
		return s, nil
	}
	if poDate.IsZero() {
		return "", utils.NewValidationError("poDate", "po date is required")
	}
	return poSequence.allocate(tx, companyId, POPrefix(poDate))
}
