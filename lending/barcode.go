package lending

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	AssetBarcodePrefix = "ITEM-"
	LoanBarcodePrefix  = "LENT-"
	DayLayout          = "20060102"

	// MaxDailySequence is the largest suffix that fits the three-digit field.
	MaxDailySequence = 999
)

var loanBarcodePattern = regexp.MustCompile(`^LENT-\d{8}-\d{3}$`)

// ValidLoanBarcode reports whether s has the LENT-YYYYMMDD-NNN shape.
func ValidLoanBarcode(s string) bool { return loanBarcodePattern.MatchString(s) }

// LoanBarcodeDayPrefix returns the prefix shared by all loan barcodes of day.
func LoanBarcodeDayPrefix(day string) string { return LoanBarcodePrefix + day + "-" }

func FormatLoanBarcode(day string, n int) string {
	return fmt.Sprintf("%s%s-%03d", LoanBarcodePrefix, day, n)
}

// MaxSequenceSuffix returns the largest numeric suffix among barcodes that
// start with prefix, or 0 when there is none. Unparseable suffixes are skipped.
func MaxSequenceSuffix(barcodes []string, prefix string) int {
	highest := 0
	for _, b := range barcodes {
		rest, ok := strings.CutPrefix(b, prefix)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(rest)
		if err != nil || n < 0 {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return highest
}

// Generator produces asset and loan barcodes.
type Generator struct {
	seq     Sequence
	clock   Clock
	metrics Metrics
}

func NewGenerator(seq Sequence, clock Clock, m Metrics) *Generator {
	if clock == nil {
		clock = SystemClock{}
	}
	if m == nil {
		m = nopMetrics{}
	}
	return &Generator{seq: seq, clock: clock, metrics: m}
}

// AssetBarcode derives the asset barcode from its serial number. An empty
// serial yields the bare prefix; callers that need a serial validate it first.
func (g *Generator) AssetBarcode(serial string) string {
	g.metrics.BarcodeGenerated("asset")
	return AssetBarcodePrefix + serial
}

// LoanBarcode returns the next LENT-YYYYMMDD-NNN barcode for date's calendar
// day, or for the current UTC day when date is nil.
func (g *Generator) LoanBarcode(ctx context.Context, date *time.Time) (string, error) {
	d := g.clock.Now().UTC()
	if date != nil {
		d = *date
	}
	day := d.Format(DayLayout)
	n, err := g.seq.Next(ctx, day)
	if err != nil {
		return "", wrap(ErrPersistence, fmt.Errorf("next sequence for %s: %w", day, err))
	}
	if n > MaxDailySequence {
		return "", withMessage(ErrSequenceExhausted, "no loan barcodes left for %s", day)
	}
	g.metrics.BarcodeGenerated("loan")
	return FormatLoanBarcode(day, n), nil
}
