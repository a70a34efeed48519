package numerator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatAndKey(t *testing.T) {
	period := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "ORD-2026-00001", Format(DefaultConfig(PrefixOrder), period, 1))
	assert.Equal(t, "QUO-000042", Format(Config{Prefix: PrefixQuotation, PadWidth: 6}, period, 42))

	assert.Equal(t, "ORD_2026", Key(DefaultConfig(PrefixOrder), period))
	assert.Equal(t, "SAL_2026_03", Key(Config{Prefix: PrefixSale, ResetPeriod: "month"}, period))
	assert.Equal(t, "SAL", Key(Config{Prefix: PrefixSale}, period))
}
