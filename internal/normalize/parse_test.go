package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseDate_DayMonthYear(t *testing.T) {
	cases := map[string]time.Time{
		"15/01/2024":   date(2024, time.January, 15),
		"5/1/2024":     date(2024, time.January, 5),
		"15-01-2024":   date(2024, time.January, 15),
		"15.01.2024":   date(2024, time.January, 15),
		"15/01/24":     date(2024, time.January, 15),
		"01.03.99":     date(2099, time.March, 1),
		" 29/02/2024 ": date(2024, time.February, 29),
	}

	for raw, want := range cases {
		got := ParseDate(raw)
		require.NotNil(t, got, raw)
		assert.True(t, want.Equal(*got), "%q: want %s got %s", raw, want, got)
	}
}

func TestParseDate_ISOFallback(t *testing.T) {
	got := ParseDate("2024-01-15")
	require.NotNil(t, got)
	assert.Equal(t, date(2024, time.January, 15), *got)

	got = ParseDate("2024-01-15T23:30:00+02:00")
	require.NotNil(t, got)
	assert.Equal(t, date(2024, time.January, 15), *got)

	got = ParseDate("2024-01-15T10:00:00Z")
	require.NotNil(t, got)
	assert.Equal(t, date(2024, time.January, 15), *got)
}

func TestParseDate_Unparseable(t *testing.T) {
	for _, raw := range []string{"", "   ", "soon", "31/02/2024", "13/13/2024", "00/01/2024", "1/2/345"} {
		assert.Nil(t, ParseDate(raw), raw)
	}
}

func TestParseInt(t *testing.T) {
	n, ok := ParseInt("1,250")
	assert.True(t, ok)
	assert.Equal(t, 1250, n)

	n, ok = ParseInt(" 42 units")
	assert.True(t, ok)
	assert.Equal(t, 42, n)

	n, ok = ParseInt("12.7")
	assert.True(t, ok)
	assert.Equal(t, 12, n)

	n, ok = ParseInt("-3")
	assert.True(t, ok)
	assert.Equal(t, -3, n)

	_, ok = ParseInt("n/a")
	assert.False(t, ok)

	_, ok = ParseInt("")
	assert.False(t, ok)
}

func TestParseQuantity_NeverNegative(t *testing.T) {
	assert.Equal(t, 0, ParseQuantity("-5"))
	assert.Equal(t, 0, ParseQuantity("abc"))
	assert.Equal(t, 0, ParseQuantity(""))
	assert.Equal(t, 1000000, ParseQuantity("1,000,000"))
}

func TestDayMonthLabel(t *testing.T) {
	assert.Equal(t, "05/01", DayMonthLabel(date(2024, time.January, 5)))
	assert.Equal(t, "05/01/2024", FormatDate(date(2024, time.January, 5)))
}
