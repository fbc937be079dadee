package cargo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lngdesk/cargo-engine/internal/model"
)

func TestMatchHeader(t *testing.T) {
	cases := map[string]string{
		"Counterparty":       "counterparty",
		"Load Port":          "source",
		"Load_Port (origin)": "source",
		"DISCHARGE PORT":     "destination",
		"Sell Price Formula": "sell_formula",
		"Hedging PnL ($)":    "total_hedging_pnl",
		"Qty":                "",
		"":                   "",
	}
	for header, want := range cases {
		assert.Equal(t, want, matchHeader(header), "header %q", header)
	}
}

func TestParseProfiles_TSV(t *testing.T) {
	data := "Deal ID\tCounterparty\tSell Formula\tDelivered Volume\tDelivery Date\n" +
		"D-100\tShell\tTTF + 0.50\t3,400,000\t2025-08-15\n" +
		"D-101\tTotal\tJKM\t3 100 000\t2025-09-02\n"

	profiles, err := ParseProfiles(data)
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	p := profiles[0]
	assert.Equal(t, "D-100", p.ID)
	assert.Equal(t, "Shell", p.Counterparty)
	assert.Equal(t, "TTF + 0.50", p.SellFormula)
	assert.True(t, p.DeliveredVolume.Equal(dec(3400000)), "thousands separators stripped: %s", p.DeliveredVolume)
	assert.Equal(t, "2025-08-15", p.DeliveryDate)
	assert.Equal(t, model.BucketUnrealized, p.PnLBucket)

	assert.True(t, profiles[1].DeliveredVolume.Equal(dec(3100000)))
}

func TestParseProfiles_CSVWithCurrencyAndBucket(t *testing.T) {
	data := "id,bucket,buy price,loaded volume\n" +
		"c-1,Realized,$3.25,100\n" +
		"c-2,odd,£2.10,50\n"

	profiles, err := ParseProfiles(data)
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	assert.Equal(t, model.BucketRealized, profiles[0].PnLBucket)
	assert.True(t, profiles[0].AbsoluteBuyPrice.Equal(dec(3.25)))

	assert.Equal(t, model.BucketUnspecified, profiles[1].PnLBucket)
	assert.True(t, profiles[1].AbsoluteBuyPrice.Equal(dec(2.10)))
}

func TestParseProfiles_GeneratesMissingIDs(t *testing.T) {
	data := "counterparty,vessel\nShell,Arctic Lady\n"

	profiles, err := ParseProfiles(data)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.NotEmpty(t, profiles[0].ID)
}

func TestParseProfiles_SkipsEmptyRowsAndUnknownColumns(t *testing.T) {
	data := "id,mystery column,vessel\n" +
		"c-1,ignored,Arctic Lady\n" +
		",,\n"

	profiles, err := ParseProfiles(data)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "Arctic Lady", profiles[0].Vessel)
}

func TestParseProfiles_UnparseableNumberBecomesZero(t *testing.T) {
	data := "id,delivered volume\nc-1,TBD\n"

	profiles, err := ParseProfiles(data)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.True(t, profiles[0].DeliveredVolume.IsZero())
}

func TestParseProfiles_RejectsEmptyAndHeaderOnly(t *testing.T) {
	_, err := ParseProfiles("")
	assert.Error(t, err)

	_, err = ParseProfiles("id,vessel\n")
	assert.Error(t, err)
}
