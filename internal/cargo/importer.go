package cargo

import (
	"encoding/csv"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lngdesk/cargo-engine/internal/model"
)

// headerAliases maps normalized column headers from pasted deal sheets to
// profile fields. Lookup is exact first, then containment in either
// direction, so "load port (origin)" still lands on source.
var headerAliases = map[string]string{
	"id":                  "id",
	"deal id":             "id",
	"cargo id":            "id",
	"counterparty":        "counterparty",
	"vessel":              "vessel",
	"ship":                "vessel",
	"source":              "source",
	"load port":           "source",
	"loading port":        "source",
	"origin":              "source",
	"destination":         "destination",
	"discharge port":      "destination",
	"delivery port":       "destination",
	"commodity":           "commodity",
	"product":             "commodity",
	"bucket":              "pnl_bucket",
	"pnl bucket":          "pnl_bucket",
	"sell formula":        "sell_formula",
	"sales formula":       "sell_formula",
	"sell price formula":  "sell_formula",
	"buy formula":         "buy_formula",
	"purchase formula":    "buy_formula",
	"sell price":          "absolute_sell_price",
	"absolute sell price": "absolute_sell_price",
	"buy price":           "absolute_buy_price",
	"absolute buy price":  "absolute_buy_price",
	"delivered volume":    "delivered_volume",
	"discharge volume":    "delivered_volume",
	"loaded volume":       "loaded_volume",
	"load volume":         "loaded_volume",
	"volume unit":         "volume_unit",
	"unit":                "volume_unit",
	"delivery date":       "delivery_date",
	"discharge date":      "delivery_date",
	"loading date":        "loading_date",
	"load date":           "loading_date",
	"hedging pnl":         "total_hedging_pnl",
	"total hedging pnl":   "total_hedging_pnl",
}

// aliasOrder holds the alias keys longest-first so containment fallback is
// deterministic and prefers the most specific alias.
var aliasOrder = func() []string {
	order := make([]string, 0, len(headerAliases))
	for alias := range headerAliases {
		order = append(order, alias)
	}
	sort.Slice(order, func(i, j int) bool {
		if len(order[i]) != len(order[j]) {
			return len(order[i]) > len(order[j])
		}
		return order[i] < order[j]
	})
	return order
}()

var headerJunkRe = regexp.MustCompile(`[^a-z0-9]+`)

// normalizeHeader lower-cases a header and collapses punctuation to single
// spaces, e.g. "Load_Port (origin)" → "load port origin".
func normalizeHeader(h string) string {
	return strings.TrimSpace(headerJunkRe.ReplaceAllString(strings.ToLower(h), " "))
}

// matchHeader resolves a pasted column header to a profile field, or ""
// when no alias matches.
func matchHeader(h string) string {
	norm := normalizeHeader(h)
	if norm == "" {
		return ""
	}
	if field, ok := headerAliases[norm]; ok {
		return field
	}
	for _, alias := range aliasOrder {
		if strings.Contains(norm, alias) || strings.Contains(alias, norm) {
			return headerAliases[alias]
		}
	}
	return ""
}

// ParseProfiles turns tabular paste data (tab- or comma-separated, first
// row headers) into candidate profiles. Unrecognized columns are ignored;
// rows missing an id get a generated one.
func ParseProfiles(data string) ([]model.CargoProfile, error) {
	data = strings.TrimSpace(data)
	if data == "" {
		return nil, fmt.Errorf("import: empty table")
	}

	reader := csv.NewReader(strings.NewReader(data))
	if strings.Contains(strings.SplitN(data, "\n", 2)[0], "\t") {
		reader.Comma = '\t'
	}
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("import: parse table: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("import: need a header row and at least one data row")
	}

	fields := make([]string, len(records[0]))
	for i, h := range records[0] {
		fields[i] = matchHeader(h)
	}

	now := time.Now().UTC()
	var profiles []model.CargoProfile
	for _, record := range records[1:] {
		p := model.CargoProfile{
			PnLBucket: model.BucketUnrealized,
			CreatedAt: now,
			UpdatedAt: now,
		}
		empty := true
		for i, value := range record {
			if i >= len(fields) || fields[i] == "" {
				continue
			}
			value = strings.TrimSpace(value)
			if value == "" {
				continue
			}
			empty = false
			setField(&p, fields[i], value)
		}
		if empty {
			continue
		}
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

func setField(p *model.CargoProfile, field, value string) {
	switch field {
	case "id":
		p.ID = value
	case "counterparty":
		p.Counterparty = value
	case "vessel":
		p.Vessel = value
	case "source":
		p.Source = value
	case "destination":
		p.Destination = value
	case "commodity":
		p.Commodity = value
	case "pnl_bucket":
		p.PnLBucket = parseBucket(value)
	case "sell_formula":
		p.SellFormula = value
	case "buy_formula":
		p.BuyFormula = value
	case "absolute_sell_price":
		p.AbsoluteSellPrice = parseDecimal(value)
	case "absolute_buy_price":
		p.AbsoluteBuyPrice = parseDecimal(value)
	case "delivered_volume":
		p.DeliveredVolume = parseDecimal(value)
	case "loaded_volume":
		p.LoadedVolume = parseDecimal(value)
	case "volume_unit":
		p.VolumeUnit = model.Unit(value)
	case "delivery_date":
		p.DeliveryDate = value
	case "loading_date":
		p.LoadingDate = value
	case "total_hedging_pnl":
		p.TotalHedgingPnL = parseDecimal(value)
	}
}

func parseBucket(value string) model.Bucket {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "realized":
		return model.BucketRealized
	case "unrealized":
		return model.BucketUnrealized
	default:
		return model.BucketUnspecified
	}
}

var numberJunkRe = regexp.MustCompile(`[£$€¥, ]`)

// parseDecimal reads a pasted number, tolerating currency symbols and
// thousands separators. Unparseable values become zero (unset).
func parseDecimal(value string) decimal.Decimal {
	cleaned := numberJunkRe.ReplaceAllString(value, "")
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d
}
