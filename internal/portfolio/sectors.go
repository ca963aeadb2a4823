package portfolio

import (
	"fmt"
	"sort"

	"optionguard/internal/models"
)

// sectorMap classifies the liquid option underlyings into broad sectors.
// Unknown symbols fall into "Other".
var sectorMap = map[string]string{
	// Technology
	"AAPL": "Technology", "MSFT": "Technology", "GOOGL": "Technology",
	"GOOG": "Technology", "META": "Technology", "NVDA": "Technology",
	"AMD": "Technology", "INTC": "Technology", "CRM": "Technology",
	"ADBE": "Technology", "ORCL": "Technology", "CSCO": "Technology",
	"AVGO": "Technology", "TXN": "Technology", "QCOM": "Technology",
	"MU": "Technology", "AMAT": "Technology", "LRCX": "Technology",
	"KLAC": "Technology", "MRVL": "Technology", "TSM": "Technology",
	"ASML": "Technology", "BIDU": "Technology", "BABA": "Technology",
	"JD": "Technology", "PDD": "Technology", "NTES": "Technology",

	// Consumer
	"AMZN": "Consumer", "TSLA": "Consumer", "HD": "Consumer",
	"NKE": "Consumer", "MCD": "Consumer", "SBUX": "Consumer",
	"TGT": "Consumer", "LOW": "Consumer", "COST": "Consumer",
	"WMT": "Consumer", "DIS": "Consumer", "NFLX": "Consumer",

	// Financials
	"JPM": "Financials", "BAC": "Financials", "WFC": "Financials",
	"GS": "Financials", "MS": "Financials", "C": "Financials",
	"BLK": "Financials", "SCHW": "Financials", "V": "Financials",
	"MA": "Financials", "AXP": "Financials", "PYPL": "Financials",

	// Healthcare
	"JNJ": "Healthcare", "UNH": "Healthcare", "PFE": "Healthcare",
	"MRK": "Healthcare", "ABBV": "Healthcare", "LLY": "Healthcare",
	"TMO": "Healthcare", "ABT": "Healthcare",

	// Energy
	"XOM": "Energy", "CVX": "Energy", "COP": "Energy",
	"SLB": "Energy", "OXY": "Energy", "EOG": "Energy",

	// Industrials
	"CAT": "Industrials", "BA": "Industrials", "HON": "Industrials",
	"UPS": "Industrials", "UNP": "Industrials", "DE": "Industrials",
	"LMT": "Industrials", "RTX": "Industrials",
}

// SectorOf returns the sector for an underlying symbol.
func SectorOf(symbol string) string {
	if s, ok := sectorMap[symbol]; ok {
		return s
	}
	return "Other"
}

// SectorExposure summarizes one sector's share of the open book.
type SectorExposure struct {
	Sector         string   `json:"sector"`
	SymbolCount    int      `json:"symbol_count"`
	TotalValue     float64  `json:"total_value"`
	TotalDelta     float64  `json:"total_delta"`
	PctOfPortfolio float64  `json:"pct_of_portfolio"`
	Symbols        []string `json:"symbols"`
}

// Concentration measures how unevenly premium is spread across sectors.
// Score is a normalized Herfindahl index: 0 for an evenly split book,
// 100 when everything sits in a single sector.
type Concentration struct {
	Sectors          []SectorExposure `json:"sectors"` // sorted by portfolio share, largest first
	LargestSector    string           `json:"largest_sector"`
	LargestSectorPct float64          `json:"largest_sector_pct"`
	HHI              float64          `json:"hhi"`
	Score            float64          `json:"score"`
	Level            RiskLevel        `json:"level"`
	Interpretation   string           `json:"interpretation"`
}

type sectorBucket struct {
	value   float64
	delta   float64
	symbols map[string]struct{}
}

func concentration(positions []*models.Position) Concentration {
	buckets := make(map[string]*sectorBucket)
	var totalValue float64

	for _, pos := range positions {
		if pos == nil {
			continue
		}
		sector := SectorOf(pos.Symbol)
		b := buckets[sector]
		if b == nil {
			b = &sectorBucket{symbols: make(map[string]struct{})}
			buckets[sector] = b
		}
		value := positionValue(pos)
		b.value += value
		b.delta += positionDelta(pos)
		b.symbols[pos.Symbol] = struct{}{}
		totalValue += value
	}

	c := Concentration{Level: RiskLow}
	if len(buckets) == 0 {
		c.Interpretation = "No open positions"
		return c
	}

	for sector, b := range buckets {
		pct := 0.0
		if totalValue > 0 {
			pct = b.value / totalValue * 100
		}
		symbols := make([]string, 0, len(b.symbols))
		for sym := range b.symbols {
			symbols = append(symbols, sym)
		}
		sort.Strings(symbols)
		c.Sectors = append(c.Sectors, SectorExposure{
			Sector:         sector,
			SymbolCount:    len(symbols),
			TotalValue:     b.value,
			TotalDelta:     b.delta,
			PctOfPortfolio: pct,
			Symbols:        symbols,
		})
	}
	sort.Slice(c.Sectors, func(i, j int) bool {
		if c.Sectors[i].PctOfPortfolio != c.Sectors[j].PctOfPortfolio {
			return c.Sectors[i].PctOfPortfolio > c.Sectors[j].PctOfPortfolio
		}
		return c.Sectors[i].Sector < c.Sectors[j].Sector
	})

	c.LargestSector = c.Sectors[0].Sector
	c.LargestSectorPct = c.Sectors[0].PctOfPortfolio

	for _, s := range c.Sectors {
		share := s.PctOfPortfolio / 100
		c.HHI += share * share
	}

	// Normalize the HHI so a single-sector book scores 100 regardless of
	// how many sectors would have been possible.
	n := float64(len(c.Sectors))
	if n <= 1 {
		c.Score = 100
	} else {
		c.Score = (c.HHI - 1/n) / (1 - 1/n) * 100
		if c.Score < 0 {
			c.Score = 0
		}
	}

	c.Level = concentrationLevel(c.Score)
	switch {
	case c.Score >= 70:
		c.Interpretation = fmt.Sprintf("High concentration in %s (%.0f%% of portfolio) - diversify",
			c.LargestSector, c.LargestSectorPct)
	case c.Score >= 50:
		c.Interpretation = fmt.Sprintf("Moderate concentration in %s (%.0f%% of portfolio)",
			c.LargestSector, c.LargestSectorPct)
	default:
		c.Interpretation = "Well diversified across sectors"
	}
	return c
}

func concentrationLevel(score float64) RiskLevel {
	switch {
	case score >= 80:
		return RiskCritical
	case score >= 60:
		return RiskHigh
	case score >= 40:
		return RiskElevated
	case score >= 20:
		return RiskModerate
	default:
		return RiskLow
	}
}
