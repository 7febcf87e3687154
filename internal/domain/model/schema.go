// Package model contains the table types shared by ingestion, caching and reports.
package model

// Canonical identity columns. The first source column is always mapped to
// ColDate whatever its header says.
const (
	ColDate   = "date"
	ColCoach  = "coach"
	ColPlayer = "player"
	ColClub   = "club"
)

// Canonical measure columns.
const (
	MeasureHands       = "hands"
	MeasureRakebackPct = "rakeback_pct"
	MeasureRake        = "rake"
	MeasureRakeback    = "rakeback"
	MeasureWinnings    = "winnings"
	MeasureProfit      = "profit"
)

// IdentityColumns lists the non-numeric columns every table must carry.
func IdentityColumns() []string {
	return []string{ColDate, ColCoach, ColPlayer, ColClub}
}

// DefaultMeasures lists the measures tracked per record, in sheet order.
func DefaultMeasures() []string {
	return []string{
		MeasureHands,
		MeasureRakebackPct,
		MeasureRake,
		MeasureRakeback,
		MeasureWinnings,
		MeasureProfit,
	}
}

// DefaultRename maps the player-sheet headers to canonical names.
func DefaultRename() map[string]string {
	return map[string]string{
		"Тренер":          ColCoach,
		"nickname":        ColPlayer,
		"club_name":       ColClub,
		"руки":            MeasureHands,
		"RB%_PLAYER":      MeasureRakebackPct,
		"Rake_USD_PLAYER": MeasureRake,
		"RB_USD_PLAYER":   MeasureRakeback,
		"Win_USD_PLAYER":  MeasureWinnings,
		"Profit_PLAYER":   MeasureProfit,
	}
}

// RequiredColumns returns the identity columns followed by measures.
func RequiredColumns(measures []string) []string {
	cols := IdentityColumns()
	return append(cols, measures...)
}
