package report

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/okian/profitboard/internal/domain/model"
	"github.com/shopspring/decimal"
)

// TotalLabel names the closing row of the club summary.
const TotalLabel = "TOTAL"

// Totals are the summed measures of a group, rounded to whole units.
type Totals struct {
	Profit   decimal.Decimal `json:"profit"`
	Winnings decimal.Decimal `json:"winnings"`
	Rakeback decimal.Decimal `json:"rakeback"`
	Hands    decimal.Decimal `json:"hands"`
	Rake     decimal.Decimal `json:"rake"`
}

func (t Totals) add(o Totals) Totals {
	return Totals{
		Profit:   t.Profit.Add(o.Profit),
		Winnings: t.Winnings.Add(o.Winnings),
		Rakeback: t.Rakeback.Add(o.Rakeback),
		Hands:    t.Hands.Add(o.Hands),
		Rake:     t.Rake.Add(o.Rake),
	}
}

// round uses half to even, so 0.5 becomes 0 and 1.5 becomes 2.
func (t Totals) round() Totals {
	return Totals{
		Profit:   t.Profit.RoundBank(0),
		Winnings: t.Winnings.RoundBank(0),
		Rakeback: t.Rakeback.RoundBank(0),
		Hands:    t.Hands.RoundBank(0),
		Rake:     t.Rake.RoundBank(0),
	}
}

func recordTotals(r model.Record) Totals {
	return Totals{
		Profit:   r.MeasureOrZero(model.MeasureProfit),
		Winnings: r.MeasureOrZero(model.MeasureWinnings),
		Rakeback: r.MeasureOrZero(model.MeasureRakeback),
		Hands:    r.MeasureOrZero(model.MeasureHands),
		Rake:     r.MeasureOrZero(model.MeasureRake),
	}
}

// Summary is one grouped row. Only the grouping columns are set.
type Summary struct {
	Coach    string `json:"coach,omitempty"`
	Player   string `json:"player,omitempty"`
	Club     string `json:"club,omitempty"`
	Selected bool   `json:"selected,omitempty"`
	Totals
}

// Key returns the (coach, player) identity of the row.
func (s Summary) Key() GroupKey {
	return GroupKey{Coach: s.Coach, Player: s.Player}
}

// GroupBy sums the report measures of records per distinct combination of
// keys (coach, player, club). Missing measures count as zero. Rows are
// rounded and sorted by profit, highest first.
func GroupBy(records []model.Record, keys ...string) ([]Summary, error) {
	for _, k := range keys {
		if k != model.ColCoach && k != model.ColPlayer && k != model.ColClub {
			return nil, fmt.Errorf("%w: %q", ErrUnknownKey, k)
		}
	}

	type groupID struct{ coach, player, club string }
	index := map[groupID]int{}
	var out []Summary
	for _, r := range records {
		var id groupID
		for _, k := range keys {
			switch k {
			case model.ColCoach:
				id.coach = r.Coach
			case model.ColPlayer:
				id.player = r.Player
			case model.ColClub:
				id.club = r.Club
			}
		}
		i, ok := index[id]
		if !ok {
			i = len(out)
			index[id] = i
			out = append(out, Summary{Coach: id.coach, Player: id.player, Club: id.club})
		}
		out[i].Totals = out[i].Totals.add(recordTotals(r))
	}

	for i := range out {
		out[i].Totals = out[i].Totals.round()
	}
	slices.SortStableFunc(out, func(a, b Summary) int {
		if c := b.Profit.Cmp(a.Profit); c != 0 {
			return c
		}
		return cmp.Or(
			cmp.Compare(a.Coach, b.Coach),
			cmp.Compare(a.Player, b.Player),
			cmp.Compare(a.Club, b.Club),
		)
	})
	return out, nil
}

// Sum adds up already rounded summary rows.
func Sum(rows []Summary) Totals {
	var t Totals
	for _, r := range rows {
		t = t.add(r.Totals)
	}
	return t
}

// Point is one day of the cumulative chart.
type Point struct {
	Date               string          `json:"date"`
	Profit             decimal.Decimal `json:"profit"`
	Winnings           decimal.Decimal `json:"winnings"`
	Hands              decimal.Decimal `json:"hands"`
	CumulativeProfit   decimal.Decimal `json:"cumulative_profit"`
	CumulativeWinnings decimal.Decimal `json:"cumulative_winnings"`
}

// Series sums profit, winnings and hands per day in date order and carries
// running totals of profit and winnings. A single record yields no series.
func Series(records []model.Record) []Point {
	if len(records) <= 1 {
		return nil
	}
	byDay := map[time.Time]*Point{}
	var days []time.Time
	for _, r := range records {
		if !r.HasDate() {
			continue
		}
		p, ok := byDay[r.Date]
		if !ok {
			p = &Point{Date: r.Date.Format(model.DateLayout)}
			byDay[r.Date] = p
			days = append(days, r.Date)
		}
		p.Profit = p.Profit.Add(r.MeasureOrZero(model.MeasureProfit))
		p.Winnings = p.Winnings.Add(r.MeasureOrZero(model.MeasureWinnings))
		p.Hands = p.Hands.Add(r.MeasureOrZero(model.MeasureHands))
	}
	slices.SortFunc(days, func(a, b time.Time) int { return a.Compare(b) })

	out := make([]Point, len(days))
	var profit, winnings decimal.Decimal
	for i, d := range days {
		p := *byDay[d]
		profit = profit.Add(p.Profit)
		winnings = winnings.Add(p.Winnings)
		p.CumulativeProfit = profit
		p.CumulativeWinnings = winnings
		out[i] = p
	}
	return out
}

// Report is everything the dashboard shows for one query.
type Report struct {
	From    string    `json:"from"`
	To      string    `json:"to"`
	Coach   string    `json:"coach,omitempty"`
	Player  string    `json:"player,omitempty"`
	Rows    int       `json:"rows"`
	Players []Summary `json:"players"`
	Clubs   []Summary `json:"clubs"`
	Totals  Totals    `json:"totals"`
	Series  []Point   `json:"series,omitempty"`
}

// Build filters t by q and assembles the player and club summaries, the
// totals and the cumulative series.
func Build(t *model.Table, q Query, today time.Time) (*Report, error) {
	from, to, err := q.Period(t, today)
	if err != nil {
		return nil, err
	}
	filtered, err := Apply(t, q, today)
	if err != nil {
		return nil, err
	}

	players, err := GroupBy(filtered.Records, model.ColCoach, model.ColPlayer)
	if err != nil {
		return nil, err
	}

	chosen := players
	visible := filtered.Records
	if len(q.Selected) > 0 {
		want := make(map[GroupKey]bool, len(q.Selected))
		for _, k := range q.Selected {
			want[k] = true
		}
		chosen = nil
		for i := range players {
			if want[players[i].Key()] {
				players[i].Selected = true
				chosen = append(chosen, players[i])
			}
		}
		visible = nil
		for _, r := range filtered.Records {
			if want[GroupKey{Coach: r.Coach, Player: r.Player}] {
				visible = append(visible, r)
			}
		}
	}

	clubs, err := GroupBy(visible, model.ColClub)
	if err != nil {
		return nil, err
	}
	clubs = append(clubs, Summary{Club: TotalLabel, Totals: Sum(clubs)})

	return &Report{
		From:    from.Format(model.DateLayout),
		To:      to.Format(model.DateLayout),
		Coach:   q.Coach,
		Player:  q.Player,
		Rows:    filtered.Len(),
		Players: players,
		Clubs:   clubs,
		Totals:  Sum(chosen),
		Series:  Series(visible),
	}, nil
}
