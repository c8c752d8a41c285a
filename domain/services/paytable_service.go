package services

import (
	"fmt"

	"slotbridge/domain/entities"
)

// payline paths: the row occupied on each reel, left to right
var paylines = [entities.MaxPaylines][entities.ReelCount]int{
	{0, 0, 0, 0, 0},
	{1, 1, 1, 1, 1},
	{2, 2, 2, 2, 2},
	{0, 1, 2, 1, 0},
	{2, 1, 0, 1, 2},
}

// payout multipliers per symbol, indexed by run length minus three
var payouts = map[string][3]int64{
	"cherry":                 {2, 5, 10},
	"lemon":                  {2, 5, 10},
	"bell":                   {4, 10, 25},
	"star":                   {5, 15, 40},
	"diamond":                {10, 30, 100},
	"seven":                  {20, 60, 200},
	entities.JackpotSymbol:   {50, 150, 500},
}

// symbolOrder fixes evaluation order so win lists are stable
var symbolOrder = []string{"cherry", "lemon", "bell", "star", "diamond", "seven", entities.JackpotSymbol}

// bonus spins awarded per scatter count (3, 4, 5 scatters)
var scatterAwards = [3]int{5, 10, 20}

// waysBetDivisor converts a flat ways stake into the per-way betting unit
const waysBetDivisor = 25

// PaytableService decodes a confirmed chain result into a full Outcome:
// line or ways wins, win level, scatter bonus spins, and a corroborated
// jackpot claim.
type PaytableService struct{}

// NewPaytableService creates a new paytable service
func NewPaytableService() *PaytableService {
	return &PaytableService{}
}

// DecodeOutcome evaluates the chain-reported grid against the stake. The
// chain's jackpot flag is only honored when the grid corroborates it.
func (s *PaytableService) DecodeOutcome(result *entities.SpinResult, stake entities.Stake) (*entities.Outcome, error) {
	if err := validateGrid(result.Grid); err != nil {
		return nil, err
	}

	outcome := &entities.Outcome{
		Grid:     result.Grid,
		WinLevel: entities.WinLevelNone,
	}

	if stake.Ways {
		outcome.WaysWins = evaluateWays(result.Grid, stake.Amount)
		for _, w := range outcome.WaysWins {
			outcome.Winnings += w.Payout
		}
	} else {
		outcome.WinningLines = evaluateLines(result.Grid, stake)
		for _, w := range outcome.WinningLines {
			outcome.Winnings += w.Payout
		}
	}

	outcome.BonusSpinsAwarded = bonusSpins(result.Grid)
	if result.BonusSpinsAwarded > outcome.BonusSpinsAwarded {
		outcome.BonusSpinsAwarded = result.BonusSpinsAwarded
	}

	if result.JackpotHit && entities.CountSymbol(result.Grid, entities.JackpotSymbol) >= entities.JackpotSymbolCount {
		outcome.JackpotHit = true
		outcome.JackpotAmount = result.JackpotAmount
		outcome.Winnings += result.JackpotAmount
	}

	outcome.WinLevel = classify(outcome, stake.Total())
	return outcome, nil
}

func validateGrid(grid [][]string) error {
	if len(grid) != entities.RowCount {
		return fmt.Errorf("grid has %d rows, machine has %d", len(grid), entities.RowCount)
	}
	for i, row := range grid {
		if len(row) != entities.ReelCount {
			return fmt.Errorf("grid row %d has %d reels, machine has %d", i, len(row), entities.ReelCount)
		}
	}
	return nil
}

// evaluateLines scores the active fixed paylines. A line pays on a run of
// three or more identical symbols anchored on the leftmost reel.
func evaluateLines(grid [][]string, stake entities.Stake) []entities.LineWin {
	var wins []entities.LineWin
	for line := 0; line < stake.Lines; line++ {
		path := paylines[line]
		symbol := grid[path[0]][0]
		if symbol == entities.ScatterSymbol {
			continue
		}
		run := 1
		for reel := 1; reel < entities.ReelCount; reel++ {
			if grid[path[reel]][reel] != symbol {
				break
			}
			run++
		}
		if run < 3 {
			continue
		}
		table, ok := payouts[symbol]
		if !ok {
			continue
		}
		wins = append(wins, entities.LineWin{
			Line:   line,
			Symbol: symbol,
			Count:  run,
			Payout: table[run-3] * stake.PerLine,
		})
	}
	return wins
}

// evaluateWays scores ways-to-win: a symbol pays when it lands on three or
// more consecutive reels from the left; the way count is the product of its
// appearances per reel.
func evaluateWays(grid [][]string, amount int64) []entities.WaysWin {
	unit := amount / waysBetDivisor
	if unit <= 0 {
		unit = 1
	}

	var wins []entities.WaysWin
	for _, symbol := range symbolOrder {
		table := payouts[symbol]
		reels := 0
		ways := 1
		for reel := 0; reel < entities.ReelCount; reel++ {
			count := 0
			for row := 0; row < entities.RowCount; row++ {
				if grid[row][reel] == symbol {
					count++
				}
			}
			if count == 0 {
				break
			}
			reels++
			ways *= count
		}
		if reels < 3 {
			continue
		}
		wins = append(wins, entities.WaysWin{
			Symbol: symbol,
			Reels:  reels,
			Ways:   ways,
			Payout: table[reels-3] * unit * int64(ways),
		})
	}
	return wins
}

func bonusSpins(grid [][]string) int {
	scatters := entities.CountSymbol(grid, entities.ScatterSymbol)
	if scatters < 3 {
		return 0
	}
	if scatters > 5 {
		scatters = 5
	}
	return scatterAwards[scatters-3]
}

func classify(outcome *entities.Outcome, total int64) entities.WinLevel {
	if outcome.JackpotHit {
		return entities.WinLevelJackpot
	}
	switch {
	case outcome.Winnings <= 0:
		return entities.WinLevelNone
	case outcome.Winnings < total:
		return entities.WinLevelSmall
	case outcome.Winnings < 5*total:
		return entities.WinLevelMedium
	default:
		return entities.WinLevelLarge
	}
}
