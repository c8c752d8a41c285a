package entities

// Machine geometry and jackpot rules
const (
	ReelCount = 5
	RowCount  = 3

	// MaxPaylines is the number of fixed paylines on the machine
	MaxPaylines = 5

	// JackpotSymbol is the symbol that pays the progressive jackpot
	JackpotSymbol = "jackpot"

	// JackpotSymbolCount is how many jackpot symbols the grid must carry
	// before a jackpot claim is honored
	JackpotSymbolCount = 3

	// ScatterSymbol awards bonus spins regardless of position
	ScatterSymbol = "scatter"
)

// WinLevel buckets an outcome by payout size relative to the stake
type WinLevel string

const (
	WinLevelNone    WinLevel = "none"
	WinLevelSmall   WinLevel = "small"
	WinLevelMedium  WinLevel = "medium"
	WinLevelLarge   WinLevel = "large"
	WinLevelJackpot WinLevel = "jackpot"
)

// LineWin is one winning fixed payline
type LineWin struct {
	Line   int    `json:"line"`
	Symbol string `json:"symbol"`
	Count  int    `json:"count"`
	Payout int64  `json:"payout"`
}

// WaysWin is one winning ways-to-win combination: Symbol matched on Reels
// consecutive reels from the left, across Ways distinct paths
type WaysWin struct {
	Symbol string `json:"symbol"`
	Reels  int    `json:"reels"`
	Ways   int    `json:"ways"`
	Payout int64  `json:"payout"`
}

// Outcome is the decoded result of one confirmed spin. WinningLines and
// WaysWins are mutually exclusive by game variant.
type Outcome struct {
	Grid              [][]string `json:"grid"`
	Winnings          int64      `json:"winnings"`
	WinLevel          WinLevel   `json:"winLevel"`
	WinningLines      []LineWin  `json:"winningLines,omitempty"`
	WaysWins          []WaysWin  `json:"waysWins,omitempty"`
	BonusSpinsAwarded int        `json:"bonusSpinsAwarded"`
	JackpotHit        bool       `json:"jackpotHit"`
	JackpotAmount     int64      `json:"jackpotAmount"`
}

// SpinResult is the raw chain-reported result of a confirmed spin transaction,
// before paytable decoding
type SpinResult struct {
	Grid              [][]string
	BonusSpinsAwarded int
	JackpotHit        bool
	JackpotAmount     int64
}

// CreditBalance is the authoritative credit/bonus-spin state of the session
type CreditBalance struct {
	Credits    int64 `json:"credits"`
	BonusSpins int   `json:"bonusSpins"`
}

// CountSymbol counts occurrences of a symbol anywhere on the grid
func CountSymbol(grid [][]string, symbol string) int {
	count := 0
	for _, row := range grid {
		for _, cell := range row {
			if cell == symbol {
				count++
			}
		}
	}
	return count
}

// VerifyJackpot reports whether the grid independently corroborates a jackpot
// claim. A reported jackpot flag is never trusted on its own: the message
// source may sit in a compromised sandbox.
func (o *Outcome) VerifyJackpot() bool {
	return CountSymbol(o.Grid, JackpotSymbol) >= JackpotSymbolCount
}

// SanitizeJackpot downgrades an uncorroborated jackpot claim. Returns true if
// the outcome was downgraded.
func (o *Outcome) SanitizeJackpot() bool {
	if !o.JackpotHit || o.VerifyJackpot() {
		return false
	}
	o.JackpotHit = false
	o.JackpotAmount = 0
	if o.WinLevel == WinLevelJackpot {
		o.WinLevel = WinLevelLarge
	}
	return true
}

// Clone returns a deep copy of the outcome
func (o *Outcome) Clone() *Outcome {
	c := *o
	c.Grid = make([][]string, len(o.Grid))
	for i, row := range o.Grid {
		c.Grid[i] = append([]string(nil), row...)
	}
	c.WinningLines = append([]LineWin(nil), o.WinningLines...)
	c.WaysWins = append([]WaysWin(nil), o.WaysWins...)
	return &c
}
