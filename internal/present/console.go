package present

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/alanyoungcy/arbmonitor/internal/arbitrage"
	"github.com/alanyoungcy/arbmonitor/internal/domain"
)

const (
	reset  = "\033[0m"
	bold   = "\033[1m"
	dim    = "\033[2m"
	red    = "\033[31m"
	green  = "\033[32m"
	yellow = "\033[33m"
	cyan   = "\033[36m"

	depthLevels = 5
	tableWidth  = 100
	bannerWidth = 70
)

// Console prints the side-by-side book table and the opportunity banner.
// Column order is (left, right); the summary row compares them in the
// detector's argument order (right, left) as well.
type Console struct {
	w      io.Writer
	left   domain.Venue
	right  domain.Venue
	anchor string
	color  bool
	now    func() time.Time

	mu sync.Mutex
}

// NewConsole creates a console presenter. left and right name the venues
// shown in the first and second column pair.
func NewConsole(w io.Writer, left, right domain.Venue, anchor string, color bool) *Console {
	return &Console{
		w:      w,
		left:   left,
		right:  right,
		anchor: anchor,
		color:  color,
		now:    time.Now,
	}
}

// ShowState implements Sink.
func (c *Console) ShowState(_ context.Context, state domain.MarketState) {
	l, r := state[c.left], state[c.right]

	var b strings.Builder
	title := r.Title
	if title == "" {
		title = l.Title
	}
	if title == "" {
		title = r.Instrument
	}

	b.WriteString("\n" + c.paint(cyan, strings.Repeat("═", tableWidth)) + "\n")
	header := fmt.Sprintf("[%s] Market: %s", c.now().Format("15:04:05"), title)
	if c.anchor != "" {
		header += fmt.Sprintf(" (Outcome: %s)", c.anchor)
	}
	b.WriteString(c.paint(bold, header) + "\n")
	b.WriteString(c.paint(cyan, strings.Repeat("─", tableWidth)) + "\n")
	fmt.Fprintf(&b, "%-20s | %-16s | %-16s | %-16s | %-16s\n",
		"Level", string(c.left)+" Price", string(c.left)+" Vol", string(c.right)+" Price", string(c.right)+" Vol")
	b.WriteString(c.paint(dim, strings.Repeat("─", tableWidth)) + "\n")

	for i := depthLevels - 1; i >= 0; i-- {
		c.writeRow(&b, fmt.Sprintf("Ask #%d", i+1), red, level(l.Asks, i), level(r.Asks, i))
	}
	b.WriteString(c.paint(dim, strings.Repeat("─", tableWidth)) + "\n")
	for i := 0; i < depthLevels; i++ {
		c.writeRow(&b, fmt.Sprintf("Bid #%d", i+1), green, level(l.Bids, i), level(r.Bids, i))
	}
	b.WriteString(c.paint(dim, strings.Repeat("─", tableWidth)) + "\n")

	fmt.Fprintf(&b, "%-20s | %-16s | %-16s | %-16s | %-16s\n", "Best Bid/Ask",
		bestBid(l), bestAsk(l), bestBid(r), bestAsk(r))
	for _, q := range []domain.Quote{l, r} {
		if q.Inverted() {
			b.WriteString(c.paint(yellow, fmt.Sprintf("%-20s | %s book inverted (bid above ask)", "Warning", q.Venue)) + "\n")
		}
	}

	// sellRight: right's bid over left's ask; sellLeft: left's bid over right's ask.
	sellRight, sellLeft := arbitrage.Spreads(r, l)
	fmt.Fprintf(&b, "%-20s | %-35s | %-35s\n", "Potential Arb",
		c.spread(fmt.Sprintf("%s -> %s", c.left, c.right), sellRight),
		c.spread(fmt.Sprintf("%s -> %s", c.right, c.left), sellLeft),
	)

	c.write(b.String())
}

// ShowOpportunity implements Sink.
func (c *Console) ShowOpportunity(_ context.Context, opp domain.Opportunity, _ domain.MarketState) {
	var b strings.Builder
	b.WriteString("\n" + c.paint(bold+green, "ARBITRAGE OPPORTUNITY DETECTED") + "\n")
	b.WriteString(c.paint(yellow, strings.Repeat("═", bannerWidth)) + "\n")
	b.WriteString(c.paint(cyan, fmt.Sprintf("Buy on:  %s @ $%.4f", opp.BuyVenue, opp.BuyPrice)) + "\n")
	b.WriteString(c.paint(cyan, fmt.Sprintf("Sell on: %s @ $%.4f", opp.SellVenue, opp.SellPrice)) + "\n\n")
	b.WriteString(c.paint(bold+green, fmt.Sprintf("Profit: %.2f¢ (%.2f%%)", opp.ProfitCents(), opp.ProfitPct)) + "\n")
	b.WriteString(c.paint(yellow, strings.Repeat("═", bannerWidth)) + "\n")
	c.write(b.String())
}

func (c *Console) writeRow(b *strings.Builder, label, color string, l, r *domain.PriceLevel) {
	// Pad before painting so escape codes do not break the column width.
	fmt.Fprintf(b, "%s | %-16s | %-16s | %-16s | %-16s\n",
		c.paint(color, fmt.Sprintf("%-20s", label)),
		levelPrice(l), levelSize(l), levelPrice(r), levelSize(r))
}

func (c *Console) spread(label string, v float64) string {
	if v > 0 {
		return c.paint(bold+green, fmt.Sprintf("%-35s", fmt.Sprintf("%s: +$%.4f", label, v)))
	}
	return c.paint(dim, fmt.Sprintf("%-35s", fmt.Sprintf("%s: $%.4f", label, v)))
}

func (c *Console) paint(code, s string) string {
	if !c.color {
		return s
	}
	return code + s + reset
}

func (c *Console) write(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = io.WriteString(c.w, s)
}

func level(levels []domain.PriceLevel, i int) *domain.PriceLevel {
	if i < len(levels) {
		return &levels[i]
	}
	return nil
}

// bestBid and bestAsk print "-" for a side the venue is not quoting.
func bestBid(q domain.Quote) string {
	if !q.HasBid() {
		return "-"
	}
	return price(q.BestBid)
}

func bestAsk(q domain.Quote) string {
	if !q.HasAsk() {
		return "-"
	}
	return price(q.BestAsk)
}

func levelPrice(l *domain.PriceLevel) string {
	if l == nil {
		return ""
	}
	return price(l.Price)
}

func levelSize(l *domain.PriceLevel) string {
	if l == nil {
		return ""
	}
	return fmt.Sprintf("%.0f", l.Size)
}

func price(p float64) string {
	return fmt.Sprintf("$%.4f", p)
}
