package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/roundbet/internal/domain"
)

// Console implementa ports.Notifier escribiendo tablas en texto plano.
type Console struct {
	out io.Writer
	now func() time.Time
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout, now: time.Now}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, now func() time.Time) *Console {
	if now == nil {
		now = time.Now
	}
	return &Console{out: w, now: now}
}

// NotifyView imprime el estado global, la ronda en juego, la abierta a apuestas
// y las últimas expiradas.
func (c *Console) NotifyView(_ context.Context, view domain.View) error {
	now := c.now()
	if !view.Synced() {
		fmt.Fprintf(c.out, "[%s] not synced yet\n", now.Format("15:04:05"))
		return nil
	}

	fmt.Fprintf(c.out, "\n[%s] round %d live, round %d open for bets (seq %d)\n",
		now.Format("15:04:05"), view.State.CurrentRoundID, view.State.NextRoundID, view.Seq)

	table := tablewriter.NewWriter(c.out)
	table.Header("Round", "Status", "Start", "End", "Left", "Open $", "Close $", "Up SOL", "Down SOL", "Pool SOL", "Up x", "Down x")

	appendRound := func(label string, r *domain.Round) {
		if r == nil {
			table.Append(label, "-", "-", "-", "-", "-", "-", "-", "-", "-", "-", "-")
			return
		}
		table.Append(
			fmt.Sprintf("%d", r.ID),
			label,
			timeLabel(r.StartTime),
			timeLabel(r.EndTime),
			durationLabel(r.TimeLeft(now)),
			priceLabel(r.StartPrice),
			priceLabel(r.EndPrice),
			fmt.Sprintf("%.4f", r.TotalBetsUp),
			fmt.Sprintf("%.4f", r.TotalBetsDown),
			fmt.Sprintf("%.4f", r.TotalPool),
			multiplierLabel(r.PayoutMultiplier(domain.DirectionUp)),
			multiplierLabel(r.PayoutMultiplier(domain.DirectionDown)),
		)
	}

	appendRound("NEXT", view.Next)
	appendRound("LIVE", view.Current)
	for i := len(view.Expired) - 1; i >= 0; i-- {
		e := view.Expired[i]
		r := e.Round
		label := outcomeLabel(r)
		if e.Placeholder {
			label = "MISSING"
		}
		appendRound(label, &r)
	}
	table.Render()
	return nil
}

// NotifyHistory imprime una página de historial.
func (c *Console) NotifyHistory(_ context.Context, page domain.HistoryPage) error {
	if len(page.Entries) == 0 {
		fmt.Fprintf(c.out, "No bets found (offset %d, scanned %d rounds)\n", page.Offset, page.Scanned)
		return nil
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Round", "Bet", "Amount SOL", "Outcome", "Open $", "Close $", "Result", "Est. payout", "Claim")
	for _, e := range page.Entries {
		result := "PENDING"
		if e.Round.Resolved() {
			result = "LOST"
			if e.UserWon {
				result = "WON"
			}
		}
		claim := "-"
		switch {
		case e.Claimable:
			claim = "CLAIMABLE"
		case e.Bet.Claimed:
			claim = "claimed"
		}
		table.Append(
			fmt.Sprintf("%d", e.Round.ID),
			e.Bet.Direction.String(),
			fmt.Sprintf("%.4f", e.Bet.Amount),
			outcomeLabel(e.Round),
			priceLabel(e.Round.StartPrice),
			priceLabel(e.Round.EndPrice),
			result,
			fmt.Sprintf("%.4f", e.EstimatedPayout),
			claim,
		)
	}
	table.Render()

	if page.Exhausted {
		fmt.Fprintln(c.out, "  (no older rounds)")
	} else {
		fmt.Fprintf(c.out, "  next page: --offset %d\n", page.NextOffset)
	}
	return nil
}

// PrintPrice imprime el último precio y su movimiento contra la apertura.
func (c *Console) PrintPrice(p domain.Price, move *domain.PriceMove) {
	line := fmt.Sprintf("[%s] SOL/USD $%.4f", p.EmittedAt.Format("15:04:05"), p.Value)
	if move != nil {
		line += fmt.Sprintf(" | open $%.4f %+.4f (%s)", move.Open, move.Change, move.Direction)
	}
	fmt.Fprintln(c.out, line)
}

// PrintTx imprime el resultado de una transacción enviada.
func (c *Console) PrintTx(h domain.TxHandle) {
	fmt.Fprintf(c.out, "%s round %d submitted: %s\n", h.Kind, h.RoundID, h.Signature)
}

// --- helpers ---

func outcomeLabel(r domain.Round) string {
	switch {
	case r.Outcome != nil:
		return r.Outcome.String()
	case r.IsActive:
		return "ACTIVE"
	default:
		return "-"
	}
}

func timeLabel(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("01-02 15:04")
}

func priceLabel(p *float64) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%.4f", *p)
}

func multiplierLabel(m float64) string {
	if m <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.2fx", m)
}

func durationLabel(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	m := int(d / time.Minute)
	s := int((d % time.Minute) / time.Second)
	return fmt.Sprintf("%02d:%02d", m, s)
}
