package analyzer

import (
	"fmt"
	"strings"

	"github.com/ternarybob/prospectus/internal/models"
)

const jsonOnlySystem = `You are a government-ethics analyst. Respond with a single JSON object only - no prose, no markdown fences.`

// leadershipNames marks members whose party-leadership role grants market
// oversight even without committee seats. Checked alongside the is_leadership
// flag on the politician row.
var leadershipNames = map[string]bool{
	"Nancy Pelosi":     true,
	"Kevin McCarthy":   true,
	"Hakeem Jeffries":  true,
	"Mike Johnson":     true,
	"Chuck Schumer":    true,
	"Mitch McConnell":  true,
	"John Thune":       true,
	"Richard Durbin":   true,
	"Steve Scalise":    true,
	"Katherine Clark":  true,
}

// isLeadership reports whether the politician holds a leadership role.
func isLeadership(p *models.Politician) bool {
	if p == nil {
		return false
	}
	return p.IsLeadership || leadershipNames[p.CanonicalName]
}

// formatCommittees renders committee context for prompts. Politicians in
// leadership with no committees get a synthetic all-sector entry so the model
// never treats them as uninvolved.
func formatCommittees(p *models.Politician, committees []models.Committee) string {
	if len(committees) == 0 {
		if isLeadership(p) {
			return "- Leadership (party leadership role; oversight spans all sectors)"
		}
		return "- none on record"
	}

	var b strings.Builder
	for _, c := range committees {
		b.WriteString("- ")
		b.WriteString(c.Name)
		if len(c.TargetSectors) > 0 {
			b.WriteString(" (sectors: ")
			b.WriteString(strings.Join(c.TargetSectors, ", "))
			b.WriteString(")")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

const tradeSchema = `{"conflict_score": 0.0, "confidence_score": 0.0, "reasoning": "one paragraph"}`

// buildTradePrompt renders the single-trade conflict prompt.
func buildTradePrompt(trade *models.CongressTrade, politician *models.Politician, committees []models.Committee) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Assess the conflict-of-interest risk of this congressional stock trade.\n\n")
	fmt.Fprintf(&b, "Politician: %s (%s-%s, %s)\n", trade.PoliticianName, trade.Party, trade.State, trade.Chamber)
	fmt.Fprintf(&b, "Account owner: %s\n", trade.Owner)
	fmt.Fprintf(&b, "Committee assignments:\n%s\n\n", formatCommittees(politician, committees))
	fmt.Fprintf(&b, "Trade: %s %s", trade.Type, trade.Ticker)
	if trade.Company != "" {
		fmt.Fprintf(&b, " (%s)", trade.Company)
	}
	if trade.Sector != "" {
		fmt.Fprintf(&b, ", sector %s", trade.Sector)
	}
	fmt.Fprintf(&b, "\nDate: %s\nAmount: %s\n", trade.TransactionDate.Format("2006-01-02"), trade.Amount)
	if trade.Notes != "" {
		fmt.Fprintf(&b, "Description: %s\n", trade.Notes)
	}

	b.WriteString(`
Scoring bands:
- 0.8-1.0: direct jurisdictional overlap between a committee's sectors and the stock
- 0.4-0.7: sector-level overlap or indirect oversight
- 0.0-0.3: unrelated holding or broad index product

Respond with JSON exactly matching: ` + tradeSchema)
	return b.String()
}

const sessionSchema = `{"conflict_score": 0.0, "confidence_score": 0.0, "risk_pattern": "ConflictBuy|SuspiciousSell|AggressiveBet|RoutineDivestment|NoRelationship|Routine", "summary": "one paragraph"}`

// buildSessionPrompt renders the session-intent prompt over a trade window.
func buildSessionPrompt(session *models.TradeSession, trades []models.CongressTrade, politician *models.Politician, committees []models.Committee) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Classify the intent of this congressional trading session.\n\n")
	fmt.Fprintf(&b, "Politician: %s\n", session.PoliticianName)
	fmt.Fprintf(&b, "Committee jurisdictions:\n%s\n\n", formatCommittees(politician, committees))
	fmt.Fprintf(&b, "Activity %s to %s (%d trades):\n",
		session.StartDate.Format("2006-01-02"), session.EndDate.Format("2006-01-02"), len(trades))
	for _, t := range trades {
		fmt.Fprintf(&b, "- %s | %s %s", t.TransactionDate.Format("2006-01-02"), t.Type, t.Ticker)
		if t.Company != "" {
			fmt.Fprintf(&b, " (%s)", t.Company)
		}
		fmt.Fprintf(&b, " | %s | owner %s\n", t.Amount, t.Owner)
	}

	b.WriteString(`
Apply these steps in order:
1. Regulatory link: do any committee target sectors cover the traded stocks?
2. Direction: a BUY on a linked sector is ConflictBuy (score ~0.9). A SELL proceeds to step 3.
3. Sell context: a small sale ($1,001-$15,000) on a linked sector is RoutineDivestment (~0.1);
   a large sale (>= $50,000) or a full exit is SuspiciousSell (~0.8);
   options or short positions are AggressiveBet (1.0);
   no regulatory link at all is NoRelationship (0.0).

Respond with JSON exactly matching: ` + sessionSchema)
	return b.String()
}

const crowdSchema = `{"sentiment": "Euphoric|Bullish|Neutral|Bearish|Fearful", "summary": "one paragraph"}`

// buildCrowdPrompt renders the crowd-sentiment prompt over social posts.
func buildCrowdPrompt(ticker string, posts []models.SocialPost) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Analyze crowd sentiment about %s from these social posts.\n\n", ticker)
	for i, p := range posts {
		body := p.Body
		if len(body) > 400 {
			body = body[:400]
		}
		fmt.Fprintf(&b, "%d. [%s]", i+1, p.Platform)
		if p.Label != "" {
			fmt.Fprintf(&b, " (tagged %s)", p.Label)
		}
		fmt.Fprintf(&b, " %s\n", body)
	}

	b.WriteString("\nRespond with JSON exactly matching: " + crowdSchema)
	return b.String()
}
