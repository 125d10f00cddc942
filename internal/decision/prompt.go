package decision

import (
	"fmt"
	"strings"

	"github.com/avlor/fraudgate/internal/domain"
)

// BuildPrompt renders the analysis prompt from the transaction, the
// similar historical cases and the customer's trailing history.
func BuildPrompt(txn *domain.Transaction, similar []domain.SimilarCase, history *domain.CustomerHistory, rulesTriggered []string, ruleAction string) string {
	var b strings.Builder

	b.WriteString("Analyze the following financial transaction for fraud risk:\n\n")
	fmt.Fprintf(&b, "Transaction Type: %s\n", txn.Type)
	fmt.Fprintf(&b, "Amount: %s %s\n", txn.Amount.StringFixed(2), txn.Currency)
	fmt.Fprintf(&b, "Sender: %s (%s)\n", txn.Sender.Name, txn.Sender.Country)
	fmt.Fprintf(&b, "Recipient: %s (%s)\n", txn.Recipient.Name, txn.Recipient.Country)
	fmt.Fprintf(&b, "Description: %s\n", txn.Reference)

	if len(txn.RiskFlags) > 0 {
		fmt.Fprintf(&b, "Risk Flags: %s\n", strings.Join(txn.RiskFlags, ", "))
	}

	if len(similar) > 0 {
		fmt.Fprintf(&b, "\nSimilar historical cases (%d):\n", len(similar))
		for _, c := range similar {
			fmt.Fprintf(&b, "- %s: prior decision %s (similarity %.2f)\n", c.TransactionID, c.PriorDecision, c.Score)
		}
	}

	if history != nil {
		fmt.Fprintf(&b, "\nCustomer history: %d transactions in 90 days, average amount %s, %d prior risk incidents\n",
			history.TotalTxns90d, history.AverageAmount.StringFixed(2), history.RiskIncidents)
	}

	if len(rulesTriggered) > 0 {
		fmt.Fprintf(&b, "\nRULES TRIGGERED: %s\n", strings.Join(rulesTriggered, ", "))
		fmt.Fprintf(&b, "RULE RECOMMENDATION: %s\n", ruleAction)
	}

	b.WriteString("\nProvide your analysis in the following format:\n")
	b.WriteString("DECISION: [approve/reject/escalate]\n")
	b.WriteString("CONFIDENCE: [0-100]\n")
	b.WriteString("REASONING: [detailed explanation]\n")
	b.WriteString("RISK_FACTORS: [comma-separated list of risk factors]")

	return b.String()
}
