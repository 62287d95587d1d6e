package suggest

import (
	"fmt"
	"strings"

	"github.com/madalinagriza/flashfinance/internal/core"
)

// buildPrompt embeds the category list, the per-category history of
// previously labeled transactions, and the normalization rules the
// model must apply to noisy merchant strings.
func buildPrompt(user core.OwnerID, categories []core.CategoryRef, tx core.TransactionInfo, history map[core.CategoryID][]core.TransactionInfo) string {
	var categoriesBlock strings.Builder
	for _, c := range categories {
		fmt.Fprintf(&categoriesBlock, "- %s: %s\n", c.ID, c.Name)
	}

	var historyBlock strings.Builder
	for _, c := range categories {
		items := history[c.ID]
		if len(items) == 0 {
			fmt.Fprintf(&historyBlock, "* %s (%s): (no prior transactions)\n", c.Name, c.ID)
			continue
		}
		fmt.Fprintf(&historyBlock, "* %s (%s):\n", c.Name, c.ID)
		for _, info := range items {
			fmt.Fprintf(&historyBlock, "  - %q | %s\n", info.Merchant, info.Name)
		}
	}

	return strings.TrimSpace(fmt.Sprintf(`
You classify ONE bank transaction into exactly ONE of the user's categories.

The data can be noisy. Merchant and name fields may include:
- Processor prefixes/suffixes (e.g., "SQ *", "TST*", "POS", "AUTH", "ONLINE").
- Uppercase, punctuation, and partial words.
- Aggregators (DoorDash/Grubhub/UberEats) where the underlying restaurant is implied.

Rules:
1) Choose exactly one category from the list below. Do not invent categories.
2) Prefer matches based on normalized keywords (strip "SQ*", "TST*", "POS", "*", punctuation, repeated whitespace).
3) If a transaction appears in multiple categories historically, prefer the category with the strongest exact/near keyword match in history; break ties by the category with more matching historical examples.
4) If still uncertain, choose the most semantically appropriate category by name (e.g., "Coffee Shops" vs "Restaurants" for coffee chains).
5) Treat delivery aggregators (DoorDash/Grubhub/UberEats) as "Takeout / Delivery" unless the history for a specific restaurant clearly maps elsewhere.
6) If the text suggests transit (MBTA, MTA, LYFT/UBER rides) treat as "Transit".
7) Never output explanations - return only the JSON object.

USER: %s

CATEGORIES (id: name):
%s
FULL CATEGORY HISTORY (examples of previously labeled transactions):
%s
TRANSACTION TO CLASSIFY (noisy, normalize before matching):
{ "id": %q, "merchant": %q, "name": %q }

Return ONLY this JSON (no extra text):
{
  "suggestedCategoryId": "<one existing category id>",
  "suggestedCategoryName": "<that category's name as listed above>"
}
`, user, categoriesBlock.String(), historyBlock.String(), tx.TxID, tx.Merchant, tx.Name))
}
