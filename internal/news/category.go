package news

// DefaultArxivCategory is assigned when a paper's subject tag has no
// mapping into the app taxonomy.
const DefaultArxivCategory = "science"

// arxivCategories maps arXiv subject tags to the app's category
// taxonomy. Anything not listed falls back to DefaultArxivCategory.
var arxivCategories = map[string]string{
	"cs.AI":   "ai",
	"cs.LG":   "ai",
	"cs.CL":   "ai",
	"cs.CV":   "ai",
	"cs.NE":   "ai",
	"stat.ML": "ai",
	"cs.CR":   "security",
	"cs.SE":   "tech",
	"cs.DC":   "tech",
	"cs.PL":   "tech",
	"cs.DB":   "tech",
}

// ArxivCategory maps an arXiv subject tag (e.g. "cs.AI") to an app
// category.
func ArxivCategory(term string) string {
	if cat, ok := arxivCategories[term]; ok {
		return cat
	}
	// Quant-finance tags share a q-fin prefix with many leaves.
	if len(term) > 5 && term[:5] == "q-fin" {
		return "finance"
	}
	return DefaultArxivCategory
}

// Categories returns the app taxonomy in display order.
func Categories() []string {
	return []string{
		"wire",
		"tech",
		"ai",
		"science",
		"finance",
		"security",
	}
}
