package responses

import (
	"fmt"

	"github.com/isittrue-tgbot-go/internal/models"
)

const (
	iconPositive  = "https://img.icons8.com/color/48/checkmark.png"
	iconNegative  = "https://img.icons8.com/color/48/cancel.png"
	iconUncertain = "https://img.icons8.com/color/48/question-mark.png"

	// NeutralIconURL does not give the verdict away before the result is sent
	NeutralIconURL = iconUncertain
)

// FormatQuery quotes the user's query above the response. The text is not escaped.
func FormatQuery(query, response string) string {
	return fmt.Sprintf("📝 Запрос: \"%s\"\n\n%s", query, response)
}

// IconURL returns the thumbnail of a category, falling back to the uncertain icon
func IconURL(category models.Category) string {
	switch category {
	case models.CategoryPositive:
		return iconPositive
	case models.CategoryNegative:
		return iconNegative
	default:
		return iconUncertain
	}
}
