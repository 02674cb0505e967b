package mealsync

import (
	"fmt"
	"strings"

	"github.com/omq/mealsync/internal/domain/meal"
)

// DescribeMeal builds the image generation prompt for a draft
func DescribeMeal(draft meal.Draft, name string) string {
	var b strings.Builder
	b.WriteString("A cheerful and appetizing dish")
	if name != "" {
		fmt.Fprintf(&b, " called %q", name)
	}
	b.WriteString(", served on a colourful ceramic plate on a light wooden table.")

	parts := make([]string, 0, 3)
	for _, group := range [][]string{draft.Proteins, draft.Starchies, draft.Vegetables} {
		if len(group) > 0 {
			parts = append(parts, strings.Join(group, ", "))
		}
	}
	if len(parts) > 0 {
		fmt.Fprintf(&b, " The meal is made of %s.", joinWithAnd(parts))
	}

	b.WriteString(" The scene is bathed in soft natural light, with vivid colours and fresh herbs, " +
		"in a friendly style that evokes a summer lunch. Warm atmosphere inspired by modern food photography. " +
		"Photorealistic, no text.")
	return b.String()
}

func joinWithAnd(parts []string) string {
	switch len(parts) {
	case 1:
		return parts[0]
	case 2:
		return parts[0] + " with " + parts[1]
	default:
		return strings.Join(parts[:len(parts)-1], " with ") + " and " + parts[len(parts)-1]
	}
}
