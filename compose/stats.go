package compose

import (
	"fmt"
	"strings"

	"github.com/quailyquaily/mira/db/models"
	"github.com/quailyquaily/mira/internal/strutil"
	"github.com/quailyquaily/mira/store"
)

var typeDisplayNames = map[string]string{
	"person":   "люди",
	"place":    "места",
	"object":   "объекты",
	"event":    "события",
	"task":     "задачи",
	"reminder": "напоминания",
}

// StatsSummary renders the memory overview for a user.
func StatsSummary(stats store.Stats, recent []models.Entry) string {
	if stats.Entries == 0 {
		return "💭 Твоя память пока пуста. Расскажи мне что-нибудь, и я запомню!"
	}

	parts := []string{
		"📊 Твоя память содержит:",
		fmt.Sprintf("📝 %d записей", stats.Entries),
		fmt.Sprintf("🏷️ %d сущностей", stats.Entities),
	}
	if stats.ActiveReminders > 0 {
		parts = append(parts, fmt.Sprintf("⏰ %d напоминаний", stats.ActiveReminders))
	}

	if len(recent) > 0 {
		parts = append(parts, "\n📅 Недавно ты упоминал:")
		for _, en := range recent {
			parts = append(parts, "• "+strutil.TruncateRunes(en.OriginalText, 60))
		}
	}
	return strings.Join(parts, "\n")
}

// QuickInsights renders what kinds of things the user talks about the
// most: top entity types and the most mentioned names.
func QuickInsights(typeCounts []store.TypeCount, topEntities []store.EntityHit) string {
	if len(typeCounts) == 0 {
		return "💭 Пока нет данных для анализа. Расскажи мне что-нибудь!"
	}

	parts := []string{"🔍 Быстрые инсайты:"}
	for _, tc := range typeCounts[:min(3, len(typeCounts))] {
		name := typeDisplayNames[tc.Type]
		if name == "" {
			name = tc.Type
		}
		parts = append(parts, fmt.Sprintf("📌 %s: %d", name, tc.Count))
	}

	if len(topEntities) > 0 {
		var names []string
		for _, e := range topEntities[:min(5, len(topEntities))] {
			names = append(names, e.Name)
		}
		parts = append(parts, "\n🏷️ Часто упоминаемые: "+strings.Join(names, ", "))
	}
	return strings.Join(parts, "\n")
}
