package monitor

import (
	"fmt"
	"strings"

	"github.com/m3rciful/seatwatch/core/telegram/format"
	"github.com/m3rciful/seatwatch/internal/model"
)

const noticeLineLimit = 200

// noticeText renders the availability alert for sub listing up to maxTrains trains.
func noticeText(sub model.Subscription, trains []trainSeats, maxTrains, maxLen int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔔 <b>Уведомление о появлении мест!</b>\n\nПодписка #%d\n", sub.ID)
	b.WriteString(line("Маршрут: " + sub.OriginName + " -> " + sub.DestinationName))
	fmt.Fprintf(&b, "Дата: %s\n\n", sub.DepartureDate.Format("2006-01-02"))

	for i, ts := range trains {
		if i == maxTrains {
			fmt.Fprintf(&b, "... и ещё %d\n", len(trains)-maxTrains)
			break
		}
		b.WriteString(line(fmt.Sprintf("%d. 🚂 %s", i+1, ts.train.Number)))
		b.WriteString(line("   ⏰ " + ts.train.Departure + " → " + ts.train.Arrival))
		fmt.Fprintf(&b, "   ✅ Доступно мест: %d\n\n", ts.seats)
	}
	return format.Limit(strings.TrimRight(b.String(), "\n"), maxLen, format.TruncatedMarker)
}

// line escapes s, cuts it to noticeLineLimit runes and terminates it.
func line(s string) string {
	return format.Escape(format.Runes(s, noticeLineLimit)) + "\n"
}
