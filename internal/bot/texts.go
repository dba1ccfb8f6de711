package bot

import (
	"fmt"
	"strings"
	"time"

	"github.com/m3rciful/seatwatch/core/telegram/format"
	"github.com/m3rciful/seatwatch/internal/chat"
	"github.com/m3rciful/seatwatch/internal/model"
	"github.com/m3rciful/seatwatch/internal/monitor"
	"github.com/m3rciful/seatwatch/internal/search"
)

const (
	welcomeText = `🚆 Добро пожаловать в бот поиска поездов РЖД!

Доступные команды:
/search - Начать поиск поездов
/subscriptions - Мои подписки
/help - Помощь

💡 Для поиска просто напишите название станции отправления!`

	noSubscriptions   = "У вас пока нет подписок. Используйте поиск для создания подписки."
	subscriptionsHead = "📋 <b>Ваши подписки:</b>\n\n"
	subscriptionOff   = "✅ Подписка отключена!"
	subscriptionOn    = "✅ Подписка снова активна!"
	toggleMissed      = "❌ Подписка не найдена или уже в этом состоянии."
	listFailed        = "❌ Ошибка при получении подписок"
	unknownDocument   = "Я понимаю только текстовые сообщения. Напишите название станции или /help."
	adminOnly         = "Команда доступна только администратору."
	rateLimited       = "Слишком много запросов, подождите немного."
	noCycleYet        = "Мониторинг ещё не выполнил ни одного цикла."
)

func helpText(interval time.Duration) string {
	return fmt.Sprintf(`📖 Справка по использованию бота:

🔍 Поиск поездов:
   • Просто напишите название станции отправления
   • Выберите станцию из списка
   • Введите станцию назначения
   • Укажите дату поездки (ДД.ММ.ГГГГ)
   • Выберите поезд или «Любой поезд на маршруте»

🔔 Подписка на отслеживание:
   • После выбора поезда нажмите «Подписаться»
   • Бот будет проверять наличие мест каждые %s
   • Уведомления придут автоматически

📋 Управление подписками:
   • /subscriptions - просмотр всех подписок
   • Кнопки «Отключить» и «Включить» меняют статус подписки

💡 Советы:
• Используйте точные названия станций (Москва, Санкт-Петербург)
• Дата в формате: 15.01.2025`, humanMinutes(interval))
}

func humanMinutes(d time.Duration) string {
	if m := int(d.Minutes()); m >= 1 {
		return fmt.Sprintf("%d мин.", m)
	}
	return fmt.Sprintf("%d сек.", int(d.Seconds()))
}

// subscriptionsView renders the user's subscriptions with a toggle button per item.
func subscriptionsView(subs []model.Subscription, maxLen, maxCallback int) (string, [][]chat.Button) {
	if len(subs) == 0 {
		return noSubscriptions, nil
	}
	var b strings.Builder
	b.WriteString(subscriptionsHead)
	rows := make([][]chat.Button, 0, len(subs))
	for _, sub := range subs {
		status := "✅ Активна"
		if !sub.Active {
			status = "❌ Отключена"
		}
		fmt.Fprintf(&b, "🔔 Подписка #%d\n", sub.ID)
		fmt.Fprintf(&b, "   Маршрут: %s -> %s\n", format.Escape(sub.OriginName), format.Escape(sub.DestinationName))
		if !sub.IsRouteWide() {
			fmt.Fprintf(&b, "   Поезд: %s\n", format.Escape(sub.TrainNumbers))
		}
		fmt.Fprintf(&b, "   Дата: %s\n", sub.DepartureDate.Format("2006-01-02"))
		fmt.Fprintf(&b, "   Статус: %s\n\n", status)

		p, label := search.DisablePayload(sub.ID), fmt.Sprintf("❌ Отключить #%d", sub.ID)
		if !sub.Active {
			p, label = search.EnablePayload(sub.ID), fmt.Sprintf("✅ Включить #%d", sub.ID)
		}
		if data, err := search.EncodePayload(p, maxCallback); err == nil {
			rows = append(rows, []chat.Button{{Label: label, Payload: data}})
		}
	}
	text := strings.TrimRight(b.String(), "\n")
	return format.Limit(text, maxLen, format.TruncatedMarker), rows
}

func statusText(rep monitor.Report, ok bool, active int) string {
	if !ok {
		return noCycleYet
	}
	var b strings.Builder
	b.WriteString("📊 <b>Последний цикл мониторинга</b>\n\n")
	fmt.Fprintf(&b, "ID: <code>%s</code>\n", rep.ID)
	fmt.Fprintf(&b, "Начало: %s\n", rep.StartedAt.Format(time.DateTime))
	fmt.Fprintf(&b, "Длительность: %s\n", rep.FinishedAt.Sub(rep.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(&b, "Активных подписок: %d\n", active)
	fmt.Fprintf(&b, "Проверено: %d, уведомлений: %d, без изменений: %d, ошибок: %d",
		rep.Checked, rep.Notified, rep.Unchanged, rep.Failed)
	if rep.Err != nil {
		b.WriteString("\n\nОшибка: " + format.Escape(format.Runes(rep.Err.Error(), 300)))
	}
	return b.String()
}
