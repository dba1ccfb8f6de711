package search

import (
	"fmt"
	"strings"
	"time"

	"github.com/m3rciful/seatwatch/core/telegram/format"
	"github.com/m3rciful/seatwatch/internal/chat"
	"github.com/m3rciful/seatwatch/internal/model"
)

const (
	notChosen = "не выбрана"

	promptOrigin        = "Введите название станции отправления:"
	promptDestination   = "Теперь введите название станции назначения:"
	promptDate          = "Теперь укажите дату поездки в формате ДД.ММ.ГГГГ:"
	pickOrigin          = "Выберите станцию отправления:"
	pickDestination     = "Выберите станцию назначения:"
	noStations          = "Станции не найдены. Попробуйте другой запрос."
	datePast            = "❌ Дата не может быть в прошлом. Укажите будущую дату."
	dateFormat          = "Неверный формат даты. Используйте формат ДД.ММ.ГГГГ (например: 15.01.2025)"
	noTrains            = "❌ Поезда не найдены на выбранную дату."
	providerFailed      = "❌ Сервис РЖД временно недоступен. Попробуйте ещё раз."
	incompleteRoute     = "❌ Не все параметры поиска заполнены"
	subscribeFailed     = "❌ Ошибка при создании подписки"
	stateSaveFailed     = "❌ Не удалось сохранить состояние поиска"
	subscribeHint       = "Нажмите кнопку ниже, чтобы подписаться на этот поезд."
	subscribeRouteHint  = "Нажмите кнопку ниже, чтобы подписаться на все поезда маршрута."
	buttonsHint         = "Используйте кнопки для выбора поезда или подписки."
	subscribeButton     = "🔔 Подписаться"
	anyTrainButton      = "🚆 Любой поезд на маршруте"
	subscriptionCreated = "✅ Подписка создана!"
)

// StaleNotice answers a button press that no longer applies.
const StaleNotice = "Кнопка устарела"

// ProgressHeader renders the route summary shown at the top of the progress message.
func ProgressHeader(st *model.SearchState) string {
	origin, destination, date := notChosen, notChosen, notChosen
	if st.OriginName != "" {
		origin = st.OriginName
	}
	if st.DestinationName != "" {
		destination = st.DestinationName
	}
	if st.DepartureDate != nil {
		date = st.DepartureDate.Format("02.01.2006")
	}
	return "🚆 <b>Поиск поездов</b>\n\n" +
		"Станция отправления: " + format.Bold(origin) + "\n" +
		"Станция назначения: " + format.Bold(destination) + "\n" +
		"Дата: " + format.Bold(date) + "\n"
}

func shortQuery(n int) string {
	return fmt.Sprintf("Введите минимум %d символа для поиска станции", n)
}

func stationList(query string, step model.Step) string {
	pick := pickOrigin
	if step == model.StepDestination {
		pick = pickDestination
	}
	return fmt.Sprintf("Найденные станции для запроса '%s':\n%s", format.Escape(query), pick)
}

// TrainLabel is the compact route label carried in a train payload.
func TrainLabel(route string) string {
	return strings.ReplaceAll(format.Runes(route, 20), " ", "")
}

func trainList(list model.TrainList, shown []model.Train) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Найдено поездов: %d\nВыберите поезд для отслеживания:", list.TotalCount)
	for i, tr := range shown {
		fmt.Fprintf(&b, "\n%d. 🚂 %s %s %s->%s", i+1, format.Bold(tr.Number),
			format.Escape(tr.Route), format.Escape(tr.Departure), format.Escape(tr.Arrival))
		if seats := tr.AvailableSeats(nil); seats > 0 {
			fmt.Fprintf(&b, "\n   ✅ Доступно мест: %d", seats)
		} else {
			b.WriteString("\n   ❌ Нет свободных мест")
		}
	}
	return b.String()
}

func selectedTrain(st *model.SearchState) string {
	if st.SelectedTrain == nil {
		return "Поезд: <b>любой</b>\n\n" + subscribeRouteHint
	}
	return fmt.Sprintf("Поезд: %s %s\n\n%s", format.Bold(st.SelectedTrain.Number),
		format.Escape(st.SelectedTrain.Info), subscribeHint)
}

func subscriptionSummary(sub model.Subscription, interval time.Duration) string {
	var b strings.Builder
	b.WriteString(subscriptionCreated + "\n\n")
	if !sub.IsRouteWide() {
		fmt.Fprintf(&b, "Поезд: %s\n", format.Bold(sub.TrainNumbers))
	}
	fmt.Fprintf(&b, "Маршрут: %s -> %s\n", format.Escape(sub.OriginName), format.Escape(sub.DestinationName))
	fmt.Fprintf(&b, "Дата: %s\n\n", sub.DepartureDate.Format("2006-01-02"))
	what := "наличие мест"
	if !sub.IsRouteWide() {
		what = "наличие мест в поезде " + format.Escape(sub.TrainNumbers)
	}
	fmt.Fprintf(&b, "Бот будет проверять %s каждые %s и уведомит вас при их появлении.", what, humanInterval(interval))
	return b.String()
}

func humanInterval(d time.Duration) string {
	if m := int(d.Minutes()); m >= 1 {
		return fmt.Sprintf("%d мин.", m)
	}
	return fmt.Sprintf("%d сек.", int(d.Seconds()))
}

func stationButtons(stations []model.Station, limit int) [][]chat.Button {
	rows := make([][]chat.Button, 0, len(stations))
	for _, s := range stations {
		data, err := EncodePayload(StationPayload(s.Code, s.Name), limit)
		if err != nil {
			continue
		}
		rows = append(rows, []chat.Button{{Label: s.Label(), Payload: data}})
	}
	return rows
}

func trainButtons(trains []model.Train, limit int) [][]chat.Button {
	rows := make([][]chat.Button, 0, len(trains)+1)
	for _, tr := range trains {
		data, err := EncodePayload(TrainPayload(tr.Number, TrainLabel(tr.Route)), limit)
		if err != nil {
			continue
		}
		rows = append(rows, []chat.Button{{Label: "Выбрать " + tr.Number, Payload: data}})
	}
	return append(rows, []chat.Button{{Label: anyTrainButton, Payload: MustEncode(AnyTrainPayload())}})
}

func subscribeButtons() [][]chat.Button {
	return [][]chat.Button{{{Label: subscribeButton, Payload: MustEncode(SubscribePayload())}}}
}
