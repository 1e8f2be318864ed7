package express

import (
	"fmt"
	"strings"

	"github.com/serikovn/nexpr-update/internal/disruption"
	"github.com/serikovn/nexpr-update/internal/wizard"
)

// ForbiddenText is the reply to a non-admin invoking an admin action.
const ForbiddenText = "У вас нет прав для выполнения этой команды."

const (
	textStoreFailure  = "Не удалось обработать запрос, попробуйте позже."
	textNothingRemove = "Нет проблем для удаления."
	textChooseRemove  = "Выберите проблему для удаления:"
	textListEmpty     = "Список проблем пуст."
	textRejectedMedia = "Отправьте файл или корректную ссылку."
	textResolveUsage  = "Укажите направление: /resolve <название>"
	textRouteGone     = "Проблема на этом направлении уже устранена."
	textSubscribed    = "🔔 Вы получите уведомление, когда проблема будет устранена."
	textUnsubscribed  = "🔕 Подписка отменена."
	textNameTooLong   = "⚠️ Название слишком длинное для кнопки Telegram: пока проблема в списке, /start не сможет показать направления. Начните заново через /add и выберите название короче."

	labelSubscribe   = "🔔 Уведомить об устранении"
	labelUnsubscribe = "🔕 Отписаться от уведомлений"
)

func textNormalOperation(date string) string {
	return fmt.Sprintf("На %s Ночной Экспресс двигается в штатном режиме.", date)
}

func textDelays(date string) string {
	return fmt.Sprintf("На %s задержки в перевозках Ночного Экспресса зафиксированы на следующих направлениях.\n\nВыберите направление, чтобы узнать подробности:", date)
}

// RouteText is the detail template shown under a route's media.
func RouteText(p disruption.Problem) string {
	return fmt.Sprintf("%s: %s, прогноз устранения — %s.", p.Name, p.Description, p.ETA)
}

func textPrompt(step wizard.Step) string {
	switch step.(type) {
	case wizard.CollectingName:
		return "Введите название направления:"
	case wizard.CollectingDescription:
		return "Введите описание проблемы:"
	case wizard.CollectingETA:
		return "Введите прогноз устранения (например: 7 сентября, 15:00):"
	case wizard.CollectingMedia:
		return "Отправьте медиафайлы (фото/видео) или ссылки на них.\n" +
			"Можно отправить несколько файлов.\n" +
			"Когда закончите, напишите \"готово\" или \"done\"."
	}
	return ""
}

func textMediaAdded(ref disruption.MediaRef) string {
	switch {
	case ref.IsLink():
		return fmt.Sprintf("✅ Добавлена ссылка (%s). Продолжайте или напишите \"готово\".", ref.Type)
	case ref.Type == disruption.MediaVideo:
		return "✅ Видео добавлено. Продолжайте или напишите \"готово\"."
	default:
		return "✅ Фото добавлено. Продолжайте или напишите \"готово\"."
	}
}

func textAdded(name string, recipients int) string {
	return fmt.Sprintf("✅ Проблема \"%s\" добавлена. Уведомление отправлено пользователям: %d.", name, recipients)
}

func textAddFailed(name string) string {
	return fmt.Sprintf("❌ Не удалось сохранить проблему \"%s\". Напишите \"готово\" ещё раз.", name)
}

func textRemoved(name string) string {
	return fmt.Sprintf("✅ Проблема \"%s\" удалена.", name)
}

func textNotFound(name string) string {
	return fmt.Sprintf("❌ Проблема \"%s\" не найдена.", name)
}

func textResolved(name string, recipients, failed int) string {
	s := fmt.Sprintf("✅ Проблема \"%s\" устранена. Уведомлено подписчиков: %d.", name, recipients)
	if failed > 0 {
		s += fmt.Sprintf(" Не доставлено: %d.", failed)
	}
	return s
}

// NewProblemNotice is broadcast to every user when a problem is published.
func NewProblemNotice(p disruption.Problem) string {
	return fmt.Sprintf("⚠️ Новая задержка на направлении «%s».\n%s\nПрогноз устранения: %s.\n\nПодробности: /start",
		p.Name, p.Description, p.ETA)
}

// ResolvedNotice is sent to the subscribers of a resolved route.
func ResolvedNotice(route string) string {
	return fmt.Sprintf("✅ Проблема на направлении «%s» устранена. Ночной Экспресс снова в пути!", route)
}

func textList(problems []disruption.Problem) string {
	var b strings.Builder
	b.WriteString("📋 Текущие проблемы:\n\n")
	for i, p := range problems {
		fmt.Fprintf(&b, "%d. %s\n", i+1, p.Name)
		fmt.Fprintf(&b, "   Описание: %s\n", p.Description)
		fmt.Fprintf(&b, "   Прогноз: %s\n", p.ETA)
		fmt.Fprintf(&b, "   Медиа: %d файлов\n\n", len(p.Media))
	}
	return b.String()
}
