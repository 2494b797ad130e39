package telegram

import (
	"net"
	"strconv"
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/leadbot/core/config"
)

const defaultLongPollTimeout = 10 * time.Second

// allowedUpdates limits delivery to what events.go converts.
var allowedUpdates = []string{"message", "callback_query"}

// pollerFor picks how updates arrive. The returned name is used in logs.
// Run mode and webhook fields are expected to be normalized already.
func pollerFor(tg coreconfig.TelegramConfig, wh coreconfig.WebhookConfig) (tele.Poller, string) {
	if tg.RunMode == coreconfig.RunModeWebhook {
		return &tele.Webhook{
			Listen:         net.JoinHostPort(wh.Listen, strconv.Itoa(wh.Port)),
			AllowedUpdates: allowedUpdates,
			Endpoint:       &tele.WebhookEndpoint{PublicURL: wh.URL},
		}, coreconfig.RunModeWebhook
	}
	timeout := time.Duration(tg.LongPollTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultLongPollTimeout
	}
	return &tele.LongPoller{Timeout: timeout, AllowedUpdates: allowedUpdates}, coreconfig.RunModeLongpoll
}
