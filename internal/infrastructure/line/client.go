package line

import (
	"net/http"
	"os"
	"sync"

	"medremind/internal/pkg/logger"

	"github.com/line/line-bot-sdk-go/v7/linebot"
)

// Client wraps the linebot.Client together with the push target.
type Client struct {
	*linebot.Client
	to  string
	log logger.Logger
}

var (
	lineClientInstance *Client
	once               sync.Once
)

// NewClient creates a new singleton instance of the LINE Bot client.
// It reads credentials from environment variables. Unlike the channel
// secrets, a missing configuration is not fatal: it returns nil and the
// caller selects the in-process timer backend instead.
func NewClient(log logger.Logger) *Client {
	once.Do(func() {
		channelSecret := os.Getenv("CHANNEL_SECRET")
		channelToken := os.Getenv("CHANNEL_ACCESS_TOKEN")
		to := os.Getenv("LINE_USER_ID")

		if channelSecret == "" || channelToken == "" || to == "" {
			log.Warn("LINE credentials not configured; notification delivery falls back to in-process timers")
			return
		}

		bot, err := linebot.New(channelSecret, channelToken)
		if err != nil {
			log.Error("Failed to create LINE Bot client", err)
			return
		}
		log.Info("Successfully created LINE Bot client.")
		lineClientInstance = &Client{
			Client: bot,
			to:     to,
			log:    log,
		}
	})
	return lineClientInstance
}

// PushMessages sends one or more messages using the PushMessage API.
func (c *Client) PushMessages(messages ...linebot.SendingMessage) error {
	_, err := c.PushMessage(c.to, messages...).Do()
	if err != nil {
		return err // Return the error for the caller to handle
	}
	c.log.Debug("Successfully sent push message.")
	return nil
}

// ParseRequest parses incoming webhook requests.
func (c *Client) ParseRequest(r *http.Request) ([]*linebot.Event, error) {
	return c.Client.ParseRequest(r)
}
