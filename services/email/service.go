package emailsvc

import (
	"log"

	"github.com/trezcool/jamii/core"
)

// New returns the console service in debug mode or without a SendGrid key, SendGrid otherwise.
func New(conf *core.Config, std *log.Logger, logger core.Logger) core.EmailService {
	if conf.Debug || conf.SendgridAPIKey == "" {
		return NewConsoleService(conf, std, logger)
	}
	return NewSendgridService(conf, logger)
}
