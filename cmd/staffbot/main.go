// Command staffbot runs the staff order desk bot.
package main

import (
	"log"

	"github.com/m3rciful/servicebot/internal/app"
	"github.com/m3rciful/servicebot/internal/authcache"
	"github.com/m3rciful/servicebot/internal/bot/staff"
)

func main() {
	err := app.Main("configs/staffbot.yaml", authcache.NamespaceStaff, func(d app.Deps) app.Handlers {
		return staff.New(staff.Options{
			API:       d.API,
			Store:     d.Store,
			Cache:     d.Cache,
			Cleaner:   d.Cleaner,
			Observer:  d.Metrics,
			OrderType: d.Config.Staff.OrderType,
			AdminID:   d.Config.Telegram.AdminID,
		})
	})
	if err != nil {
		log.Fatal(err)
	}
}
