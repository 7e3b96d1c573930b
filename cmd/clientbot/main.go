// Command clientbot runs the customer storefront bot.
package main

import (
	"log"

	"github.com/m3rciful/servicebot/internal/app"
	"github.com/m3rciful/servicebot/internal/authcache"
	"github.com/m3rciful/servicebot/internal/bot/client"
)

func main() {
	err := app.Main("configs/clientbot.yaml", authcache.NamespaceClient, func(d app.Deps) app.Handlers {
		return client.New(client.Options{
			API:      d.API,
			Store:    d.Store,
			Cache:    d.Cache,
			Cleaner:  d.Cleaner,
			Observer: d.Metrics,
		})
	})
	if err != nil {
		log.Fatal(err)
	}
}
