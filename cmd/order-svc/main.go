package main

import (
	"github.com/corray333/backend-labs/orderddd/internal/app"
	"github.com/corray333/backend-labs/orderddd/internal/config"
)

func main() {
	config.MustInit("/etc/order-svc")
	app.MustNewOrderApp().Run()
}
